package rostersync

import "sort"

// Status は参照月ごとの同期結果です。
type Status string

const (
	StatusSynced  Status = "synced"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// WindowStatus は 1 参照月分の結果です。
type WindowStatus struct {
	Status  Status `json:"status"`
	Rows    int    `json:"rows"`
	Message string `json:"message,omitempty"`
}

// Result は同期 1 回分の結果です。Stats のキーは YYYY-MM-DD 形式の参照月です。
type Result struct {
	Processed int                     `json:"processed"`
	Stats     map[string]WindowStatus `json:"stats"`
}

// Failed はエラーになった参照月を昇順で返します。
func (r Result) Failed() []string {
	var failed []string
	for date, st := range r.Stats {
		if st.Status == StatusError {
			failed = append(failed, date)
		}
	}
	sort.Strings(failed)
	return failed
}

// Count は指定した状態の参照月数を返します。
func (r Result) Count(status Status) int {
	n := 0
	for _, st := range r.Stats {
		if st.Status == status {
			n++
		}
	}
	return n
}

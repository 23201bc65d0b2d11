package leave

import "time"

// Category は afastamento の分類です。
type Category string

const (
	CategoryINSS        Category = "INSS"
	CategoryAPInvalidez Category = "AP_INVALIDEZ"
	CategoryOther       Category = "OTHER"
)

// Row は参照月時点で afastado となっている社員 1 名分の抽出行です。
type Row struct {
	CompanyID    int
	EmployeeCode string
	LeaveStart   *time.Time
	Reason       string
}

// Resumo は参照月ごとの afastados 集計です。
type Resumo struct {
	RefDate     time.Time
	INSS        int
	APInvalidez int
	Total       int
	SyncedAt    time.Time
}

// Add は分類結果を集計に加算します。OTHER は Total のみに計上されます。
func (r *Resumo) Add(c Category) {
	switch c {
	case CategoryINSS:
		r.INSS++
	case CategoryAPInvalidez:
		r.APInvalidez++
	}
	r.Total++
}

// Valid は inss + ap_invalidez <= total が成り立つかを返します。
func (r *Resumo) Valid() bool {
	return r != nil && r.INSS >= 0 && r.APInvalidez >= 0 && r.INSS+r.APInvalidez <= r.Total
}

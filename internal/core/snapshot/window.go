package snapshot

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout は参照月を文字列化する際の ISO 形式です。
const DateLayout = "2006-01-02"

// Window は同期対象となる 4 つの参照月 (当月・前月・前々月・前年同月) です。
type Window struct {
	M0  time.Time
	M1  time.Time
	M2  time.Time
	M12 time.Time
}

// WindowAt は now を基準とした参照月を計算します。
// 年月は now 自身のロケーションで解釈し、結果は UTC の月初 0 時に正規化します。
func WindowAt(now time.Time) Window {
	return Window{
		M0:  MonthStart(now, 0),
		M1:  MonthStart(now, -1),
		M2:  MonthStart(now, -2),
		M12: MonthStart(now, -12),
	}
}

// MonthStart は now から offset ヶ月ずらした月の初日を返します。
func MonthStart(now time.Time, offset int) time.Time {
	return time.Date(now.Year(), now.Month()+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
}

// Dates は処理順 [M0, M1, M2, M12] で参照月を返します。
func (w Window) Dates() []time.Time {
	return []time.Time{w.M0, w.M1, w.M2, w.M12}
}

// DisplayOrder は表示順 [M2, M1, M0, M12] で参照月を返します。
func (w Window) DisplayOrder() []time.Time {
	return []time.Time{w.M2, w.M1, w.M0, w.M12}
}

// NormalizeReferenceDate は任意の日時を UTC の月初に切り詰めます。
func NormalizeReferenceDate(t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, ErrInvalidReferenceDate
	}
	return MonthStart(t, 0), nil
}

// FormatDate は参照月を YYYY-MM-DD 形式で返します。
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate は YYYY-MM-DD 形式の文字列を参照月として解釈します。
func ParseDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidReferenceDate, raw)
	}
	return NormalizeReferenceDate(t)
}

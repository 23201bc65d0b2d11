package leave

import (
	"github.com/ogurasousui/dp-roster-sync/internal/platform/rowconv"
)

const (
	ColCompanyID    = "company_id"
	ColEmployeeCode = "employee_code"
	ColLeaveStart   = "leave_start"
	ColReason       = "reason"
)

// MapRow は抽出元の行を Row に変換します。欠損列はゼロ値になります。
func MapRow(raw map[string]any) Row {
	var row Row
	if raw == nil {
		return row
	}
	if id := rowconv.Int(raw[ColCompanyID]); id != nil {
		row.CompanyID = *id
	}
	if code := rowconv.String(raw[ColEmployeeCode]); code != nil {
		row.EmployeeCode = *code
	}
	row.LeaveStart = rowconv.Date(raw[ColLeaveStart])
	if reason := rowconv.String(raw[ColReason]); reason != nil {
		row.Reason = *reason
	}
	return row
}

package snapshot

import (
	"time"

	"github.com/ogurasousui/dp-roster-sync/internal/platform/rowconv"
)

// 抽出クエリが返す列名 (小文字) です。
const (
	ColCompanyID     = "company_id"
	ColEmployeeCode  = "employee_code"
	ColChapa         = "chapa"
	ColBadge         = "badge"
	ColName          = "name"
	ColCPF           = "cpf"
	ColFunction      = "function"
	ColDepartment    = "department"
	ColArea          = "area"
	ColCity          = "city"
	ColAdmissionDate = "admission_date"
	ColBirthDate     = "birth_date"
	ColSituation     = "situation"
	ColBaseSalary    = "base_salary"
	ColAuxSalary     = "aux_salary"
	ColTerminationAt = "termination_date"
	ColSettlementAt  = "settlement_date"
	ColAgeYears      = "age_years"
	ColTenureDays    = "tenure_days"
	ColTenureYears   = "tenure_years"
)

// MapRow は抽出元の行をスナップショットに変換します。
// 欠損・変換不能な列は nil になり、エラーは返しません。
func MapRow(raw RawRow, refDate time.Time) *Record {
	rec := &Record{RefDate: refDate}
	if raw == nil {
		return rec
	}

	if id := rowconv.Int(raw[ColCompanyID]); id != nil {
		rec.CompanyID = *id
	}
	if code := rowconv.String(raw[ColEmployeeCode]); code != nil {
		rec.EmployeeCode = *code
	}

	rec.Chapa = rowconv.String(raw[ColChapa])
	rec.Badge = rowconv.String(raw[ColBadge])
	rec.Name = rowconv.String(raw[ColName])
	rec.CPF = rowconv.String(raw[ColCPF])
	rec.Function = rowconv.String(raw[ColFunction])
	rec.Department = rowconv.String(raw[ColDepartment])
	rec.Area = rowconv.String(raw[ColArea])
	rec.City = rowconv.String(raw[ColCity])
	rec.AdmissionDate = rowconv.Date(raw[ColAdmissionDate])
	rec.BaseSalary = rowconv.Decimal(raw[ColBaseSalary])
	rec.AuxSalary = rowconv.Decimal(raw[ColAuxSalary])
	rec.TerminationAt = rowconv.Date(raw[ColTerminationAt])
	rec.SettlementAt = rowconv.Date(raw[ColSettlementAt])

	if s := rowconv.String(raw[ColSituation]); s != nil {
		situation := Situation(*s)
		rec.Situation = &situation
	}

	rec.AgeYears = rowconv.Int(raw[ColAgeYears])
	if rec.AgeYears == nil {
		rec.AgeYears = yearsBetween(rowconv.Date(raw[ColBirthDate]), refDate)
	}

	rec.TenureDays = rowconv.Int(raw[ColTenureDays])
	if rec.TenureDays == nil {
		rec.TenureDays = daysBetween(rec.AdmissionDate, refDate)
	}

	rec.TenureYears = rowconv.Int(raw[ColTenureYears])
	if rec.TenureYears == nil {
		rec.TenureYears = yearsBetween(rec.AdmissionDate, refDate)
	}

	return rec
}

// Keyed は主キーが揃っているかを返します。
func (r *Record) Keyed() bool {
	return r != nil && r.CompanyID > 0 && r.EmployeeCode != "" && !r.RefDate.IsZero()
}

// MonthsBetween は from から to までの満了月数を返します。
func MonthsBetween(from, to time.Time) int {
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	return months
}

func yearsBetween(from *time.Time, to time.Time) *int {
	if from == nil || from.After(to) {
		return nil
	}
	years := MonthsBetween(*from, to) / 12
	return &years
}

func daysBetween(from *time.Time, to time.Time) *int {
	if from == nil || from.After(to) {
		return nil
	}
	days := int(to.Sub(*from).Hours() / 24)
	return &days
}

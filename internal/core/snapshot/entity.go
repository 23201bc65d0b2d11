package snapshot

import (
	"time"

	"github.com/shopspring/decimal"
)

// Situation は RM の CODSITUACAO を表します。
type Situation string

const (
	SituationActive     Situation = "A"
	SituationOnLeave    Situation = "F"
	SituationTerminated Situation = "D"
)

// Record は参照月時点の社員スナップショットです。
// (CompanyID, EmployeeCode, RefDate) で一意になります。
type Record struct {
	CompanyID     int
	EmployeeCode  string
	RefDate       time.Time
	Chapa         *string
	Badge         *string
	Name          *string
	CPF           *string
	Function      *string
	Department    *string
	Area          *string
	City          *string
	AdmissionDate *time.Time
	Situation     *Situation
	BaseSalary    decimal.NullDecimal
	AuxSalary     decimal.NullDecimal
	TerminationAt *time.Time
	SettlementAt  *time.Time
	AgeYears      *int
	TenureDays    *int
	TenureYears   *int
	SyncedAt      time.Time
}

// HasSituation は Record の状態が s と一致するかを返します。
func (r *Record) HasSituation(s Situation) bool {
	return r != nil && r.Situation != nil && *r.Situation == s
}

// SituationCount は参照月・状態ごとの件数です。
type SituationCount struct {
	RefDate   time.Time
	Situation string
	Count     int
}

// RawRow は抽出元から返却された生の行です。キーは列名の小文字表記です。
type RawRow map[string]any

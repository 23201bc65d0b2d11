package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/dp-roster-sync/internal/core/snapshot"
	pgdb "github.com/ogurasousui/dp-roster-sync/internal/platform/db/postgres"
	"github.com/shopspring/decimal"
)

const snapshotColumns = `company_id, employee_code, ref_date, chapa, badge, name, cpf, function, department, area, city,
               admission_date, situation, base_salary::text, aux_salary::text, termination_date, settlement_date,
               age_years, tenure_days, tenure_years, synced_at`

const upsertSnapshotSQL = `
        INSERT INTO dp_snapshots (
            company_id, employee_code, ref_date, chapa, badge, name, cpf, function, department, area, city,
            admission_date, situation, base_salary, aux_salary, termination_date, settlement_date,
            age_years, tenure_days, tenure_years, synced_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
        ON CONFLICT (company_id, employee_code, ref_date) DO UPDATE
           SET chapa = EXCLUDED.chapa,
               badge = EXCLUDED.badge,
               name = EXCLUDED.name,
               cpf = EXCLUDED.cpf,
               function = EXCLUDED.function,
               department = EXCLUDED.department,
               area = EXCLUDED.area,
               city = EXCLUDED.city,
               admission_date = EXCLUDED.admission_date,
               situation = EXCLUDED.situation,
               base_salary = EXCLUDED.base_salary,
               aux_salary = EXCLUDED.aux_salary,
               termination_date = EXCLUDED.termination_date,
               settlement_date = EXCLUDED.settlement_date,
               age_years = EXCLUDED.age_years,
               tenure_days = EXCLUDED.tenure_days,
               tenure_years = EXCLUDED.tenure_years,
               synced_at = EXCLUDED.synced_at
    `

// SnapshotRepository は PostgreSQL を利用したスナップショット永続化の実装です。
type SnapshotRepository struct {
	pool pgdb.Queryer
	now  func() time.Time
}

// NewSnapshotRepository は SnapshotRepository を生成します。
func NewSnapshotRepository(pool pgdb.Queryer) *SnapshotRepository {
	return &SnapshotRepository{pool: pool, now: time.Now}
}

// Exists は参照月のスナップショットが 1 件以上保存されているかを返します。
func (r *SnapshotRepository) Exists(ctx context.Context, refDate time.Time) (bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var exists bool
	if err := exec.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM dp_snapshots WHERE ref_date = $1)`, refDate).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: snapshot exists: %w", translatePgError(err))
	}
	return exists, nil
}

// Upsert は参照月のスナップショットを 1 行ずつ upsert し、処理した行数を返します。
// 呼び出し側のトランザクションがコンテキストにあれば、その中で実行されます。
func (r *SnapshotRepository) Upsert(ctx context.Context, refDate time.Time, records []*snapshot.Record) (int, error) {
	if refDate.IsZero() {
		return 0, snapshot.ErrInvalidReferenceDate
	}
	if len(records) == 0 {
		return 0, nil
	}

	batch, err := buildSnapshotBatch(refDate, records, r.now().UTC())
	if err != nil {
		return 0, err
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	results := exec.SendBatch(ctx, batch)

	processed := 0
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return processed, fmt.Errorf("postgres: upsert snapshot row %d: %w", i, translatePgError(err))
		}
		processed++
	}
	if err := results.Close(); err != nil {
		return processed, fmt.Errorf("postgres: close snapshot batch: %w", translatePgError(err))
	}
	return processed, nil
}

// buildSnapshotBatch は upsert をバッチに積みます。SyncedAt が未設定の行には fallback を使います。
func buildSnapshotBatch(refDate time.Time, records []*snapshot.Record, fallback time.Time) (*pgx.Batch, error) {
	batch := &pgx.Batch{}
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if rec.CompanyID <= 0 {
			return nil, fmt.Errorf("%w: %d", snapshot.ErrInvalidCompanyID, rec.CompanyID)
		}
		if rec.EmployeeCode == "" {
			return nil, snapshot.ErrInvalidEmployeeCode
		}

		syncedAt := fallback
		if !rec.SyncedAt.IsZero() {
			syncedAt = rec.SyncedAt.UTC()
		}

		var situation *string
		if rec.Situation != nil {
			s := string(*rec.Situation)
			situation = &s
		}

		batch.Queue(upsertSnapshotSQL,
			rec.CompanyID,
			rec.EmployeeCode,
			refDate,
			rec.Chapa,
			rec.Badge,
			rec.Name,
			rec.CPF,
			rec.Function,
			rec.Department,
			rec.Area,
			rec.City,
			nullableTime(rec.AdmissionDate),
			situation,
			nullableDecimal(rec.BaseSalary),
			nullableDecimal(rec.AuxSalary),
			nullableTime(rec.TerminationAt),
			nullableTime(rec.SettlementAt),
			rec.AgeYears,
			rec.TenureDays,
			rec.TenureYears,
			syncedAt,
		)
	}
	return batch, nil
}

// ListByReferenceDate は参照月のスナップショットを氏名順で返します。
func (r *SnapshotRepository) ListByReferenceDate(ctx context.Context, refDate time.Time) ([]*snapshot.Record, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+snapshotColumns+`
          FROM dp_snapshots
         WHERE ref_date = $1
         ORDER BY name NULLS LAST, employee_code
    `, refDate)
	if err != nil {
		return nil, fmt.Errorf("postgres: list snapshots: %w", translatePgError(err))
	}
	return collectSnapshots(rows)
}

// ListByReferenceDates は複数の参照月のスナップショットをまとめて返します。
func (r *SnapshotRepository) ListByReferenceDates(ctx context.Context, refDates []time.Time) ([]*snapshot.Record, error) {
	if len(refDates) == 0 {
		return nil, snapshot.ErrNoReferenceDates
	}
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+snapshotColumns+`
          FROM dp_snapshots
         WHERE ref_date = ANY($1)
         ORDER BY ref_date DESC, name NULLS LAST, employee_code
    `, refDates)
	if err != nil {
		return nil, fmt.Errorf("postgres: list snapshots: %w", translatePgError(err))
	}
	return collectSnapshots(rows)
}

// CountBySituation は参照月・状態ごとの件数を返します。状態が NULL の行は空文字で集計されます。
func (r *SnapshotRepository) CountBySituation(ctx context.Context, refDates []time.Time) ([]snapshot.SituationCount, error) {
	if len(refDates) == 0 {
		return nil, snapshot.ErrNoReferenceDates
	}
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT ref_date, COALESCE(situation, ''), COUNT(*)
          FROM dp_snapshots
         WHERE ref_date = ANY($1)
         GROUP BY ref_date, COALESCE(situation, '')
         ORDER BY ref_date, 2
    `, refDates)
	if err != nil {
		return nil, fmt.Errorf("postgres: count snapshots: %w", translatePgError(err))
	}
	defer rows.Close()

	var counts []snapshot.SituationCount
	for rows.Next() {
		var (
			refDate   time.Time
			situation string
			count     int64
		)
		if err := rows.Scan(&refDate, &situation, &count); err != nil {
			return nil, fmt.Errorf("postgres: scan snapshot count: %w", err)
		}
		counts = append(counts, snapshot.SituationCount{
			RefDate:   toDate(refDate),
			Situation: situation,
			Count:     int(count),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate snapshot counts: %w", translatePgError(err))
	}
	return counts, nil
}

func collectSnapshots(rows pgx.Rows) ([]*snapshot.Record, error) {
	defer rows.Close()

	var records []*snapshot.Record
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate snapshots: %w", translatePgError(err))
	}
	return records, nil
}

func scanSnapshot(row pgx.Row) (*snapshot.Record, error) {
	var (
		companyID     int64
		employeeCode  string
		refDate       time.Time
		chapa         sql.NullString
		badge         sql.NullString
		name          sql.NullString
		cpf           sql.NullString
		function      sql.NullString
		department    sql.NullString
		area          sql.NullString
		city          sql.NullString
		admissionDate sql.NullTime
		situation     sql.NullString
		baseSalary    sql.NullString
		auxSalary     sql.NullString
		terminationAt sql.NullTime
		settlementAt  sql.NullTime
		ageYears      sql.NullInt64
		tenureDays    sql.NullInt64
		tenureYears   sql.NullInt64
		syncedAt      time.Time
	)

	if err := row.Scan(
		&companyID,
		&employeeCode,
		&refDate,
		&chapa,
		&badge,
		&name,
		&cpf,
		&function,
		&department,
		&area,
		&city,
		&admissionDate,
		&situation,
		&baseSalary,
		&auxSalary,
		&terminationAt,
		&settlementAt,
		&ageYears,
		&tenureDays,
		&tenureYears,
		&syncedAt,
	); err != nil {
		return nil, fmt.Errorf("postgres: scan snapshot: %w", err)
	}

	rec := &snapshot.Record{
		CompanyID:     int(companyID),
		EmployeeCode:  employeeCode,
		RefDate:       toDate(refDate),
		Chapa:         nullString(chapa),
		Badge:         nullString(badge),
		Name:          nullString(name),
		CPF:           nullString(cpf),
		Function:      nullString(function),
		Department:    nullString(department),
		Area:          nullString(area),
		City:          nullString(city),
		AdmissionDate: nullDate(admissionDate),
		BaseSalary:    parseNullDecimal(baseSalary),
		AuxSalary:     parseNullDecimal(auxSalary),
		TerminationAt: nullDate(terminationAt),
		SettlementAt:  nullDate(settlementAt),
		AgeYears:      nullInt(ageYears),
		TenureDays:    nullInt(tenureDays),
		TenureYears:   nullInt(tenureYears),
		SyncedAt:      syncedAt.UTC(),
	}
	if situation.Valid {
		s := snapshot.Situation(situation.String)
		rec.Situation = &s
	}
	return rec, nil
}

func nullableDecimal(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

func parseNullDecimal(s sql.NullString) decimal.NullDecimal {
	if !s.Valid {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

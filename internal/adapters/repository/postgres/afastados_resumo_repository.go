package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ogurasousui/dp-roster-sync/internal/core/leave"
	"github.com/ogurasousui/dp-roster-sync/internal/core/snapshot"
	pgdb "github.com/ogurasousui/dp-roster-sync/internal/platform/db/postgres"
)

// AfastadosResumoRepository は参照月ごとの afastados 集計を dp_afastados_resumo に保存します。
type AfastadosResumoRepository struct {
	pool pgdb.Queryer
	now  func() time.Time
}

// NewAfastadosResumoRepository は AfastadosResumoRepository を生成します。
func NewAfastadosResumoRepository(pool pgdb.Queryer) *AfastadosResumoRepository {
	return &AfastadosResumoRepository{pool: pool, now: time.Now}
}

// Exists は参照月の集計が保存されているかを返します。
func (r *AfastadosResumoRepository) Exists(ctx context.Context, refDate time.Time) (bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var exists bool
	if err := exec.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM dp_afastados_resumo WHERE ref_date = $1)`, refDate).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: afastados resumo exists: %w", translatePgError(err))
	}
	return exists, nil
}

// Upsert は参照月をキーに集計を挿入または置換します。
func (r *AfastadosResumoRepository) Upsert(ctx context.Context, resumo *leave.Resumo) error {
	if !resumo.Valid() {
		return leave.ErrInvalidResumo
	}
	if resumo.RefDate.IsZero() {
		return snapshot.ErrInvalidReferenceDate
	}

	syncedAt := resumo.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = r.now()
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO dp_afastados_resumo (ref_date, inss, ap_invalidez, total, synced_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (ref_date) DO UPDATE
           SET inss = EXCLUDED.inss,
               ap_invalidez = EXCLUDED.ap_invalidez,
               total = EXCLUDED.total,
               synced_at = EXCLUDED.synced_at
    `, toDate(resumo.RefDate), resumo.INSS, resumo.APInvalidez, resumo.Total, syncedAt.UTC())
	if err != nil {
		return fmt.Errorf("postgres: upsert afastados resumo: %w", translatePgError(err))
	}
	return nil
}

// ListByReferenceDates は指定した参照月のうち保存済みの集計を返します。
func (r *AfastadosResumoRepository) ListByReferenceDates(ctx context.Context, refDates []time.Time) ([]*leave.Resumo, error) {
	if len(refDates) == 0 {
		return nil, snapshot.ErrNoReferenceDates
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT ref_date, inss, ap_invalidez, total, synced_at
          FROM dp_afastados_resumo
         WHERE ref_date = ANY($1)
         ORDER BY ref_date DESC
    `, refDates)
	if err != nil {
		return nil, fmt.Errorf("postgres: list afastados resumo: %w", translatePgError(err))
	}
	defer rows.Close()

	var out []*leave.Resumo
	for rows.Next() {
		var (
			refDate            time.Time
			inss, apInv, total int64
			syncedAt           time.Time
		)
		if err := rows.Scan(&refDate, &inss, &apInv, &total, &syncedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan afastados resumo: %w", err)
		}
		out = append(out, &leave.Resumo{
			RefDate:     toDate(refDate),
			INSS:        int(inss),
			APInvalidez: int(apInv),
			Total:       int(total),
			SyncedAt:    syncedAt.UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate afastados resumo: %w", translatePgError(err))
	}
	return out, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/dp-roster-sync/internal/core/audit"
	pgdb "github.com/ogurasousui/dp-roster-sync/internal/platform/db/postgres"
)

// SyncRunRepository は同期監査ログを dp_sync_runs に追記します。更新・削除は行いません。
type SyncRunRepository struct {
	pool  pgdb.Queryer
	now   func() time.Time
	newID func() uuid.UUID
}

// NewSyncRunRepository は SyncRunRepository を生成します。
func NewSyncRunRepository(pool pgdb.Queryer) *SyncRunRepository {
	return &SyncRunRepository{pool: pool, now: time.Now, newID: uuid.New}
}

// Record は同期試行 1 回分を追記します。
func (r *SyncRunRepository) Record(ctx context.Context, datasetKey string, refDate time.Time, rowCount int, ok bool, message string) error {
	if datasetKey == "" {
		return audit.ErrInvalidDatasetKey
	}

	var msg *string
	if message != "" {
		msg = &message
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO dp_sync_runs (id, dataset_key, ref_date, row_count, ok, message, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, r.newID().String(), datasetKey, toDate(refDate), rowCount, ok, msg, r.now().UTC())
	if err != nil {
		return fmt.Errorf("postgres: record sync run: %w", translatePgError(err))
	}
	return nil
}

// LastSuccess はデータセットの最終成功時刻を返します。成功記録が無ければ nil を返します。
func (r *SyncRunRepository) LastSuccess(ctx context.Context, datasetKey string) (*time.Time, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var last sql.NullTime
	err := exec.QueryRow(ctx, `
        SELECT MAX(created_at)
          FROM dp_sync_runs
         WHERE dataset_key = $1
           AND ok
    `, datasetKey).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: last sync success: %w", translatePgError(err))
	}
	if !last.Valid {
		return nil, nil
	}
	t := last.Time.UTC()
	return &t, nil
}

// ListRecent はデータセットの直近の記録を新しい順に返します。
func (r *SyncRunRepository) ListRecent(ctx context.Context, datasetKey string, limit int) ([]*audit.Run, error) {
	if limit <= 0 {
		return nil, audit.ErrInvalidLimit
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, dataset_key, ref_date, row_count, ok, message, created_at
          FROM dp_sync_runs
         WHERE dataset_key = $1
         ORDER BY created_at DESC, ref_date DESC
         LIMIT $2
    `, datasetKey, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sync runs: %w", translatePgError(err))
	}
	defer rows.Close()

	var runs []*audit.Run
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate sync runs: %w", translatePgError(err))
	}
	return runs, nil
}

func scanSyncRun(row pgx.Row) (*audit.Run, error) {
	var (
		id        string
		key       string
		refDate   time.Time
		rowCount  int64
		ok        bool
		message   sql.NullString
		createdAt time.Time
	)
	if err := row.Scan(&id, &key, &refDate, &rowCount, &ok, &message, &createdAt); err != nil {
		return nil, fmt.Errorf("postgres: scan sync run: %w", err)
	}
	return &audit.Run{
		ID:         id,
		DatasetKey: key,
		RefDate:    toDate(refDate),
		RowCount:   int(rowCount),
		OK:         ok,
		Message:    nullString(message),
		CreatedAt:  createdAt.UTC(),
	}, nil
}

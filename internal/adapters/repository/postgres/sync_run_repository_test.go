package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ogurasousui/dp-roster-sync/internal/core/audit"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestSyncRunRepository_Record(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Date(2025, 3, 15, 13, 5, 0, 0, time.UTC)
	id := uuid.MustParse("0b7c1a36-4f4e-4f3b-9c43-6d0e0f2c1a10")
	repo := NewSyncRunRepository(mock)
	repo.now = func() time.Time { return now }
	repo.newID = func() uuid.UUID { return id }

	refDate := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	msg := "source down"

	mock.ExpectExec(`INSERT INTO dp_sync_runs`).
		WithArgs(id.String(), audit.DatasetRoster, refDate, 0, false, &msg, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Record(context.Background(), audit.DatasetRoster, refDate, 0, false, msg); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSyncRunRepository_RecordRequiresDatasetKey(t *testing.T) {
	t.Parallel()

	repo := NewSyncRunRepository(nil)
	err := repo.Record(context.Background(), "", time.Now(), 0, true, "")
	if !errors.Is(err, audit.ErrInvalidDatasetKey) {
		t.Fatalf("expected ErrInvalidDatasetKey, got %v", err)
	}
}

func TestSyncRunRepository_LastSuccess(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewSyncRunRepository(mock)
	last := time.Date(2025, 3, 15, 13, 5, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT MAX\(created_at\)`).
		WithArgs(audit.DatasetRoster).
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(last))
	mock.ExpectQuery(`SELECT MAX\(created_at\)`).
		WithArgs(audit.DatasetAfastadosResumo).
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(nil))

	got, err := repo.LastSuccess(context.Background(), audit.DatasetRoster)
	if err != nil {
		t.Fatalf("LastSuccess returned error: %v", err)
	}
	if got == nil || !got.Equal(last) {
		t.Fatalf("unexpected last success: %v", got)
	}

	got, err = repo.LastSuccess(context.Background(), audit.DatasetAfastadosResumo)
	if err != nil {
		t.Fatalf("LastSuccess returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil when never synced, got %v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSyncRunRepository_ListRecent(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewSyncRunRepository(mock)
	created := time.Date(2025, 3, 15, 13, 5, 0, 0, time.UTC)
	refDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM dp_sync_runs`).
		WithArgs(audit.DatasetRoster, 2).
		WillReturnRows(pgxmock.NewRows([]string{"id", "dataset_key", "ref_date", "row_count", "ok", "message", "created_at"}).
			AddRow("run-2", audit.DatasetRoster, refDate, int64(0), false, "timeout", created).
			AddRow("run-1", audit.DatasetRoster, refDate, int64(812), true, nil, created.Add(-time.Hour)))

	runs, err := repo.ListRecent(context.Background(), audit.DatasetRoster, 2)
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].OK || runs[0].Message == nil || *runs[0].Message != "timeout" {
		t.Fatalf("unexpected failed run: %+v", runs[0])
	}
	if !runs[1].OK || runs[1].RowCount != 812 || runs[1].Message != nil {
		t.Fatalf("unexpected successful run: %+v", runs[1])
	}

	if _, err := repo.ListRecent(context.Background(), audit.DatasetRoster, 0); !errors.Is(err, audit.ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

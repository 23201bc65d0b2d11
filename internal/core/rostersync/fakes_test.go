package rostersync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ogurasousui/dp-roster-sync/internal/core/audit"
	"github.com/ogurasousui/dp-roster-sync/internal/core/leave"
	"github.com/ogurasousui/dp-roster-sync/internal/core/snapshot"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeSnapshotRepo struct {
	mu        sync.Mutex
	records   map[string]*snapshot.Record
	upserts   int
	existsErr error
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{records: make(map[string]*snapshot.Record)}
}

func snapshotKey(r *snapshot.Record) string {
	return fmt.Sprintf("%d|%s|%s", r.CompanyID, r.EmployeeCode, snapshot.FormatDate(r.RefDate))
}

func (r *fakeSnapshotRepo) Exists(_ context.Context, refDate time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.existsErr != nil {
		return false, r.existsErr
	}
	for _, rec := range r.records {
		if rec.RefDate.Equal(refDate) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSnapshotRepo) Upsert(_ context.Context, refDate time.Time, records []*snapshot.Record) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	for _, rec := range records {
		clone := *rec
		clone.RefDate = refDate
		r.records[snapshotKey(&clone)] = &clone
	}
	return len(records), nil
}

func (r *fakeSnapshotRepo) ListByReferenceDate(ctx context.Context, refDate time.Time) ([]*snapshot.Record, error) {
	return r.ListByReferenceDates(ctx, []time.Time{refDate})
}

func (r *fakeSnapshotRepo) ListByReferenceDates(_ context.Context, refDates []time.Time) ([]*snapshot.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*snapshot.Record
	for _, rec := range r.records {
		for _, d := range refDates {
			if rec.RefDate.Equal(d) {
				clone := *rec
				out = append(out, &clone)
			}
		}
	}
	return out, nil
}

func (r *fakeSnapshotRepo) CountBySituation(context.Context, []time.Time) ([]snapshot.SituationCount, error) {
	return nil, errors.New("not used")
}

func (r *fakeSnapshotRepo) countFor(refDate time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.RefDate.Equal(refDate) {
			n++
		}
	}
	return n
}

type fakeResumoRepo struct {
	mu      sync.Mutex
	resumos map[string]leave.Resumo
}

func newFakeResumoRepo() *fakeResumoRepo {
	return &fakeResumoRepo{resumos: make(map[string]leave.Resumo)}
}

func (r *fakeResumoRepo) Exists(_ context.Context, refDate time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.resumos[snapshot.FormatDate(refDate)]
	return ok, nil
}

func (r *fakeResumoRepo) Upsert(_ context.Context, resumo *leave.Resumo) error {
	if !resumo.Valid() {
		return leave.ErrInvalidResumo
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resumos[snapshot.FormatDate(resumo.RefDate)] = *resumo
	return nil
}

func (r *fakeResumoRepo) ListByReferenceDates(_ context.Context, refDates []time.Time) ([]*leave.Resumo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*leave.Resumo
	for _, d := range refDates {
		if res, ok := r.resumos[snapshot.FormatDate(d)]; ok {
			clone := res
			out = append(out, &clone)
		}
	}
	return out, nil
}

type fakeAuditLog struct {
	mu        sync.Mutex
	runs      []audit.Run
	recordErr error
}

func (l *fakeAuditLog) Record(_ context.Context, datasetKey string, refDate time.Time, rowCount int, ok bool, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recordErr != nil {
		return l.recordErr
	}
	run := audit.Run{DatasetKey: datasetKey, RefDate: refDate, RowCount: rowCount, OK: ok}
	if message != "" {
		run.Message = &message
	}
	l.runs = append(l.runs, run)
	return nil
}

func (l *fakeAuditLog) LastSuccess(context.Context, string) (*time.Time, error) {
	return nil, nil
}

func (l *fakeAuditLog) ListRecent(context.Context, string, int) ([]*audit.Run, error) {
	return nil, nil
}

func (l *fakeAuditLog) snapshot() []audit.Run {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]audit.Run(nil), l.runs...)
}

// fakeRoster は参照月ごとに rows 件の社員を返します。
type fakeRoster struct {
	mu    sync.Mutex
	rows  int
	calls map[string]int
	fail  map[string]error
	block map[string]bool
	panic map[string]bool
}

func newFakeRoster(rows int) *fakeRoster {
	return &fakeRoster{
		rows:  rows,
		calls: make(map[string]int),
		fail:  make(map[string]error),
		block: make(map[string]bool),
		panic: make(map[string]bool),
	}
}

func (f *fakeRoster) ExtractRoster(ctx context.Context, refDate time.Time) ([]snapshot.RawRow, error) {
	key := snapshot.FormatDate(refDate)
	f.mu.Lock()
	f.calls[key]++
	rows, err, block, shouldPanic := f.rows, f.fail[key], f.block[key], f.panic[key]
	f.mu.Unlock()

	if shouldPanic {
		panic("driver exploded")
	}
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	out := make([]snapshot.RawRow, 0, rows)
	for i := 0; i < rows; i++ {
		out = append(out, snapshot.RawRow{
			snapshot.ColCompanyID:    1,
			snapshot.ColEmployeeCode: fmt.Sprintf("%05d", i),
			snapshot.ColName:         fmt.Sprintf("FUNCIONARIO %d", i),
			snapshot.ColSituation:    "A",
		})
	}
	return out, nil
}

func (f *fakeRoster) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type fakeLeaves struct {
	rows []leave.Row
	fail map[string]error
}

func (f *fakeLeaves) ExtractLeaves(_ context.Context, refDate time.Time) ([]leave.Row, error) {
	if err := f.fail[snapshot.FormatDate(refDate)]; err != nil {
		return nil, err
	}
	return f.rows, nil
}

type recordedWindow struct {
	dataset string
	status  Status
	rows    int
}

type fakeRecorder struct {
	mu       sync.Mutex
	observed []recordedWindow
}

func (r *fakeRecorder) ObserveWindow(dataset string, status Status, rows int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observed = append(r.observed, recordedWindow{dataset: dataset, status: status, rows: rows})
}

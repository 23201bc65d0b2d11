package rostersync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ogurasousui/dp-roster-sync/internal/core/audit"
	"github.com/ogurasousui/dp-roster-sync/internal/core/leave"
	"github.com/ogurasousui/dp-roster-sync/internal/core/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 15, 10, 5, 0, 0, time.UTC)

const (
	m0  = "2025-03-01"
	m1  = "2025-02-01"
	m2  = "2025-01-01"
	m12 = "2024-03-01"
)

type fixture struct {
	snapshots *fakeSnapshotRepo
	resumos   *fakeResumoRepo
	audit     *fakeAuditLog
	roster    *fakeRoster
	leaves    *fakeLeaves
	metrics   *fakeRecorder
	svc       *Service
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	f := &fixture{
		snapshots: newFakeSnapshotRepo(),
		resumos:   newFakeResumoRepo(),
		audit:     &fakeAuditLog{},
		roster:    newFakeRoster(3),
		leaves:    &fakeLeaves{fail: map[string]error{}},
		metrics:   &fakeRecorder{},
	}

	svc, err := NewService(Params{
		Snapshots: f.snapshots,
		Resumos:   f.resumos,
		Audit:     f.audit,
		Roster:    f.roster,
		Leaves:    f.leaves,
		Clock:     &stubClock{now: testNow},
		Metrics:   f.metrics,
		Options:   opts,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := snapshot.ParseDate(raw)
	require.NoError(t, err)
	return d
}

func TestNewService_RequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewService(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEnsureSnapshots_FirstRunSyncsAllWindows(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	res := f.svc.EnsureSnapshots(context.Background(), false)

	require.Len(t, res.Stats, 4)
	for _, key := range []string{m0, m1, m2, m12} {
		st, ok := res.Stats[key]
		require.True(t, ok, "missing stats for %s", key)
		assert.Equal(t, StatusSynced, st.Status)
		assert.Equal(t, 3, st.Rows)
		assert.Equal(t, 3, f.snapshots.countFor(mustDate(t, key)))
	}
	assert.Equal(t, 12, res.Processed)

	runs := f.audit.snapshot()
	require.Len(t, runs, 4)
	order := []string{m0, m1, m2, m12}
	for i, run := range runs {
		assert.Equal(t, audit.DatasetRoster, run.DatasetKey)
		assert.Equal(t, order[i], snapshot.FormatDate(run.RefDate))
		assert.True(t, run.OK)
		assert.Equal(t, 3, run.RowCount)
	}
}

func TestEnsureSnapshots_IdempotentWithoutForce(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	ctx := context.Background()

	f.svc.EnsureSnapshots(ctx, false)
	upsertsBefore := f.snapshots.upserts
	callsBefore := f.roster.totalCalls()
	auditBefore := len(f.audit.snapshot())

	res := f.svc.EnsureSnapshots(ctx, false)

	for key, st := range res.Stats {
		assert.Equal(t, StatusSkipped, st.Status, "window %s", key)
	}
	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, upsertsBefore, f.snapshots.upserts, "no additional writes expected")
	assert.Equal(t, callsBefore, f.roster.totalCalls(), "source must not be queried")
	assert.Equal(t, auditBefore, len(f.audit.snapshot()))
}

func TestEnsureSnapshots_ForceReextractsAndAuditsFreshCounts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	ctx := context.Background()

	f.svc.EnsureSnapshots(ctx, false)

	f.roster.mu.Lock()
	f.roster.rows = 5
	f.roster.mu.Unlock()

	res := f.svc.EnsureSnapshots(ctx, true)

	for key, st := range res.Stats {
		assert.Equal(t, StatusSynced, st.Status, "window %s", key)
		assert.Equal(t, 5, st.Rows)
	}
	assert.Equal(t, 8, f.roster.totalCalls())

	runs := f.audit.snapshot()
	require.Len(t, runs, 8)
	for _, run := range runs[4:] {
		assert.Equal(t, 5, run.RowCount)
	}
	assert.Equal(t, 5, f.snapshots.countFor(mustDate(t, m0)))
}

func TestEnsureSnapshots_FailureIsolation(t *testing.T) {
	t.Parallel()

	for _, parallel := range []bool{false, true} {
		f := newFixture(t, Options{Parallel: parallel})
		f.roster.fail[m1] = errors.New("connection reset by peer")

		res := f.svc.EnsureSnapshots(context.Background(), false)

		assert.Equal(t, StatusError, res.Stats[m1].Status)
		assert.Contains(t, res.Stats[m1].Message, "connection reset by peer")
		for _, key := range []string{m0, m2, m12} {
			assert.Equal(t, StatusSynced, res.Stats[key].Status, "parallel=%v window %s", parallel, key)
		}
		assert.Equal(t, []string{m1}, res.Failed())

		var ok, failed int
		for _, run := range f.audit.snapshot() {
			if run.OK {
				ok++
				continue
			}
			failed++
			assert.Equal(t, m1, snapshot.FormatDate(run.RefDate))
			require.NotNil(t, run.Message)
			assert.Contains(t, *run.Message, "connection reset by peer")
		}
		assert.Equal(t, 3, ok)
		assert.Equal(t, 1, failed)
	}
}

func TestEnsureSnapshots_TimeoutIsIsolated(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{WindowTimeout: 20 * time.Millisecond})
	f.roster.block[m2] = true

	res := f.svc.EnsureSnapshots(context.Background(), true)

	assert.Equal(t, StatusError, res.Stats[m2].Status)
	assert.Contains(t, res.Stats[m2].Message, context.DeadlineExceeded.Error())
	assert.Equal(t, StatusSynced, res.Stats[m12].Status)
}

func TestEnsureSnapshots_PanicIsIsolated(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.roster.panic[m0] = true

	var res Result
	require.NotPanics(t, func() {
		res = f.svc.EnsureSnapshots(context.Background(), false)
	})

	assert.Equal(t, StatusError, res.Stats[m0].Status)
	assert.Equal(t, StatusSynced, res.Stats[m1].Status)
}

func TestEnsureSnapshots_ExistsErrorIsWindowError(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.snapshots.existsErr = errors.New("pool closed")

	res := f.svc.EnsureSnapshots(context.Background(), false)

	assert.Equal(t, 4, res.Count(StatusError))
	assert.Equal(t, 0, f.roster.totalCalls())

	forced := f.svc.EnsureSnapshots(context.Background(), true)
	assert.Equal(t, 4, forced.Count(StatusSynced))
}

func TestEnsureSnapshots_AuditFailureDoesNotFailWindow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.audit.recordErr = errors.New("audit table locked")

	res := f.svc.EnsureSnapshots(context.Background(), false)

	assert.Equal(t, 4, res.Count(StatusSynced))
}

func TestEnsureSnapshots_RowsWithoutKeysAreIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	roster := &staticRoster{rows: []snapshot.RawRow{
		{snapshot.ColCompanyID: 1, snapshot.ColEmployeeCode: "1"},
		{snapshot.ColName: "SEM CHAVE"},
	}}
	f.svc.roster = roster

	res := f.svc.EnsureSnapshots(context.Background(), true)
	assert.Equal(t, 1, res.Stats[m0].Rows)

	roster.rows = []snapshot.RawRow{{snapshot.ColName: "SEM CHAVE"}}
	res = f.svc.EnsureSnapshots(context.Background(), true)
	assert.Equal(t, StatusError, res.Stats[m0].Status)
	assert.Contains(t, res.Stats[m0].Message, ErrNoKeyedRows.Error())
}

func TestEnsureSnapshots_RecordsMetrics(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.roster.fail[m12] = errors.New("boom")

	f.svc.EnsureSnapshots(context.Background(), false)

	require.Len(t, f.metrics.observed, 4)
	last := f.metrics.observed[3]
	assert.Equal(t, audit.DatasetRoster, last.dataset)
	assert.Equal(t, StatusError, last.status)
}

func TestEnsureSnapshots_RecomputesWindowOnEveryCall(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	clock := &stubClock{now: testNow}
	f.svc.clock = clock

	f.svc.EnsureSnapshots(context.Background(), false)

	clock.now = time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC)
	res := f.svc.EnsureSnapshots(context.Background(), false)

	assert.Equal(t, StatusSynced, res.Stats["2025-04-01"].Status)
	assert.Equal(t, StatusSkipped, res.Stats[m0].Status)
	assert.Equal(t, StatusSkipped, res.Stats[m1].Status)
	assert.Equal(t, StatusSynced, res.Stats["2024-04-01"].Status)
}

func TestEnsureAfastadosResumo(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.leaves.rows = []leave.Row{
		{Reason: "AUXILIO DOENÇA PREVIDENCIARIO"},
		{Reason: "APOSENTADORIA POR INVALIDEZ"},
		{Reason: "AUXILIO ACIDENTE"},
	}
	f.leaves.fail[m12] = errors.New("timeout expired")

	ctx := context.Background()
	res := f.svc.EnsureAfastadosResumo(ctx, false)

	assert.Equal(t, StatusError, res.Stats[m12].Status)
	assert.Equal(t, 9, res.Processed)

	stored, err := f.resumos.ListByReferenceDates(ctx, []time.Time{mustDate(t, m0)})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 2, stored[0].INSS)
	assert.Equal(t, 1, stored[0].APInvalidez)
	assert.Equal(t, stored[0].Total, stored[0].INSS+stored[0].APInvalidez)

	for _, run := range f.audit.snapshot() {
		assert.Equal(t, audit.DatasetAfastadosResumo, run.DatasetKey)
	}

	delete(f.leaves.fail, m12)
	again := f.svc.EnsureAfastadosResumo(ctx, false)
	assert.Equal(t, StatusSkipped, again.Stats[m0].Status)
	assert.Equal(t, StatusSynced, again.Stats[m12].Status)
}

func TestEnsureAfastadosResumo_OtherBucketOnlyInTotal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.leaves.rows = []leave.Row{
		{Reason: "AUXILIO DOENCA"},
		{Reason: "LICENÇA MATERNIDADE"},
	}

	f.svc.EnsureAfastadosResumo(context.Background(), true)

	stored, err := f.resumos.ListByReferenceDates(context.Background(), []time.Time{mustDate(t, m1)})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 2, stored[0].Total)
	assert.LessOrEqual(t, stored[0].INSS+stored[0].APInvalidez, stored[0].Total)
	assert.Equal(t, 0, stored[0].APInvalidez)
}

type staticRoster struct {
	rows []snapshot.RawRow
}

func (s *staticRoster) ExtractRoster(context.Context, time.Time) ([]snapshot.RawRow, error) {
	return s.rows, nil
}

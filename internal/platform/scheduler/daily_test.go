package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ogurasousui/dp-roster-sync/internal/core/rostersync"
)

func mustDaily(t *testing.T, job Job, opts Options) *Daily {
	t.Helper()

	d, err := NewDaily(job, opts)
	if err != nil {
		t.Fatalf("NewDaily returned error: %v", err)
	}
	return d
}

func TestNextRun(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("BRT", -3*60*60)
	d := mustDaily(t, func(context.Context) {}, Options{Hour: 10, Minute: 5, Location: loc})

	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before today", time.Date(2025, 3, 15, 9, 0, 0, 0, loc), time.Date(2025, 3, 15, 10, 5, 0, 0, loc)},
		{"exactly at", time.Date(2025, 3, 15, 10, 5, 0, 0, loc), time.Date(2025, 3, 16, 10, 5, 0, 0, loc)},
		{"after today", time.Date(2025, 3, 15, 18, 0, 0, 0, loc), time.Date(2025, 3, 16, 10, 5, 0, 0, loc)},
		{"month end", time.Date(2025, 1, 31, 23, 0, 0, 0, loc), time.Date(2025, 2, 1, 10, 5, 0, 0, loc)},
		{"other zone", time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC), time.Date(2025, 3, 15, 10, 5, 0, 0, loc)},
	}
	for _, tc := range cases {
		if got := d.NextRun(tc.now); !got.Equal(tc.want) {
			t.Errorf("%s: NextRun(%v) = %v, want %v", tc.name, tc.now, got, tc.want)
		}
	}
}

func TestNewDaily_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewDaily(nil, Options{}); err == nil {
		t.Fatal("expected error for nil job")
	}
	if _, err := NewDaily(func(context.Context) {}, Options{Hour: 24}); err == nil {
		t.Fatal("expected error for invalid hour")
	}
}

// acceleratedClock は base から実時間で進む時計を返します。
func acceleratedClock(base time.Time) func() time.Time {
	start := time.Now()
	return func() time.Time {
		return base.Add(time.Since(start))
	}
}

func TestDaily_FiresAndRearms(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	fired := make(chan struct{}, 1)
	base := time.Date(2025, 3, 15, 10, 4, 59, 950_000_000, time.UTC)

	d := mustDaily(t, func(context.Context) {
		runs.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
	}, Options{Hour: 10, Minute: 5, Location: time.UTC, Now: acceleratedClock(base)})

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not fire")
	}

	d.Stop()

	if got := runs.Load(); got != 1 {
		t.Fatalf("expected exactly one run before next day, got %d", got)
	}
}

func TestDaily_StartTwice(t *testing.T) {
	t.Parallel()

	d := mustDaily(t, func(context.Context) {}, Options{Hour: 10, Minute: 5, Location: time.UTC})
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer d.Stop()

	if err := d.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestDaily_StopCancelsInFlightJob(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	var sawCancel atomic.Bool
	base := time.Date(2025, 3, 15, 10, 4, 59, 990_000_000, time.UTC)

	d := mustDaily(t, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
	}, Options{Hour: 10, Minute: 5, Location: time.UTC, Now: acceleratedClock(base)})

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not start")
	}

	d.Stop()
	if !sawCancel.Load() {
		t.Fatal("expected Stop to wait for the job to observe cancellation")
	}
}

func TestDaily_StopWithoutStart(t *testing.T) {
	t.Parallel()

	d := mustDaily(t, func(context.Context) {}, Options{Hour: 10, Minute: 5})
	d.Stop()
}

func TestDaily_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	d := mustDaily(t, func(context.Context) { panic("boom") }, Options{Hour: 10, Minute: 5, Location: time.UTC})
	d.run(context.Background())
}

type fakeSync struct {
	calls []string
	force []bool
}

func (f *fakeSync) EnsureSnapshots(_ context.Context, force bool) rostersync.Result {
	f.calls = append(f.calls, "roster")
	f.force = append(f.force, force)
	return rostersync.Result{Stats: map[string]rostersync.WindowStatus{
		"2025-03-01": {Status: rostersync.StatusSynced, Rows: 10},
		"2025-02-01": {Status: rostersync.StatusError, Message: "timeout"},
	}, Processed: 10}
}

func (f *fakeSync) EnsureAfastadosResumo(_ context.Context, force bool) rostersync.Result {
	f.calls = append(f.calls, "afastados")
	f.force = append(f.force, force)
	return rostersync.Result{Stats: map[string]rostersync.WindowStatus{}}
}

func TestNewSyncJob_ForcesBothPipelines(t *testing.T) {
	t.Parallel()

	uc := &fakeSync{}
	NewSyncJob(uc, nil)(context.Background())

	if len(uc.calls) != 2 || uc.calls[0] != "roster" || uc.calls[1] != "afastados" {
		t.Fatalf("unexpected calls: %v", uc.calls)
	}
	for i, f := range uc.force {
		if !f {
			t.Fatalf("call %d was not forced", i)
		}
	}
}

package rosterquery

import (
	"context"
	"sort"
	"time"

	"github.com/ogurasousui/dp-roster-sync/internal/core/audit"
	"github.com/ogurasousui/dp-roster-sync/internal/core/leave"
	"github.com/ogurasousui/dp-roster-sync/internal/core/rostersync"
	"github.com/ogurasousui/dp-roster-sync/internal/core/snapshot"
)

type stubClock struct {
	now time.Time
}

func (s stubClock) Now() time.Time {
	return s.now
}

type fakeSync struct {
	rosterCalls    int
	afastadosCalls int
	forced         bool
	result         rostersync.Result
}

func (f *fakeSync) EnsureSnapshots(_ context.Context, force bool) rostersync.Result {
	f.rosterCalls++
	f.forced = f.forced || force
	return f.result
}

func (f *fakeSync) EnsureAfastadosResumo(_ context.Context, force bool) rostersync.Result {
	f.afastadosCalls++
	f.forced = f.forced || force
	return rostersync.Result{Stats: map[string]rostersync.WindowStatus{}}
}

type fakeSnapshots struct {
	records []*snapshot.Record
	listErr error
}

func (f *fakeSnapshots) Exists(_ context.Context, refDate time.Time) (bool, error) {
	for _, r := range f.records {
		if r.RefDate.Equal(refDate) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSnapshots) Upsert(context.Context, time.Time, []*snapshot.Record) (int, error) {
	return 0, nil
}

func (f *fakeSnapshots) ListByReferenceDate(ctx context.Context, refDate time.Time) ([]*snapshot.Record, error) {
	out, err := f.ListByReferenceDates(ctx, []time.Time{refDate})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return deref(out[i].Name) < deref(out[j].Name)
	})
	return out, nil
}

func (f *fakeSnapshots) ListByReferenceDates(_ context.Context, refDates []time.Time) ([]*snapshot.Record, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*snapshot.Record
	for _, r := range f.records {
		for _, d := range refDates {
			if r.RefDate.Equal(d) {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeSnapshots) CountBySituation(ctx context.Context, refDates []time.Time) ([]snapshot.SituationCount, error) {
	records, err := f.ListByReferenceDates(ctx, refDates)
	if err != nil {
		return nil, err
	}
	type key struct {
		date string
		sit  string
	}
	counts := make(map[key]int)
	dates := make(map[string]time.Time)
	for _, r := range records {
		sit := ""
		if r.Situation != nil {
			sit = string(*r.Situation)
		}
		k := key{snapshot.FormatDate(r.RefDate), sit}
		counts[k]++
		dates[k.date] = r.RefDate
	}
	out := make([]snapshot.SituationCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, snapshot.SituationCount{RefDate: dates[k.date], Situation: k.sit, Count: n})
	}
	return out, nil
}

type fakeResumos struct {
	resumos []*leave.Resumo
	listErr error
}

func (f *fakeResumos) Exists(context.Context, time.Time) (bool, error) {
	return len(f.resumos) > 0, nil
}

func (f *fakeResumos) Upsert(_ context.Context, r *leave.Resumo) error {
	f.resumos = append(f.resumos, r)
	return nil
}

func (f *fakeResumos) ListByReferenceDates(_ context.Context, refDates []time.Time) ([]*leave.Resumo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*leave.Resumo
	for _, r := range f.resumos {
		for _, d := range refDates {
			if r.RefDate.Equal(d) {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

type fakeAudit struct {
	last      map[string]time.Time
	runs      []*audit.Run
	lastLimit int
}

func (f *fakeAudit) Record(context.Context, string, time.Time, int, bool, string) error {
	return nil
}

func (f *fakeAudit) LastSuccess(_ context.Context, key string) (*time.Time, error) {
	t, ok := f.last[key]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeAudit) ListRecent(_ context.Context, key string, limit int) ([]*audit.Run, error) {
	f.lastLimit = limit
	var out []*audit.Run
	for _, r := range f.runs {
		if r.DatasetKey == key {
			out = append(out, r)
		}
	}
	return out, nil
}

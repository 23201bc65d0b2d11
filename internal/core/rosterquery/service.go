package rosterquery

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ogurasousui/dp-roster-sync/internal/core/audit"
	"github.com/ogurasousui/dp-roster-sync/internal/core/leave"
	"github.com/ogurasousui/dp-roster-sync/internal/core/rostersync"
	"github.com/ogurasousui/dp-roster-sync/internal/core/snapshot"
	"go.uber.org/zap"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

// UseCase は参照月ウィンドウに対する読み取りユースケースです。
type UseCase interface {
	CurrentRoster(ctx context.Context) (*RosterResult, error)
	ResumoByWindow(ctx context.Context) (*ResumoResult, error)
	Turnover(ctx context.Context) (*TurnoverResult, error)
	Afastados(ctx context.Context) (*AfastadosResult, error)
	AtivosPorCategoria(ctx context.Context) (*CategoryResult, error)
	SyncRuns(ctx context.Context, datasetKey string, limit int) ([]*audit.Run, error)
}

// Params は Service の依存関係です。
type Params struct {
	Sync      rostersync.UseCase
	Snapshots snapshot.Repository
	Resumos   leave.ResumoRepository
	Audit     audit.Log
	Clock     rostersync.Clock
	Logger    *zap.Logger
}

// Service は保存済みスナップショットのみから集計を返します。抽出元には直接アクセスしません。
type Service struct {
	sync      rostersync.UseCase
	snapshots snapshot.Repository
	resumos   leave.ResumoRepository
	audit     audit.Log
	clock     rostersync.Clock
	log       *zap.Logger
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// NewService は Service を生成します。
func NewService(p Params) (*Service, error) {
	if p.Sync == nil || p.Snapshots == nil || p.Resumos == nil || p.Audit == nil {
		return nil, ErrInvalidConfig
	}
	if p.Clock == nil {
		p.Clock = realClock{}
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return &Service{
		sync:      p.Sync,
		snapshots: p.Snapshots,
		resumos:   p.Resumos,
		audit:     p.Audit,
		clock:     p.Clock,
		log:       p.Logger.Named("rosterquery"),
	}, nil
}

// ensureFresh は未同期の参照月のみを同期します。失敗しても既存データで応答を続けます。
func (s *Service) ensureFresh(ctx context.Context) (rostersync.Result, snapshot.Window) {
	result := s.sync.EnsureSnapshots(ctx, false)
	if failed := result.Failed(); len(failed) > 0 {
		s.log.Warn("serving possibly stale snapshots", zap.Strings("failed", failed))
	}
	return result, snapshot.WindowAt(s.clock.Now())
}

// CurrentRoster は当月の quadro を氏名順で返します。
func (s *Service) CurrentRoster(ctx context.Context) (*RosterResult, error) {
	syncResult, w := s.ensureFresh(ctx)

	records, err := s.snapshots.ListByReferenceDate(ctx, w.M0)
	if err != nil {
		return nil, fmt.Errorf("rosterquery: list roster: %w", err)
	}

	last, err := s.audit.LastSuccess(ctx, audit.DatasetRoster)
	if err != nil {
		return nil, fmt.Errorf("rosterquery: last sync: %w", err)
	}

	return &RosterResult{RefDate: w.M0, Records: records, LastSyncedAt: last, Sync: syncResult}, nil
}

// ResumoByWindow は 4 参照月の (部署, エリア, 状態) 別人数を返します。
func (s *Service) ResumoByWindow(ctx context.Context) (*ResumoResult, error) {
	_, w := s.ensureFresh(ctx)

	records, err := s.snapshots.ListByReferenceDates(ctx, w.Dates())
	if err != nil {
		return nil, fmt.Errorf("rosterquery: list window: %w", err)
	}

	labels := labelsFor(w)
	type groupKey struct {
		refDate    string
		department string
		area       string
		situation  string
	}
	counts := make(map[groupKey]*ResumoGroup)
	for _, rec := range records {
		key := groupKey{
			refDate:    snapshot.FormatDate(rec.RefDate),
			department: deref(rec.Department),
			area:       deref(rec.Area),
		}
		if rec.Situation != nil {
			key.situation = string(*rec.Situation)
		}
		g, ok := counts[key]
		if !ok {
			g = &ResumoGroup{
				RefDate:    rec.RefDate,
				Label:      labels[key.refDate],
				Department: key.department,
				Area:       key.area,
				Situation:  key.situation,
			}
			counts[key] = g
		}
		g.Count++
	}

	order := displayRank(w)
	groups := make([]ResumoGroup, 0, len(counts))
	for _, g := range counts {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if ra, rb := order[snapshot.FormatDate(a.RefDate)], order[snapshot.FormatDate(b.RefDate)]; ra != rb {
			return ra < rb
		}
		if a.Department != b.Department {
			return a.Department < b.Department
		}
		if a.Area != b.Area {
			return a.Area < b.Area
		}
		return a.Situation < b.Situation
	})

	last, err := s.audit.LastSuccess(ctx, audit.DatasetRoster)
	if err != nil {
		return nil, fmt.Errorf("rosterquery: last sync: %w", err)
	}

	return &ResumoResult{Groups: groups, LastSyncedAt: last}, nil
}

// Turnover は [m2, m1, m0, m12] 順に状態 A と D の人数を返します。
func (s *Service) Turnover(ctx context.Context) (*TurnoverResult, error) {
	_, w := s.ensureFresh(ctx)

	counts, err := s.snapshots.CountBySituation(ctx, w.Dates())
	if err != nil {
		return nil, fmt.Errorf("rosterquery: count by situation: %w", err)
	}

	byDate := make(map[string]map[string]int)
	for _, c := range counts {
		key := snapshot.FormatDate(c.RefDate)
		if byDate[key] == nil {
			byDate[key] = make(map[string]int)
		}
		byDate[key][c.Situation] += c.Count
	}

	labels := labelsFor(w)
	entries := make([]TurnoverEntry, 0, 4)
	for _, d := range w.DisplayOrder() {
		key := snapshot.FormatDate(d)
		entries = append(entries, TurnoverEntry{
			RefDate:    d,
			Label:      labels[key],
			Admitted:   byDate[key][string(snapshot.SituationActive)],
			Terminated: byDate[key][string(snapshot.SituationTerminated)],
		})
	}

	last, err := s.audit.LastSuccess(ctx, audit.DatasetRoster)
	if err != nil {
		return nil, fmt.Errorf("rosterquery: last sync: %w", err)
	}

	return &TurnoverResult{Entries: entries, LastSyncedAt: last}, nil
}

// Afastados は afastados 集計を返します。集計テーブルに無い参照月はスナップショットの
// 状態 F の人数で代替し、INSS と APInvalidez は nil になります。
func (s *Service) Afastados(ctx context.Context) (*AfastadosResult, error) {
	_, w := s.ensureFresh(ctx)
	if res := s.sync.EnsureAfastadosResumo(ctx, false); len(res.Failed()) > 0 {
		s.log.Warn("afastados resumo incomplete, fallback may apply", zap.Strings("failed", res.Failed()))
	}

	entries, err := resolveAfastados(ctx, w.DisplayOrder(), s.log, s.resumoTier, s.snapshotTier)
	if err != nil {
		return nil, err
	}

	labels := labelsFor(w)
	for i := range entries {
		entries[i].Label = labels[snapshot.FormatDate(entries[i].RefDate)]
	}

	last, err := s.audit.LastSuccess(ctx, audit.DatasetAfastadosResumo)
	if err != nil {
		return nil, fmt.Errorf("rosterquery: last sync: %w", err)
	}

	return &AfastadosResult{Entries: entries, LastSyncedAt: last}, nil
}

// AtivosPorCategoria は当月の在籍者 (状態 A) を区分別に数えます。
func (s *Service) AtivosPorCategoria(ctx context.Context) (*CategoryResult, error) {
	_, w := s.ensureFresh(ctx)

	records, err := s.snapshots.ListByReferenceDate(ctx, w.M0)
	if err != nil {
		return nil, fmt.Errorf("rosterquery: list roster: %w", err)
	}

	counts := make(map[Category]int, len(Categories))
	total := 0
	for _, rec := range records {
		if !rec.HasSituation(snapshot.SituationActive) {
			continue
		}
		counts[Categorize(deref(rec.Function), deref(rec.Department))]++
		total++
	}

	out := make([]CategoryCount, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, CategoryCount{Category: c, Count: counts[c]})
	}

	return &CategoryResult{RefDate: w.M0, Categories: out, Total: total}, nil
}

// SyncRuns は監査ログの直近の記録を返します。
func (s *Service) SyncRuns(ctx context.Context, datasetKey string, limit int) ([]*audit.Run, error) {
	switch datasetKey {
	case audit.DatasetRoster, audit.DatasetAfastadosResumo:
	default:
		return nil, audit.ErrInvalidDatasetKey
	}
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	if limit > maxRunsLimit {
		return nil, audit.ErrInvalidLimit
	}
	return s.audit.ListRecent(ctx, datasetKey, limit)
}

func labelsFor(w snapshot.Window) map[string]string {
	return map[string]string{
		snapshot.FormatDate(w.M0):  LabelM0,
		snapshot.FormatDate(w.M1):  LabelM1,
		snapshot.FormatDate(w.M2):  LabelM2,
		snapshot.FormatDate(w.M12): LabelM12,
	}
}

func displayRank(w snapshot.Window) map[string]int {
	rank := make(map[string]int, 4)
	for i, d := range w.DisplayOrder() {
		rank[snapshot.FormatDate(d)] = i
	}
	return rank
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package rostersync

import (
	"context"
	"fmt"
	"time"

	"github.com/ogurasousui/dp-roster-sync/internal/core/audit"
	"github.com/ogurasousui/dp-roster-sync/internal/core/leave"
	"github.com/ogurasousui/dp-roster-sync/internal/core/snapshot"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UseCase は同期ユースケースの公開インターフェースです。
type UseCase interface {
	EnsureSnapshots(ctx context.Context, force bool) Result
	EnsureAfastadosResumo(ctx context.Context, force bool) Result
}

// Options は同期処理の挙動を調整します。
type Options struct {
	// WindowTimeout は参照月 1 件あたりの抽出・書き込みの上限時間です。0 は無制限です。
	WindowTimeout time.Duration
	// Parallel が true の場合、4 つの参照月を並行に処理します。
	Parallel bool
}

// Params は Service の依存関係です。
type Params struct {
	Snapshots snapshot.Repository
	Resumos   leave.ResumoRepository
	Audit     audit.Log
	Roster    RosterExtractor
	Leaves    LeaveExtractor
	Clock     Clock
	Tx        TransactionManager
	Logger    *zap.Logger
	Metrics   Recorder
	Options   Options
}

// Service は参照月ごとのスナップショット同期を調整します。
// 同時実行の排他は行わず、冪等な upsert によって整合性を保ちます。
type Service struct {
	snapshots snapshot.Repository
	resumos   leave.ResumoRepository
	audit     audit.Log
	roster    RosterExtractor
	leaves    LeaveExtractor
	clock     Clock
	tx        TransactionManager
	log       *zap.Logger
	metrics   Recorder
	opts      Options
}

// pipeline は 1 データセット分の存在確認と同期処理です。
type pipeline struct {
	dataset string
	exists  func(ctx context.Context, refDate time.Time) (bool, error)
	sync    func(ctx context.Context, refDate time.Time) (int, error)
}

// NewService は Service を生成します。
func NewService(p Params) (*Service, error) {
	if p.Snapshots == nil || p.Resumos == nil || p.Audit == nil || p.Roster == nil || p.Leaves == nil {
		return nil, ErrInvalidConfig
	}
	if p.Clock == nil {
		p.Clock = realClock{}
	}
	if p.Tx == nil {
		p.Tx = noopTransactionManager{}
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Metrics == nil {
		p.Metrics = noopRecorder{}
	}

	return &Service{
		snapshots: p.Snapshots,
		resumos:   p.Resumos,
		audit:     p.Audit,
		roster:    p.Roster,
		leaves:    p.Leaves,
		clock:     p.Clock,
		tx:        p.Tx,
		log:       p.Logger.Named("rostersync"),
		metrics:   p.Metrics,
		opts:      p.Options,
	}, nil
}

// EnsureSnapshots は 4 つの参照月の quadro スナップショットを揃えます。
// force が false の場合、既にデータがある参照月は抽出元に問い合わせずスキップします。
// 参照月ごとの失敗は監査ログと戻り値に記録され、他の参照月の処理は継続します。
func (s *Service) EnsureSnapshots(ctx context.Context, force bool) Result {
	return s.run(ctx, pipeline{
		dataset: audit.DatasetRoster,
		exists:  s.snapshots.Exists,
		sync:    s.syncRoster,
	}, force)
}

// EnsureAfastadosResumo は 4 つの参照月の afastados 集計を揃えます。
func (s *Service) EnsureAfastadosResumo(ctx context.Context, force bool) Result {
	return s.run(ctx, pipeline{
		dataset: audit.DatasetAfastadosResumo,
		exists:  s.resumos.Exists,
		sync:    s.syncAfastados,
	}, force)
}

func (s *Service) run(ctx context.Context, p pipeline, force bool) Result {
	dates := snapshot.WindowAt(s.clock.Now()).Dates()
	outcomes := make([]WindowStatus, len(dates))

	if s.opts.Parallel {
		var g errgroup.Group
		for i, refDate := range dates {
			g.Go(func() error {
				outcomes[i] = s.runWindow(ctx, p, refDate, force)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, refDate := range dates {
			outcomes[i] = s.runWindow(ctx, p, refDate, force)
		}
	}

	result := Result{Stats: make(map[string]WindowStatus, len(dates))}
	for i, refDate := range dates {
		result.Stats[snapshot.FormatDate(refDate)] = outcomes[i]
		if outcomes[i].Status == StatusSynced {
			result.Processed += outcomes[i].Rows
		}
	}

	s.log.Info("sync finished",
		zap.String("dataset", p.dataset),
		zap.Bool("force", force),
		zap.Int("processed", result.Processed),
		zap.Int("synced", result.Count(StatusSynced)),
		zap.Int("skipped", result.Count(StatusSkipped)),
		zap.Strings("failed", result.Failed()),
	)

	return result
}

func (s *Service) runWindow(ctx context.Context, p pipeline, refDate time.Time, force bool) (status WindowStatus) {
	started := time.Now()
	log := s.log.With(zap.String("dataset", p.dataset), zap.String("ref_date", snapshot.FormatDate(refDate)))

	defer func() {
		if r := recover(); r != nil {
			status = s.fail(ctx, log, p.dataset, refDate, fmt.Errorf("rostersync: panic: %v", r))
		}
		s.metrics.ObserveWindow(p.dataset, status.Status, status.Rows, time.Since(started))
	}()

	if !force {
		exists, err := p.exists(ctx, refDate)
		if err != nil {
			return s.fail(ctx, log, p.dataset, refDate, fmt.Errorf("check existing data: %w", err))
		}
		if exists {
			log.Debug("data already present, skipping")
			return WindowStatus{Status: StatusSkipped}
		}
	}

	windowCtx, cancel := s.windowContext(ctx)
	defer cancel()

	rows, err := p.sync(windowCtx, refDate)
	if err != nil {
		return s.fail(ctx, log, p.dataset, refDate, err)
	}

	if err := s.audit.Record(ctx, p.dataset, refDate, rows, true, ""); err != nil {
		log.Warn("failed to record successful sync run", zap.Error(err))
	}
	log.Info("window synced", zap.Int("rows", rows))

	return WindowStatus{Status: StatusSynced, Rows: rows}
}

func (s *Service) fail(ctx context.Context, log *zap.Logger, dataset string, refDate time.Time, err error) WindowStatus {
	msg := err.Error()
	log.Error("window sync failed", zap.Error(err))

	if auditErr := s.audit.Record(ctx, dataset, refDate, 0, false, msg); auditErr != nil {
		log.Warn("failed to record failed sync run", zap.Error(auditErr))
	}

	return WindowStatus{Status: StatusError, Message: msg}
}

func (s *Service) windowContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.WindowTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.WindowTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *Service) syncRoster(ctx context.Context, refDate time.Time) (int, error) {
	raw, err := s.roster.ExtractRoster(ctx, refDate)
	if err != nil {
		return 0, fmt.Errorf("extract roster: %w", err)
	}

	now := s.clock.Now().UTC()
	records := make([]*snapshot.Record, 0, len(raw))
	for _, row := range raw {
		rec := snapshot.MapRow(row, refDate)
		if !rec.Keyed() {
			continue
		}
		rec.SyncedAt = now
		records = append(records, rec)
	}

	if dropped := len(raw) - len(records); dropped > 0 {
		s.log.Warn("rows without primary key were ignored",
			zap.String("ref_date", snapshot.FormatDate(refDate)),
			zap.Int("dropped", dropped),
		)
		if len(records) == 0 {
			return 0, ErrNoKeyedRows
		}
	}

	var written int
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		n, err := s.snapshots.Upsert(txCtx, refDate, records)
		if err != nil {
			return err
		}
		written = n
		return nil
	}); err != nil {
		return 0, fmt.Errorf("upsert snapshots: %w", err)
	}

	return written, nil
}

func (s *Service) syncAfastados(ctx context.Context, refDate time.Time) (int, error) {
	rows, err := s.leaves.ExtractLeaves(ctx, refDate)
	if err != nil {
		return 0, fmt.Errorf("extract leaves: %w", err)
	}

	resumo := leave.Summarize(rows)
	resumo.RefDate = refDate
	resumo.SyncedAt = s.clock.Now().UTC()

	if err := s.resumos.Upsert(ctx, &resumo); err != nil {
		return 0, fmt.Errorf("upsert afastados resumo: %w", err)
	}

	return resumo.Total, nil
}

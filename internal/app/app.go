package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ogurasousui/dp-roster-sync/internal/adapters/repository/postgres"
	"github.com/ogurasousui/dp-roster-sync/internal/adapters/source/sqlserver"
	"github.com/ogurasousui/dp-roster-sync/internal/core/rosterquery"
	"github.com/ogurasousui/dp-roster-sync/internal/core/rostersync"
	"github.com/ogurasousui/dp-roster-sync/internal/platform/admin"
	"github.com/ogurasousui/dp-roster-sync/internal/platform/config"
	pg "github.com/ogurasousui/dp-roster-sync/internal/platform/db/postgres"
	"github.com/ogurasousui/dp-roster-sync/internal/platform/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// App はプロセスで共有する依存関係をまとめたものです。
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Pool     *pgxpool.Pool
	Source   *sql.DB
	Sync     *rostersync.Service
	Query    *rosterquery.Service
}

// New は PostgreSQL と抽出元に接続し、同期・照会サービスを組み立てます。
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	pool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initialize database pool: %w", err)
	}
	registry.MustRegister(pg.NewPoolCollector(pg.StatsFromPool(pool)))

	source, err := sqlserver.Open(ctx, cfg.Source, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open source: %w", err)
	}

	queries, err := sqlserver.LoadQueries(cfg.Source.RosterQueryFile, cfg.Source.LeaveQueryFile)
	if err != nil {
		_ = source.Close()
		pool.Close()
		return nil, fmt.Errorf("load source queries: %w", err)
	}

	executor := sqlserver.NewExecutor(source, sqlserver.Options{
		QueryTimeout:        cfg.Source.QueryTimeout,
		ConsecutiveFailures: cfg.Source.Breaker.ConsecutiveFailures,
		OpenTimeout:         cfg.Source.Breaker.OpenTimeout,
		Logger:              log,
		OnStateChange:       m.BreakerStateChanged,
	})

	snapshots := postgres.NewSnapshotRepository(pool)
	resumos := postgres.NewAfastadosResumoRepository(pool)
	runs := postgres.NewSyncRunRepository(pool)

	syncSvc, err := rostersync.NewService(rostersync.Params{
		Snapshots: snapshots,
		Resumos:   resumos,
		Audit:     runs,
		Roster:    sqlserver.NewRosterExtractor(executor, queries.Roster),
		Leaves:    sqlserver.NewLeaveExtractor(executor, queries.Leaves),
		Tx:        pg.NewTransactionManager(pool, pg.WithStatementTimeout(cfg.Sync.WindowTimeout)),
		Logger:    log,
		Metrics:   m,
		Options: rostersync.Options{
			WindowTimeout: cfg.Sync.WindowTimeout,
			Parallel:      cfg.Sync.Parallel,
		},
	})
	if err != nil {
		_ = source.Close()
		pool.Close()
		return nil, fmt.Errorf("build sync service: %w", err)
	}

	querySvc, err := rosterquery.NewService(rosterquery.Params{
		Sync:      syncSvc,
		Snapshots: snapshots,
		Resumos:   resumos,
		Audit:     runs,
		Logger:    log,
	})
	if err != nil {
		_ = source.Close()
		pool.Close()
		return nil, fmt.Errorf("build query service: %w", err)
	}

	return &App{
		Config:   cfg,
		Logger:   log,
		Registry: registry,
		Metrics:  m,
		Pool:     pool,
		Source:   source,
		Sync:     syncSvc,
		Query:    querySvc,
	}, nil
}

// ReadinessChecks は /readyz で確認する依存先です。
// 抽出元の障害中も保存済みスナップショットは返せるため、抽出元は含めません。
// 抽出元の状態は dpsync_source_breaker_state で確認できます。
func (a *App) ReadinessChecks() map[string]admin.ReadinessCheck {
	return map[string]admin.ReadinessCheck{
		"postgres": a.Pool.Ping,
	}
}

// Close は接続を閉じます。
func (a *App) Close() {
	if a.Source != nil {
		if err := a.Source.Close(); err != nil {
			a.Logger.Warn("failed to close source", zap.Error(err))
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ogurasousui/dp-roster-sync/internal/platform/config"
)

const (
	applicationName   = "dp-roster-sync"
	sessionTimeZone   = "UTC"
	healthCheckPeriod = time.Minute
	pingTimeout       = 5 * time.Second
)

// BuildPoolConfig は database 設定から pgxpool.Config を構築します。
// 参照月は UTC の日付として保存するため、セッションのタイムゾーンは常に UTC です。
func BuildPoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	params := poolCfg.ConnConfig.RuntimeParams
	if params == nil {
		params = map[string]string{}
		poolCfg.ConnConfig.RuntimeParams = params
	}
	params["application_name"] = applicationName
	params["timezone"] = sessionTimeZone

	poolCfg.HealthCheckPeriod = healthCheckPeriod
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(min(cfg.MaxIdleConns, int(poolCfg.MaxConns)))
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	return poolCfg, nil
}

// NewPool はスナップショット保存先の接続プールを生成し、疎通確認を行います。
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := BuildPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}

	return pool, nil
}

package sqlserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/ogurasousui/dp-roster-sync/internal/platform/config"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	refDateParam = "ref_date"
	pingTimeout  = 5 * time.Second
)

// ErrSourceUnavailable はサーキットブレーカーが開いており抽出元への問い合わせを行わなかったことを表します。
var ErrSourceUnavailable = errors.New("sqlserver: source unavailable (circuit open)")

// Row は列名 (小文字) をキーとした 1 行分の値です。
type Row = map[string]any

// Querier は *sql.DB と互換性のある問い合わせインターフェースです。
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// StateObserver はブレーカーの状態遷移を受け取ります。
type StateObserver func(name string, from, to gobreaker.State)

// Options は Executor の挙動を調整します。
type Options struct {
	QueryTimeout        time.Duration
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	Logger              *zap.Logger
	OnStateChange       StateObserver
}

// Executor は抽出元に対して読み取り専用の問い合わせを実行します。
type Executor struct {
	db      Querier
	breaker *gobreaker.CircuitBreaker[[]Row]
	timeout time.Duration
	log     *zap.Logger
}

// Open は go-mssqldb で抽出元への接続プールを開きます。
// 疎通確認に失敗しても警告を出すだけでプールを返します。以降の失敗はブレーカーが扱います。
func Open(ctx context.Context, cfg config.SourceConfig, log *zap.Logger) (*sql.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}

	connector, err := mssql.NewConnector(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("sqlserver: parse dsn: %w", err)
	}

	db := sql.OpenDB(connector)
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Named("source").Warn("source unreachable at startup, serving stored snapshots until it recovers",
			zap.String("host", cfg.Host),
			zap.Error(err),
		)
	}
	return db, nil
}

// NewExecutor は Executor を生成します。
func NewExecutor(db Querier, opts Options) *Executor {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("source")

	failures := opts.ConsecutiveFailures
	if failures == 0 {
		failures = 3
	}

	settings := gobreaker.Settings{
		Name:        "rm-source",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// 呼び出し側の取り消しは抽出元の障害として数えない。
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("source breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if opts.OnStateChange != nil {
				opts.OnStateChange(name, from, to)
			}
		},
	}

	return &Executor{
		db:      db,
		breaker: gobreaker.NewCircuitBreaker[[]Row](settings),
		timeout: opts.QueryTimeout,
		log:     log,
	}
}

// ExecuteReadOnlyQuery はテンプレートを @ref_date にバインドして実行し、全行を返します。
func (e *Executor) ExecuteReadOnlyQuery(ctx context.Context, query string, refDate time.Time) ([]Row, error) {
	rows, err := e.breaker.Execute(func() ([]Row, error) {
		return e.query(ctx, query, refDate)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		return nil, err
	}
	return rows, nil
}

func (e *Executor) query(ctx context.Context, query string, refDate time.Time) ([]Row, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	rs, err := e.db.QueryContext(ctx, query, sql.Named(refDateParam, mssql.DateTime1(refDate)))
	if err != nil {
		return nil, fmt.Errorf("sqlserver: query: %w", err)
	}
	defer rs.Close()

	out, err := collectRows(rs)
	if err != nil {
		return nil, err
	}

	e.log.Debug("source query completed",
		zap.Time("ref_date", refDate),
		zap.Int("rows", len(out)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func collectRows(rs *sql.Rows) ([]Row, error) {
	cols, err := rs.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlserver: columns: %w", err)
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = strings.ToLower(strings.TrimSpace(c))
	}

	var out []Row
	for rs.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlserver: scan: %w", err)
		}
		out = append(out, toRow(names, values))
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("sqlserver: rows: %w", err)
	}
	return out, nil
}

// toRow は列名と値から Row を組み立てます。[]byte は文字列として扱います。
func toRow(names []string, values []any) Row {
	row := make(Row, len(names))
	for i, name := range names {
		v := values[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		row[name] = v
	}
	return row
}

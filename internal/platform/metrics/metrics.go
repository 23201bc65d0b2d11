package metrics

import (
	"context"
	"time"

	"github.com/ogurasousui/dp-roster-sync/internal/core/rostersync"
	"github.com/prometheus/client_golang/prometheus"
	gobreaker "github.com/sony/gobreaker/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const namespace = "dpsync"

// Metrics は同期処理と gRPC の計測値を保持します。
type Metrics struct {
	windowRuns     *prometheus.CounterVec
	windowRows     *prometheus.CounterVec
	windowDuration *prometheus.HistogramVec
	lastSuccess    *prometheus.GaugeVec
	breakerState   *prometheus.GaugeVec
	rpcRequests    *prometheus.CounterVec
	rpcDuration    *prometheus.HistogramVec
	now            func() time.Time
}

// New は registerer に計測値を登録して Metrics を返します。
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		windowRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "window_runs_total",
			Help:      "Reference-date sync attempts by dataset and status.",
		}, []string{"dataset", "status"}),
		windowRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "window_rows_total",
			Help:      "Rows written by successful reference-date syncs.",
		}, []string{"dataset"}),
		windowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "window_duration_seconds",
			Help:      "Duration of one reference-date sync including extraction and upsert.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"dataset", "status"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful reference-date sync.",
		}, []string{"dataset"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_breaker_state",
			Help:      "Source circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"breaker"}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "gRPC requests by method and status code.",
		}, []string{"method", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_request_duration_seconds",
			Help:      "gRPC request latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		now: time.Now,
	}

	registerer.MustRegister(
		m.windowRuns,
		m.windowRows,
		m.windowDuration,
		m.lastSuccess,
		m.breakerState,
		m.rpcRequests,
		m.rpcDuration,
	)
	return m
}

// ObserveWindow は参照月 1 件分の同期結果を記録します。
func (m *Metrics) ObserveWindow(dataset string, st rostersync.Status, rows int, elapsed time.Duration) {
	m.windowRuns.WithLabelValues(dataset, string(st)).Inc()
	m.windowDuration.WithLabelValues(dataset, string(st)).Observe(elapsed.Seconds())
	if st == rostersync.StatusSynced {
		m.windowRows.WithLabelValues(dataset).Add(float64(rows))
		m.lastSuccess.WithLabelValues(dataset).Set(float64(m.now().Unix()))
	}
}

// BreakerStateChanged はサーキットブレーカーの状態を記録します。
func (m *Metrics) BreakerStateChanged(name string, _, to gobreaker.State) {
	m.breakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// UnaryServerInterceptor は gRPC のリクエスト数とレイテンシを記録します。
func (m *Metrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := m.now()
		resp, err := handler(ctx, req)
		m.rpcRequests.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		m.rpcDuration.WithLabelValues(info.FullMethod).Observe(m.now().Sub(start).Seconds())
		return resp, err
	}
}

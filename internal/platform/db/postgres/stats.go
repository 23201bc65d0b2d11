package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStats は接続プールの状態のスナップショットです。
type PoolStats struct {
	Acquired     int32
	Idle         int32
	Total        int32
	Max          int32
	AcquireCount int64
	EmptyAcquire int64
}

// StatsFunc は PoolStats を返します。
type StatsFunc func() PoolStats

// StatsFromPool は pgxpool.Pool から PoolStats を読み出す StatsFunc を返します。
func StatsFromPool(pool *pgxpool.Pool) StatsFunc {
	return func() PoolStats {
		s := pool.Stat()
		return PoolStats{
			Acquired:     s.AcquiredConns(),
			Idle:         s.IdleConns(),
			Total:        s.TotalConns(),
			Max:          s.MaxConns(),
			AcquireCount: s.AcquireCount(),
			EmptyAcquire: s.EmptyAcquireCount(),
		}
	}
}

// PoolCollector は接続プールの状態を収集時に読み出す prometheus.Collector です。
type PoolCollector struct {
	stats        StatsFunc
	acquired     *prometheus.Desc
	idle         *prometheus.Desc
	total        *prometheus.Desc
	max          *prometheus.Desc
	acquireCount *prometheus.Desc
	emptyAcquire *prometheus.Desc
}

var _ prometheus.Collector = (*PoolCollector)(nil)

// NewPoolCollector は PoolCollector を生成します。
func NewPoolCollector(stats StatsFunc) *PoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("dpsync", "store_pool", name), help, nil, nil)
	}
	return &PoolCollector{
		stats:        stats,
		acquired:     desc("acquired_conns", "Connections currently in use."),
		idle:         desc("idle_conns", "Idle connections."),
		total:        desc("total_conns", "Open connections."),
		max:          desc("max_conns", "Configured maximum connections."),
		acquireCount: desc("acquires_total", "Successful connection acquisitions."),
		emptyAcquire: desc("empty_acquires_total", "Acquisitions that had to wait for a connection."),
	}
}

// Describe は prometheus.Collector を実装します。
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
	ch <- c.acquireCount
	ch <- c.emptyAcquire
}

// Collect は prometheus.Collector を実装します。
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.Acquired))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.Idle))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.Total))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.Max))
	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, float64(s.AcquireCount))
	ch <- prometheus.MustNewConstMetric(c.emptyAcquire, prometheus.CounterValue, float64(s.EmptyAcquire))
}

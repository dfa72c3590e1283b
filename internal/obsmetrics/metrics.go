// Package obsmetrics tracks exchange-wide counters with lock-free
// atomics, the way the teacher's internal/metrics package does, and
// additionally exposes them as a github.com/prometheus/client_golang
// collector so they can be scraped alongside the JSON view used by the
// health endpoint.
package obsmetrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const maxLatencyMicros = 100000 // track up to 100ms with 1us precision

// Metrics holds thread-safe counters for the running exchange process.
type Metrics struct {
	StartTime       time.Time
	OrdersSubmitted atomic.Int64
	OrdersCancelled atomic.Int64
	OrdersReplaced  atomic.Int64
	OrdersInBook    atomic.Int64
	TradesExecuted  atomic.Int64
	TotalLatency    atomic.Int64 // microseconds

	latencyHistogram [maxLatencyMicros + 1]atomic.Int64
}

// New creates a Metrics struct with its start time set to now.
func New() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

func (m *Metrics) IncOrdersSubmitted() { m.OrdersSubmitted.Add(1) }
func (m *Metrics) IncOrdersCancelled() { m.OrdersCancelled.Add(1) }
func (m *Metrics) IncOrdersReplaced()  { m.OrdersReplaced.Add(1) }
func (m *Metrics) IncOrdersInBook()    { m.OrdersInBook.Add(1) }
func (m *Metrics) DecOrdersInBook()    { m.OrdersInBook.Add(-1) }
func (m *Metrics) AddTrades(n int64)   { m.TradesExecuted.Add(n) }

// AddLatency records an operation's latency in microseconds.
func (m *Metrics) AddLatency(micros int64) {
	m.TotalLatency.Add(micros)
	idx := micros
	if idx > maxLatencyMicros {
		idx = maxLatencyMicros
	}
	if idx < 0 {
		idx = 0
	}
	m.latencyHistogram[idx].Add(1)
}

func (m *Metrics) percentile(p float64, total int64) float64 {
	if total == 0 {
		return 0
	}
	target := int64(float64(total)*p + 0.999999)
	var running int64
	for i := 0; i <= maxLatencyMicros; i++ {
		running += m.latencyHistogram[i].Load()
		if running >= target {
			return float64(i) / 1000.0
		}
	}
	return float64(maxLatencyMicros) / 1000.0
}

// Snapshot is a point-in-time, JSON-serialisable view of Metrics, used
// by the HTTP /health handler's human/JSON consumers.
type Snapshot struct {
	OrdersSubmitted int64   `json:"orders_submitted"`
	OrdersCancelled int64   `json:"orders_cancelled"`
	OrdersReplaced  int64   `json:"orders_replaced"`
	OrdersInBook    int64   `json:"orders_in_book"`
	TradesExecuted  int64   `json:"trades_executed"`
	LatencyAvgMs    float64 `json:"latency_avg_ms"`
	LatencyP50Ms    float64 `json:"latency_p50_ms"`
	LatencyP99Ms    float64 `json:"latency_p99_ms"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}

// Snapshot returns the current values of every counter.
func (m *Metrics) Snapshot() Snapshot {
	submitted := m.OrdersSubmitted.Load()
	avg := 0.0
	if submitted > 0 {
		avg = float64(m.TotalLatency.Load()) / float64(submitted) / 1000.0
	}
	return Snapshot{
		OrdersSubmitted: submitted,
		OrdersCancelled: m.OrdersCancelled.Load(),
		OrdersReplaced:  m.OrdersReplaced.Load(),
		OrdersInBook:    m.OrdersInBook.Load(),
		TradesExecuted:  m.TradesExecuted.Load(),
		LatencyAvgMs:    avg,
		LatencyP50Ms:    m.percentile(0.50, submitted),
		LatencyP99Ms:    m.percentile(0.99, submitted),
		UptimeSeconds:   time.Since(m.StartTime).Seconds(),
	}
}

// Collector adapts Metrics to prometheus.Collector, grounded on
// VictorVVedtion-perp-dex's metrics.Collector shape: one descriptor per
// gauge/counter, populated from the same atomics the JSON snapshot
// reads.
type Collector struct {
	m *Metrics

	ordersSubmitted *prometheus.Desc
	ordersCancelled *prometheus.Desc
	ordersReplaced  *prometheus.Desc
	ordersInBook    *prometheus.Desc
	tradesExecuted  *prometheus.Desc
	latencyAvgMs    *prometheus.Desc
}

// NewCollector wraps m for Prometheus export.
func NewCollector(m *Metrics) *Collector {
	return &Collector{
		m:               m,
		ordersSubmitted: prometheus.NewDesc("exchange_orders_submitted_total", "Total orders submitted.", nil, nil),
		ordersCancelled: prometheus.NewDesc("exchange_orders_cancelled_total", "Total orders cancelled.", nil, nil),
		ordersReplaced:  prometheus.NewDesc("exchange_orders_replaced_total", "Total orders replaced.", nil, nil),
		ordersInBook:    prometheus.NewDesc("exchange_orders_in_book", "Orders currently resting in a book.", nil, nil),
		tradesExecuted:  prometheus.NewDesc("exchange_trades_executed_total", "Total trades executed.", nil, nil),
		latencyAvgMs:    prometheus.NewDesc("exchange_order_latency_avg_ms", "Average order processing latency in milliseconds.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ordersSubmitted
	ch <- c.ordersCancelled
	ch <- c.ordersReplaced
	ch <- c.ordersInBook
	ch <- c.tradesExecuted
	ch <- c.latencyAvgMs
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.m.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.ordersSubmitted, prometheus.CounterValue, float64(snap.OrdersSubmitted))
	ch <- prometheus.MustNewConstMetric(c.ordersCancelled, prometheus.CounterValue, float64(snap.OrdersCancelled))
	ch <- prometheus.MustNewConstMetric(c.ordersReplaced, prometheus.CounterValue, float64(snap.OrdersReplaced))
	ch <- prometheus.MustNewConstMetric(c.ordersInBook, prometheus.GaugeValue, float64(snap.OrdersInBook))
	ch <- prometheus.MustNewConstMetric(c.tradesExecuted, prometheus.CounterValue, float64(snap.TradesExecuted))
	ch <- prometheus.MustNewConstMetric(c.latencyAvgMs, prometheus.GaugeValue, snap.LatencyAvgMs)
}

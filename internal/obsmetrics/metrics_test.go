package obsmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotReflectsCounters(t *testing.T) {
	m := New()
	m.IncOrdersSubmitted()
	m.IncOrdersSubmitted()
	m.IncOrdersCancelled()
	m.IncOrdersInBook()
	m.IncOrdersInBook()
	m.DecOrdersInBook()
	m.AddTrades(3)
	m.AddLatency(1000)
	m.AddLatency(2000)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.OrdersSubmitted)
	assert.Equal(t, int64(1), snap.OrdersCancelled)
	assert.Equal(t, int64(1), snap.OrdersInBook)
	assert.Equal(t, int64(3), snap.TradesExecuted)
	assert.InDelta(t, 1.5, snap.LatencyAvgMs, 0.001)
}

func TestAddLatencyClampsOutOfRange(t *testing.T) {
	m := New()
	m.AddLatency(-5)
	m.AddLatency(maxLatencyMicros + 5000)
	snap := m.Snapshot()
	assert.Equal(t, 0.0, snap.LatencyAvgMs) // OrdersSubmitted is 0, avg guarded to 0
}

func TestPercentileWithNoSamples(t *testing.T) {
	m := New()
	assert.Equal(t, 0.0, m.percentile(0.99, 0))
}

func TestCollectorExportsRegisteredMetrics(t *testing.T) {
	m := New()
	m.IncOrdersSubmitted()
	m.AddTrades(2)
	collector := NewCollector(m)

	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(collector))

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["exchange_orders_submitted_total"])
	assert.True(t, names["exchange_trades_executed_total"])
}

func TestCollectorDescribeEmitsAllDescriptors(t *testing.T) {
	collector := NewCollector(New())
	ch := make(chan *prometheus.Desc, 16)
	collector.Describe(ch)
	close(ch)

	count := 0
	for range ch {
		count++
	}
	assert.Equal(t, 6, count)
}

package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/exchangecore/matchkernel/internal/core"
)

func TestFromTradesPreservesOrderAndFields(t *testing.T) {
	trades := []core.Trade{
		{Market: "BTC-USD", BuyID: "B", SellID: "A", Price: 50000, Quantity: 5, Sequence: 1},
		{Market: "BTC-USD", BuyID: "B", SellID: "C", Price: 50000, Quantity: 2, Sequence: 2},
	}

	evs := FromTrades(trades, 1000)
	assert.Len(t, evs, 2)
	for i, ev := range evs {
		assert.Equal(t, TypeTradeExecuted, ev.Type)
		assert.Equal(t, int64(1000), ev.Timestamp)
		assert.Equal(t, "BTC-USD", ev.Market)
		assert.Equal(t, trades[i].Sequence, ev.Trade.Sequence)
	}
}

func TestFromTradesEmpty(t *testing.T) {
	assert.Empty(t, FromTrades(nil, 0))
}

func TestOrderAdded(t *testing.T) {
	ev := OrderAdded("BTC-USD", "A", 42)
	assert.Equal(t, TypeOrderAdded, ev.Type)
	assert.Equal(t, core.OrderID("A"), ev.OrderID)
	assert.Nil(t, ev.Trade)
}

func TestOrderCancelled(t *testing.T) {
	ev := OrderCancelled("BTC-USD", "A", 42)
	assert.Equal(t, TypeOrderCancelled, ev.Type)
	assert.Equal(t, core.OrderID("A"), ev.OrderID)
}

func TestOrderReplaced(t *testing.T) {
	ev := OrderReplaced("BTC-USD", "A", "A", 42)
	assert.Equal(t, TypeOrderReplaced, ev.Type)
	assert.Equal(t, core.OrderID("A"), ev.OldOrderID)
	assert.Equal(t, core.OrderID("A"), ev.NewOrderID)
}

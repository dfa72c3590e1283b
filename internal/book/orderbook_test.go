package book

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/exchangecore/matchkernel/internal/core"
)

func order(id core.OrderID, side core.Side, price core.Price, qty int64) *core.Order {
	return &core.Order{ID: id, Market: "BTC-USD", Side: side, Price: price, Residual: qty}
}

func TestAddAndBestPrices(t *testing.T) {
	ob := New()
	ob.Add(order("A", core.Buy, 100, 5))
	ob.Add(order("B", core.Buy, 101, 5))
	ob.Add(order("C", core.Sell, 105, 5))
	ob.Add(order("D", core.Sell, 104, 5))

	bid, ok := ob.BestBidPrice()
	assert.True(t, ok)
	assert.Equal(t, core.Price(101), bid)

	ask, ok := ob.BestAskPrice()
	assert.True(t, ok)
	assert.Equal(t, core.Price(104), ask)
}

func TestFIFOWithinLevel(t *testing.T) {
	ob := New()
	ob.Add(order("A", core.Sell, 100, 5))
	ob.Add(order("B", core.Sell, 100, 5))

	level := ob.BestAsk()
	assert.Equal(t, core.OrderID("A"), level.Orders[0].ID)
	assert.Equal(t, core.OrderID("B"), level.Orders[1].ID)
}

func TestRemoveByID(t *testing.T) {
	ob := New()
	ob.Add(order("A", core.Buy, 100, 5))
	ob.Add(order("B", core.Buy, 100, 5))

	removed, ok := ob.RemoveByID("A")
	assert.True(t, ok)
	assert.Equal(t, core.OrderID("A"), removed.ID)
	assert.False(t, ob.Contains("A"))
	assert.True(t, ob.Contains("B"))

	_, ok = ob.RemoveByID("Z")
	assert.False(t, ok)
}

func TestLevelRemovedWhenEmpty(t *testing.T) {
	ob := New()
	ob.Add(order("A", core.Buy, 100, 5))
	ob.RemoveByID("A")

	_, ok := ob.BestBidPrice()
	assert.False(t, ok)
	assert.True(t, ob.Empty())
}

func TestDepth(t *testing.T) {
	ob := New()
	ob.Add(order("A", core.Buy, 100, 5))
	ob.Add(order("B", core.Buy, 100, 3))
	ob.Add(order("C", core.Buy, 99, 10))

	bids, asks := ob.Depth(0)
	assert.Empty(t, asks)
	assert.Len(t, bids, 2)
	assert.Equal(t, core.Price(100), bids[0].Price)
	assert.Equal(t, int64(8), bids[0].Quantity)
	assert.Equal(t, core.Price(99), bids[1].Price)
}

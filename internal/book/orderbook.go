// Package book implements the per-market order book: two opposing price
// ladders, each organised as a set of time-ordered queues keyed by
// price, plus an auxiliary id index. It answers best-price queries in
// O(log L) where L is the number of distinct price levels on a side.
package book

import (
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"

	"github.com/exchangecore/matchkernel/internal/core"
)

// PriceLevel is a FIFO queue of orders resting at one price. Orders are
// appended at the tail and matched from the head, preserving
// time-priority within the level without any re-ordering.
type PriceLevel struct {
	Price  core.Price
	Orders []*core.Order
}

func (l *PriceLevel) head() *core.Order {
	if len(l.Orders) == 0 {
		return nil
	}
	return l.Orders[0]
}

func (l *PriceLevel) popHead() {
	l.Orders = l.Orders[1:]
}

// location is the auxiliary index entry recording where a resting order
// lives, so cancel/replace need not scan every level.
type location struct {
	price core.Price
	side  core.Side
}

// OrderBook holds the two price ladders for a single market. It is not
// safe for concurrent use; callers (the matching engine) serialize
// access per spec §5.
type OrderBook struct {
	bids  *redblacktree.Tree // core.Price -> *PriceLevel, descending
	asks  *redblacktree.Tree // core.Price -> *PriceLevel, ascending
	index map[core.OrderID]location
}

// New creates an empty OrderBook.
func New() *OrderBook {
	return &OrderBook{
		bids: redblacktree.NewWith(func(a, b interface{}) int {
			return utils.Int64Comparator(int64(b.(core.Price)), int64(a.(core.Price)))
		}),
		asks: redblacktree.NewWith(func(a, b interface{}) int {
			return utils.Int64Comparator(int64(a.(core.Price)), int64(b.(core.Price)))
		}),
		index: make(map[core.OrderID]location),
	}
}

func (ob *OrderBook) ladder(side core.Side) *redblacktree.Tree {
	if side == core.Buy {
		return ob.bids
	}
	return ob.asks
}

// Add appends order to the tail of the queue at (order.Side, order.Price),
// creating the level if absent. Precondition: order.Residual >= 1 and
// order.ID is not already indexed.
func (ob *OrderBook) Add(order *core.Order) {
	tree := ob.ladder(order.Side)
	if raw, found := tree.Get(order.Price); found {
		level := raw.(*PriceLevel)
		level.Orders = append(level.Orders, order)
	} else {
		tree.Put(order.Price, &PriceLevel{Price: order.Price, Orders: []*core.Order{order}})
	}
	ob.index[order.ID] = location{price: order.Price, side: order.Side}
}

// BestBid returns the highest-priced bid level, or nil if bids are empty.
func (ob *OrderBook) BestBid() *PriceLevel {
	return bestOf(ob.bids)
}

// BestAsk returns the lowest-priced ask level, or nil if asks are empty.
func (ob *OrderBook) BestAsk() *PriceLevel {
	return bestOf(ob.asks)
}

func bestOf(tree *redblacktree.Tree) *PriceLevel {
	node := tree.Left() // the comparator orders the tree so Left() is always best
	if node == nil {
		return nil
	}
	return node.Value.(*PriceLevel)
}

// PopFilled removes the head of level because it has been fully filled,
// dropping the level itself if it becomes empty. Also removes the
// order's id from the auxiliary index.
func (ob *OrderBook) PopFilled(side core.Side, level *PriceLevel) {
	filled := level.head()
	level.popHead()
	delete(ob.index, filled.ID)
	if len(level.Orders) == 0 {
		ob.ladder(side).Remove(level.Price)
	}
}

// RemoveByID removes the named order from the book. Reports whether the
// id was present.
func (ob *OrderBook) RemoveByID(id core.OrderID) (*core.Order, bool) {
	loc, ok := ob.index[id]
	if !ok {
		return nil, false
	}
	tree := ob.ladder(loc.side)
	raw, found := tree.Get(loc.price)
	if !found {
		delete(ob.index, id)
		return nil, false
	}
	level := raw.(*PriceLevel)
	var removed *core.Order
	for i, o := range level.Orders {
		if o.ID == id {
			removed = o
			level.Orders = append(level.Orders[:i], level.Orders[i+1:]...)
			break
		}
	}
	if len(level.Orders) == 0 {
		tree.Remove(loc.price)
	}
	delete(ob.index, id)
	return removed, removed != nil
}

// Contains reports whether id names a currently-resting order.
func (ob *OrderBook) Contains(id core.OrderID) bool {
	_, ok := ob.index[id]
	return ok
}

// Depth returns up to levels price/quantity pairs per side, best price
// first. levels <= 0 means unlimited.
func (ob *OrderBook) Depth(levels int) (bids, asks []PriceLevelSummary) {
	bids = summarize(ob.bids, levels)
	asks = summarize(ob.asks, levels)
	return
}

// PriceLevelSummary is a read-only view of one price level's aggregate
// quantity, used for depth queries.
type PriceLevelSummary struct {
	Price    core.Price `json:"price"`
	Quantity int64      `json:"quantity"`
}

func summarize(tree *redblacktree.Tree, levels int) []PriceLevelSummary {
	it := tree.Iterator()
	it.Begin()
	out := make([]PriceLevelSummary, 0)
	for it.Next() {
		if levels > 0 && len(out) >= levels {
			break
		}
		level := it.Value().(*PriceLevel)
		var qty int64
		for _, o := range level.Orders {
			qty += o.Residual
		}
		out = append(out, PriceLevelSummary{Price: level.Price, Quantity: qty})
	}
	return out
}

// ExportLevel is a canonical-order, value-copy view of one price level's
// resting orders, used by the snapshotter. Orders appear in FIFO order.
type ExportLevel struct {
	Price  core.Price
	Orders []core.Order
}

// Export returns every resting order on both ladders, each side in
// canonical best-to-worst price order, orders within a level in FIFO
// order. Used to serialise the book deterministically.
func (ob *OrderBook) Export() (bids, asks []ExportLevel) {
	return exportLadder(ob.bids), exportLadder(ob.asks)
}

func exportLadder(tree *redblacktree.Tree) []ExportLevel {
	it := tree.Iterator()
	it.Begin()
	out := make([]ExportLevel, 0)
	for it.Next() {
		level := it.Value().(*PriceLevel)
		orders := make([]core.Order, len(level.Orders))
		for i, o := range level.Orders {
			orders[i] = *o
		}
		out = append(out, ExportLevel{Price: level.Price, Orders: orders})
	}
	return out
}

// Empty reports whether both ladders hold no resting orders.
func (ob *OrderBook) Empty() bool {
	return ob.bids.Empty() && ob.asks.Empty()
}

// BestBidPrice and BestAskPrice support invariant checks (P1) without
// exposing the mutable level.
func (ob *OrderBook) BestBidPrice() (core.Price, bool) {
	l := ob.BestBid()
	if l == nil {
		return 0, false
	}
	return l.Price, true
}

func (ob *OrderBook) BestAskPrice() (core.Price, bool) {
	l := ob.BestAsk()
	if l == nil {
		return 0, false
	}
	return l.Price, true
}

// Package matching implements price-time priority matching for a single
// market: the matching loop, the maker-price trade rule, and the
// monotonic per-market trade sequence.
package matching

import (
	"errors"
	"sync"

	"github.com/exchangecore/matchkernel/internal/book"
	"github.com/exchangecore/matchkernel/internal/core"
)

// ErrOrderNotFound is returned by Cancel when the named order is not
// resting in the book.
var ErrOrderNotFound = errors.New("matching: order not found")

// Engine owns one OrderBook, the per-market monotonic trade sequence
// counter, and the matching algorithm. Submit, Cancel and Replace each
// take mu for their whole duration, the same discipline the teacher's
// OrderBook.Lock()/defer Unlock() applies around ProcessOrder: per
// spec §5, operations on one engine must be serialised, and this is
// where that serialisation lives.
type Engine struct {
	mu       sync.Mutex
	market   string
	book     *book.OrderBook
	sequence uint64
}

// New creates an Engine for market.
func New(market string) *Engine {
	return &Engine{market: market, book: book.New()}
}

// Market returns the engine's market identifier.
func (e *Engine) Market() string { return e.market }

// Book exposes the underlying order book for read-only introspection
// (depth queries, invariant checks). Callers must not mutate it.
func (e *Engine) Book() *book.OrderBook { return e.book }

// Submit runs the matching loop against order, then, if residual
// quantity remains, rests it in the book. It never fails for valid
// input; submission of an invalid order (zero quantity, etc.) is a
// programming error per spec and is not guarded against here — the
// ingress layer is responsible for rejecting it first.
func (e *Engine) Submit(order *core.Order) []core.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitLocked(order)
}

func (e *Engine) submitLocked(order *core.Order) []core.Trade {
	trades := e.match(order)
	if order.Residual > 0 {
		e.book.Add(order)
	}
	return trades
}

// Cancel removes the named order from the book. Idempotent in effect:
// a second Cancel of the same id returns ErrOrderNotFound.
func (e *Engine) Cancel(id core.OrderID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.book.RemoveByID(id); !ok {
		return ErrOrderNotFound
	}
	return nil
}

// Replace is semantically cancel(order.ID) followed by Submit(order).
// If the old id was not resting, the cancel step is a no-op. Time
// priority is always reset: the replacement goes to the tail of its
// (side, price) queue.
func (e *Engine) Replace(order *core.Order) []core.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, _ = e.book.RemoveByID(order.ID)
	return e.submitLocked(order)
}

// match implements the matching loop from spec §4.2. The incoming order
// is the aggressor; it walks the opposite ladder from best price
// outward, only ever touching the head of a level, until it can no
// longer cross or its residual is exhausted.
func (e *Engine) match(aggressor *core.Order) []core.Trade {
	var trades []core.Trade
	opposite := core.Sell
	if aggressor.Side == core.Sell {
		opposite = core.Buy
	}

	for aggressor.Residual > 0 {
		var level *book.PriceLevel
		if opposite == core.Buy {
			level = e.book.BestBid()
		} else {
			level = e.book.BestAsk()
		}
		if level == nil {
			break
		}
		if aggressor.Side == core.Buy && aggressor.Price < level.Price {
			break
		}
		if aggressor.Side == core.Sell && aggressor.Price > level.Price {
			break
		}

		maker := level.Orders[0]
		qty := aggressor.Residual
		if maker.Residual < qty {
			qty = maker.Residual
		}
		aggressor.Residual -= qty
		maker.Residual -= qty

		e.sequence++
		trade := core.Trade{
			Market:   e.market,
			Price:    level.Price,
			Quantity: qty,
			Sequence: e.sequence,
		}
		if aggressor.Side == core.Buy {
			trade.BuyID, trade.SellID = aggressor.ID, maker.ID
		} else {
			trade.BuyID, trade.SellID = maker.ID, aggressor.ID
		}
		trades = append(trades, trade)

		if maker.Residual == 0 {
			e.book.PopFilled(opposite, level)
		}
	}
	return trades
}

// Sequence returns the engine's current trade sequence counter, for
// persistence and testing.
func (e *Engine) Sequence() uint64 { return e.sequence }

// SetSequence restores the trade sequence counter, used when rehydrating
// an engine from a snapshot. The next trade emitted after this call
// will carry sequence n+1.
func (e *Engine) SetSequence(n uint64) { e.sequence = n }

// RestoreOrder re-inserts an already-resting order directly into the
// book, bypassing the matching loop. Used only by the snapshotter,
// which restores orders in canonical (price, then FIFO) order and
// relies on the persisted state already satisfying the non-crossing
// invariant (I1).
func (e *Engine) RestoreOrder(o *core.Order) {
	e.book.Add(o)
}

// Package events defines the structured events the ingress layer
// derives from core operation results for broadcast to subscribers. The
// core itself never constructs an Event — per spec §6 it only returns
// values; translating those values into events is an ingress
// responsibility. Grounded on original_source/engine/events.rs, which
// defines the same four-variant tagged union in Rust.
package events

import "github.com/exchangecore/matchkernel/internal/core"

// Type tags an Event's variant for JSON consumers.
type Type string

const (
	TypeTradeExecuted  Type = "TRADE_EXECUTED"
	TypeOrderAdded     Type = "ORDER_ADDED"
	TypeOrderCancelled Type = "ORDER_CANCELLED"
	TypeOrderReplaced  Type = "ORDER_REPLACED"
)

// Event is the tagged union broadcast over the WebSocket hub. Only the
// fields relevant to Type are populated.
type Event struct {
	Type       Type         `json:"type"`
	Timestamp  int64        `json:"timestamp"`
	Market     string       `json:"market"`
	Trade      *core.Trade  `json:"trade,omitempty"`
	OrderID    core.OrderID `json:"order_id,omitempty"`
	OldOrderID core.OrderID `json:"old_order_id,omitempty"`
	NewOrderID core.OrderID `json:"new_order_id,omitempty"`
}

// TradeExecuted builds a TRADE_EXECUTED event from a core trade.
func TradeExecuted(trade core.Trade, now int64) Event {
	return Event{Type: TypeTradeExecuted, Timestamp: now, Market: trade.Market, Trade: &trade}
}

// OrderAdded builds an ORDER_ADDED event.
func OrderAdded(market string, id core.OrderID, now int64) Event {
	return Event{Type: TypeOrderAdded, Timestamp: now, Market: market, OrderID: id}
}

// OrderCancelled builds an ORDER_CANCELLED event.
func OrderCancelled(market string, id core.OrderID, now int64) Event {
	return Event{Type: TypeOrderCancelled, Timestamp: now, Market: market, OrderID: id}
}

// OrderReplaced builds an ORDER_REPLACED event. The old and new ids are
// equal unless a future ingress variant allows id-changing replace;
// spec §4.2 keeps the caller-supplied id, so today they always match.
func OrderReplaced(market string, oldID, newID core.OrderID, now int64) Event {
	return Event{Type: TypeOrderReplaced, Timestamp: now, Market: market, OldOrderID: oldID, NewOrderID: newID}
}

// FromTrades converts a batch of trades returned by a core operation
// into broadcastable events, in emission order.
func FromTrades(trades []core.Trade, now int64) []Event {
	out := make([]Event, 0, len(trades))
	for _, t := range trades {
		out = append(out, TradeExecuted(t, now))
	}
	return out
}

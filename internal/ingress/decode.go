package ingress

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/exchangecore/matchkernel/internal/core"
)

// quoteScale is the number of decimal places a market's quote unit
// carries; orders are decoded from human-entered decimal strings (e.g.
// "50000.25") into the core's integer Price by scaling. Fixed for the
// whole process rather than per-market: the core's Non-goals exclude
// fractional quantities, and a single scale keeps that boundary simple.
const quoteScale = 2

// ParsePrice converts a decimal quote-unit string into a core.Price.
// This is the only place a decimal.Decimal exists in this codebase —
// the core itself only ever sees the scaled integer.
func ParsePrice(s string) (core.Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("ingress: invalid price %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("ingress: price must be non-negative, got %q", s)
	}
	scaled := d.Shift(quoteScale).Round(0)
	return core.Price(scaled.IntPart()), nil
}

// FormatPrice renders a core.Price back to its human decimal string,
// the inverse of ParsePrice.
func FormatPrice(p core.Price) string {
	return decimal.New(int64(p), -quoteScale).StringFixed(quoteScale)
}

// OrderRequest is the JSON body accepted by the submit and replace
// endpoints. Price arrives as a decimal string so precise values survive
// JSON's float64 round-trip untouched; Quantity is a plain JSON integer.
type OrderRequest struct {
	OrderID  string `json:"order_id"`
	Side     string `json:"side"`
	Price    string `json:"price"`
	Quantity int64  `json:"quantity"`
}

// ToOrder converts a decoded OrderRequest into a core.Order, failing if
// any field is malformed. It does not run risk.Validate; callers are
// expected to do that separately, matching spec §6's split between
// parsing and pre-check validation.
func (req OrderRequest) ToOrder(market, wallet string, now int64) (*core.Order, error) {
	if req.OrderID == "" {
		return nil, fmt.Errorf("ingress: order_id is required")
	}
	var side core.Side
	switch req.Side {
	case "BUY":
		side = core.Buy
	case "SELL":
		side = core.Sell
	default:
		return nil, fmt.Errorf("ingress: unknown side %q", req.Side)
	}
	price, err := ParsePrice(req.Price)
	if err != nil {
		return nil, err
	}
	return &core.Order{
		ID:        core.OrderID(req.OrderID),
		Market:    market,
		Wallet:    wallet,
		Side:      side,
		Price:     price,
		Residual:  req.Quantity,
		Timestamp: now,
	}, nil
}

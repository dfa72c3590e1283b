// Package risk performs the ingress-side pre-checks spec §6 assigns to
// the RPC front-end: the core treats a failing order as a programming
// error, so nothing with a quantity or price problem may reach the
// registry. Grounded on original_source/engine/risk.rs, extended with
// the order-id and market checks spec.md's data model implies.
package risk

import (
	"errors"

	"github.com/exchangecore/matchkernel/internal/core"
)

var (
	ErrZeroQuantity = errors.New("risk: quantity must be at least 1")
	ErrNegativePrice = errors.New("risk: price must be non-negative")
	ErrEmptyMarket   = errors.New("risk: market must not be empty")
	ErrEmptyOrderID  = errors.New("risk: order id must not be empty")
)

// Validate rejects an order before it reaches the registry. It mirrors
// core.Order.Validate but is kept as a separate package so the ingress
// layer's rejection reasons can evolve (per-wallet limits, depth
// ceilings) independently of the core's own invariants.
func Validate(o *core.Order) error {
	if o.ID == "" {
		return ErrEmptyOrderID
	}
	if o.Market == "" {
		return ErrEmptyMarket
	}
	if o.Price < 0 {
		return ErrNegativePrice
	}
	if o.Residual <= 0 {
		return ErrZeroQuantity
	}
	return nil
}

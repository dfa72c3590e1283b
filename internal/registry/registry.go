// Package registry routes per-market operations to matching engines and
// lazily instantiates them on first reference. It is the process-wide
// container described in spec §4.3; it never deletes an engine once
// created.
package registry

import (
	"errors"
	"sync"

	"github.com/exchangecore/matchkernel/internal/core"
	"github.com/exchangecore/matchkernel/internal/matching"
)

// ErrMarketNotFound is returned by Cancel and Replace when no engine
// exists yet for the named market. Submit never returns this error: it
// silently creates the market.
var ErrMarketNotFound = errors.New("registry: market not found")

// ErrOrderNotFound is re-exported from matching so callers of this
// package don't need to import it directly.
var ErrOrderNotFound = matching.ErrOrderNotFound

// Registry maps market identifiers to matching engines. Market ids are
// opaque strings compared byte-exact; no normalisation is performed.
// Safe for concurrent use, including concurrent Submit/Cancel/Replace
// against the same market: engine creation and map lookups are
// protected by mu, and each matching.Engine serialises its own
// operations internally (spec §5's per-engine-mutex discipline).
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*matching.Engine
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{engines: make(map[string]*matching.Engine)}
}

// getOrCreate returns the engine for market, creating it under a write
// lock if this is the first reference. Mirrors the double-checked
// locking shape used to guard per-symbol order books in the teacher
// engine this package was adapted from.
func (r *Registry) getOrCreate(market string) *matching.Engine {
	r.mu.RLock()
	eng, ok := r.engines[market]
	r.mu.RUnlock()
	if ok {
		return eng
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	eng, ok = r.engines[market]
	if !ok {
		eng = matching.New(market)
		r.engines[market] = eng
	}
	return eng
}

func (r *Registry) get(market string) (*matching.Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	eng, ok := r.engines[market]
	return eng, ok
}

// Submit locates the engine for order.Market, creating a fresh engine
// if none exists, then delegates. Never fails for an absent market.
func (r *Registry) Submit(order *core.Order) []core.Trade {
	eng := r.getOrCreate(order.Market)
	return eng.Submit(order)
}

// Cancel removes order id from market's book. Returns ErrMarketNotFound
// if no engine exists for market (the registry does not auto-create
// engines on cancel), or ErrOrderNotFound if the id is unknown.
func (r *Registry) Cancel(market string, id core.OrderID) error {
	eng, ok := r.get(market)
	if !ok {
		return ErrMarketNotFound
	}
	return eng.Cancel(id)
}

// Replace delegates to the engine for order.Market, or returns
// ErrMarketNotFound if no engine exists for that market yet.
func (r *Registry) Replace(order *core.Order) ([]core.Trade, error) {
	eng, ok := r.get(order.Market)
	if !ok {
		return nil, ErrMarketNotFound
	}
	return eng.Replace(order), nil
}

// GetMarket returns a read-only view of the engine for market, for
// introspection (depth queries, snapshotting).
func (r *Registry) GetMarket(market string) (*matching.Engine, bool) {
	return r.get(market)
}

// Markets returns every market identifier currently known to the
// registry. Used by the snapshotter to enumerate what to persist.
func (r *Registry) Markets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.engines))
	for m := range r.engines {
		out = append(out, m)
	}
	return out
}

// Restore installs eng as the engine for market, overwriting any
// existing engine. Used only during snapshot restoration, before the
// registry is exposed to concurrent traffic.
func (r *Registry) Restore(market string, eng *matching.Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[market] = eng
}

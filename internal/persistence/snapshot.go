// Package persistence serialises a registry to durable storage and
// restores it at startup, and maintains a durable submission log that
// supports reconstructing state by re-submitting orders in original
// order. Grounded on original_source/persistence/snapshot.rs and
// replay.rs, which do the same job with serde_json and a flat file;
// this package keeps the JSON-snapshot half and backs the replay half
// with Postgres instead of a flat file, per SPEC_FULL.md's domain
// stack.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/exchangecore/matchkernel/internal/book"
	"github.com/exchangecore/matchkernel/internal/matching"
	"github.com/exchangecore/matchkernel/internal/registry"
)

// Snapshot is the full, deterministically-serialisable state of a
// registry: every market's sequence counter and both ladders in
// canonical order. Re-loading a Snapshot reproduces identical
// residuals, queue order, and sequence counters (spec §6).
type Snapshot struct {
	Markets []MarketSnapshot `json:"markets"`
}

// MarketSnapshot is one market's persisted state.
type MarketSnapshot struct {
	Market   string             `json:"market"`
	Sequence uint64             `json:"sequence"`
	Bids     []book.ExportLevel `json:"bids"`
	Asks     []book.ExportLevel `json:"asks"`
}

// Capture builds a Snapshot from the current state of r. The auxiliary
// id index is not serialised; it is cheap to reconstruct from the
// queues on restore, per spec's design notes.
func Capture(r *registry.Registry) Snapshot {
	snap := Snapshot{}
	for _, market := range r.Markets() {
		eng, ok := r.GetMarket(market)
		if !ok {
			continue
		}
		bids, asks := eng.Book().Export()
		snap.Markets = append(snap.Markets, MarketSnapshot{
			Market:   market,
			Sequence: eng.Sequence(),
			Bids:     bids,
			Asks:     asks,
		})
	}
	return snap
}

// Restore builds a new registry from a Snapshot, with one engine per
// market in the snapshot holding its restored ladders and sequence
// counter.
func Restore(snap Snapshot) *registry.Registry {
	r := registry.New()
	for _, ms := range snap.Markets {
		eng := matching.New(ms.Market)
		for _, level := range ms.Bids {
			restoreLevel(eng, level)
		}
		for _, level := range ms.Asks {
			restoreLevel(eng, level)
		}
		eng.SetSequence(ms.Sequence)
		r.Restore(ms.Market, eng)
	}
	return r
}

func restoreLevel(eng *matching.Engine, level book.ExportLevel) {
	for i := range level.Orders {
		o := level.Orders[i]
		eng.RestoreOrder(&o)
	}
}

// SaveToFile serialises r as JSON and writes it to path, overwriting
// any existing file. Mirrors original_source/persistence/snapshot.rs's
// save(), swapping serde_json for encoding/json.
func SaveToFile(r *registry.Registry, path string) error {
	snap := Capture(r)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("persistence: marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("persistence: write snapshot: %w", err)
	}
	log.Info().Str("path", path).Int("markets", len(snap.Markets)).Msg("snapshot saved")
	return nil
}

// LoadFromFile reads and deserialises a Snapshot previously written by
// SaveToFile, reconstructing a registry from it.
func LoadFromFile(path string) (*registry.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persistence: read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("persistence: unmarshal snapshot: %w", err)
	}
	log.Info().Str("path", path).Int("markets", len(snap.Markets)).Msg("snapshot loaded")
	return Restore(snap), nil
}

// nextSequenceFor returns the sequence a freshly-restored engine will
// assign to its next trade, used by tests to verify spec §6's
// "after restore, the next trade emitted MUST have sequence = (persisted
// counter) + 1" requirement.
func nextSequenceFor(eng *matching.Engine) uint64 {
	return eng.Sequence() + 1
}

package asset

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cryptex/pkg/app/core"
)

// Registry holds the canonical set of listed assets in a thread-safe manner.
// Assets are listed once at startup and never removed.
type Registry struct {
	mu     sync.RWMutex
	assets map[string]*Asset // symbol -> asset
	order  []string          // listing order, used for every snapshot
}

// NewRegistry lists every catalog entry with CurrentPrice = ReferencePrice
func NewRegistry(catalog []Listing) (*Registry, error) {
	r := &Registry{
		assets: make(map[string]*Asset, len(catalog)),
	}
	for _, l := range catalog {
		if l.Symbol == "" {
			return nil, fmt.Errorf("cannot list asset with empty symbol")
		}
		if !l.ReferencePrice.IsPositive() {
			return nil, fmt.Errorf("%w: reference price for %s must be positive", core.ErrInvalidAmount, l.Symbol)
		}
		if _, exists := r.assets[l.Symbol]; exists {
			return nil, fmt.Errorf("asset %s already listed", l.Symbol)
		}
		r.assets[l.Symbol] = &Asset{
			Symbol:         l.Symbol,
			Name:           l.Name,
			ReferencePrice: l.ReferencePrice,
			CurrentPrice:   l.ReferencePrice,
		}
		r.order = append(r.order, l.Symbol)
	}
	return r, nil
}

// ListAssets returns a snapshot copy in listing order
func (r *Registry) ListAssets() []Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []Asset {
	out := make([]Asset, 0, len(r.order))
	for _, sym := range r.order {
		out = append(out, *r.assets[sym])
	}
	return out
}

// Get returns a copy of the asset
func (r *Registry) Get(symbol string) (Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.assets[symbol]
	if !exists {
		return Asset{}, fmt.Errorf("%w: %s", core.ErrUnknownAsset, symbol)
	}
	return *a, nil
}

// CurrentPrice returns the asset's current price
func (r *Registry) CurrentPrice(symbol string) (decimal.Decimal, error) {
	a, err := r.Get(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return a.CurrentPrice, nil
}

// Exists checks if an asset is listed
func (r *Registry) Exists(symbol string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.assets[symbol]
	return exists
}

// Symbols returns listed symbols in listing order
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Reprice recomputes every current price under one write lock and returns the
// updated snapshot. The callback receives a copy and must not retain it.
// Non-positive results are clamped to the previous price.
func (r *Registry) Reprice(next func(a Asset) decimal.Decimal) []Asset {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sym := range r.order {
		a := r.assets[sym]
		p := next(*a)
		if p.IsPositive() {
			a.CurrentPrice = p
		}
	}
	return r.snapshotLocked()
}

// Count returns the number of listed assets
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

package pool

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cryptex/pkg/app/core"
)

// Ledger is the part of a wallet a pool purchase touches
type Ledger interface {
	DebitFiat(amount decimal.Decimal) error
	CreditAsset(symbol string, qty decimal.Decimal) error
	Holds(symbol string) bool
}

// Pool is the exchange-owned supply users buy against directly.
// There is no per-user ownership; quantities only ever decrease.
type Pool struct {
	mu     sync.Mutex
	supply map[string]decimal.Decimal // symbol -> available quantity
}

// Purchase describes a completed pool purchase
type Purchase struct {
	Symbol   string
	Quantity decimal.Decimal
	Price    decimal.Decimal // unit price charged
	Cost     decimal.Decimal // Quantity × Price
}

// New creates a pool with the given starting supply per symbol
func New(supply map[string]decimal.Decimal) *Pool {
	s := make(map[string]decimal.Decimal, len(supply))
	for sym, q := range supply {
		s[sym] = q
	}
	return &Pool{supply: s}
}

// Available returns the pool quantity for symbol
func (p *Pool) Available(symbol string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	q, ok := p.supply[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", core.ErrUnknownAsset, symbol)
	}
	return q, nil
}

// Supply returns a copy of every pool quantity
func (p *Pool) Supply() map[string]decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]decimal.Decimal, len(p.supply))
	for s, q := range p.supply {
		out[s] = q
	}
	return out
}

// Buy sells qty of symbol to buyer at unitPrice.
//
// Order of steps:
//  1. pool must hold qty (ErrInsufficientPoolSupply)
//  2. buyer is debited qty × unitPrice (ErrInsufficientFunds)
//  3. buyer is credited qty, pool is decremented
//
// A failure at any step leaves both the pool and the buyer unchanged.
func (p *Pool) Buy(buyer Ledger, symbol string, qty, unitPrice decimal.Decimal) (Purchase, error) {
	if !qty.IsPositive() {
		return Purchase{}, fmt.Errorf("%w: quantity must be positive, got %s", core.ErrInvalidAmount, qty)
	}
	if !unitPrice.IsPositive() {
		return Purchase{}, fmt.Errorf("%w: price must be positive, got %s", core.ErrInvalidAmount, unitPrice)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	available, ok := p.supply[symbol]
	if !ok || !buyer.Holds(symbol) {
		return Purchase{}, fmt.Errorf("%w: %s", core.ErrUnknownAsset, symbol)
	}
	if available.LessThan(qty) {
		return Purchase{}, fmt.Errorf("%w: pool has %s %s, requested %s", core.ErrInsufficientPoolSupply, available, symbol, qty)
	}

	cost := qty.Mul(unitPrice)
	if err := buyer.DebitFiat(cost); err != nil {
		return Purchase{}, err
	}
	// Holds() was checked above, so the credit cannot fail
	if err := buyer.CreditAsset(symbol, qty); err != nil {
		return Purchase{}, err
	}
	p.supply[symbol] = available.Sub(qty)

	return Purchase{Symbol: symbol, Quantity: qty, Price: unitPrice, Cost: cost}, nil
}

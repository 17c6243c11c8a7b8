package wallet

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cryptex/pkg/app/core"
)

// Wallet is one user's ledger: a fiat balance plus a held quantity per listed asset.
// Every debit is check-then-commit under the wallet's own mutex, so no sequence of
// calls can drive a balance below zero.
type Wallet struct {
	mu       sync.Mutex
	fiat     decimal.Decimal
	holdings map[string]decimal.Decimal // symbol -> quantity
}

// Balances is a point-in-time copy of a wallet
type Balances struct {
	Fiat     decimal.Decimal            `json:"fiat"`
	Holdings map[string]decimal.Decimal `json:"holdings"`
}

// New creates an empty wallet holding zero of every given symbol.
// Symbols not passed here can never be credited or debited.
func New(symbols []string) *Wallet {
	h := make(map[string]decimal.Decimal, len(symbols))
	for _, s := range symbols {
		h[s] = decimal.Zero
	}
	return &Wallet{holdings: h}
}

// Deposit credits fiat unconditionally. Non-positive amounts are rejected.
func (w *Wallet) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: deposit must be positive, got %s", core.ErrInvalidAmount, amount)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.fiat = w.fiat.Add(amount)
	return nil
}

// DebitFiat subtracts amount if the balance covers it. On ErrInsufficientFunds
// the wallet is left untouched.
func (w *Wallet) DebitFiat(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: debit must be positive, got %s", core.ErrInvalidAmount, amount)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fiat.LessThan(amount) {
		return fmt.Errorf("%w: have %s, need %s", core.ErrInsufficientFunds, w.fiat, amount)
	}
	w.fiat = w.fiat.Sub(amount)
	return nil
}

// DebitAsset subtracts qty of symbol if the holding covers it
func (w *Wallet) DebitAsset(symbol string, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", core.ErrInvalidAmount, qty)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	held, ok := w.holdings[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownAsset, symbol)
	}
	if held.LessThan(qty) {
		return fmt.Errorf("%w: have %s %s, need %s", core.ErrInsufficientAssetHoldings, held, symbol, qty)
	}
	w.holdings[symbol] = held.Sub(qty)
	return nil
}

// CreditAsset adds qty of symbol. A non-positive qty is ignored.
func (w *Wallet) CreditAsset(symbol string, qty decimal.Decimal) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	held, ok := w.holdings[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownAsset, symbol)
	}
	if !qty.IsPositive() {
		return nil
	}
	w.holdings[symbol] = held.Add(qty)
	return nil
}

// Fiat returns the current fiat balance
func (w *Wallet) Fiat() decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fiat
}

// Holding returns the held quantity of symbol
func (w *Wallet) Holding(symbol string) (decimal.Decimal, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	held, ok := w.holdings[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", core.ErrUnknownAsset, symbol)
	}
	return held, nil
}

// Holds reports whether the wallet was initialised with symbol
func (w *Wallet) Holds(symbol string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.holdings[symbol]
	return ok
}

// Snapshot returns a copy of every balance
func (w *Wallet) Snapshot() Balances {
	w.mu.Lock()
	defer w.mu.Unlock()

	h := make(map[string]decimal.Decimal, len(w.holdings))
	for s, q := range w.holdings {
		h[s] = q
	}
	return Balances{Fiat: w.fiat, Holdings: h}
}

// Validate checks wallet invariants
func (w *Wallet) Validate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fiat.IsNegative() {
		return fmt.Errorf("negative fiat balance: %s", w.fiat)
	}
	for s, q := range w.holdings {
		if q.IsNegative() {
			return fmt.Errorf("negative %s holding: %s", s, q)
		}
	}
	return nil
}

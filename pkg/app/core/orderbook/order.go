package orderbook

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cryptex/pkg/app/core"
)

// Order is a resting, fully collateralised limit order. It never changes after
// admission; it only leaves the book by being matched.
type Order struct {
	ID        string          // "BUY@BTC@2026-10-17T09:00:00.000000001Z#42"
	Seq       uint64          // arrival sequence, strictly increasing per book
	Side      core.Side       // Buy or Sell
	UserID    string          // owning user
	Symbol    string          // traded asset
	Quantity  decimal.Decimal // exact quantity; partial fills do not exist
	Price     decimal.Decimal // limit price per unit
	CreatedAt time.Time
}

// Collateral returns what the owner had reserved before admission:
// fiat (Quantity × Price) for a buy, asset quantity for a sell.
func (o Order) Collateral() decimal.Decimal {
	if o.Side == core.Buy {
		return o.Quantity.Mul(o.Price)
	}
	return o.Quantity
}

func (o Order) String() string {
	return fmt.Sprintf("Order %s %s%s @ $%s", o.ID, o.Quantity, o.Symbol, o.Price)
}

func orderID(side core.Side, symbol string, at time.Time, seq uint64) string {
	return fmt.Sprintf("%s@%s@%s#%d", side, symbol, at.UTC().Format(time.RFC3339Nano), seq)
}

// Match is one buy/sell pair selected by a matching pass
type Match struct {
	Buy  Order
	Sell Order
}

// ExecutionPrice is the seller's ask
func (m Match) ExecutionPrice() decimal.Decimal {
	return m.Sell.Price
}

// Proceeds is the fiat credited to the seller: ask × quantity
func (m Match) Proceeds() decimal.Decimal {
	return m.Sell.Price.Mul(m.Sell.Quantity)
}

// Refund is the part of the buyer's reservation not spent: (bid - ask) × quantity
func (m Match) Refund() decimal.Decimal {
	if !m.Sell.Price.LessThan(m.Buy.Price) {
		return decimal.Zero
	}
	return m.Buy.Price.Sub(m.Sell.Price).Mul(m.Buy.Quantity)
}

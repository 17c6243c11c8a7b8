package transaction

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Action is the kind of settled economic event
type Action string

const (
	ActionExchange Action = "EXCHANGE" // direct purchase from the exchange pool
	ActionBuy      Action = "BUY"      // buy order filled
	ActionSell     Action = "SELL"     // sell order filled
)

// Transaction is an immutable record attached to one user's history.
// For pool purchases Price is the total cost; for fills it is the executed unit price (the seller's ask).
type Transaction struct {
	ID       string          `json:"id"`
	UserID   string          `json:"userId"`
	Action   Action          `json:"action"`
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Time     time.Time       `json:"time"`

	// Set for matched trades only
	OrderID        string `json:"orderId,omitempty"`
	CounterpartyID string `json:"counterpartyId,omitempty"`
}

// New creates a transaction with a fresh id
func New(userID string, action Action, symbol string, qty, price decimal.Decimal, at time.Time) Transaction {
	return Transaction{
		ID:       uuid.NewString(),
		UserID:   userID,
		Action:   action,
		Symbol:   symbol,
		Quantity: qty,
		Price:    price,
		Time:     at,
	}
}

func (t Transaction) String() string {
	return fmt.Sprintf("%s\t %s\t %s\t %s", t.Action, t.Symbol, t.Quantity.StringFixed(2), t.Price.StringFixed(2))
}

// Fill is the global record of one settled buy/sell pair
type Fill struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"` // seller's ask
	BuyOrderID  string          `json:"buyOrderId"`
	SellOrderID string          `json:"sellOrderId"`
	BuyerID     string          `json:"buyerId"`
	SellerID    string          `json:"sellerId"`
	Refund      decimal.Decimal `json:"refund"` // returned to the buyer when ask < bid
	Time        time.Time       `json:"time"`
}

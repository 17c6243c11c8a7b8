package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cryptex/pkg/app/core/asset"
	"github.com/uhyunpark/cryptex/pkg/app/core/orderbook"
	"github.com/uhyunpark/cryptex/pkg/app/core/transaction"
)

// API request/response types for REST endpoints and WebSocket messages.
// Decimals travel as JSON strings ("3000.5") and are accepted as strings or numbers.

// ==============================
// REST Request Types
// ==============================

type OpenAccountRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AmountRequest is the body of deposits and withdrawals
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type PurchaseRequest struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
}

// SubmitOrderRequest places a resting limit order
type SubmitOrderRequest struct {
	UserID   string          `json:"userId"`
	Side     string          `json:"side"` // "buy" or "sell"
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// ==============================
// REST Response Types
// ==============================

type AssetInfo struct {
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	ReferencePrice decimal.Decimal `json:"referencePrice"`
}

func toAssetInfo(assets []asset.Asset) []AssetInfo {
	out := make([]AssetInfo, len(assets))
	for i, a := range assets {
		out[i] = AssetInfo{
			Symbol:         a.Symbol,
			Name:           a.Name,
			Price:          a.CurrentPrice,
			ReferencePrice: a.ReferencePrice,
		}
	}
	return out
}

// PoolEntry is the exchange pool's remaining supply of one asset
type PoolEntry struct {
	Symbol    string          `json:"symbol"`
	Available decimal.Decimal `json:"available"`
}

type OrderInfo struct {
	ID        string          `json:"id"`
	Side      string          `json:"side"`
	UserID    string          `json:"userId"`
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
}

func toOrderInfo(o orderbook.Order) OrderInfo {
	return OrderInfo{
		ID:        o.ID,
		Side:      o.Side.String(),
		UserID:    o.UserID,
		Symbol:    o.Symbol,
		Quantity:  o.Quantity,
		Price:     o.Price,
		CreatedAt: o.CreatedAt,
	}
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==============================
// WebSocket Message Types
// ==============================

const (
	ChannelPrices = "prices"
	ChannelFills  = "fills"
)

// WSSubscribeRequest represents a subscription request from client
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // "prices", "fills"
}

// PriceUpdate is pushed on the prices channel after every fluctuation tick
type PriceUpdate struct {
	Type      string      `json:"type"` // "prices"
	Assets    []AssetInfo `json:"assets"`
	Timestamp int64       `json:"timestamp"` // Unix milliseconds
}

// FillUpdate is pushed on the fills channel for every settled pair
type FillUpdate struct {
	Type string           `json:"type"` // "fill"
	Fill transaction.Fill `json:"fill"`
}

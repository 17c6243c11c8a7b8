package exchange

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cryptex/pkg/app/core"
	"github.com/uhyunpark/cryptex/pkg/app/core/account"
	"github.com/uhyunpark/cryptex/pkg/app/core/orderbook"
	"github.com/uhyunpark/cryptex/pkg/app/core/transaction"
)

// BuyFromPool buys qty of symbol from the exchange pool at the current price.
// The price is read under the same lock the fluctuation driver takes, so the
// cost cannot change mid-purchase.
func (e *Exchange) BuyFromPool(userID, symbol string, qty decimal.Decimal) (transaction.Transaction, error) {
	u, err := e.accounts.Get(userID)
	if err != nil {
		return transaction.Transaction{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	price, err := e.assets.CurrentPrice(symbol)
	if err != nil {
		return transaction.Transaction{}, err
	}
	p, err := e.pool.Buy(u.Wallet, symbol, qty, price)
	if err != nil {
		e.log.Debugw("pool_purchase_rejected", "user_id", userID, "symbol", symbol, "qty", qty.String(), "err", err)
		return transaction.Transaction{}, err
	}

	tx := transaction.New(u.ID, transaction.ActionExchange, symbol, p.Quantity, p.Cost, e.now())
	if err := e.history.Append(u.ID, tx); err != nil {
		e.log.Errorw("history_append_failed", "user_id", u.ID, "tx_id", tx.ID, "err", err)
	}

	e.log.Infow("pool_purchase",
		"user_id", u.ID,
		"symbol", symbol,
		"qty", p.Quantity.String(),
		"price", p.Price.String(),
		"cost", p.Cost.String(),
	)
	return tx, nil
}

// PlaceOrder reserves the order's collateral and admits it to the book.
// A buy reserves quantity × price in fiat; a sell reserves the quantity of the asset.
// The reservation and the insertion happen under one lock, so a matching pass
// never sees an order whose collateral is not yet taken.
func (e *Exchange) PlaceOrder(side core.Side, userID, symbol string, qty, price decimal.Decimal) (orderbook.Order, error) {
	if side != core.Buy && side != core.Sell {
		return orderbook.Order{}, fmt.Errorf("%w: %d", core.ErrInvalidSide, side)
	}
	if !qty.IsPositive() {
		return orderbook.Order{}, fmt.Errorf("%w: quantity must be positive, got %s", core.ErrInvalidAmount, qty)
	}
	if !price.IsPositive() {
		return orderbook.Order{}, fmt.Errorf("%w: price must be positive, got %s", core.ErrInvalidAmount, price)
	}
	if !e.assets.Exists(symbol) {
		return orderbook.Order{}, fmt.Errorf("%w: %s", core.ErrUnknownAsset, symbol)
	}
	u, err := e.accounts.Get(userID)
	if err != nil {
		return orderbook.Order{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := reserve(u, side, symbol, qty, price); err != nil {
		return orderbook.Order{}, err
	}
	o, err := e.book.Add(side, u.ID, symbol, qty, price, e.now())
	if err != nil {
		release(u, side, symbol, qty, price)
		return orderbook.Order{}, err
	}

	e.log.Infow("order_placed",
		"order_id", o.ID,
		"side", side.String(),
		"user_id", u.ID,
		"symbol", symbol,
		"qty", qty.String(),
		"price", price.String(),
	)
	return o, nil
}

func reserve(u *account.User, side core.Side, symbol string, qty, price decimal.Decimal) error {
	if side == core.Buy {
		return u.Wallet.DebitFiat(qty.Mul(price))
	}
	return u.Wallet.DebitAsset(symbol, qty)
}

// release undoes reserve when admission fails after the debit
func release(u *account.User, side core.Side, symbol string, qty, price decimal.Decimal) {
	if side == core.Buy {
		_ = u.Wallet.Deposit(qty.Mul(price))
		return
	}
	_ = u.Wallet.CreditAsset(symbol, qty)
}

// MatchOrders runs one matching pass and settles every selected pair.
// Fill subscribers are notified after the lock is released.
func (e *Exchange) MatchOrders() []FillEvent {
	e.mu.Lock()
	matches := e.book.Match()
	events := make([]FillEvent, 0, len(matches))
	for _, m := range matches {
		ev, err := e.settle(m)
		if err != nil {
			e.log.Warnw("settlement_skipped", "buy_order", m.Buy.ID, "sell_order", m.Sell.ID, "err", err)
			continue
		}
		events = append(events, ev)
	}
	e.mu.Unlock()

	if len(events) > 0 {
		e.log.Infow("orders_matched", "fills", len(events), "resting", e.book.Len())
	}
	for _, ev := range events {
		e.fillSubs.Notify(ev)
	}
	return events
}

// settle transfers funds and assets for one pair. Every precondition is
// checked before the first mutation, so a failed settlement changes nothing.
// Caller holds e.mu.
func (e *Exchange) settle(m orderbook.Match) (FillEvent, error) {
	buyer, err := e.accounts.Get(m.Buy.UserID)
	if err != nil {
		return FillEvent{}, err
	}
	seller, err := e.accounts.Get(m.Sell.UserID)
	if err != nil {
		return FillEvent{}, err
	}
	if !buyer.Wallet.Holds(m.Buy.Symbol) {
		return FillEvent{}, fmt.Errorf("%w: buyer wallet has no %s", core.ErrUnknownAsset, m.Buy.Symbol)
	}

	proceeds, refund := m.Proceeds(), m.Refund()
	qty, symbol, price := m.Buy.Quantity, m.Buy.Symbol, m.ExecutionPrice()

	// Both amounts are positive here, so these cannot fail
	_ = seller.Wallet.Deposit(proceeds)
	_ = buyer.Wallet.CreditAsset(symbol, qty)
	if refund.IsPositive() {
		_ = buyer.Wallet.Deposit(refund)
	}
	e.book.Remove(m.Buy.ID, m.Sell.ID)

	at := e.now()
	buyTx := transaction.New(buyer.ID, transaction.ActionBuy, symbol, qty, price, at)
	buyTx.OrderID, buyTx.CounterpartyID = m.Buy.ID, seller.ID
	sellTx := transaction.New(seller.ID, transaction.ActionSell, symbol, qty, price, at)
	sellTx.OrderID, sellTx.CounterpartyID = m.Sell.ID, buyer.ID

	fill := transaction.Fill{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Quantity:    qty,
		Price:       price,
		BuyOrderID:  m.Buy.ID,
		SellOrderID: m.Sell.ID,
		BuyerID:     buyer.ID,
		SellerID:    seller.ID,
		Refund:      refund,
		Time:        at,
	}
	if err := e.history.AppendFill(buyTx, sellTx, fill); err != nil {
		e.log.Errorw("history_append_failed", "fill_id", fill.ID, "err", err)
	}

	e.log.Debugw("order_filled",
		"fill_id", fill.ID,
		"symbol", symbol,
		"qty", qty.String(),
		"price", price.String(),
		"refund", refund.String(),
	)
	return FillEvent{Buy: m.Buy, Sell: m.Sell, Fill: fill}, nil
}

package orderbook

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cryptex/pkg/app/core"
)

// OrderBook holds open buy and sell orders across all assets.
// Insertion and matching passes are serialised by the book's mutex, so a pass
// never observes a half-inserted order.
type OrderBook struct {
	mu sync.RWMutex

	orders []*Order          // arrival order
	index  map[string]*Order // id -> order
	seq    uint64
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		index: make(map[string]*Order),
	}
}

// Add admits an order. The caller must already have reserved the order's
// collateral from the owner's wallet.
func (ob *OrderBook) Add(side core.Side, userID, symbol string, qty, price decimal.Decimal, at time.Time) (Order, error) {
	if side != core.Buy && side != core.Sell {
		return Order{}, fmt.Errorf("%w: %d", core.ErrInvalidSide, side)
	}
	if !qty.IsPositive() {
		return Order{}, fmt.Errorf("%w: quantity must be positive, got %s", core.ErrInvalidAmount, qty)
	}
	if !price.IsPositive() {
		return Order{}, fmt.Errorf("%w: price must be positive, got %s", core.ErrInvalidAmount, price)
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.seq++
	o := &Order{
		ID:        orderID(side, symbol, at, ob.seq),
		Seq:       ob.seq,
		Side:      side,
		UserID:    userID,
		Symbol:    symbol,
		Quantity:  qty,
		Price:     price,
		CreatedAt: at,
	}
	ob.orders = append(ob.orders, o)
	ob.index[o.ID] = o
	return *o, nil
}

// Get returns an open order by id
func (ob *OrderBook) Get(id string) (Order, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	o, ok := ob.index[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Remove drops the given orders and returns how many were present
func (ob *OrderBook) Remove(ids ...string) int {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := ob.index[id]; ok {
			drop[id] = struct{}{}
			delete(ob.index, id)
		}
	}
	if len(drop) == 0 {
		return 0
	}

	kept := ob.orders[:0]
	for _, o := range ob.orders {
		if _, gone := drop[o.ID]; !gone {
			kept = append(kept, o)
		}
	}
	// clear the tail so removed orders can be collected
	for i := len(kept); i < len(ob.orders); i++ {
		ob.orders[i] = nil
	}
	ob.orders = kept
	return len(drop)
}

// Orders returns every open order in arrival order
func (ob *OrderBook) Orders() []Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	out := make([]Order, 0, len(ob.orders))
	for _, o := range ob.orders {
		out = append(out, *o)
	}
	return out
}

// OrdersFor returns the open orders owned by userID
func (ob *OrderBook) OrdersFor(userID string) []Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	var out []Order
	for _, o := range ob.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out
}

// Len returns the number of open orders
func (ob *OrderBook) Len() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return len(ob.orders)
}

// Match runs one matching pass over the current book and returns the selected pairs.
// It does not remove anything; the caller settles each pair and then removes it.
//
// Both sides are ordered earliest-created first (arrival sequence breaks ties).
// Each buy takes the first sell that is not yet taken in this pass and has:
//   - a different owner
//   - the same asset
//   - exactly the same quantity
//   - ask <= bid
//
// A buy with no eligible sell simply stays for the next pass.
func (ob *OrderBook) Match() []Match {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	var buys, sells []*Order
	for _, o := range ob.orders {
		if o.Side == core.Buy {
			buys = append(buys, o)
		} else {
			sells = append(sells, o)
		}
	}
	sortByArrival(buys)
	sortByArrival(sells)

	var matches []Match
	taken := make(map[string]struct{})
	for _, buy := range buys {
		for _, sell := range sells {
			if _, used := taken[sell.ID]; used {
				continue
			}
			if !eligible(buy, sell) {
				continue
			}
			taken[sell.ID] = struct{}{}
			matches = append(matches, Match{Buy: *buy, Sell: *sell})
			break
		}
	}
	return matches
}

func eligible(buy, sell *Order) bool {
	if buy.UserID == sell.UserID {
		return false
	}
	if buy.Symbol != sell.Symbol {
		return false
	}
	if !buy.Quantity.Equal(sell.Quantity) {
		return false
	}
	return sell.Price.LessThanOrEqual(buy.Price)
}

func sortByArrival(orders []*Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].Seq < orders[j].Seq
	})
}

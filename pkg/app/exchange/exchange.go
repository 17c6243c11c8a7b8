// Package exchange is the service facade over the asset registry, the pool,
// the order book and the users' wallets. It owns the two periodic drivers
// (matching and price fluctuation) and the notification registries.
package exchange

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/cryptex/params"
	"github.com/uhyunpark/cryptex/pkg/app/core/account"
	"github.com/uhyunpark/cryptex/pkg/app/core/asset"
	"github.com/uhyunpark/cryptex/pkg/app/core/notify"
	"github.com/uhyunpark/cryptex/pkg/app/core/orderbook"
	"github.com/uhyunpark/cryptex/pkg/app/core/pool"
	"github.com/uhyunpark/cryptex/pkg/app/core/transaction"
	"github.com/uhyunpark/cryptex/pkg/app/core/wallet"
	"github.com/uhyunpark/cryptex/pkg/storage"
	"github.com/uhyunpark/cryptex/pkg/util"
)

// FillEvent is delivered to fill subscribers once a matched pair is settled
type FillEvent struct {
	Buy  orderbook.Order
	Sell orderbook.Order
	Fill transaction.Fill
}

// Exchange serialises every operation that spans more than one component
// (pool purchase, order admission, a matching pass, a fluctuation tick)
// behind mu. Wallets carry their own lock; the order is always mu then wallet.
type Exchange struct {
	mu sync.Mutex

	cfg      params.Exchange
	assets   *asset.Registry
	pool     *pool.Pool
	book     *orderbook.OrderBook
	accounts *account.Manager
	history  *storage.HistoryStore

	priceSubs *notify.Registry[[]asset.Asset]
	fillSubs  *notify.Registry[FillEvent]

	clock util.Clock
	rng   *rand.Rand // guarded by mu
	log   *zap.SugaredLogger
}

// New builds an exchange listing every catalog entry, with each entry's
// PoolSupply moved into the exchange pool.
func New(cfg params.Exchange, catalog []asset.Listing, clock util.Clock, logger *zap.SugaredLogger) (*Exchange, error) {
	if clock == nil {
		clock = util.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	assets, err := asset.NewRegistry(catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	supply := make(map[string]decimal.Decimal, len(catalog))
	for _, l := range catalog {
		supply[l.Symbol] = l.PoolSupply
	}
	history, err := storage.NewHistoryStore()
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(clock.Now().UnixNano())
	}

	return &Exchange{
		cfg:       cfg,
		assets:    assets,
		pool:      pool.New(supply),
		book:      orderbook.NewOrderBook(),
		accounts:  account.NewManager(assets.Symbols(), clock.Now),
		history:   history,
		priceSubs: notify.NewRegistry[[]asset.Asset](),
		fillSubs:  notify.NewRegistry[FillEvent](),
		clock:     clock,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		log:       logger,
	}, nil
}

// Close releases the transaction ledger
func (e *Exchange) Close() error {
	return e.history.Close()
}

// Start launches the matching and fluctuation drivers. The returned func
// stops both and waits for any in-flight tick to finish.
func (e *Exchange) Start(ctx context.Context) (stop func()) {
	stopMatch := util.Every(ctx, e.cfg.MatchInterval, func() { e.MatchOrders() })
	stopFluct := util.Every(ctx, e.cfg.FluctuationInterval, func() { e.FluctuatePrices() })

	e.log.Infow("drivers_started",
		"match_interval", e.cfg.MatchInterval.String(),
		"fluctuation_interval", e.cfg.FluctuationInterval.String(),
	)
	return func() {
		stopMatch()
		stopFluct()
		e.log.Infow("drivers_stopped")
	}
}

// ============================================================================
// Accounts and balances
// ============================================================================

// OpenAccount registers a user with an empty wallet
func (e *Exchange) OpenAccount(name, email string) (account.Profile, error) {
	u, err := e.accounts.Open(name, email)
	if err != nil {
		return account.Profile{}, err
	}
	e.log.Infow("account_opened", "user_id", u.ID, "email", u.Email)
	return u.Profile(), nil
}

// Account returns the user's profile with current balances
func (e *Exchange) Account(userID string) (account.Profile, error) {
	u, err := e.accounts.Get(userID)
	if err != nil {
		return account.Profile{}, err
	}
	return u.Profile(), nil
}

// Deposit credits fiat to the user's wallet
func (e *Exchange) Deposit(userID string, amount decimal.Decimal) error {
	u, err := e.accounts.Get(userID)
	if err != nil {
		return err
	}
	if err := u.Wallet.Deposit(amount); err != nil {
		return err
	}
	e.log.Infow("deposit", "user_id", userID, "amount", amount.String())
	return nil
}

// Withdraw debits fiat from the user's wallet
func (e *Exchange) Withdraw(userID string, amount decimal.Decimal) error {
	u, err := e.accounts.Get(userID)
	if err != nil {
		return err
	}
	if err := u.Wallet.DebitFiat(amount); err != nil {
		return err
	}
	e.log.Infow("withdrawal", "user_id", userID, "amount", amount.String())
	return nil
}

// Wallet returns a snapshot of the user's balances
func (e *Exchange) Wallet(userID string) (wallet.Balances, error) {
	u, err := e.accounts.Get(userID)
	if err != nil {
		return wallet.Balances{}, err
	}
	return u.Wallet.Snapshot(), nil
}

// TransactionHistory returns the user's settled events in the order they happened
func (e *Exchange) TransactionHistory(userID string) ([]transaction.Transaction, error) {
	if _, err := e.accounts.Get(userID); err != nil {
		return nil, err
	}
	return e.history.List(userID)
}

// ============================================================================
// Market data
// ============================================================================

// ListAssets returns every listed asset with its current price
func (e *Exchange) ListAssets() []asset.Asset {
	return e.assets.ListAssets()
}

// PoolSupply returns the quantity left in the pool per asset
func (e *Exchange) PoolSupply() map[string]decimal.Decimal {
	return e.pool.Supply()
}

// OpenOrders returns the user's resting orders
func (e *Exchange) OpenOrders(userID string) ([]orderbook.Order, error) {
	if _, err := e.accounts.Get(userID); err != nil {
		return nil, err
	}
	return e.book.OrdersFor(userID), nil
}

// RecentFills returns up to limit settled trades, newest first
func (e *Exchange) RecentFills(limit int) ([]transaction.Fill, error) {
	return e.history.RecentFills(limit)
}

// ============================================================================
// Subscriptions
// ============================================================================

func (e *Exchange) SubscribePriceChanges(fn func([]asset.Asset)) notify.Handle {
	return e.priceSubs.Subscribe(fn)
}

func (e *Exchange) UnsubscribePriceChanges(h notify.Handle) bool {
	return e.priceSubs.Unsubscribe(h)
}

func (e *Exchange) SubscribeFills(fn func(FillEvent)) notify.Handle {
	return e.fillSubs.Subscribe(fn)
}

func (e *Exchange) UnsubscribeFills(h notify.Handle) bool {
	return e.fillSubs.Unsubscribe(h)
}

func (e *Exchange) now() time.Time { return e.clock.Now() }

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/cryptex/params"
	"github.com/uhyunpark/cryptex/pkg/app/core"
	"github.com/uhyunpark/cryptex/pkg/app/core/account"
	"github.com/uhyunpark/cryptex/pkg/app/core/asset"
	"github.com/uhyunpark/cryptex/pkg/app/core/notify"
	"github.com/uhyunpark/cryptex/pkg/app/core/orderbook"
	"github.com/uhyunpark/cryptex/pkg/app/core/transaction"
	"github.com/uhyunpark/cryptex/pkg/app/core/wallet"
	"github.com/uhyunpark/cryptex/pkg/app/exchange"
)

// Exchange is the part of the exchange service the API drives
type Exchange interface {
	OpenAccount(name, email string) (account.Profile, error)
	Account(userID string) (account.Profile, error)
	Deposit(userID string, amount decimal.Decimal) error
	Withdraw(userID string, amount decimal.Decimal) error
	Wallet(userID string) (wallet.Balances, error)
	BuyFromPool(userID, symbol string, qty decimal.Decimal) (transaction.Transaction, error)
	PlaceOrder(side core.Side, userID, symbol string, qty, price decimal.Decimal) (orderbook.Order, error)
	OpenOrders(userID string) ([]orderbook.Order, error)
	TransactionHistory(userID string) ([]transaction.Transaction, error)
	ListAssets() []asset.Asset
	PoolSupply() map[string]decimal.Decimal
	RecentFills(limit int) ([]transaction.Fill, error)
	SubscribePriceChanges(fn func([]asset.Asset)) notify.Handle
	UnsubscribePriceChanges(h notify.Handle) bool
	SubscribeFills(fn func(exchange.FillEvent)) notify.Handle
	UnsubscribeFills(h notify.Handle) bool
}

const (
	defaultTradesLimit = 50
	maxTradesLimit     = 500
)

// Server handles REST API and WebSocket connections
type Server struct {
	ex     Exchange
	cfg    params.API
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
	http   *http.Server

	priceSub notify.Handle
	fillSub  notify.Handle
}

// NewServer creates the API server and subscribes the WebSocket hub to the
// exchange's price and fill notifications.
func NewServer(ex Exchange, cfg params.API, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{
		ex:     ex,
		cfg:    cfg,
		router: mux.NewRouter(),
		hub:    NewHub(logger),
		log:    logger,
	}
	s.setupRoutes()

	s.priceSub = ex.SubscribePriceChanges(s.broadcastPrices)
	s.fillSub = ex.SubscribeFills(s.broadcastFill)
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Market endpoints
	api.HandleFunc("/assets", s.handleListAssets).Methods("GET")
	api.HandleFunc("/pool", s.handleGetPool).Methods("GET")
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")

	// Account endpoints
	api.HandleFunc("/accounts", s.handleOpenAccount).Methods("POST")
	api.HandleFunc("/accounts/{id}", s.handleGetAccount).Methods("GET")
	api.HandleFunc("/accounts/{id}/deposits", s.handleDeposit).Methods("POST")
	api.HandleFunc("/accounts/{id}/withdrawals", s.handleWithdraw).Methods("POST")
	api.HandleFunc("/accounts/{id}/purchases", s.handlePurchase).Methods("POST")
	api.HandleFunc("/accounts/{id}/orders", s.handleGetOrders).Methods("GET")
	api.HandleFunc("/accounts/{id}/transactions", s.handleGetTransactions).Methods("GET")

	// Order submission
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped in the CORS policy
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Start runs the hub and serves until Shutdown. It returns http.ErrServerClosed
// after a clean shutdown.
func (s *Server) Start() error {
	go s.hub.Run()

	s.http = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Infow("api_server_starting", "addr", s.cfg.Addr)
	return s.http.ListenAndServe()
}

// Shutdown detaches from the exchange, stops the hub and drains the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.ex.UnsubscribePriceChanges(s.priceSub)
	s.ex.UnsubscribeFills(s.fillSub)
	s.hub.Stop()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toAssetInfo(s.ex.ListAssets()))
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	supply := s.ex.PoolSupply()
	out := make([]PoolEntry, 0, len(supply))
	for sym, q := range supply {
		out = append(out, PoolEntry{Symbol: sym, Available: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := defaultTradesLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit", v)
			return
		}
		limit = min(n, maxTradesLimit)
	}

	fills, err := s.ex.RecentFills(limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	if fills == nil {
		fills = []transaction.Fill{}
	}
	respondJSON(w, http.StatusOK, fills)
}

func (s *Server) handleOpenAccount(w http.ResponseWriter, r *http.Request) {
	var req OpenAccountRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := s.ex.OpenAccount(req.Name, req.Email)
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	p, err := s.ex.Account(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.moveFiat(w, r, s.ex.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.moveFiat(w, r, s.ex.Withdraw)
}

// moveFiat applies a deposit or withdrawal and answers with the new balances
func (s *Server) moveFiat(w http.ResponseWriter, r *http.Request, op func(string, decimal.Decimal) error) {
	id := mux.Vars(r)["id"]
	var req AmountRequest
	if !decode(w, r, &req) {
		return
	}
	if err := op(id, req.Amount); err != nil {
		s.fail(w, err)
		return
	}
	bal, err := s.ex.Wallet(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bal)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if !decode(w, r, &req) {
		return
	}
	tx, err := s.ex.BuyFromPool(mux.Vars(r)["id"], req.Symbol, req.Quantity)
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.ex.OpenOrders(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]OrderInfo, len(orders))
	for i, o := range orders {
		out[i] = toOrderInfo(o)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ex.TransactionHistory(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	if txs == nil {
		txs = []transaction.Transaction{}
	}
	respondJSON(w, http.StatusOK, txs)
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if !decode(w, r, &req) {
		return
	}
	side, err := core.ParseSide(req.Side)
	if err != nil {
		s.fail(w, err)
		return
	}
	o, err := s.ex.PlaceOrder(side, req.UserID, req.Symbol, req.Quantity, req.Price)
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderInfo(o))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast Methods (called from the exchange's notifiers)
// ==============================

func (s *Server) broadcastPrices(assets []asset.Asset) {
	s.hub.BroadcastToChannel(ChannelPrices, PriceUpdate{
		Type:      "prices",
		Assets:    toAssetInfo(assets),
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) broadcastFill(ev exchange.FillEvent) {
	s.hub.BroadcastToChannel(ChannelFills, FillUpdate{Type: "fill", Fill: ev.Fill})
}

// ==============================
// Helper Functions
// ==============================

// statusFor maps the error taxonomy onto HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUnknownUser):
		return http.StatusNotFound
	case errors.Is(err, core.ErrEmailInUse):
		return http.StatusConflict
	case errors.Is(err, core.ErrInsufficientFunds),
		errors.Is(err, core.ErrInsufficientAssetHoldings),
		errors.Is(err, core.ErrInsufficientPoolSupply):
		return http.StatusUnprocessableEntity
	default:
		// unknown asset, invalid amount or side, and account validation
		return http.StatusBadRequest
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	s.log.Debugw("request_rejected", "status", status, "err", err)
	respondError(w, status, http.StatusText(status), err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   error,
		Message: message,
	})
}

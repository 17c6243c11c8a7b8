package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/cryptex/params"
	"github.com/uhyunpark/cryptex/pkg/app/core/account"
	"github.com/uhyunpark/cryptex/pkg/app/core/asset"
	"github.com/uhyunpark/cryptex/pkg/app/core/transaction"
	"github.com/uhyunpark/cryptex/pkg/app/core/wallet"
	"github.com/uhyunpark/cryptex/pkg/app/exchange"
	"github.com/uhyunpark/cryptex/pkg/util"
)

type testEnv struct {
	ex  *exchange.Exchange
	srv *Server
	ts  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := params.Default()
	cfg.Exchange.Seed = 3

	ex, err := exchange.New(cfg.Exchange, asset.DefaultCatalog, util.RealClock{}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("new exchange: %v", err)
	}
	srv := NewServer(ex, cfg.API, zap.NewNop().Sugar())
	go srv.hub.Run()
	ts := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		ts.Close()
		srv.hub.Stop()
		ex.Close()
	})
	return &testEnv{ex: ex, srv: srv, ts: ts}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, e.ts.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (e *testEnv) openAccount(t *testing.T, email string) string {
	t.Helper()
	var p account.Profile
	if code := e.do(t, "POST", "/api/v1/accounts", OpenAccountRequest{Name: "T", Email: email}, &p); code != http.StatusCreated {
		t.Fatalf("open account status %d", code)
	}
	return p.ID
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	var body map[string]string
	if code := env.do(t, "GET", "/health", nil, &body); code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", code, body)
	}
}

func TestListAssetsAndPool(t *testing.T) {
	env := newTestEnv(t)

	var assets []AssetInfo
	env.do(t, "GET", "/api/v1/assets", nil, &assets)
	if len(assets) != 2 || assets[0].Symbol != "BTC" || !assets[0].Price.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("assets = %+v", assets)
	}

	var pool []PoolEntry
	env.do(t, "GET", "/api/v1/pool", nil, &pool)
	if len(pool) != 2 || pool[0].Symbol != "BTC" || !pool[0].Available.Equal(decimal.NewFromInt(100)) {
		t.Errorf("pool = %+v", pool)
	}
}

func TestAccountLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.openAccount(t, "alice@example.com")

	var bal wallet.Balances
	if code := env.do(t, "POST", "/api/v1/accounts/"+id+"/deposits", map[string]string{"amount": "500000"}, &bal); code != http.StatusOK {
		t.Fatalf("deposit status %d", code)
	}
	if !bal.Fiat.Equal(decimal.NewFromInt(500000)) {
		t.Errorf("fiat after deposit = %s", bal.Fiat)
	}

	var tx transaction.Transaction
	code := env.do(t, "POST", "/api/v1/accounts/"+id+"/purchases", map[string]string{"symbol": "BTC", "quantity": "10"}, &tx)
	if code != http.StatusCreated || tx.Action != transaction.ActionExchange {
		t.Fatalf("purchase = %d %+v", code, tx)
	}

	var txs []transaction.Transaction
	env.do(t, "GET", "/api/v1/accounts/"+id+"/transactions", nil, &txs)
	if len(txs) != 1 || txs[0].ID != tx.ID {
		t.Errorf("transactions = %+v", txs)
	}

	var p account.Profile
	env.do(t, "GET", "/api/v1/accounts/"+id, nil, &p)
	if !p.Balances.Holdings["BTC"].Equal(decimal.NewFromInt(10)) || !p.Balances.Fiat.IsZero() {
		t.Errorf("balances = %+v", p.Balances)
	}
}

func TestErrorStatuses(t *testing.T) {
	env := newTestEnv(t)
	id := env.openAccount(t, "bob@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown account", "GET", "/api/v1/accounts/nope", nil, http.StatusNotFound},
		{"duplicate email", "POST", "/api/v1/accounts", OpenAccountRequest{Name: "B", Email: "bob@example.com"}, http.StatusConflict},
		{"negative deposit", "POST", "/api/v1/accounts/" + id + "/deposits", map[string]string{"amount": "-1"}, http.StatusBadRequest},
		{"overdraw", "POST", "/api/v1/accounts/" + id + "/withdrawals", map[string]string{"amount": "1"}, http.StatusUnprocessableEntity},
		{"purchase without funds", "POST", "/api/v1/accounts/" + id + "/purchases", map[string]string{"symbol": "BTC", "quantity": "1"}, http.StatusUnprocessableEntity},
		{"unknown asset", "POST", "/api/v1/accounts/" + id + "/purchases", map[string]string{"symbol": "DOGE", "quantity": "1"}, http.StatusBadRequest},
		{"bad side", "POST", "/api/v1/orders", map[string]string{"userId": id, "side": "hold", "symbol": "BTC", "quantity": "1", "price": "1"}, http.StatusBadRequest},
		{"unknown field", "POST", "/api/v1/accounts", map[string]string{"nickname": "x"}, http.StatusBadRequest},
		{"bad limit", "GET", "/api/v1/trades?limit=-3", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e ErrorResponse
			if code := env.do(t, tt.method, tt.path, tt.body, &e); code != tt.want {
				t.Errorf("status = %d, want %d (%+v)", code, tt.want, e)
			}
		})
	}
}

func TestOrdersMatchAndTrades(t *testing.T) {
	env := newTestEnv(t)
	seller := env.openAccount(t, "seller@example.com")
	buyer := env.openAccount(t, "buyer@example.com")

	env.do(t, "POST", "/api/v1/accounts/"+seller+"/deposits", map[string]string{"amount": "6000"}, nil)
	env.do(t, "POST", "/api/v1/accounts/"+seller+"/purchases", map[string]string{"symbol": "ETH", "quantity": "2"}, nil)
	env.do(t, "POST", "/api/v1/accounts/"+buyer+"/deposits", map[string]string{"amount": "6400"}, nil)

	var sell, buy OrderInfo
	if code := env.do(t, "POST", "/api/v1/orders", map[string]string{"userId": seller, "side": "sell", "symbol": "ETH", "quantity": "2", "price": "3000"}, &sell); code != http.StatusCreated {
		t.Fatalf("sell status %d", code)
	}
	if code := env.do(t, "POST", "/api/v1/orders", map[string]string{"userId": buyer, "side": "buy", "symbol": "ETH", "quantity": "2", "price": "3200"}, &buy); code != http.StatusCreated {
		t.Fatalf("buy status %d", code)
	}
	if sell.Side != "SELL" || buy.Side != "BUY" {
		t.Errorf("sides = %s/%s", sell.Side, buy.Side)
	}

	var open []OrderInfo
	env.do(t, "GET", "/api/v1/accounts/"+buyer+"/orders", nil, &open)
	if len(open) != 1 || open[0].ID != buy.ID {
		t.Errorf("open orders = %+v", open)
	}

	env.ex.MatchOrders()

	var trades []transaction.Fill
	env.do(t, "GET", "/api/v1/trades?limit=10", nil, &trades)
	if len(trades) != 1 || trades[0].BuyOrderID != buy.ID || !trades[0].Price.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("trades = %+v", trades)
	}

	env.do(t, "GET", "/api/v1/accounts/"+buyer+"/orders", nil, &open)
	if len(open) != 0 {
		t.Errorf("buyer still has %d open orders", len(open))
	}
}

func TestWebSocketChannels(t *testing.T) {
	env := newTestEnv(t)

	url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(WSSubscribeRequest{Op: "subscribe", Channels: []string{ChannelPrices}}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var ack map[string]any
	if err := conn.ReadJSON(&ack); err != nil || ack["type"] != "ack" {
		t.Fatalf("ack = %v, %v", ack, err)
	}

	env.ex.FluctuatePrices()

	var update PriceUpdate
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read price update: %v", err)
	}
	if update.Type != "prices" || len(update.Assets) != 2 {
		t.Errorf("update = %+v", update)
	}
}

package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cryptex/pkg/app/core/transaction"
)

var t0 = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *HistoryStore {
	t.Helper()
	s, err := NewHistoryStore()
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndListInOrder(t *testing.T) {
	s := newStore(t)

	// interleave users so per-user prefixes must keep them apart
	for i := 1; i <= 12; i++ {
		user := "alice"
		if i%3 == 0 {
			user = "bob"
		}
		tx := transaction.New(user, transaction.ActionExchange, "BTC", decimal.NewFromInt(int64(i)), decimal.NewFromInt(100), t0)
		if err := s.Append(user, tx); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	alice, err := s.List("alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(alice) != 8 {
		t.Fatalf("alice has %d transactions, want 8", len(alice))
	}
	for i := 1; i < len(alice); i++ {
		if !alice[i-1].Quantity.LessThan(alice[i].Quantity) {
			t.Errorf("transactions out of append order at %d", i)
		}
	}

	bob, _ := s.List("bob")
	if len(bob) != 4 {
		t.Errorf("bob has %d transactions, want 4", len(bob))
	}
}

func TestListUnknownUserIsEmpty(t *testing.T) {
	s := newStore(t)
	txs, err := s.List("nobody")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("got %d transactions, want 0", len(txs))
	}
}

// TestUserPrefixIsolation tests that "al" does not see "alice" records
func TestUserPrefixIsolation(t *testing.T) {
	s := newStore(t)
	_ = s.Append("alice", transaction.New("alice", transaction.ActionBuy, "ETH", decimal.NewFromInt(1), decimal.NewFromInt(1), t0))

	txs, _ := s.List("al")
	if len(txs) != 0 {
		t.Errorf("prefix leaked %d transactions", len(txs))
	}
}

func TestAppendFillWritesBothSides(t *testing.T) {
	s := newStore(t)

	qty, price := decimal.NewFromInt(2), decimal.NewFromInt(3000)
	buy := transaction.New("bob", transaction.ActionBuy, "ETH", qty, price, t0)
	sell := transaction.New("alice", transaction.ActionSell, "ETH", qty, price, t0)
	fill := transaction.Fill{ID: "f1", Symbol: "ETH", Quantity: qty, Price: price, BuyerID: "bob", SellerID: "alice", Time: t0}

	if err := s.AppendFill(buy, sell, fill); err != nil {
		t.Fatalf("append fill: %v", err)
	}

	if txs, _ := s.List("bob"); len(txs) != 1 || txs[0].Action != transaction.ActionBuy {
		t.Errorf("bob history = %+v", txs)
	}
	if txs, _ := s.List("alice"); len(txs) != 1 || txs[0].Action != transaction.ActionSell {
		t.Errorf("alice history = %+v", txs)
	}
	fills, _ := s.RecentFills(10)
	if len(fills) != 1 || fills[0].ID != "f1" {
		t.Fatalf("fills = %+v", fills)
	}
	if !fills[0].Price.Equal(price) {
		t.Errorf("fill price = %s, want %s", fills[0].Price, price)
	}
}

func TestRecentFillsNewestFirst(t *testing.T) {
	s := newStore(t)
	for i := 0; i < 5; i++ {
		if err := s.RecordFill(transaction.Fill{ID: fmt.Sprintf("f%d", i), Time: t0.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatalf("record fill: %v", err)
		}
	}

	tests := []struct {
		limit int
		want  []string
	}{
		{3, []string{"f4", "f3", "f2"}},
		{10, []string{"f4", "f3", "f2", "f1", "f0"}},
		{0, nil},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit=%d", tt.limit), func(t *testing.T) {
			fills, err := s.RecentFills(tt.limit)
			if err != nil {
				t.Fatalf("recent fills: %v", err)
			}
			if len(fills) != len(tt.want) {
				t.Fatalf("got %d fills, want %d", len(fills), len(tt.want))
			}
			for i, id := range tt.want {
				if fills[i].ID != id {
					t.Errorf("fills[%d] = %s, want %s", i, fills[i].ID, id)
				}
			}
		})
	}
}

func TestKeyUpperBound(t *testing.T) {
	got := string(keyUpperBound([]byte("tx:alice:")))
	if got != "tx:alice;" {
		t.Errorf("upper bound = %q, want %q", got, "tx:alice;")
	}
}

func TestCloseTwice(t *testing.T) {
	s, err := NewHistoryStore()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

package transaction

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewAssignsFreshIDs(t *testing.T) {
	at := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	a := New("u1", ActionExchange, "BTC", decimal.NewFromInt(10), decimal.NewFromInt(500000), at)
	b := New("u1", ActionExchange, "BTC", decimal.NewFromInt(10), decimal.NewFromInt(500000), at)

	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("ids not unique: %q %q", a.ID, b.ID)
	}
	if a.OrderID != "" || a.CounterpartyID != "" {
		t.Errorf("pool purchase should carry no order or counterparty")
	}
	if got, want := a.String(), "EXCHANGE\t BTC\t 10.00\t 500000.00"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

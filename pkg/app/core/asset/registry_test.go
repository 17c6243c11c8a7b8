package asset

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cryptex/pkg/app/core"
)

func TestNewRegistryFromDefaultCatalog(t *testing.T) {
	r, err := NewRegistry(DefaultCatalog)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	if r.Count() != len(DefaultCatalog) {
		t.Fatalf("count = %d, want %d", r.Count(), len(DefaultCatalog))
	}

	assets := r.ListAssets()
	for i, l := range DefaultCatalog {
		a := assets[i]
		if a.Symbol != l.Symbol {
			t.Errorf("asset %d: symbol %s, want %s (listing order)", i, a.Symbol, l.Symbol)
		}
		if !a.CurrentPrice.Equal(l.ReferencePrice) {
			t.Errorf("%s: current price %s should start at reference %s", a.Symbol, a.CurrentPrice, l.ReferencePrice)
		}
	}
}

func TestNewRegistryRejectsBadCatalog(t *testing.T) {
	tests := []struct {
		name    string
		catalog []Listing
	}{
		{"empty symbol", []Listing{{Symbol: "", ReferencePrice: decimal.NewFromInt(1)}}},
		{"zero price", []Listing{{Symbol: "BTC", ReferencePrice: decimal.Zero}}},
		{"duplicate", []Listing{
			{Symbol: "BTC", ReferencePrice: decimal.NewFromInt(1)},
			{Symbol: "BTC", ReferencePrice: decimal.NewFromInt(2)},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.catalog); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGetUnknownAsset(t *testing.T) {
	r, _ := NewRegistry(DefaultCatalog)

	if _, err := r.Get("DOGE"); !errors.Is(err, core.ErrUnknownAsset) {
		t.Errorf("err = %v, want ErrUnknownAsset", err)
	}
	// symbols are case-sensitive
	if r.Exists("btc") {
		t.Error("lowercase symbol should not resolve")
	}
	if !r.Exists("BTC") {
		t.Error("BTC should be listed")
	}
}

func TestListAssetsReturnsCopy(t *testing.T) {
	r, _ := NewRegistry(DefaultCatalog)

	snap := r.ListAssets()
	snap[0].CurrentPrice = decimal.NewFromInt(1)

	p, _ := r.CurrentPrice(snap[0].Symbol)
	if p.Equal(decimal.NewFromInt(1)) {
		t.Error("mutating a snapshot changed the registry")
	}
}

func TestReprice(t *testing.T) {
	r, _ := NewRegistry(DefaultCatalog)

	updated := r.Reprice(func(a Asset) decimal.Decimal {
		if a.Symbol == "ETH" {
			return decimal.NewFromInt(-1) // clamped
		}
		return a.ReferencePrice.Add(decimal.NewFromInt(10))
	})

	btc, _ := r.Get("BTC")
	if !btc.CurrentPrice.Equal(decimal.NewFromInt(50010)) {
		t.Errorf("BTC price = %s, want 50010", btc.CurrentPrice)
	}
	if !btc.ReferencePrice.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("reference price moved: %s", btc.ReferencePrice)
	}
	eth, _ := r.Get("ETH")
	if !eth.CurrentPrice.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("ETH price = %s, want unchanged 3000", eth.CurrentPrice)
	}
	if len(updated) != 2 || !updated[0].CurrentPrice.Equal(btc.CurrentPrice) {
		t.Errorf("snapshot does not reflect update: %+v", updated)
	}
}

func TestConcurrentReadsDuringReprice(t *testing.T) {
	r, _ := NewRegistry(DefaultCatalog)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Reprice(func(a Asset) decimal.Decimal { return a.ReferencePrice })
		}()
		go func() {
			defer wg.Done()
			for _, a := range r.ListAssets() {
				if !a.CurrentPrice.IsPositive() {
					t.Errorf("%s price not positive", a.Symbol)
				}
			}
		}()
	}
	wg.Wait()
}

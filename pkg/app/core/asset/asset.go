package asset

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Asset is a tradable cryptocurrency. Identity is the symbol; prices never take part
// in equality, so the symbol stays a valid map key while CurrentPrice moves.
type Asset struct {
	Symbol         string          // "BTC" (case-sensitive)
	Name           string          // "Bitcoin"
	ReferencePrice decimal.Decimal // fluctuation anchor, fixed at listing
	CurrentPrice   decimal.Decimal // updated only by the price fluctuation driver
}

func (a Asset) String() string {
	return fmt.Sprintf("%s(%s): %s", a.Name, a.Symbol, a.CurrentPrice.StringFixed(2))
}

// Listing describes one entry of the catalog the exchange boots with.
type Listing struct {
	Symbol         string
	Name           string
	ReferencePrice decimal.Decimal
	PoolSupply     decimal.Decimal // quantity the exchange pool starts with
}

// DefaultCatalog is the fixed set of assets listed at startup
var DefaultCatalog = []Listing{
	{
		Symbol:         "BTC",
		Name:           "Bitcoin",
		ReferencePrice: decimal.NewFromInt(50000),
		PoolSupply:     decimal.NewFromInt(100),
	},
	{
		Symbol:         "ETH",
		Name:           "Ethereum",
		ReferencePrice: decimal.NewFromInt(3000),
		PoolSupply:     decimal.NewFromInt(500),
	},
}

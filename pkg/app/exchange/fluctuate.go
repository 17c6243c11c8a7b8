package exchange

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/cryptex/pkg/app/core/asset"
)

var bpsScale = decimal.NewFromInt(10000)

// FluctuatePrices perturbs every asset's current price around its reference
// price and notifies price subscribers with the full updated list.
func (e *Exchange) FluctuatePrices() []asset.Asset {
	e.mu.Lock()
	updated := e.assets.Reprice(func(a asset.Asset) decimal.Decimal {
		return perturb(a.ReferencePrice, e.rng, e.cfg.RiseBps, e.cfg.FallBps)
	})
	e.mu.Unlock()

	e.log.Debugw("prices_fluctuated", "assets", len(updated))
	e.priceSubs.Notify(updated)
	return updated
}

// perturb draws a direction, then a magnitude below riseBps (up) or fallBps
// (down) of ref. The result depends only on ref and the draws, never on the
// previous current price.
func perturb(ref decimal.Decimal, rng *rand.Rand, riseBps, fallBps int64) decimal.Decimal {
	up := rng.IntN(2) == 0
	frac := decimal.NewFromFloat(rng.Float64()) // [0, 1)

	bps := fallBps
	if up {
		bps = riseBps
	}
	// truncating keeps the magnitude strictly inside the bound
	mag := ref.Mul(decimal.NewFromInt(bps)).Div(bpsScale).Mul(frac).Truncate(8)

	if up {
		return ref.Add(mag)
	}
	return ref.Sub(mag)
}

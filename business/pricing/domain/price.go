// Package domain contains the core domain types for the pricing context.
package domain

import (
	"strings"
	"time"

	"github.com/fd1az/bond-desk/internal/asset"
)

// SpotPrice is an oracle observation of one asset's USD unit price.
type SpotPrice struct {
	Symbol string
	USD    float64
	Source string
	At     time.Time
}

// NewSpotPrice normalizes the symbol and stamps the observation time.
func NewSpotPrice(symbol string, usd float64, source string, at time.Time) SpotPrice {
	return SpotPrice{Symbol: NormalizeSymbol(symbol), USD: usd, Source: source, At: at}
}

// Price converts to an asset.Price when the symbol is a registered asset.
func (p SpotPrice) Price(r *asset.Registry) (asset.Price, bool) {
	a, ok := r.Lookup(p.Symbol)
	if !ok {
		return asset.Price{}, false
	}
	price, err := asset.NewUSDPrice(a, p.USD, p.At)
	if err != nil {
		return asset.Price{}, false
	}
	return price, true
}

// Age returns how long ago the price was observed.
func (p SpotPrice) Age(now time.Time) time.Duration {
	return now.Sub(p.At)
}

// NormalizeSymbol is the cache and lookup form of an asset symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

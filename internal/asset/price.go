package asset

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Price is an observed exchange rate of base in units of quote.
type Price struct {
	rate      decimal.Decimal
	base      *Asset
	quote     *Asset
	timestamp time.Time
}

// NewPrice creates a price observed at timestamp.
func NewPrice(base, quote *Asset, rate decimal.Decimal, timestamp time.Time) Price {
	if base == nil || quote == nil {
		panic("asset: nil base or quote in price")
	}
	if rate.IsNegative() {
		panic("asset: negative price rate")
	}
	return Price{rate: rate, base: base, quote: quote, timestamp: timestamp}
}

// NewUSDPrice creates a USD price for base from an oracle float.
func NewUSDPrice(base *Asset, usd float64, timestamp time.Time) (Price, error) {
	if _, err := ToFixedBig(usd, 0); err != nil {
		return Price{}, err
	}
	if usd < 0 {
		return Price{}, fmt.Errorf("asset: negative %s price", base.Symbol())
	}
	return NewPrice(base, USD, decimal.NewFromFloat(usd), timestamp), nil
}

// Rate returns the price rate as a decimal.
func (p Price) Rate() decimal.Decimal {
	return p.rate
}

// Float64 returns the rate as float64.
func (p Price) Float64() float64 {
	f, _ := p.rate.Float64()
	return f
}

func (p Price) Base() *Asset {
	return p.base
}

func (p Price) Quote() *Asset {
	return p.quote
}

// Timestamp returns when this price was observed.
func (p Price) Timestamp() time.Time {
	return p.timestamp
}

// Pair returns the pair symbol (e.g. "SHIB/USD").
func (p Price) Pair() string {
	if p.base == nil || p.quote == nil {
		return "???/???"
	}
	return fmt.Sprintf("%s/%s", p.base.Symbol(), p.quote.Symbol())
}

// IsZero returns true if the price is zero.
func (p Price) IsZero() bool {
	return p.rate.IsZero()
}

func (p Price) String() string {
	return fmt.Sprintf("%s %s", p.rate.String(), p.Pair())
}

// Age returns how old this price is.
func (p Price) Age() time.Duration {
	return time.Since(p.timestamp)
}

// IsStale returns true if the price is older than maxAge.
func (p Price) IsStale(maxAge time.Duration) bool {
	return p.Age() > maxAge
}

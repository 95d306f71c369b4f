// Package app contains application services and port definitions for the pricing context.
package app

import "context"

// SpotSource fetches current USD prices for a batch of asset symbols. Symbols
// the source cannot price are omitted from the result.
type SpotSource interface {
	Name() string
	FetchUSD(ctx context.Context, symbols []string) (map[string]float64, error)
}

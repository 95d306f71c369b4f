// Package app contains application services and port definitions for the bonding context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/bond-desk/business/bonding/domain"
)

// MarketPricer provides the session-wide market price of the payout token.
type MarketPricer interface {
	// MarketPrice returns the current USD price. Concurrent callers share a
	// single in-flight lookup.
	MarketPrice(ctx context.Context) (float64, error)
}

// Wallet exposes the connected account, if any.
type Wallet interface {
	// Address returns the signer address and false when no wallet is connected.
	Address() (common.Address, bool)
}

// QuoteComputer is the valuation entry point used by the refresher.
type QuoteComputer interface {
	ComputeBondDetails(ctx context.Context, b *domain.Bond, amount decimal.Decimal, net domain.NetworkID) (*domain.Quote, error)
}

// Package domain contains the core types of the bonding context.
package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/bond-desk/internal/asset"
)

// NetworkID identifies a supported chain.
type NetworkID uint64

const (
	Mainnet NetworkID = 1
	Testnet NetworkID = 4
)

// SupportedNetworks lists every network a bond must declare availability for.
var SupportedNetworks = []NetworkID{Mainnet, Testnet}

func (n NetworkID) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	default:
		return fmt.Sprintf("network(%d)", uint64(n))
	}
}

// Symbol is the unique symbolic name of a bond (e.g. "dai", "dog_eth_lp").
type Symbol string

// Kind is the bond classification. Every bond has exactly one.
type Kind int

const (
	KindStable Kind = iota + 1
	KindLP
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindStable:
		return "stable"
	case KindLP:
		return "lp"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// PriceModel selects how the bond price in USD is obtained.
type PriceModel int

const (
	// PriceInUSD reads bondPriceInUSD() with 18 decimals.
	PriceInUSD PriceModel = iota + 1
	// PriceInUSDTimesSpot reads bondPriceInUSD() and scales it by the spot price of SpotSymbol.
	PriceInUSDTimesSpot
	// PricePoolDerived derives the price from pool composition and the LP calculator.
	PricePoolDerived
)

// Quote floors in raw payout units and the exponent used to normalize payouts.
var (
	stableQuoteFloor = big.NewInt(100_000_000_000_000)
	lpQuoteFloor     = big.NewInt(100_000)
)

const (
	stablePayoutDecimals = 18
	lpPayoutDecimals     = 9
)

// Addresses holds the contracts of one bond on one network.
type Addresses struct {
	Bond    common.Address
	Reserve common.Address
}

// PoolAsset describes one side of an LP pair, in getReserves() order.
type PoolAsset struct {
	Symbol   string
	Decimals int32
}

// Bond is the immutable definition of one bond instrument.
type Bond struct {
	Name        Symbol
	DisplayName string
	Reserve     *asset.Asset
	Kind        Kind
	Pricing     PriceModel

	// UsesRawDebtRatio selects debtRatio() instead of standardizedDebtRatio().
	UsesRawDebtRatio bool

	IsAvailable map[NetworkID]bool
	Addresses   map[NetworkID]Addresses

	QuoteFloor     *big.Int
	PayoutDecimals int32

	SpotSymbol string
	Pool       [2]PoolAsset

	Treasury TreasuryValuer
}

// IsLP reports whether the bond is backed by an LP position.
func (b *Bond) IsLP() bool {
	return b.Kind == KindLP
}

// AvailableOn reports whether the bond can be used on network n.
func (b *Bond) AvailableOn(n NetworkID) bool {
	return b.IsAvailable[n]
}

// BondAddress returns the bond contract on n.
func (b *Bond) BondAddress(n NetworkID) (common.Address, bool) {
	a, ok := b.Addresses[n]
	return a.Bond, ok
}

// ReserveAddress returns the reserve token on n.
func (b *Bond) ReserveAddress(n NetworkID) (common.Address, bool) {
	a, ok := b.Addresses[n]
	return a.Reserve, ok
}

// Validate checks the construction invariants.
func (b *Bond) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("bond: empty name")
	}
	if b.Reserve == nil {
		return fmt.Errorf("bond %s: nil reserve asset", b.Name)
	}
	switch b.Kind {
	case KindStable, KindLP, KindCustom:
	default:
		return fmt.Errorf("bond %s: invalid classification", b.Name)
	}
	for _, n := range SupportedNetworks {
		if _, ok := b.IsAvailable[n]; !ok {
			return fmt.Errorf("bond %s: availability missing for %s", b.Name, n)
		}
		if b.IsAvailable[n] {
			if _, ok := b.Addresses[n]; !ok {
				return fmt.Errorf("bond %s: addresses missing for %s", b.Name, n)
			}
		}
	}
	if b.Treasury == nil {
		return fmt.Errorf("bond %s: nil treasury strategy", b.Name)
	}
	if b.Pricing == PriceInUSDTimesSpot && b.SpotSymbol == "" {
		return fmt.Errorf("bond %s: spot pricing without a spot symbol", b.Name)
	}
	if b.Pricing == PricePoolDerived && !b.IsLP() {
		return fmt.Errorf("bond %s: pool pricing requires an lp bond", b.Name)
	}
	return nil
}

// BondParams are the fields shared by all bond constructors.
type BondParams struct {
	Name             Symbol
	DisplayName      string
	Reserve          *asset.Asset
	IsAvailable      map[NetworkID]bool
	Addresses        map[NetworkID]Addresses
	UsesRawDebtRatio bool
}

func (p BondParams) bond() *Bond {
	return &Bond{
		Name:             p.Name,
		DisplayName:      p.DisplayName,
		Reserve:          p.Reserve,
		IsAvailable:      p.IsAvailable,
		Addresses:        p.Addresses,
		UsesRawDebtRatio: p.UsesRawDebtRatio,
	}
}

func mustValid(b *Bond) *Bond {
	if err := b.Validate(); err != nil {
		panic(err)
	}
	return b
}

// NewStableBond creates a bond whose reserve is valued at 1 USD per unit.
func NewStableBond(p BondParams) *Bond {
	b := p.bond()
	b.Kind = KindStable
	b.Pricing = PriceInUSD
	b.QuoteFloor = stableQuoteFloor
	b.PayoutDecimals = stablePayoutDecimals
	b.Treasury = StableTreasury{}
	return mustValid(b)
}

// NewCustomBond creates a single-asset bond with its own pricing and treasury strategy.
func NewCustomBond(p BondParams, pricing PriceModel, spotSymbol string, treasury TreasuryValuer) *Bond {
	b := p.bond()
	b.Kind = KindCustom
	b.Pricing = pricing
	b.SpotSymbol = spotSymbol
	b.QuoteFloor = stableQuoteFloor
	b.PayoutDecimals = stablePayoutDecimals
	b.Treasury = treasury
	return mustValid(b)
}

// NewLPBond creates a bond backed by a two-asset pool.
func NewLPBond(p BondParams, pool [2]PoolAsset, treasury TreasuryValuer) *Bond {
	b := p.bond()
	b.Kind = KindLP
	b.Pricing = PricePoolDerived
	b.Pool = pool
	b.QuoteFloor = lpQuoteFloor
	b.PayoutDecimals = lpPayoutDecimals
	b.Treasury = treasury
	return mustValid(b)
}

package domain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/bond-desk/internal/asset"
)

const (
	reserveDecimals    = 18
	assetPriceDecimals = 8
	spotFeedDecimals   = 8
	valuationDecimals  = 9
	markdownDecimals   = 18
)

// TreasuryEnv carries the collaborators a treasury strategy may read from.
type TreasuryEnv struct {
	Network Network
	Ledger  Ledger
	Oracle  PriceOracle
}

// TreasuryValuer computes the USD value of reserves held by the treasury.
// Implementations may perform several sequential ledger reads and must not retry.
type TreasuryValuer interface {
	TreasuryValue(ctx context.Context, b *Bond, env TreasuryEnv) (float64, error)
}

var (
	_ TreasuryValuer = StableTreasury{}
	_ TreasuryValuer = SpotPriceTreasury{}
	_ TreasuryValuer = AssetPriceTreasury{}
	_ TreasuryValuer = LPTreasury{}
)

func treasuryBalance(ctx context.Context, b *Bond, env TreasuryEnv) (*big.Int, error) {
	reserve, ok := b.ReserveAddress(env.Network.ID)
	if !ok {
		return nil, fmt.Errorf("bond %s: no reserve on %s", b.Name, env.Network.ID)
	}
	return env.Ledger.Reserve(reserve).BalanceOf(ctx, env.Network.Treasury)
}

// StableTreasury values the treasury balance at 1 USD per reserve unit.
type StableTreasury struct{}

func (StableTreasury) TreasuryValue(ctx context.Context, b *Bond, env TreasuryEnv) (float64, error) {
	bal, err := treasuryBalance(ctx, b, env)
	if err != nil {
		return 0, err
	}
	return asset.ToFloat(bal, reserveDecimals), nil
}

// SpotPriceTreasury values the treasury balance at the oracle spot price of
// Symbol, read as a fixed-point feed answer with FeedDecimals places
// (8 when zero).
type SpotPriceTreasury struct {
	Symbol       string
	FeedDecimals int32
}

// feedPrice truncates usd to the feed's fixed-point answer and normalizes it.
func (s SpotPriceTreasury) feedPrice(usd float64) (float64, error) {
	decimals := s.FeedDecimals
	if decimals == 0 {
		decimals = spotFeedDecimals
	}
	raw, err := asset.ToFixedBig(usd, decimals)
	if err != nil {
		return 0, err
	}
	return asset.ToFloat(raw, decimals), nil
}

func (s SpotPriceTreasury) TreasuryValue(ctx context.Context, b *Bond, env TreasuryEnv) (float64, error) {
	bal, err := treasuryBalance(ctx, b, env)
	if err != nil {
		return 0, err
	}
	usd, err := env.Oracle.SpotPriceUSD(ctx, s.Symbol)
	if err != nil {
		return 0, err
	}
	price, err := s.feedPrice(usd)
	if err != nil {
		return 0, err
	}
	return asset.ToFloat(bal, reserveDecimals) * price, nil
}

// AssetPriceTreasury values the treasury balance with the bond's own assetPrice() feed.
type AssetPriceTreasury struct{}

func (AssetPriceTreasury) TreasuryValue(ctx context.Context, b *Bond, env TreasuryEnv) (float64, error) {
	bal, err := treasuryBalance(ctx, b, env)
	if err != nil {
		return 0, err
	}
	bondAddr, ok := b.BondAddress(env.Network.ID)
	if !ok {
		return 0, fmt.Errorf("bond %s: no contract on %s", b.Name, env.Network.ID)
	}
	price, err := env.Ledger.Bond(bondAddr).AssetPrice(ctx)
	if err != nil {
		return 0, err
	}
	return asset.ToFloat(bal, reserveDecimals) * asset.ToFloat(price, assetPriceDecimals), nil
}

// LPTreasury values the treasury LP holding. The pool composition is used on
// PoolNetwork; every other network goes through the LP calculator.
type LPTreasury struct {
	PoolNetwork NetworkID
}

func (l LPTreasury) TreasuryValue(ctx context.Context, b *Bond, env TreasuryEnv) (float64, error) {
	lp, ok := b.ReserveAddress(env.Network.ID)
	if !ok {
		return 0, fmt.Errorf("bond %s: no pair on %s", b.Name, env.Network.ID)
	}
	bal, err := env.Ledger.Reserve(lp).BalanceOf(ctx, env.Network.Treasury)
	if err != nil {
		return 0, err
	}

	if env.Network.ID == l.PoolNetwork {
		pv, err := PoolValue(ctx, b, env)
		if err != nil {
			return 0, err
		}
		return pv.PerTokenUSD * asset.ToFloat(bal, reserveDecimals), nil
	}

	return CalculatorLPValue(ctx, env.Ledger.Calculator(env.Network.BondCalculator), lp, bal)
}

// CalculatorLPValue values amount LP tokens as valuation(amount) scaled by markdown(pair).
func CalculatorLPValue(ctx context.Context, calc Calculator, pair common.Address, amount *big.Int) (float64, error) {
	valuation, err := calc.Valuation(ctx, pair, amount)
	if err != nil {
		return 0, err
	}
	markdown, err := calc.Markdown(ctx, pair)
	if err != nil {
		return 0, err
	}
	return asset.ToFloat(valuation, valuationDecimals) * asset.ToFloat(markdown, markdownDecimals), nil
}

// PoolValuation is the USD composition of an LP pair.
type PoolValuation struct {
	PoolUSD     float64
	Supply      float64
	PerTokenUSD float64
}

// PoolValue prices both pair reserves with the oracle and divides by the LP supply.
// A zero supply yields asset.ErrDivisionByZero.
func PoolValue(ctx context.Context, b *Bond, env TreasuryEnv) (PoolValuation, error) {
	lp, ok := b.ReserveAddress(env.Network.ID)
	if !ok {
		return PoolValuation{}, fmt.Errorf("bond %s: no pair on %s", b.Name, env.Network.ID)
	}
	pair := env.Ledger.Reserve(lp)

	reserves, err := pair.GetReserves(ctx)
	if err != nil {
		return PoolValuation{}, err
	}
	supply, err := pair.TotalSupply(ctx)
	if err != nil {
		return PoolValuation{}, err
	}

	raws := [2]*big.Int{reserves.Reserve0, reserves.Reserve1}
	var poolUSD float64
	for i, side := range b.Pool {
		price, err := env.Oracle.SpotPriceUSD(ctx, side.Symbol)
		if err != nil {
			return PoolValuation{}, err
		}
		poolUSD += asset.ToFloat(raws[i], side.Decimals) * price
	}

	units := asset.ToFloat(supply, int32(b.Reserve.Decimals()))
	perToken, err := asset.Div(poolUSD, units)
	if err != nil {
		return PoolValuation{}, fmt.Errorf("bond %s: per-token value: %w", b.Name, err)
	}

	return PoolValuation{PoolUSD: poolUSD, Supply: units, PerTokenUSD: perToken}, nil
}

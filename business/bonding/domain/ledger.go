package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Terms are the static parameters of a bond contract.
type Terms struct {
	ControlVariable *big.Int
	VestingTerm     uint64
	MinimumPrice    *big.Int
	MaxPayout       *big.Int
	Fee             *big.Int
	MaxDebt         *big.Int
}

// Reserves are the pool balances returned by getReserves().
type Reserves struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// Transaction is a submitted ledger mutation.
type Transaction interface {
	Hash() common.Hash
	// Wait blocks until the transaction is mined and fails if it reverted.
	Wait(ctx context.Context) error
}

// BondContract is a bond depository.
type BondContract interface {
	Terms(ctx context.Context) (Terms, error)
	MaxPayout(ctx context.Context) (*big.Int, error)
	DebtRatio(ctx context.Context) (*big.Int, error)
	StandardizedDebtRatio(ctx context.Context) (*big.Int, error)
	BondPrice(ctx context.Context) (*big.Int, error)
	BondPriceInUSD(ctx context.Context) (*big.Int, error)
	PayoutFor(ctx context.Context, value *big.Int) (*big.Int, error)
	AssetPrice(ctx context.Context) (*big.Int, error)

	Deposit(ctx context.Context, amount, maxPremium *big.Int, depositor common.Address) (Transaction, error)
	Redeem(ctx context.Context, recipient common.Address, stake bool) (Transaction, error)
}

// ReserveContract is an ERC20 reserve token, optionally an LP pair.
type ReserveContract interface {
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
	GetReserves(ctx context.Context) (Reserves, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)

	Approve(ctx context.Context, spender common.Address, amount *big.Int) (Transaction, error)
}

// Calculator values LP tokens in payout-token terms.
type Calculator interface {
	Valuation(ctx context.Context, pair common.Address, amount *big.Int) (*big.Int, error)
	Markdown(ctx context.Context, pair common.Address) (*big.Int, error)
}

// RedeemHelper batches redemption across every bond.
type RedeemHelper interface {
	RedeemAll(ctx context.Context, recipient common.Address, stake bool) (Transaction, error)
}

// Ledger binds contract handles to addresses.
type Ledger interface {
	Bond(addr common.Address) BondContract
	Reserve(addr common.Address) ReserveContract
	Calculator(addr common.Address) Calculator
	RedeemHelper(addr common.Address) RedeemHelper
}

// PriceOracle returns current USD unit prices by asset symbol.
type PriceOracle interface {
	SpotPriceUSD(ctx context.Context, symbol string) (float64, error)
}

// Network carries the protocol addresses of one network.
type Network struct {
	ID                    NetworkID
	Treasury              common.Address
	BondCalculator        common.Address
	SpecialBondCalculator common.Address
	RedeemHelper          common.Address
}

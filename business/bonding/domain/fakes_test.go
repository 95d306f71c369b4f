package domain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var errNotImplemented = errors.New("not implemented")

type fakeReserve struct {
	balance  *big.Int
	supply   *big.Int
	reserves Reserves
	err      error
}

func (f *fakeReserve) BalanceOf(context.Context, common.Address) (*big.Int, error) {
	return f.balance, f.err
}

func (f *fakeReserve) TotalSupply(context.Context) (*big.Int, error) {
	return f.supply, f.err
}

func (f *fakeReserve) GetReserves(context.Context) (Reserves, error) {
	return f.reserves, f.err
}

func (f *fakeReserve) Allowance(context.Context, common.Address, common.Address) (*big.Int, error) {
	return nil, errNotImplemented
}

func (f *fakeReserve) Approve(context.Context, common.Address, *big.Int) (Transaction, error) {
	return nil, errNotImplemented
}

type fakeBond struct {
	assetPrice *big.Int
}

func (f *fakeBond) Terms(context.Context) (Terms, error) { return Terms{}, errNotImplemented }
func (f *fakeBond) MaxPayout(context.Context) (*big.Int, error) { return nil, errNotImplemented }
func (f *fakeBond) DebtRatio(context.Context) (*big.Int, error) { return nil, errNotImplemented }
func (f *fakeBond) BondPrice(context.Context) (*big.Int, error) { return nil, errNotImplemented }
func (f *fakeBond) BondPriceInUSD(context.Context) (*big.Int, error) { return nil, errNotImplemented }
func (f *fakeBond) AssetPrice(context.Context) (*big.Int, error) { return f.assetPrice, nil }

func (f *fakeBond) StandardizedDebtRatio(context.Context) (*big.Int, error) {
	return nil, errNotImplemented
}

func (f *fakeBond) PayoutFor(context.Context, *big.Int) (*big.Int, error) {
	return nil, errNotImplemented
}

func (f *fakeBond) Deposit(context.Context, *big.Int, *big.Int, common.Address) (Transaction, error) {
	return nil, errNotImplemented
}

func (f *fakeBond) Redeem(context.Context, common.Address, bool) (Transaction, error) {
	return nil, errNotImplemented
}

type fakeCalc struct {
	valuation *big.Int
	markdown  *big.Int
}

func (f *fakeCalc) Valuation(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return f.valuation, nil
}

func (f *fakeCalc) Markdown(context.Context, common.Address) (*big.Int, error) {
	return f.markdown, nil
}

type fakeLedger struct {
	reserve *fakeReserve
	bond    *fakeBond
	calc    *fakeCalc
}

func (f *fakeLedger) Bond(common.Address) BondContract { return f.bond }
func (f *fakeLedger) Reserve(common.Address) ReserveContract { return f.reserve }
func (f *fakeLedger) Calculator(common.Address) Calculator { return f.calc }
func (f *fakeLedger) RedeemHelper(common.Address) RedeemHelper {
	return nil
}

type fakeOracle map[string]float64

func (f fakeOracle) SpotPriceUSD(_ context.Context, symbol string) (float64, error) {
	p, ok := f[symbol]
	if !ok {
		return 0, errors.New("unknown symbol " + symbol)
	}
	return p, nil
}

func wei(units int64, decimals int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(units), new(big.Int).Exp(big.NewInt(10), big.NewInt(decimals), nil))
}

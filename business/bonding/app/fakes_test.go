package app

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/bond-desk/business/bonding/domain"
	"github.com/fd1az/bond-desk/internal/logger"
)

var errNotImplemented = errors.New("not implemented")

func wei(units int64, decimals int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(units), new(big.Int).Exp(big.NewInt(10), big.NewInt(decimals), nil))
}

type fakeTx struct {
	hash    common.Hash
	waitErr error
}

func (t *fakeTx) Hash() common.Hash { return t.hash }
func (t *fakeTx) Wait(context.Context) error { return t.waitErr }

type fakeBond struct {
	mu sync.Mutex

	terms          domain.Terms
	maxPayout      *big.Int
	debtRatio      *big.Int
	stdDebtRatio   *big.Int
	bondPrice      *big.Int
	bondPriceInUSD *big.Int
	payout         func(value *big.Int) *big.Int
	assetPrice     *big.Int
	err            error

	payoutCalls    atomic.Int32
	rawDebtCalls   atomic.Int32
	depositAmount  *big.Int
	depositPremium *big.Int
	tx             *fakeTx
	submitErr      error
}

func (f *fakeBond) Terms(context.Context) (domain.Terms, error) { return f.terms, f.err }
func (f *fakeBond) MaxPayout(context.Context) (*big.Int, error) { return f.maxPayout, f.err }
func (f *fakeBond) BondPrice(context.Context) (*big.Int, error) { return f.bondPrice, f.err }
func (f *fakeBond) AssetPrice(context.Context) (*big.Int, error) {
	return f.assetPrice, f.err
}

func (f *fakeBond) DebtRatio(context.Context) (*big.Int, error) {
	f.rawDebtCalls.Add(1)
	return f.debtRatio, f.err
}

func (f *fakeBond) StandardizedDebtRatio(context.Context) (*big.Int, error) {
	return f.stdDebtRatio, f.err
}

func (f *fakeBond) BondPriceInUSD(context.Context) (*big.Int, error) {
	return f.bondPriceInUSD, f.err
}

func (f *fakeBond) PayoutFor(_ context.Context, value *big.Int) (*big.Int, error) {
	f.payoutCalls.Add(1)
	return f.payout(value), f.err
}

func (f *fakeBond) Deposit(_ context.Context, amount, maxPremium *big.Int, _ common.Address) (domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.depositAmount, f.depositPremium = amount, maxPremium
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.tx, nil
}

func (f *fakeBond) Redeem(context.Context, common.Address, bool) (domain.Transaction, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.tx, nil
}

type fakeReserve struct {
	balance   *big.Int
	supply    *big.Int
	reserves  domain.Reserves
	allowance *big.Int
	tx        *fakeTx
	submitErr error

	approveCalls atomic.Int32
}

func (f *fakeReserve) BalanceOf(context.Context, common.Address) (*big.Int, error) {
	return f.balance, nil
}

func (f *fakeReserve) TotalSupply(context.Context) (*big.Int, error) {
	return f.supply, nil
}

func (f *fakeReserve) GetReserves(context.Context) (domain.Reserves, error) {
	return f.reserves, nil
}

func (f *fakeReserve) Allowance(context.Context, common.Address, common.Address) (*big.Int, error) {
	return f.allowance, nil
}

func (f *fakeReserve) Approve(context.Context, common.Address, *big.Int) (domain.Transaction, error) {
	f.approveCalls.Add(1)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.tx, nil
}

type fakeCalc struct {
	valuation      func(amount *big.Int) *big.Int
	markdown       *big.Int
	valuationCalls atomic.Int32
}

func (f *fakeCalc) Valuation(_ context.Context, _ common.Address, amount *big.Int) (*big.Int, error) {
	f.valuationCalls.Add(1)
	return f.valuation(amount), nil
}

func (f *fakeCalc) Markdown(context.Context, common.Address) (*big.Int, error) {
	if f.markdown == nil {
		return nil, errNotImplemented
	}
	return f.markdown, nil
}

type fakeHelper struct {
	tx        *fakeTx
	submitErr error
}

func (f *fakeHelper) RedeemAll(context.Context, common.Address, bool) (domain.Transaction, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.tx, nil
}

type fakeLedger struct {
	bond    *fakeBond
	reserve *fakeReserve
	calc    *fakeCalc
	helper  *fakeHelper
}

func (f *fakeLedger) Bond(common.Address) domain.BondContract { return f.bond }
func (f *fakeLedger) Reserve(common.Address) domain.ReserveContract { return f.reserve }
func (f *fakeLedger) Calculator(common.Address) domain.Calculator { return f.calc }
func (f *fakeLedger) RedeemHelper(common.Address) domain.RedeemHelper {
	return f.helper
}

type fakeOracle map[string]float64

func (f fakeOracle) SpotPriceUSD(_ context.Context, symbol string) (float64, error) {
	p, ok := f[symbol]
	if !ok {
		return 0, errors.New("unknown symbol " + symbol)
	}
	return p, nil
}

type fakeMarket struct {
	price float64
	err   error
}

func (f fakeMarket) MarketPrice(context.Context) (float64, error) {
	return f.price, f.err
}

type fakeWallet struct {
	addr      common.Address
	connected bool
}

func (f fakeWallet) Address() (common.Address, bool) {
	return f.addr, f.connected
}

// stableLedger returns a ledger for a stable bond priced at 9.5 USD whose
// payoutFor returns value/10.
func stableLedger() *fakeLedger {
	return &fakeLedger{
		bond: &fakeBond{
			terms:          domain.Terms{VestingTerm: 432000},
			maxPayout:      wei(1000, 9),
			stdDebtRatio:   big.NewInt(250_000_000),
			debtRatio:      big.NewInt(500_000_000),
			bondPrice:      big.NewInt(950),
			bondPriceInUSD: new(big.Int).Mul(big.NewInt(95), wei(1, 17)),
			payout:         func(v *big.Int) *big.Int { return new(big.Int).Div(v, big.NewInt(10)) },
			tx:             &fakeTx{hash: common.HexToHash("0xb0")},
		},
		reserve: &fakeReserve{
			balance:   wei(1234, 18),
			allowance: big.NewInt(0),
			tx:        &fakeTx{hash: common.HexToHash("0xa0")},
		},
		calc:   &fakeCalc{valuation: func(a *big.Int) *big.Int { return a }},
		helper: &fakeHelper{tx: &fakeTx{hash: common.HexToHash("0xc0")}},
	}
}

var testNetwork = domain.Network{
	ID:                    domain.Mainnet,
	Treasury:              common.HexToAddress("0x56D595ea5591D264bc1Ef9E073aF66685F0bFD31"),
	BondCalculator:        common.HexToAddress("0xca1c"),
	SpecialBondCalculator: common.HexToAddress("0x5ca1c"),
	RedeemHelper:          common.HexToAddress("0x4e1"),
}

func newTestEngine(ledger domain.Ledger, oracle domain.PriceOracle, market MarketPricer) *Engine {
	e, err := NewEngine(ledger, oracle, market, []domain.Network{testNetwork},
		EngineConfig{PayoutSymbol: "3DOG", LPTolerance: 0.05}, logger.Nop())
	if err != nil {
		panic(err)
	}
	return e
}

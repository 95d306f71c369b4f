package app

import (
	"context"
	"errors"
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/bond-desk/business/bonding/domain"
	"github.com/fd1az/bond-desk/internal/apperror"
	"github.com/fd1az/bond-desk/internal/asset"
)

const tolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Abs(b))
}

func mustBond(t *testing.T, name domain.Symbol) *domain.Bond {
	t.Helper()
	b, ok := domain.Lookup(name)
	if !ok {
		t.Fatalf("bond %s not found", name)
	}
	return b
}

func TestComputeStableScenario(t *testing.T) {
	ledger := stableLedger()
	e := newTestEngine(ledger, fakeOracle{}, fakeMarket{price: 10})

	q, err := e.ComputeBondDetails(context.Background(), mustBond(t, domain.DAI), decimal.Zero, domain.Mainnet)
	if err != nil {
		t.Fatalf("ComputeBondDetails: %v", err)
	}

	if !almostEqual(q.BondPriceUSD, 9.5) {
		t.Errorf("BondPriceUSD = %v, want 9.5", q.BondPriceUSD)
	}
	if !almostEqual(q.Discount, 0.05) {
		t.Errorf("Discount = %v, want 0.05", q.Discount)
	}
	if !almostEqual(q.DebtRatio, 0.25) {
		t.Errorf("DebtRatio = %v, want 0.25", q.DebtRatio)
	}
	if q.VestingTerm != 432000 {
		t.Errorf("VestingTerm = %d", q.VestingTerm)
	}
	if !almostEqual(q.MaxPayout, 1000) {
		t.Errorf("MaxPayout = %v, want 1000", q.MaxPayout)
	}
	if !almostEqual(q.TreasuryUSD, 1234) {
		t.Errorf("TreasuryUSD = %v, want 1234", q.TreasuryUSD)
	}
	if q.MarketPriceUSD != 10 {
		t.Errorf("MarketPriceUSD = %v", q.MarketPriceUSD)
	}
}

func TestComputeZeroAmountSkipsPayoutCalls(t *testing.T) {
	for _, name := range []domain.Symbol{domain.DAI, domain.DogEthLP} {
		t.Run(string(name), func(t *testing.T) {
			ledger := lpLedger()
			e := newTestEngine(ledger, lpOracle(), fakeMarket{price: 40000})

			q, err := e.ComputeBondDetails(context.Background(), mustBond(t, name), decimal.Zero, domain.Mainnet)
			if err != nil {
				t.Fatalf("ComputeBondDetails: %v", err)
			}
			if q.Payout != 0 {
				t.Errorf("Payout = %v, want 0", q.Payout)
			}
			if n := ledger.bond.payoutCalls.Load(); n != 0 {
				t.Errorf("payoutFor called %d times", n)
			}
			// The LP price reads valuation once for one LP token; the quote must not add more.
			wantValuations := int32(0)
			if name == domain.DogEthLP {
				wantValuations = 1
			}
			if n := ledger.calc.valuationCalls.Load(); n != wantValuations {
				t.Errorf("valuation called %d times, want %d", n, wantValuations)
			}
			if len(q.Notices) != 0 {
				t.Errorf("Notices = %v", q.Notices)
			}
		})
	}
}

func TestComputeDiscountIdentity(t *testing.T) {
	amounts := []string{"0", "1", "25.5", "100", "5000"}
	for _, name := range []domain.Symbol{domain.DAI, domain.ETH, domain.SHIB, domain.DogEthLP} {
		for _, a := range amounts {
			ledger := lpLedger()
			e := newTestEngine(ledger, lpOracle(), fakeMarket{price: 12.34})

			q, err := e.ComputeBondDetails(context.Background(), mustBond(t, name), decimal.RequireFromString(a), domain.Mainnet)
			if err != nil {
				t.Fatalf("%s/%s: %v", name, a, err)
			}
			want := (q.MarketPriceUSD - q.BondPriceUSD) / q.MarketPriceUSD
			if !almostEqual(q.Discount, want) {
				t.Errorf("%s/%s: Discount = %v, want %v", name, a, q.Discount, want)
			}
		}
	}
}

func TestComputePayout(t *testing.T) {
	tests := []struct {
		name       string
		bond       domain.Symbol
		amount     string
		wantPayout float64
		wantNotice domain.NoticeKind
	}{
		{name: "stable", bond: domain.DAI, amount: "100", wantPayout: 10},
		{name: "stable below floor", bond: domain.DAI, amount: "0.00001", wantPayout: 0, wantNotice: domain.NoticeAmountTooSmall},
		{name: "stable above max payout", bond: domain.DAI, amount: "100000", wantPayout: 10000, wantNotice: domain.NoticeExceedsMaxPayout},
		{name: "lp", bond: domain.DogEthLP, amount: "1", wantPayout: 2},
		{name: "lp below floor", bond: domain.DogEthLP, amount: "0.00000001", wantPayout: 0, wantNotice: domain.NoticeAmountTooSmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := lpLedger()
			e := newTestEngine(ledger, lpOracle(), fakeMarket{price: 10})

			q, err := e.ComputeBondDetails(context.Background(), mustBond(t, tt.bond), decimal.RequireFromString(tt.amount), domain.Mainnet)
			if err != nil {
				t.Fatalf("ComputeBondDetails: %v", err)
			}
			if !almostEqual(q.Payout, tt.wantPayout) {
				t.Errorf("Payout = %v, want %v", q.Payout, tt.wantPayout)
			}
			if tt.wantNotice == 0 {
				if len(q.Notices) != 0 {
					t.Errorf("unexpected notices %v", q.Notices)
				}
				return
			}
			if len(q.Notices) != 1 || !q.HasNotice(tt.wantNotice) {
				t.Fatalf("Notices = %v, want exactly one of kind %d", q.Notices, tt.wantNotice)
			}
		})
	}
}

func TestComputeMaxPayoutMessage(t *testing.T) {
	e := newTestEngine(stableLedger(), fakeOracle{}, fakeMarket{price: 10})

	q, err := e.ComputeBondDetails(context.Background(), mustBond(t, domain.DAI), decimal.NewFromInt(100000), domain.Mainnet)
	if err != nil {
		t.Fatal(err)
	}
	want := "You're trying to bond more than the maximum payout available! The maximum bond payout is 1000.00 3DOG."
	if len(q.Notices) != 1 || q.Notices[0].Text != want {
		t.Errorf("Notices = %v, want %q", q.Notices, want)
	}
}

func TestComputeMarketPriceDegrades(t *testing.T) {
	e := newTestEngine(stableLedger(), fakeOracle{}, fakeMarket{err: errors.New("coingecko down")})

	q, err := e.ComputeBondDetails(context.Background(), mustBond(t, domain.DAI), decimal.Zero, domain.Mainnet)
	if err != nil {
		t.Fatalf("market failure must not abort: %v", err)
	}
	if q.MarketPriceUSD != 0 || q.Discount != 0 {
		t.Errorf("MarketPriceUSD = %v, Discount = %v, want 0, 0", q.MarketPriceUSD, q.Discount)
	}
	if math.IsNaN(q.Discount) || math.IsInf(q.Discount, 0) {
		t.Error("discount is not finite")
	}
}

func TestComputeRawDebtRatio(t *testing.T) {
	addrs := domain.Addresses{Bond: common.HexToAddress("0xb"), Reserve: common.HexToAddress("0xe")}
	b := domain.NewStableBond(domain.BondParams{
		Name:             "cvx",
		DisplayName:      "CVX",
		Reserve:          asset.DAI,
		IsAvailable:      map[domain.NetworkID]bool{domain.Mainnet: true, domain.Testnet: true},
		Addresses:        map[domain.NetworkID]domain.Addresses{domain.Mainnet: addrs, domain.Testnet: addrs},
		UsesRawDebtRatio: true,
	})

	ledger := stableLedger()
	e := newTestEngine(ledger, fakeOracle{}, fakeMarket{price: 10})

	q, err := e.ComputeBondDetails(context.Background(), b, decimal.Zero, domain.Mainnet)
	if err != nil {
		t.Fatal(err)
	}
	if ledger.bond.rawDebtCalls.Load() != 1 {
		t.Error("debtRatio() not used")
	}
	if !almostEqual(q.DebtRatio, 0.5) {
		t.Errorf("DebtRatio = %v, want 0.5", q.DebtRatio)
	}
}

func TestComputeSpotScaledPrice(t *testing.T) {
	ledger := stableLedger()
	ledger.bond.bondPriceInUSD = wei(2, 18)
	e := newTestEngine(ledger, fakeOracle{"SHIB": 0.5}, fakeMarket{price: 4})

	q, err := e.ComputeBondDetails(context.Background(), mustBond(t, domain.SHIB), decimal.Zero, domain.Mainnet)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(q.BondPriceUSD, 1) {
		t.Errorf("BondPriceUSD = %v, want 1", q.BondPriceUSD)
	}
	if !almostEqual(q.Discount, 0.75) {
		t.Errorf("Discount = %v, want 0.75", q.Discount)
	}
	if !almostEqual(q.TreasuryUSD, 617) {
		t.Errorf("TreasuryUSD = %v, want 617", q.TreasuryUSD)
	}
}

func TestComputeLPScenario(t *testing.T) {
	ledger := lpLedger()
	e := newTestEngine(ledger, lpOracle(), fakeMarket{price: 40000})

	q, err := e.ComputeBondDetails(context.Background(), mustBond(t, domain.DogEthLP), decimal.Zero, domain.Mainnet)
	if err != nil {
		t.Fatalf("ComputeBondDetails: %v", err)
	}

	// bondPrice 0.50 * 150002 USD per LP / 2 calculator units per LP.
	if !almostEqual(q.BondPriceUSD, 37500.5) {
		t.Errorf("BondPriceUSD = %v, want 37500.5", q.BondPriceUSD)
	}
	if !almostEqual(q.Discount, (40000-37500.5)/40000) {
		t.Errorf("Discount = %v", q.Discount)
	}
	if !almostEqual(q.TreasuryUSD, 150002*1234) {
		t.Errorf("TreasuryUSD = %v, want %v", q.TreasuryUSD, 150002*1234)
	}
}

func TestComputeLPZeroSupply(t *testing.T) {
	ledger := lpLedger()
	ledger.reserve.supply = big.NewInt(0)
	e := newTestEngine(ledger, lpOracle(), fakeMarket{price: 1})

	_, err := e.ComputeBondDetails(context.Background(), mustBond(t, domain.DogEthLP), decimal.Zero, domain.Mainnet)
	if !apperror.HasCode(err, apperror.CodeDivisionByZero) {
		t.Fatalf("err = %v, want DIVISION_BY_ZERO", err)
	}
}

func TestComputeLedgerFailure(t *testing.T) {
	ledger := stableLedger()
	ledger.bond.err = errors.New("execution reverted")
	e := newTestEngine(ledger, fakeOracle{}, fakeMarket{price: 10})

	q, err := e.ComputeBondDetails(context.Background(), mustBond(t, domain.DAI), decimal.Zero, domain.Mainnet)
	if q != nil {
		t.Error("no partial quote may be returned")
	}
	if !apperror.HasCode(err, apperror.CodeLedgerCallFailed) {
		t.Fatalf("err = %v, want LEDGER_CALL_FAILED", err)
	}
	if got := apperror.UserMessage(err); !strings.Contains(got, "execution reverted") {
		t.Errorf("UserMessage = %q", got)
	}
}

// lpLedger extends stableLedger with a 3DOG/WETH pair of 1,000,000 3DOG and
// 500 WETH over 10 LP tokens, and a calculator valuing one LP token at 2.
func lpLedger() *fakeLedger {
	l := stableLedger()
	l.bond.bondPrice = big.NewInt(50)
	l.bond.payout = func(v *big.Int) *big.Int {
		if v.Cmp(wei(1, 18)) >= 0 {
			return new(big.Int).Div(v, big.NewInt(10))
		}
		return v
	}
	l.reserve.supply = wei(10, 18)
	l.reserve.reserves = domain.Reserves{
		Reserve0: wei(1_000_000, 9),
		Reserve1: wei(500, 18),
	}
	l.calc = &fakeCalc{
		valuation: func(a *big.Int) *big.Int {
			v := new(big.Int).Mul(a, big.NewInt(2))
			return v.Div(v, asset.Pow10(9))
		},
		markdown: wei(75001, 18),
	}
	return l
}

func lpOracle() fakeOracle {
	return fakeOracle{"3DOG": 0.00002, "WETH": 3000, "SHIB": 0.5}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/bond-desk/business/bonding/domain"
	"github.com/fd1az/bond-desk/internal/apperror"
	"github.com/fd1az/bond-desk/internal/asset"
	"github.com/fd1az/bond-desk/internal/logger"
)

const (
	tracerName = "bonding"
	meterName  = "bonding"
)

// Ledger value scales.
const (
	usdPriceDecimals    = 18
	debtRatioDecimals   = 9
	maxPayoutDecimals   = 9
	bondPriceDecimals   = 2
	lpValuationDecimals = 9
	lpMarkdownDecimals  = 18
	lpTokenUnitDecimals = 18
)

var _ QuoteComputer = (*Engine)(nil)

type engineMetrics struct {
	quotesTotal    metric.Int64Counter
	quoteFailures  metric.Int64Counter
	quoteLatency   metric.Float64Histogram
	lpDivergences  metric.Int64Counter
	marketDegraded metric.Int64Counter
}

// EngineConfig tunes valuation behavior.
type EngineConfig struct {
	// PayoutSymbol is the payout token named in user messages.
	PayoutSymbol string
	// LPTolerance is the relative divergence allowed between the pool-derived
	// and calculator-derived LP token values before an alert is raised.
	LPTolerance float64
}

// Engine computes bond quotes against the ledger and the price oracles.
type Engine struct {
	ledger   domain.Ledger
	oracle   domain.PriceOracle
	market   MarketPricer
	networks map[domain.NetworkID]domain.Network
	cfg      EngineConfig

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *engineMetrics
}

// NewEngine creates a valuation Engine.
func NewEngine(
	ledger domain.Ledger,
	oracle domain.PriceOracle,
	market MarketPricer,
	networks []domain.Network,
	cfg EngineConfig,
	log logger.LoggerInterface,
) (*Engine, error) {
	if cfg.PayoutSymbol == "" {
		cfg.PayoutSymbol = "3DOG"
	}

	e := &Engine{
		ledger:   ledger,
		oracle:   oracle,
		market:   market,
		networks: make(map[domain.NetworkID]domain.Network, len(networks)),
		cfg:      cfg,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}
	for _, n := range networks {
		e.networks[n.ID] = n
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return e, nil
}

func (e *Engine) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &engineMetrics{}

	e.metrics.quotesTotal, err = meter.Int64Counter(
		"bond_quotes_total",
		metric.WithDescription("Total bond quote computations"),
	)
	if err != nil {
		return err
	}

	e.metrics.quoteFailures, err = meter.Int64Counter(
		"bond_quote_failures_total",
		metric.WithDescription("Bond quote computations that failed"),
	)
	if err != nil {
		return err
	}

	e.metrics.quoteLatency, err = meter.Float64Histogram(
		"bond_quote_latency_ms",
		metric.WithDescription("Bond quote computation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	e.metrics.lpDivergences, err = meter.Int64Counter(
		"bond_lp_value_divergence_total",
		metric.WithDescription("LP token valuations where pool and calculator disagree beyond tolerance"),
	)
	if err != nil {
		return err
	}

	e.metrics.marketDegraded, err = meter.Int64Counter(
		"bond_market_price_degraded_total",
		metric.WithDescription("Quotes computed without a market price"),
	)
	if err != nil {
		return err
	}

	return nil
}

// ComputeBondDetails prices bond b on network net for a deposit of amount
// reserve units. Read failures abort the whole computation; only the market
// price degrades to zero.
func (e *Engine) ComputeBondDetails(ctx context.Context, b *domain.Bond, amount decimal.Decimal, net domain.NetworkID) (*domain.Quote, error) {
	ctx, span := e.tracer.Start(ctx, "bonding.compute_bond_details",
		trace.WithAttributes(
			attribute.String("bond", string(b.Name)),
			attribute.String("network", net.String()),
			attribute.String("amount", amount.String()),
		),
	)
	defer span.End()

	start := time.Now()
	attrs := metric.WithAttributes(attribute.String("bond", string(b.Name)))
	e.metrics.quotesTotal.Add(ctx, 1, attrs)

	q, err := e.compute(ctx, b, amount, net)

	e.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	if err != nil {
		e.metrics.quoteFailures.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Float64("bond_price_usd", q.BondPriceUSD),
		attribute.Float64("discount", q.Discount),
		attribute.Float64("payout", q.Payout),
	)
	span.SetStatus(codes.Ok, "")
	return q, nil
}

func (e *Engine) compute(ctx context.Context, b *domain.Bond, amount decimal.Decimal, netID domain.NetworkID) (*domain.Quote, error) {
	net, ok := e.networks[netID]
	if !ok {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("unknown network %s", netID)))
	}
	bondAddr, ok := b.BondAddress(netID)
	if !ok {
		return nil, apperror.New(apperror.CodeBondUnavailable,
			apperror.WithContext(fmt.Sprintf("%s on %s", b.Name, netID)))
	}

	deposit, err := asset.ParseDecimal(b.Reserve, amount)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("deposit amount"), apperror.WithCause(err))
	}

	bc := e.ledger.Bond(bondAddr)

	terms, err := bc.Terms(ctx)
	if err != nil {
		return nil, ledgerErr(err, "terms")
	}
	maxPayout, err := bc.MaxPayout(ctx)
	if err != nil {
		return nil, ledgerErr(err, "maxPayout")
	}

	debtRatio, err := e.debtRatio(ctx, b, bc)
	if err != nil {
		return nil, err
	}

	market := e.marketPrice(ctx, b)

	env := domain.TreasuryEnv{Network: net, Ledger: e.ledger, Oracle: e.oracle}

	bondPrice, err := e.bondPriceUSD(ctx, b, bc, env)
	if err != nil {
		return nil, err
	}

	q := &domain.Quote{
		Bond:           b.Name,
		BondPriceUSD:   bondPrice,
		Discount:       domain.Discount(market, bondPrice),
		DebtRatio:      debtRatio,
		VestingTerm:    terms.VestingTerm,
		MaxPayout:      asset.ToFloat(maxPayout, maxPayoutDecimals),
		MarketPriceUSD: market,
	}

	if err := e.quotePayout(ctx, b, bc, net, deposit, q); err != nil {
		return nil, err
	}

	if !deposit.IsZero() && q.Payout > q.MaxPayout {
		q.Notices = append(q.Notices, domain.Notice{
			Kind: domain.NoticeExceedsMaxPayout,
			Text: fmt.Sprintf("%s The maximum bond payout is %.2f %s.",
				apperror.DefaultMessage(apperror.CodeAmountExceedsMaximum), q.MaxPayout, e.cfg.PayoutSymbol),
		})
	}

	q.TreasuryUSD, err = b.Treasury.TreasuryValue(ctx, b, env)
	if err != nil {
		return nil, valuationErr(err, "treasury value")
	}

	q.ComputedAt = time.Now()
	return q, nil
}

func (e *Engine) debtRatio(ctx context.Context, b *domain.Bond, bc domain.BondContract) (float64, error) {
	var (
		raw *big.Int
		err error
	)
	if b.UsesRawDebtRatio {
		raw, err = bc.DebtRatio(ctx)
	} else {
		raw, err = bc.StandardizedDebtRatio(ctx)
	}
	if err != nil {
		return 0, ledgerErr(err, "debtRatio")
	}
	return asset.ToFloat(raw, debtRatioDecimals), nil
}

func (e *Engine) marketPrice(ctx context.Context, b *domain.Bond) float64 {
	if e.market == nil {
		return 0
	}
	p, err := e.market.MarketPrice(ctx)
	if err != nil {
		e.metrics.marketDegraded.Add(ctx, 1)
		e.logger.Warn(ctx, "market price unavailable, using zero", "bond", b.Name, "error", err)
		return 0
	}
	return p
}

func (e *Engine) bondPriceUSD(ctx context.Context, b *domain.Bond, bc domain.BondContract, env domain.TreasuryEnv) (float64, error) {
	switch b.Pricing {
	case domain.PriceInUSD:
		raw, err := bc.BondPriceInUSD(ctx)
		if err != nil {
			return 0, ledgerErr(err, "bondPriceInUSD")
		}
		return asset.ToFloat(raw, usdPriceDecimals), nil

	case domain.PriceInUSDTimesSpot:
		raw, err := bc.BondPriceInUSD(ctx)
		if err != nil {
			return 0, ledgerErr(err, "bondPriceInUSD")
		}
		spot, err := e.oracle.SpotPriceUSD(ctx, b.SpotSymbol)
		if err != nil {
			return 0, apperror.Wrap(err, apperror.CodeOracleUnavailable, "spot price "+b.SpotSymbol)
		}
		return asset.ToFloat(raw, usdPriceDecimals) * spot, nil

	case domain.PricePoolDerived:
		return e.lpBondPriceUSD(ctx, b, bc, env)

	default:
		return 0, apperror.New(apperror.CodeInvalidState,
			apperror.WithContext(fmt.Sprintf("bond %s has no price model", b.Name)))
	}
}

// lpBondPriceUSD anchors on the pool-derived LP token value. bondPrice() is the
// payout price in calculator units with two decimals, and valuation(1 LP) is
// the calculator value of one LP token with nine decimals, so
//
//	price = bondPrice/1e2 * lpTokenUSD / (valuation(1e18)/1e9)
//
// The calculator markdown is only used as a cross-check of lpTokenUSD.
func (e *Engine) lpBondPriceUSD(ctx context.Context, b *domain.Bond, bc domain.BondContract, env domain.TreasuryEnv) (float64, error) {
	pair, _ := b.ReserveAddress(env.Network.ID)

	pool, err := domain.PoolValue(ctx, b, env)
	if err != nil {
		return 0, valuationErr(err, "pool value")
	}

	raw, err := bc.BondPrice(ctx)
	if err != nil {
		return 0, ledgerErr(err, "bondPrice")
	}

	calc := e.ledger.Calculator(env.Network.SpecialBondCalculator)
	unit, err := calc.Valuation(ctx, pair, asset.Pow10(lpTokenUnitDecimals))
	if err != nil {
		return 0, ledgerErr(err, "valuation")
	}
	unitValue := asset.ToFloat(unit, lpValuationDecimals)

	e.crossCheckLP(ctx, b, calc, pair, unitValue, pool.PerTokenUSD)

	price, err := asset.Div(asset.ToFloat(raw, bondPriceDecimals)*pool.PerTokenUSD, unitValue)
	if err != nil {
		return 0, valuationErr(err, "lp bond price")
	}
	return price, nil
}

func (e *Engine) crossCheckLP(ctx context.Context, b *domain.Bond, calc domain.Calculator, pair common.Address, unitValue, poolValue float64) {
	markdown, err := calc.Markdown(ctx, pair)
	if err != nil {
		e.logger.Debug(ctx, "lp cross-check skipped", "bond", b.Name, "error", err)
		return
	}
	calcValue := unitValue * asset.ToFloat(markdown, lpMarkdownDecimals)
	if poolValue == 0 {
		return
	}
	divergence := math.Abs(calcValue-poolValue) / poolValue
	if divergence > e.cfg.LPTolerance {
		e.metrics.lpDivergences.Add(ctx, 1, metric.WithAttributes(attribute.String("bond", string(b.Name))))
		e.logger.Warn(ctx, "lp token value divergence",
			"bond", b.Name,
			"pool_usd", poolValue,
			"calculator_usd", calcValue,
			"divergence", divergence,
		)
	}
}

func (e *Engine) quotePayout(ctx context.Context, b *domain.Bond, bc domain.BondContract, net domain.Network, deposit asset.Amount, q *domain.Quote) error {
	if deposit.IsZero() {
		return nil
	}

	value := deposit.Raw()
	if b.IsLP() {
		pair, _ := b.ReserveAddress(net.ID)
		v, err := e.ledger.Calculator(net.SpecialBondCalculator).Valuation(ctx, pair, value)
		if err != nil {
			return ledgerErr(err, "valuation")
		}
		value = v
	}

	raw, err := bc.PayoutFor(ctx, value)
	if err != nil {
		return ledgerErr(err, "payoutFor")
	}

	if raw.Cmp(b.QuoteFloor) < 0 {
		q.Payout = 0
		q.Notices = append(q.Notices, domain.Notice{
			Kind: domain.NoticeAmountTooSmall,
			Text: apperror.DefaultMessage(apperror.CodeAmountTooSmall),
		})
		return nil
	}

	q.Payout = asset.ToFloat(raw, b.PayoutDecimals)
	return nil
}

func ledgerErr(err error, call string) error {
	return apperror.Wrap(err, apperror.CodeLedgerCallFailed, call)
}

func valuationErr(err error, what string) error {
	if errors.Is(err, asset.ErrDivisionByZero) || errors.Is(err, asset.ErrNonFinite) {
		return apperror.New(apperror.CodeDivisionByZero, apperror.WithContext(what), apperror.WithCause(err))
	}
	return apperror.Wrap(err, apperror.CodeLedgerCallFailed, what)
}

// Package ethereum binds the bonding ledger ports to contracts on an
// Ethereum JSON-RPC node.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/bond-desk/business/bonding/domain"
	"github.com/fd1az/bond-desk/internal/apperror"
	"github.com/fd1az/bond-desk/internal/circuitbreaker"
	"github.com/fd1az/bond-desk/internal/logger"
)

const (
	tracerName = "ledger"
	meterName  = "ledger"
)

var _ domain.Ledger = (*Ledger)(nil)

// Backend is the node surface the ledger needs. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Config tunes the ledger adapter.
type Config struct {
	// CallTimeout bounds each read call. Zero leaves the caller's deadline.
	CallTimeout time.Duration
	Gas         GasConfig
}

type ledgerMetrics struct {
	callsTotal   metric.Int64Counter
	callErrors   metric.Int64Counter
	callLatency  metric.Float64Histogram
	transactions metric.Int64Counter
}

// Ledger reads and writes bond, reserve, calculator and helper contracts.
type Ledger struct {
	backend Backend
	wallet  *KeyWallet
	cfg     Config

	bondABI   abi.ABI
	pairABI   abi.ABI
	calcABI   abi.ABI
	helperABI abi.ABI

	cb  *circuitbreaker.CircuitBreaker[[]byte]
	gas *gasPricer
	log logger.LoggerInterface

	tracer  trace.Tracer
	metrics *ledgerMetrics
}

// NewLedger creates a ledger over backend. wallet may be disconnected, in
// which case every write fails with WalletNotConnected.
func NewLedger(backend Backend, wallet *KeyWallet, cfg Config, log logger.LoggerInterface) (*Ledger, error) {
	l := &Ledger{
		backend: backend,
		wallet:  wallet,
		cfg:     cfg,
		log:     log,
		tracer:  otel.Tracer(tracerName),
	}

	for _, p := range []struct {
		dst  *abi.ABI
		name string
		def  string
	}{
		{&l.bondABI, "bond depository", BondDepositoryABI},
		{&l.pairABI, "pair", PairABI},
		{&l.calcABI, "bond calculator", BondCalculatorABI},
		{&l.helperABI, "redeem helper", RedeemHelperABI},
	} {
		parsed, err := abi.JSON(strings.NewReader(p.def))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s ABI: %w", p.name, err)
		}
		*p.dst = parsed
	}

	l.cb = circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("ledger-rpc"))

	if err := l.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	gas, err := newGasPricer(cfg.Gas, backend, otel.Meter(meterName), log)
	if err != nil {
		return nil, fmt.Errorf("failed to init gas pricer: %w", err)
	}
	l.gas = gas

	return l, nil
}

func (l *Ledger) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	l.metrics = &ledgerMetrics{}

	l.metrics.callsTotal, err = meter.Int64Counter(
		"ledger_calls_total",
		metric.WithDescription("Total contract read calls"),
	)
	if err != nil {
		return err
	}

	l.metrics.callErrors, err = meter.Int64Counter(
		"ledger_call_errors_total",
		metric.WithDescription("Total failed contract read calls"),
	)
	if err != nil {
		return err
	}

	l.metrics.callLatency, err = meter.Float64Histogram(
		"ledger_call_latency_ms",
		metric.WithDescription("Contract read latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	l.metrics.transactions, err = meter.Int64Counter(
		"ledger_transactions_total",
		metric.WithDescription("Total submitted transactions"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Close releases the gas price cache.
func (l *Ledger) Close() {
	l.gas.close()
}

// BlockNumber returns the node's head block. Used as a liveness check.
func (l *Ledger) BlockNumber(ctx context.Context) (uint64, error) {
	h, err := l.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, apperror.New(apperror.CodeEthereumConnectionFailed, apperror.WithCause(err))
	}
	return h.Number.Uint64(), nil
}

func (l *Ledger) Bond(addr common.Address) domain.BondContract {
	return &bondContract{l: l, addr: addr}
}

func (l *Ledger) Reserve(addr common.Address) domain.ReserveContract {
	return &reserveContract{l: l, addr: addr}
}

func (l *Ledger) Calculator(addr common.Address) domain.Calculator {
	return &calculator{l: l, addr: addr}
}

func (l *Ledger) RedeemHelper(addr common.Address) domain.RedeemHelper {
	return &redeemHelper{l: l, addr: addr}
}

// call executes a read-only contract call and returns the decoded outputs.
func (l *Ledger) call(ctx context.Context, addr common.Address, parsed *abi.ABI, method string, args ...any) ([]any, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.call",
		trace.WithAttributes(
			attribute.String("contract", addr.Hex()),
			attribute.String("method", method),
		),
	)
	defer span.End()

	attrs := metric.WithAttributes(attribute.String("method", method))
	start := time.Now()
	l.metrics.callsTotal.Add(ctx, 1, attrs)

	callData, err := parsed.Pack(method, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return nil, apperror.New(apperror.CodeInternalError,
			apperror.WithCause(err),
			apperror.WithContext("encode "+method))
	}

	if l.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.CallTimeout)
		defer cancel()
	}

	result, err := l.cb.Execute(func() ([]byte, error) {
		return l.backend.CallContract(ctx, ethereum.CallMsg{
			To:   &addr,
			Data: callData,
		}, nil)
	})
	l.metrics.callLatency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	if err != nil {
		l.metrics.callErrors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")
		if circuitbreaker.IsOpen(err) {
			return nil, apperror.New(apperror.CodeCircuitOpen,
				apperror.WithCause(err),
				apperror.WithContext(method))
		}
		return nil, apperror.New(apperror.CodeLedgerCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s on %s", method, addr.Hex())))
	}

	outputs, err := parsed.Unpack(method, result)
	if err != nil {
		l.metrics.callErrors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return nil, apperror.New(apperror.CodeLedgerCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("decode "+method))
	}

	span.SetStatus(codes.Ok, "")
	return outputs, nil
}

// callBig is call for methods returning a single integer.
func (l *Ledger) callBig(ctx context.Context, addr common.Address, parsed *abi.ABI, method string, args ...any) (*big.Int, error) {
	outputs, err := l.call(ctx, addr, parsed, method, args...)
	if err != nil {
		return nil, err
	}
	if len(outputs) < 1 {
		return nil, unexpectedOutputs(method, len(outputs))
	}
	v, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, unexpectedOutputs(method, len(outputs))
	}
	return v, nil
}

func unexpectedOutputs(method string, n int) error {
	return apperror.New(apperror.CodeLedgerCallFailed,
		apperror.WithContext(fmt.Sprintf("unexpected %s outputs: %d", method, n)))
}

// transact signs and submits a state-changing call.
func (l *Ledger) transact(ctx context.Context, addr common.Address, parsed abi.ABI, method string, args ...any) (domain.Transaction, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.transact",
		trace.WithAttributes(
			attribute.String("contract", addr.Hex()),
			attribute.String("method", method),
		),
	)
	defer span.End()

	opts, err := l.wallet.transactOpts(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "wallet not connected")
		return nil, err
	}

	gasPrice, err := l.gas.price(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gas price")
		return nil, err
	}
	opts.GasPrice = gasPrice

	contract := bind.NewBoundContract(addr, parsed, l.backend, l.backend, l.backend)
	tx, err := contract.Transact(opts, method, args...)
	l.metrics.transactions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.Bool("submitted", err == nil),
	))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		return nil, apperror.New(apperror.CodeLedgerCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(method))
	}

	span.SetAttributes(attribute.String("tx_hash", tx.Hash().Hex()))
	span.SetStatus(codes.Ok, "submitted")
	l.log.Info(ctx, "transaction submitted",
		"method", method,
		"contract", addr.Hex(),
		"tx_hash", tx.Hash().Hex(),
	)

	return &transaction{tx: tx, backend: l.backend}, nil
}

// transaction waits on a submitted transaction's receipt.
type transaction struct {
	tx      *types.Transaction
	backend Backend
}

func (t *transaction) Hash() common.Hash {
	return t.tx.Hash()
}

func (t *transaction) Wait(ctx context.Context) error {
	receipt, err := bind.WaitMined(ctx, t.backend, t.tx)
	if err != nil {
		return apperror.New(apperror.CodeLedgerCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("wait "+t.tx.Hash().Hex()))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return apperror.New(apperror.CodeTransactionReverted,
			apperror.WithContext(t.tx.Hash().Hex()))
	}
	return nil
}

type bondContract struct {
	l    *Ledger
	addr common.Address
}

func (b *bondContract) Terms(ctx context.Context) (domain.Terms, error) {
	outputs, err := b.l.call(ctx, b.addr, &b.l.bondABI, "terms")
	if err != nil {
		return domain.Terms{}, err
	}
	if len(outputs) < 6 {
		return domain.Terms{}, unexpectedOutputs("terms", len(outputs))
	}

	vals := make([]*big.Int, 6)
	for i := range vals {
		v, ok := outputs[i].(*big.Int)
		if !ok {
			return domain.Terms{}, unexpectedOutputs("terms", len(outputs))
		}
		vals[i] = v
	}

	return domain.Terms{
		ControlVariable: vals[0],
		VestingTerm:     vals[1].Uint64(),
		MinimumPrice:    vals[2],
		MaxPayout:       vals[3],
		Fee:             vals[4],
		MaxDebt:         vals[5],
	}, nil
}

func (b *bondContract) MaxPayout(ctx context.Context) (*big.Int, error) {
	return b.l.callBig(ctx, b.addr, &b.l.bondABI, "maxPayout")
}

func (b *bondContract) DebtRatio(ctx context.Context) (*big.Int, error) {
	return b.l.callBig(ctx, b.addr, &b.l.bondABI, "debtRatio")
}

func (b *bondContract) StandardizedDebtRatio(ctx context.Context) (*big.Int, error) {
	return b.l.callBig(ctx, b.addr, &b.l.bondABI, "standardizedDebtRatio")
}

func (b *bondContract) BondPrice(ctx context.Context) (*big.Int, error) {
	return b.l.callBig(ctx, b.addr, &b.l.bondABI, "bondPrice")
}

func (b *bondContract) BondPriceInUSD(ctx context.Context) (*big.Int, error) {
	return b.l.callBig(ctx, b.addr, &b.l.bondABI, "bondPriceInUSD")
}

func (b *bondContract) PayoutFor(ctx context.Context, value *big.Int) (*big.Int, error) {
	return b.l.callBig(ctx, b.addr, &b.l.bondABI, "payoutFor", value)
}

func (b *bondContract) AssetPrice(ctx context.Context) (*big.Int, error) {
	return b.l.callBig(ctx, b.addr, &b.l.bondABI, "assetPrice")
}

func (b *bondContract) Deposit(ctx context.Context, amount, maxPremium *big.Int, depositor common.Address) (domain.Transaction, error) {
	return b.l.transact(ctx, b.addr, b.l.bondABI, "deposit", amount, maxPremium, depositor)
}

func (b *bondContract) Redeem(ctx context.Context, recipient common.Address, stake bool) (domain.Transaction, error) {
	return b.l.transact(ctx, b.addr, b.l.bondABI, "redeem", recipient, stake)
}

type reserveContract struct {
	l    *Ledger
	addr common.Address
}

func (r *reserveContract) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return r.l.callBig(ctx, r.addr, &r.l.pairABI, "balanceOf", owner)
}

func (r *reserveContract) TotalSupply(ctx context.Context) (*big.Int, error) {
	return r.l.callBig(ctx, r.addr, &r.l.pairABI, "totalSupply")
}

func (r *reserveContract) GetReserves(ctx context.Context) (domain.Reserves, error) {
	outputs, err := r.l.call(ctx, r.addr, &r.l.pairABI, "getReserves")
	if err != nil {
		return domain.Reserves{}, err
	}
	if len(outputs) < 2 {
		return domain.Reserves{}, unexpectedOutputs("getReserves", len(outputs))
	}
	r0, ok0 := outputs[0].(*big.Int)
	r1, ok1 := outputs[1].(*big.Int)
	if !ok0 || !ok1 {
		return domain.Reserves{}, unexpectedOutputs("getReserves", len(outputs))
	}
	return domain.Reserves{Reserve0: r0, Reserve1: r1}, nil
}

func (r *reserveContract) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return r.l.callBig(ctx, r.addr, &r.l.pairABI, "allowance", owner, spender)
}

func (r *reserveContract) Approve(ctx context.Context, spender common.Address, amount *big.Int) (domain.Transaction, error) {
	return r.l.transact(ctx, r.addr, r.l.pairABI, "approve", spender, amount)
}

type calculator struct {
	l    *Ledger
	addr common.Address
}

func (c *calculator) Valuation(ctx context.Context, pair common.Address, amount *big.Int) (*big.Int, error) {
	return c.l.callBig(ctx, c.addr, &c.l.calcABI, "valuation", pair, amount)
}

func (c *calculator) Markdown(ctx context.Context, pair common.Address) (*big.Int, error) {
	return c.l.callBig(ctx, c.addr, &c.l.calcABI, "markdown", pair)
}

type redeemHelper struct {
	l    *Ledger
	addr common.Address
}

func (h *redeemHelper) RedeemAll(ctx context.Context, recipient common.Address, stake bool) (domain.Transaction, error) {
	return h.l.transact(ctx, h.addr, h.l.helperABI, "redeemAll", recipient, stake)
}

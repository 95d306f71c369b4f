package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

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

// Revert reasons reported when the account cannot cover a transfer.
var underflowReasons = []string{"ds-math-sub-underflow", "subtraction underflow"}

// approveAllowance is the effectively unlimited allowance granted on approve.
var approveAllowance = new(big.Int).Mul(big.NewInt(1_000_000_000), asset.Pow10(18))

// OrchestratorConfig tunes lifecycle actions.
type OrchestratorConfig struct {
	// Slippage inflates the current bond price into the deposit's maxPremium.
	Slippage decimal.Decimal
}

// Orchestrator sequences approve, bond and redeem actions against the ledger.
type Orchestrator struct {
	ledger    domain.Ledger
	wallet    Wallet
	store     *Store
	refresher *Refresher
	balances  *BalanceService
	network   domain.Network
	cfg       OrchestratorConfig

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	txTotal metric.Int64Counter
}

// NewOrchestrator creates an Orchestrator for network.
func NewOrchestrator(
	ledger domain.Ledger,
	wallet Wallet,
	store *Store,
	refresher *Refresher,
	balances *BalanceService,
	network domain.Network,
	cfg OrchestratorConfig,
	log logger.LoggerInterface,
) (*Orchestrator, error) {
	txTotal, err := otel.Meter(meterName).Int64Counter(
		"bond_tx_total",
		metric.WithDescription("Lifecycle transactions by type and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return &Orchestrator{
		ledger:    ledger,
		wallet:    wallet,
		store:     store,
		refresher: refresher,
		balances:  balances,
		network:   network,
		cfg:       cfg,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
		txTotal:   txTotal,
	}, nil
}

// Approve grants the bond contract an allowance on the reserve token. An
// existing allowance completes immediately without a transaction. Once an
// approval was sent the quote is recomputed whether or not it confirmed.
func (o *Orchestrator) Approve(ctx context.Context, b *domain.Bond) error {
	ctx, span := o.tracer.Start(ctx, "bonding.approve", trace.WithAttributes(attribute.String("bond", string(b.Name))))
	defer span.End()

	account, err := o.account()
	if err != nil {
		return o.reject(ctx, span, "", err)
	}
	key := domain.ApproveType(b.Name)
	bondAddr, reserveAddr, err := o.addresses(b)
	if err != nil {
		return o.reject(ctx, span, key, err)
	}
	reserve := o.ledger.Reserve(reserveAddr)

	o.transition(key, domain.ActionSubmitting)

	allowance, err := reserve.Allowance(ctx, account, bondAddr)
	if err != nil {
		return o.fail(ctx, span, key, err)
	}
	if allowance.Sign() > 0 {
		o.transition(key, domain.ActionConfirmed)
		o.store.Dispatch(MessageAppended{Message: domain.NewUserMessage(domain.SeverityInfo, "Approval completed.")})
		o.recompute(ctx, b)
		return nil
	}

	sent, err := o.submit(ctx, span, key, "Approving "+b.DisplayName, func() (domain.Transaction, error) {
		return reserve.Approve(ctx, bondAddr, approveAllowance)
	})
	if sent {
		o.recompute(ctx, b)
	}
	return err
}

// Bond deposits amount reserve units into b, accepting a bond price up to the
// configured slippage above the current one.
func (o *Orchestrator) Bond(ctx context.Context, b *domain.Bond, amount decimal.Decimal) error {
	ctx, span := o.tracer.Start(ctx, "bonding.bond", trace.WithAttributes(
		attribute.String("bond", string(b.Name)),
		attribute.String("amount", amount.String()),
	))
	defer span.End()

	account, err := o.account()
	if err != nil {
		return o.reject(ctx, span, "", err)
	}
	key := domain.BondType(b.Name)
	bondAddr, _, err := o.addresses(b)
	if err != nil {
		return o.reject(ctx, span, key, err)
	}
	deposit, err := asset.ParseDecimal(b.Reserve, amount)
	if err != nil {
		return o.reject(ctx, span, key, apperror.New(apperror.CodeInvalidInput, apperror.WithCause(err)))
	}
	bc := o.ledger.Bond(bondAddr)

	o.transition(key, domain.ActionSubmitting)

	price, err := bc.BondPrice(ctx)
	if err != nil {
		return o.fail(ctx, span, key, err)
	}
	maxPremium := o.maxPremium(price)

	_, err = o.submit(ctx, span, key, "Bonding "+b.DisplayName, func() (domain.Transaction, error) {
		return bc.Deposit(ctx, deposit.Raw(), maxPremium, account)
	})
	if err != nil {
		return err
	}

	o.recompute(ctx, b)
	return nil
}

// maxPremium returns price * (1 + slippage) rounded to an integer.
func (o *Orchestrator) maxPremium(price *big.Int) *big.Int {
	factor := decimal.NewFromInt(1).Add(o.cfg.Slippage)
	return decimal.NewFromBigInt(price, 0).Mul(factor).Round(0).BigInt()
}

// Redeem claims the vested payout of b, optionally restaking it.
func (o *Orchestrator) Redeem(ctx context.Context, b *domain.Bond, autostake bool) error {
	ctx, span := o.tracer.Start(ctx, "bonding.redeem", trace.WithAttributes(
		attribute.String("bond", string(b.Name)),
		attribute.Bool("autostake", autostake),
	))
	defer span.End()

	account, err := o.account()
	if err != nil {
		return o.reject(ctx, span, "", err)
	}
	key := domain.RedeemType(b.Name, autostake)
	bondAddr, _, err := o.addresses(b)
	if err != nil {
		return o.reject(ctx, span, key, err)
	}
	bc := o.ledger.Bond(bondAddr)

	o.transition(key, domain.ActionSubmitting)

	_, err = o.submit(ctx, span, key, "Redeeming "+b.DisplayName, func() (domain.Transaction, error) {
		return bc.Redeem(ctx, account, autostake)
	})
	if err != nil {
		return err
	}

	o.recompute(ctx, b)
	o.refreshBalances(ctx, account)
	return nil
}

// RedeemAll claims every bond in one helper transaction and then recomputes
// each of bonds.
func (o *Orchestrator) RedeemAll(ctx context.Context, bonds []*domain.Bond, autostake bool) error {
	ctx, span := o.tracer.Start(ctx, "bonding.redeem_all", trace.WithAttributes(
		attribute.Int("bonds", len(bonds)),
		attribute.Bool("autostake", autostake),
	))
	defer span.End()

	account, err := o.account()
	if err != nil {
		return o.reject(ctx, span, "", err)
	}
	key := domain.RedeemAllType(autostake)
	helper := o.ledger.RedeemHelper(o.network.RedeemHelper)

	o.transition(key, domain.ActionSubmitting)

	_, err = o.submit(ctx, span, key, "Redeeming All Bonds", func() (domain.Transaction, error) {
		return helper.RedeemAll(ctx, account, autostake)
	})
	if err != nil {
		return err
	}

	for _, b := range bonds {
		o.recompute(ctx, b)
	}
	o.refreshBalances(ctx, account)
	return nil
}

// submit sends a transaction and tracks it as pending until it is mined or
// fails. sent reports whether the transaction got a hash.
func (o *Orchestrator) submit(ctx context.Context, span trace.Span, key, text string, send func() (domain.Transaction, error)) (sent bool, err error) {
	tx, err := send()
	if err != nil {
		return false, o.fail(ctx, span, key, err)
	}

	hash := tx.Hash()
	span.SetAttributes(attribute.String("tx_hash", hash.Hex()))
	o.store.Dispatch(PendingAdded{Tx: domain.PendingTransaction{Hash: hash, Text: text, Type: key}})
	defer o.store.Dispatch(PendingCleared{Hash: hash})

	o.transition(key, domain.ActionAwaitingConfirmation)
	o.logger.Info(ctx, "transaction submitted", "type", key, "hash", hash.Hex())

	if err := tx.Wait(ctx); err != nil {
		return true, o.fail(ctx, span, key, err)
	}

	o.transition(key, domain.ActionConfirmed)
	o.txTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", key), attribute.String("outcome", "confirmed")))
	o.logger.Info(ctx, "transaction confirmed", "type", key, "hash", hash.Hex())
	span.SetStatus(codes.Ok, "")
	return true, nil
}

// fail ends an action that reached the ledger.
func (o *Orchestrator) fail(ctx context.Context, span trace.Span, key string, err error) error {
	appErr := classify(err)
	if sc := span.SpanContext(); sc.HasTraceID() {
		appErr.WithTraceID(sc.TraceID().String())
	}
	o.transition(key, domain.ActionFailed)
	o.txTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", key),
		attribute.String("outcome", "failed"),
		attribute.String("code", string(apperror.GetCode(appErr))),
	))
	o.logger.Error(ctx, "bond action failed", "type", key, "error", appErr.ToLog())
	return o.notify(span, appErr)
}

// reject ends an action before anything was sent.
func (o *Orchestrator) reject(ctx context.Context, span trace.Span, key string, err error) error {
	o.logger.Warn(ctx, "bond action rejected", "type", key, "error", err)
	return o.notify(span, err)
}

func (o *Orchestrator) notify(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	o.store.Dispatch(MessageAppended{Message: domain.NewUserMessage(domain.SeverityError, apperror.UserMessage(err))})
	return err
}

func (o *Orchestrator) transition(key string, next domain.ActionState) {
	o.store.Dispatch(ActionChanged{Key: key, State: next})
}

func (o *Orchestrator) account() (common.Address, error) {
	addr, ok := o.wallet.Address()
	if !ok {
		return common.Address{}, apperror.New(apperror.CodeWalletNotConnected)
	}
	return addr, nil
}

func (o *Orchestrator) addresses(b *domain.Bond) (bond, reserve common.Address, err error) {
	a, ok := b.Addresses[o.network.ID]
	if !ok {
		return common.Address{}, common.Address{}, apperror.New(apperror.CodeBondUnavailable,
			apperror.WithContext(fmt.Sprintf("%s on %s", b.Name, o.network.ID)))
	}
	return a.Bond, a.Reserve, nil
}

func (o *Orchestrator) recompute(ctx context.Context, b *domain.Bond) {
	if o.refresher == nil {
		return
	}
	if err := o.refresher.Recompute(ctx, b); err != nil {
		o.logger.Warn(ctx, "recompute after action failed", "bond", b.Name, "error", err)
	}
}

func (o *Orchestrator) refreshBalances(ctx context.Context, account common.Address) {
	if o.balances == nil {
		return
	}
	if err := o.balances.Refresh(ctx, account); err != nil {
		o.logger.Warn(ctx, "balance refresh failed", "error", err)
	}
}

// classify maps ledger failures onto the error taxonomy. Underflow reverts
// become InsufficientBalance; everything else keeps the ledger's message.
func classify(err error) *apperror.AppError {
	msg := err.Error()
	for _, reason := range underflowReasons {
		if strings.Contains(msg, reason) {
			return apperror.New(apperror.CodeInsufficientBalance, apperror.WithCause(err))
		}
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.New(apperror.CodeLedgerCallFailed, apperror.WithCause(err))
}

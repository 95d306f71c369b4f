package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/bond-desk/business/bonding/domain"
	"github.com/fd1az/bond-desk/internal/logger"
)

// Refresher runs quote computations and publishes their results to the Store.
type Refresher struct {
	engine  QuoteComputer
	store   *Store
	network domain.NetworkID
	logger  logger.LoggerInterface

	mu      sync.Mutex
	amounts map[domain.Symbol]decimal.Decimal

	staleDiscards metric.Int64Counter
}

// NewRefresher creates a Refresher publishing quotes for network.
func NewRefresher(engine QuoteComputer, store *Store, network domain.NetworkID, log logger.LoggerInterface) (*Refresher, error) {
	stale, err := otel.Meter(meterName).Int64Counter(
		"bond_quote_stale_discards_total",
		metric.WithDescription("Quote results discarded because a newer request was issued"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return &Refresher{
		engine:        engine,
		store:         store,
		network:       network,
		logger:        log,
		amounts:       make(map[domain.Symbol]decimal.Decimal),
		staleDiscards: stale,
	}, nil
}

// Refresh recomputes b for amount and remembers amount for later recomputes.
func (r *Refresher) Refresh(ctx context.Context, b *domain.Bond, amount decimal.Decimal) error {
	return r.refresh(ctx, b, amount, nil)
}

// Recompute recomputes b with the last amount it was refreshed with.
func (r *Refresher) Recompute(ctx context.Context, b *domain.Bond) error {
	return r.refresh(ctx, b, r.lastAmount(b.Name), nil)
}

func (r *Refresher) lastAmount(bond domain.Symbol) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.amounts[bond]
}

// refresh issues a token before computing so that a later call always
// supersedes an earlier one. live, when set, is consulted before publishing.
func (r *Refresher) refresh(ctx context.Context, b *domain.Bond, amount decimal.Decimal, live func() bool) error {
	r.mu.Lock()
	r.amounts[b.Name] = amount
	r.mu.Unlock()

	token := r.store.BeginQuote(b.Name)

	q, err := r.engine.ComputeBondDetails(ctx, b, amount, r.network)

	if live != nil && !live() {
		r.store.Dispatch(QuoteAbandoned{Bond: b.Name, Token: token})
		return nil
	}

	if err != nil {
		if !r.store.Dispatch(QuoteRejected{Bond: b.Name, Token: token, Err: err}) {
			r.discarded(ctx, b.Name, token)
			return nil
		}
		r.logger.Error(ctx, "bond quote failed", "bond", b.Name, "error", err)
		return err
	}

	if !r.store.Dispatch(QuoteFulfilled{Token: token, Quote: q}) {
		r.discarded(ctx, b.Name, token)
	}
	return nil
}

func (r *Refresher) discarded(ctx context.Context, bond domain.Symbol, token uint64) {
	r.staleDiscards.Add(ctx, 1, metric.WithAttributes(attribute.String("bond", string(bond))))
	r.logger.Debug(ctx, "stale quote discarded", "bond", bond, "token", token)
}

package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/bond-desk/business/bonding/domain"
	"github.com/fd1az/bond-desk/internal/logger"
)

// RefreshMode selects the periodic cadence of a subscription.
type RefreshMode int

const (
	// ModeCard refreshes on the long interval indefinitely.
	ModeCard RefreshMode = iota
	// ModeTable refreshes on the short interval until its retry budget runs out.
	ModeTable
)

// SchedulerConfig holds refresh timings.
type SchedulerConfig struct {
	Debounce         time.Duration
	CardInterval     time.Duration
	TableInterval    time.Duration
	TableRetryBudget int
}

// Scheduler drives debounced and periodic quote refreshes.
type Scheduler struct {
	refresher *Refresher
	cfg       SchedulerConfig
	logger    logger.LoggerInterface
}

// NewScheduler creates a Scheduler.
func NewScheduler(refresher *Refresher, cfg SchedulerConfig, log logger.LoggerInterface) *Scheduler {
	return &Scheduler{refresher: refresher, cfg: cfg, logger: log}
}

// Subscription is one subscriber's refresh loop for one bond.
type Subscription struct {
	bond    *domain.Bond
	amounts chan decimal.Decimal
	cancel  context.CancelFunc
	done    chan struct{}
	closed  atomic.Bool
	once    sync.Once
}

// Subscribe starts refreshing b. A computation is issued immediately; later
// ones follow amount changes after the debounce delay and the periodic timer
// of mode. Computations outlive Close but their results are discarded.
func (s *Scheduler) Subscribe(ctx context.Context, b *domain.Bond, mode RefreshMode, amount decimal.Decimal) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		bond:    b,
		amounts: make(chan decimal.Decimal),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	interval, budget := s.cfg.CardInterval, -1
	if mode == ModeTable {
		interval, budget = s.cfg.TableInterval, s.cfg.TableRetryBudget
	}

	go s.run(ctx, sub, amount, interval, budget)
	return sub
}

func (s *Scheduler) run(ctx context.Context, sub *Subscription, amount decimal.Decimal, interval time.Duration, budget int) {
	defer close(sub.done)

	// In-flight computations survive teardown.
	callCtx := context.WithoutCancel(ctx)
	live := func() bool { return !sub.closed.Load() }
	trigger := func(a decimal.Decimal) {
		go func() {
			if err := s.refresher.refresh(callCtx, sub.bond, a, live); err != nil {
				s.logger.Debug(callCtx, "scheduled refresh failed", "bond", sub.bond.Name, "error", err)
			}
		}()
	}

	trigger(amount)

	debounce := time.NewTimer(s.cfg.Debounce)
	debounce.Stop()
	defer debounce.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	tick := ticker.C
	if budget == 0 {
		ticker.Stop()
		tick = nil
	}

	for {
		select {
		case <-ctx.Done():
			return

		case a := <-sub.amounts:
			amount = a
			debounce.Reset(s.cfg.Debounce)

		case <-debounce.C:
			trigger(amount)

		case <-tick:
			trigger(amount)
			if budget > 0 {
				budget--
				if budget == 0 {
					ticker.Stop()
					tick = nil
				}
			}
		}
	}
}

// SetAmount records a new input amount and restarts the debounce delay.
func (sub *Subscription) SetAmount(a decimal.Decimal) {
	select {
	case sub.amounts <- a:
	case <-sub.done:
	}
}

// Close stops the timers. Results of computations still in flight are discarded.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		sub.closed.Store(true)
		sub.cancel()
		<-sub.done
	})
}

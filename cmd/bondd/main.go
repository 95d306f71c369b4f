// Package main is the entry point for the bond desk.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/fd1az/bond-desk/business/bonding"
	bondingApp "github.com/fd1az/bond-desk/business/bonding/app"
	bondingDI "github.com/fd1az/bond-desk/business/bonding/di"
	"github.com/fd1az/bond-desk/business/bonding/domain"
	"github.com/fd1az/bond-desk/business/pricing"
	pricingDI "github.com/fd1az/bond-desk/business/pricing/di"
	"github.com/fd1az/bond-desk/internal/apm"
	"github.com/fd1az/bond-desk/internal/config"
	"github.com/fd1az/bond-desk/internal/di"
	"github.com/fd1az/bond-desk/internal/health"
	"github.com/fd1az/bond-desk/internal/logger"
	"github.com/fd1az/bond-desk/internal/metrics"
	"github.com/fd1az/bond-desk/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const (
	actionWatch     = "watch"
	actionApprove   = "approve"
	actionBond      = "bond"
	actionRedeem    = "redeem"
	actionRedeemAll = "redeem-all"
)

type options struct {
	configPath string
	action     string
	bond       string
	amount     string
	autostake  bool
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.action, "action", actionWatch, "watch | approve | bond | redeem | redeem-all")
	flag.StringVar(&opts.bond, "bond", "", "Bond name, e.g. dai or dog_eth_lp")
	flag.StringVar(&opts.amount, "amount", "0", "Reserve amount to quote or deposit")
	flag.BoolVar(&opts.autostake, "autostake", false, "Stake payouts on redeem")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("bondd %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, apm.TraceID)
	// Library logs go through the same handler.
	slog.SetDefault(log.Slog())
	log.Info(ctx, "starting bond desk",
		"version", version,
		"environment", cfg.App.Environment,
		"action", opts.action,
	)

	if cfg.Telemetry.Enabled {
		traceCfg, err := traceConfig(cfg.Telemetry)
		if err != nil {
			return err
		}
		traceProvider := apm.NewTraceProvider(traceCfg, log)
		defer traceProvider.Stop()

		mp, err := metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
		)
		if err != nil {
			log.Warn(ctx, "metrics disabled", "error", err)
		} else {
			defer shutdown(ctx, log, "meter provider", mp.Shutdown)

			promServer := metrics.NewPrometheusServer(cfg.Telemetry.PrometheusPort, log)
			promServer.Start(ctx)
			defer shutdown(ctx, log, "metrics server", promServer.Stop)
		}
	}

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	modules := []monolith.Module{
		&pricing.Module{}, // Must be first - bonding consumes its oracle
		&bonding.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if cfg.Health.Enabled {
		healthServer := health.NewServer(cfg.Health.Port, version, log)
		ledger := bondingDI.GetLedger(mono.Services())
		prices := pricingDI.GetPricingService(mono.Services())
		healthServer.RegisterCheck("ethereum", health.ErrorCheck(func(ctx context.Context) error {
			_, err := ledger.BlockNumber(ctx)
			return err
		}))
		healthServer.RegisterCheck("oracle", health.ErrorCheck(func(ctx context.Context) error {
			_, err := prices.MarketPrice(ctx)
			return err
		}))
		if err := healthServer.Start(ctx); err != nil {
			log.Warn(ctx, "failed to start health server", "error", err)
		}
		defer shutdown(ctx, log, "health server", healthServer.Stop)
	}

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	network := domain.NetworkID(cfg.Ethereum.NetworkID)
	if opts.action == actionWatch {
		return watch(ctx, mono.Services(), network, opts, log)
	}
	return act(ctx, mono.Services(), network, opts, log)
}

// watch keeps a card-mode refresh loop running for every available bond
// and logs each fresh quote until ctx is cancelled.
func watch(ctx context.Context, services di.ServiceRegistry, network domain.NetworkID, opts options, log *logger.Logger) error {
	amount, err := parseAmount(opts.amount)
	if err != nil {
		return err
	}

	store := bondingDI.GetStore(services)
	scheduler := bondingDI.GetScheduler(services)

	var mu sync.Mutex
	seen := make(map[domain.Symbol]time.Time)
	seenMessages := 0
	unsubscribe := store.Subscribe(func(s bondingApp.State) {
		mu.Lock()
		defer mu.Unlock()
		for name, q := range s.Quotes {
			if q == nil || !q.ComputedAt.After(seen[name]) {
				continue
			}
			seen[name] = q.ComputedAt
			log.Info(ctx, "quote",
				"bond", string(name),
				"price_usd", q.BondPriceUSD,
				"discount", q.Discount,
				"debt_ratio", q.DebtRatio,
				"payout", q.Payout,
				"max_payout", q.MaxPayout,
				"treasury_usd", q.TreasuryUSD,
				"notices", len(q.Notices),
			)
		}
		for _, m := range s.Messages[min(seenMessages, len(s.Messages)):] {
			log.Info(ctx, "message", "severity", string(m.Severity), "text", m.Text)
		}
		seenMessages = len(s.Messages)
	})
	defer unsubscribe()

	bonds := domain.Available(network)
	if opts.bond != "" {
		b, err := lookupBond(opts.bond)
		if err != nil {
			return err
		}
		bonds = []*domain.Bond{b}
	}

	subs := make([]*bondingApp.Subscription, 0, len(bonds))
	for _, b := range bonds {
		subs = append(subs, scheduler.Subscribe(ctx, b, bondingApp.ModeCard, amount))
	}
	log.Info(ctx, "watching bonds", "count", len(subs), "network", network.String())

	<-ctx.Done()

	log.Info(ctx, "shutting down")
	for _, sub := range subs {
		sub.Close()
	}
	return nil
}

// act runs one lifecycle action and prints the resulting user messages.
func act(ctx context.Context, services di.ServiceRegistry, network domain.NetworkID, opts options, log *logger.Logger) error {
	orchestrator := bondingDI.GetOrchestrator(services)
	store := bondingDI.GetStore(services)
	before := len(store.Snapshot().Messages)

	var err error
	switch opts.action {
	case actionRedeemAll:
		err = orchestrator.RedeemAll(ctx, domain.Available(network), opts.autostake)
	case actionApprove, actionBond, actionRedeem:
		b, lookupErr := lookupBond(opts.bond)
		if lookupErr != nil {
			return lookupErr
		}
		switch opts.action {
		case actionApprove:
			err = orchestrator.Approve(ctx, b)
		case actionBond:
			amount, parseErr := parseAmount(opts.amount)
			if parseErr != nil {
				return parseErr
			}
			err = orchestrator.Bond(ctx, b, amount)
		case actionRedeem:
			err = orchestrator.Redeem(ctx, b, opts.autostake)
		}
	default:
		return fmt.Errorf("unknown action %q", opts.action)
	}

	messages := store.Snapshot().Messages
	for _, m := range messages[min(before, len(messages)):] {
		fmt.Printf("[%s] %s\n", m.Severity, m.Text)
	}
	if err != nil {
		log.Error(ctx, "action failed", "action", opts.action, "error", err)
	}
	return err
}

// traceConfig maps telemetry settings onto the trace exporter config.
func traceConfig(t config.TelemetryConfig) (apm.Config, error) {
	headers, err := apm.ParseHeaders(t.OTLPHeaders)
	if err != nil {
		return apm.Config{}, fmt.Errorf("telemetry.otlp_headers: %w", err)
	}
	return apm.Config{
		ServiceName: t.ServiceName,
		Provider:    apm.ParseProvider(t.TraceProvider),
		Endpoint:    t.OTLPEndpoint,
		Headers:     headers,
	}, nil
}

func lookupBond(name string) (*domain.Bond, error) {
	if name == "" {
		return nil, fmt.Errorf("-bond is required")
	}
	b, ok := domain.Lookup(domain.Symbol(name))
	if !ok {
		return nil, fmt.Errorf("unknown bond %q", name)
	}
	return b, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

func shutdown(ctx context.Context, log *logger.Logger, name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := stop(ctx); err != nil {
		log.Warn(ctx, "shutdown failed", "component", name, "error", err)
	}
}

// Package bonding implements the bond valuation and lifecycle bounded context.
package bonding

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/bond-desk/business/bonding/app"
	bondingDI "github.com/fd1az/bond-desk/business/bonding/di"
	"github.com/fd1az/bond-desk/business/bonding/domain"
	"github.com/fd1az/bond-desk/business/bonding/infra/ethereum"
	pricingApp "github.com/fd1az/bond-desk/business/pricing/app"
	pricingDI "github.com/fd1az/bond-desk/business/pricing/di"
	"github.com/fd1az/bond-desk/internal/asset"
	"github.com/fd1az/bond-desk/internal/config"
	"github.com/fd1az/bond-desk/internal/di"
	"github.com/fd1az/bond-desk/internal/logger"
	"github.com/fd1az/bond-desk/internal/monolith"
)

// The pricing context serves both oracle ports.
var (
	_ domain.PriceOracle = (*pricingApp.PricingService)(nil)
	_ app.MarketPricer   = (*pricingApp.PricingService)(nil)
)

// Module implements the bonding bounded context.
type Module struct{}

// Networks builds the protocol address sets of every supported network.
func Networks(cfg *config.Config) []domain.Network {
	out := make([]domain.Network, 0, len(domain.SupportedNetworks))
	for _, id := range domain.SupportedNetworks {
		nc, ok := cfg.Contracts.ForNetwork(uint64(id))
		if !ok {
			continue
		}
		out = append(out, domain.Network{
			ID:                    id,
			Treasury:              config.Address(nc.Treasury),
			BondCalculator:        config.Address(nc.BondCalculator),
			SpecialBondCalculator: config.Address(nc.SpecialBondCalculator),
			RedeemHelper:          config.Address(nc.RedeemHelper),
		})
	}
	return out
}

// ActiveNetwork returns the configured network's address set.
func ActiveNetwork(cfg *config.Config) domain.Network {
	id := domain.NetworkID(cfg.Ethereum.NetworkID)
	for _, n := range Networks(cfg) {
		if n.ID == id {
			return n
		}
	}
	return domain.Network{ID: id}
}

// payoutToken returns the protocol token address on network, or zero when
// the token is not deployed there.
func payoutToken(id domain.NetworkID) common.Address {
	if id == domain.Mainnet {
		return asset.Addr3DOGEthereum
	}
	return common.Address{}
}

// RegisterServices registers all bonding services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Wallet (private - signing key, optional)
	di.RegisterToken(c, bondingDI.Wallet, func(sr di.ServiceRegistry) *ethereum.KeyWallet {
		cfg := sr.Get("config").(*config.Config)

		wallet, err := ethereum.NewKeyWallet(cfg.Wallet.PrivateKey, cfg.Ethereum.NetworkID)
		if err != nil {
			panic("failed to load wallet: " + err.Error())
		}
		return wallet
	})

	// Register Ledger (private - contract adapter)
	di.RegisterToken(c, bondingDI.Ledger, func(sr di.ServiceRegistry) *ethereum.Ledger {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		ledger, err := ethereum.NewLedger(client, bondingDI.GetWallet(sr), ethereum.Config{
			CallTimeout: cfg.Ethereum.CallTimeout,
			Gas:         ethereum.DefaultGasConfig(),
		}, log)
		if err != nil {
			panic("failed to create ledger: " + err.Error())
		}
		return ledger
	})

	di.RegisterToken(c, bondingDI.Store, func(di.ServiceRegistry) *app.Store {
		return app.NewStore()
	})

	di.RegisterToken(c, bondingDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		prices := pricingDI.GetPricingService(sr)

		engine, err := app.NewEngine(bondingDI.GetLedger(sr), prices, prices, Networks(cfg), app.EngineConfig{
			PayoutSymbol: cfg.Bonding.PayoutSymbol,
			LPTolerance:  cfg.Bonding.LPTolerance,
		}, log)
		if err != nil {
			panic("failed to create engine: " + err.Error())
		}
		return engine
	})

	di.RegisterToken(c, bondingDI.Refresher, func(sr di.ServiceRegistry) *app.Refresher {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		r, err := app.NewRefresher(bondingDI.GetEngine(sr), bondingDI.GetStore(sr), domain.NetworkID(cfg.Ethereum.NetworkID), log)
		if err != nil {
			panic("failed to create refresher: " + err.Error())
		}
		return r
	})

	di.RegisterToken(c, bondingDI.Scheduler, func(sr di.ServiceRegistry) *app.Scheduler {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewScheduler(bondingDI.GetRefresher(sr), app.SchedulerConfig{
			Debounce:         cfg.Bonding.Debounce,
			CardInterval:     cfg.Bonding.CardInterval,
			TableInterval:    cfg.Bonding.TableInterval,
			TableRetryBudget: cfg.Bonding.TableRetryBudget,
		}, log)
	})

	di.RegisterToken(c, bondingDI.Balances, func(sr di.ServiceRegistry) *app.BalanceService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		id := domain.NetworkID(cfg.Ethereum.NetworkID)

		return app.NewBalanceService(bondingDI.GetLedger(sr), bondingDI.GetStore(sr), id, payoutToken(id), domain.Available(id), log)
	})

	// Register Orchestrator (public - lifecycle actions)
	di.RegisterToken(c, bondingDI.Orchestrator, func(sr di.ServiceRegistry) *app.Orchestrator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		o, err := app.NewOrchestrator(
			bondingDI.GetLedger(sr),
			bondingDI.GetWallet(sr),
			bondingDI.GetStore(sr),
			bondingDI.GetRefresher(sr),
			bondingDI.GetBalances(sr),
			ActiveNetwork(cfg),
			app.OrchestratorConfig{Slippage: cfg.Bonding.SlippageDecimal()},
			log,
		)
		if err != nil {
			panic("failed to create orchestrator: " + err.Error())
		}
		return o
	})

	return nil
}

// Startup pings the node and reports the wallet state. Neither failure is
// fatal: quotes surface their own ledger errors.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	services := mono.Services()

	ledger := bondingDI.GetLedger(services)
	mono.OnClose(ledger.Close)
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if head, err := ledger.BlockNumber(pingCtx); err != nil {
		log.Warn(ctx, "ethereum node unreachable", "error", err)
	} else {
		log.Info(ctx, "ethereum node reachable", "block", head)
	}

	id := domain.NetworkID(cfg.Ethereum.NetworkID)
	if addr, ok := bondingDI.GetWallet(services).Address(); ok {
		log.Info(ctx, "wallet connected", "address", addr.Hex())
		if err := bondingDI.GetBalances(services).Refresh(ctx, addr); err != nil {
			log.Warn(ctx, "initial balance refresh failed", "error", err)
		}
	} else {
		log.Info(ctx, "no wallet configured, running read-only")
	}

	log.Info(ctx, "bonding module started",
		"network", id.String(),
		"bonds", len(domain.Available(id)),
	)
	return nil
}

// Package pricing implements the pricing bounded context: USD spot prices
// for reserve assets and the protocol token market price.
package pricing

import (
	"context"
	"strings"
	"time"

	"github.com/fd1az/bond-desk/business/pricing/app"
	pricingDI "github.com/fd1az/bond-desk/business/pricing/di"
	"github.com/fd1az/bond-desk/business/pricing/infra/coingecko"
	"github.com/fd1az/bond-desk/internal/asset"
	"github.com/fd1az/bond-desk/internal/config"
	"github.com/fd1az/bond-desk/internal/di"
	"github.com/fd1az/bond-desk/internal/logger"
	"github.com/fd1az/bond-desk/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register SpotSource (CoinGecko) - private dependency
	di.RegisterToken(c, pricingDI.SpotSource, func(sr di.ServiceRegistry) app.SpotSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := coingecko.NewClient(coingecko.Config{
			BaseURL:           cfg.Oracle.BaseURL,
			APIKey:            cfg.Oracle.APIKey,
			IDs:               cfg.Oracle.IDs,
			RequestsPerMinute: cfg.Oracle.RequestsPerMinute,
			Timeout:           cfg.Oracle.Timeout,
		}, log)
		if err != nil {
			panic("failed to create coingecko client: " + err.Error())
		}
		return client
	})

	// Register PricingService (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.PricingService, func(sr di.ServiceRegistry) *app.PricingService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		svc, err := app.NewPricingService(pricingDI.GetSpotSource(sr), app.ServiceConfig{
			CacheTTL:       cfg.Oracle.CacheTTL,
			MarketSymbol:   cfg.Market.Symbol,
			MarketCacheTTL: cfg.Market.CacheTTL,
			FetchTimeout:   cfg.Oracle.Timeout,
			Registry:       sr.Get("assetRegistry").(*asset.Registry),
		}, log)
		if err != nil {
			panic("failed to create pricing service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup warms the price cache with the market symbol and every registered
// asset the oracle can price. A failed warm-up is not fatal; lookups fetch on
// demand.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	svc := pricingDI.GetPricingService(mono.Services())
	mono.OnClose(svc.Close)

	symbols := []string{cfg.Market.Symbol}
	seen := map[string]bool{strings.ToLower(cfg.Market.Symbol): true}
	for _, a := range mono.AssetRegistry().All() {
		sym := strings.ToLower(a.Symbol())
		if _, priced := cfg.Oracle.IDs[sym]; priced && !seen[sym] {
			seen[sym] = true
			symbols = append(symbols, a.Symbol())
		}
	}

	warmCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := svc.Warm(warmCtx, symbols...); err != nil {
		log.Warn(ctx, "price cache warm-up failed, prices will be fetched on demand", "error", err)
	}

	log.Info(ctx, "pricing module started", "warmed", len(symbols))
	return nil
}

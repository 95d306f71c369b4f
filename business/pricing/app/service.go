package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/fd1az/bond-desk/business/pricing/domain"
	"github.com/fd1az/bond-desk/internal/apperror"
	"github.com/fd1az/bond-desk/internal/asset"
	"github.com/fd1az/bond-desk/internal/cache"
	"github.com/fd1az/bond-desk/internal/logger"
)

const (
	tracerName = "pricing"
	meterName  = "pricing"

	defaultFetchTimeout = 10 * time.Second
)

// ServiceConfig controls caching of spot and market prices.
type ServiceConfig struct {
	CacheTTL       time.Duration
	MarketSymbol   string
	MarketCacheTTL time.Duration
	// FetchTimeout bounds one upstream request shared by concurrent lookups.
	FetchTimeout time.Duration
	// Registry resolves symbols to assets for AssetPrice.
	Registry *asset.Registry
}

type serviceMetrics struct {
	lookups     metric.Int64Counter
	cacheHits   metric.Int64Counter
	fetchErrors metric.Int64Counter
	sharedCalls metric.Int64Counter
}

// PricingService serves cached, deduplicated USD prices. Concurrent lookups
// for the same symbol share one upstream request.
type PricingService struct {
	source SpotSource
	cfg    ServiceConfig
	cache  *cache.Cache[string, domain.SpotPrice]
	group  singleflight.Group
	log    logger.LoggerInterface

	now     func() time.Time
	tracer  trace.Tracer
	metrics *serviceMetrics
}

// NewPricingService creates a PricingService over source.
func NewPricingService(source SpotSource, cfg ServiceConfig, log logger.LoggerInterface) (*PricingService, error) {
	if cfg.MarketSymbol == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("market symbol is required"))
	}
	if cfg.Registry == nil {
		cfg.Registry = asset.DefaultRegistry()
	}
	if cfg.MarketCacheTTL == 0 {
		cfg.MarketCacheTTL = cfg.CacheTTL
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}

	c, err := cache.New[string, domain.SpotPrice](0)
	if err != nil {
		return nil, err
	}

	s := &PricingService{
		source: source,
		cfg:    cfg,
		cache:  c,
		log:    log,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return s, nil
}

func (s *PricingService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &serviceMetrics{}

	s.metrics.lookups, err = meter.Int64Counter(
		"price_lookups_total",
		metric.WithDescription("Total spot price lookups"),
	)
	if err != nil {
		return err
	}

	s.metrics.cacheHits, err = meter.Int64Counter(
		"price_cache_hits_total",
		metric.WithDescription("Spot price lookups served from cache"),
	)
	if err != nil {
		return err
	}

	s.metrics.fetchErrors, err = meter.Int64Counter(
		"price_fetch_errors_total",
		metric.WithDescription("Failed upstream price fetches"),
	)
	if err != nil {
		return err
	}

	s.metrics.sharedCalls, err = meter.Int64Counter(
		"price_fetch_shared_total",
		metric.WithDescription("Lookups that joined an in-flight fetch"),
	)
	if err != nil {
		return err
	}

	return nil
}

// SpotPriceUSD returns the USD unit price of symbol.
func (s *PricingService) SpotPriceUSD(ctx context.Context, symbol string) (float64, error) {
	p, err := s.lookup(ctx, symbol, s.cfg.CacheTTL)
	if err != nil {
		return 0, err
	}
	return p.USD, nil
}

// MarketPrice returns the USD price of the protocol token.
func (s *PricingService) MarketPrice(ctx context.Context) (float64, error) {
	p, err := s.lookup(ctx, s.cfg.MarketSymbol, s.cfg.MarketCacheTTL)
	if err != nil {
		return 0, err
	}
	return p.USD, nil
}

// AssetPrice returns the USD price of a registered asset.
func (s *PricingService) AssetPrice(ctx context.Context, symbol string) (asset.Price, error) {
	p, err := s.lookup(ctx, symbol, s.ttlFor(symbol))
	if err != nil {
		return asset.Price{}, err
	}
	price, ok := p.Price(s.cfg.Registry)
	if !ok {
		return asset.Price{}, apperror.New(apperror.CodeNotFound,
			apperror.WithContext("unknown asset "+symbol))
	}
	return price, nil
}

// Warm fetches symbols in one upstream request and seeds the cache.
func (s *PricingService) Warm(ctx context.Context, symbols ...string) error {
	ctx, span := s.tracer.Start(ctx, "pricing.warm",
		trace.WithAttributes(attribute.Int("symbols", len(symbols))))
	defer span.End()

	normalized := make([]string, len(symbols))
	for i, sym := range symbols {
		normalized[i] = domain.NormalizeSymbol(sym)
	}

	prices, err := s.source.FetchUSD(ctx, normalized)
	if err != nil {
		s.metrics.fetchErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return err
	}

	at := s.now()
	for sym, usd := range prices {
		s.cache.Set(ctx, domain.NormalizeSymbol(sym), domain.NewSpotPrice(sym, usd, s.source.Name(), at), s.ttlFor(sym))
	}

	span.SetAttributes(attribute.Int("priced", len(prices)))
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *PricingService) ttlFor(symbol string) time.Duration {
	if domain.NormalizeSymbol(symbol) == domain.NormalizeSymbol(s.cfg.MarketSymbol) {
		return s.cfg.MarketCacheTTL
	}
	return s.cfg.CacheTTL
}

// Close stops the price cache.
func (s *PricingService) Close() {
	s.cache.Close()
}

func (s *PricingService) lookup(ctx context.Context, symbol string, ttl time.Duration) (domain.SpotPrice, error) {
	key := domain.NormalizeSymbol(symbol)
	attrs := metric.WithAttributes(attribute.String("symbol", key))
	s.metrics.lookups.Add(ctx, 1, attrs)

	if p, ok := s.cache.Get(ctx, key); ok {
		s.metrics.cacheHits.Add(ctx, 1, attrs)
		return p, nil
	}

	// The fetch outlives any single caller; each caller still honors its own ctx.
	ch := s.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.FetchTimeout)
		defer cancel()
		return s.fetch(fetchCtx, key, ttl)
	})

	select {
	case <-ctx.Done():
		return domain.SpotPrice{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.metrics.sharedCalls.Add(ctx, 1, attrs)
		}
		if res.Err != nil {
			return domain.SpotPrice{}, res.Err
		}
		return res.Val.(domain.SpotPrice), nil
	}
}

func (s *PricingService) fetch(ctx context.Context, symbol string, ttl time.Duration) (domain.SpotPrice, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.fetch",
		trace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("source", s.source.Name()),
		),
	)
	defer span.End()

	prices, err := s.source.FetchUSD(ctx, []string{symbol})
	if err != nil {
		s.metrics.fetchErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		s.log.Warn(ctx, "spot price fetch failed", "symbol", symbol, "source", s.source.Name(), "error", err)
		return domain.SpotPrice{}, err
	}

	usd, ok := prices[symbol]
	if !ok {
		s.metrics.fetchErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, "symbol not priced")
		return domain.SpotPrice{}, apperror.New(apperror.CodeOracleUnavailable,
			apperror.WithContext("no price for "+symbol))
	}

	p := domain.NewSpotPrice(symbol, usd, s.source.Name(), s.now())
	s.cache.Set(ctx, symbol, p, ttl)

	span.SetAttributes(attribute.Float64("usd", usd))
	span.SetStatus(codes.Ok, "")
	s.log.Debug(ctx, "spot price fetched", "symbol", symbol, "usd", usd, "source", s.source.Name())

	return p, nil
}

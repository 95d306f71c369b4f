package ethereum

import (
	"context"
	"math/big"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/bond-desk/internal/apperror"
	"github.com/fd1az/bond-desk/internal/cache"
	"github.com/fd1az/bond-desk/internal/circuitbreaker"
	"github.com/fd1az/bond-desk/internal/logger"
)

const gasPriceKey = "suggested"

// GasConfig bounds the gas price attached to signed transactions.
type GasConfig struct {
	CacheTTL    time.Duration
	MaxGasPrice *big.Int
}

// DefaultGasConfig caches for about one block and caps at 500 gwei.
func DefaultGasConfig() GasConfig {
	maxGas, _ := new(big.Int).SetString("500000000000", 10)
	return GasConfig{CacheTTL: 12 * time.Second, MaxGasPrice: maxGas}
}

type gasSuggester interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// gasPricer caches the node's suggested gas price and clamps it to a ceiling.
type gasPricer struct {
	cfg     GasConfig
	backend gasSuggester
	cache   *cache.Cache[string, *big.Int]
	cb      *circuitbreaker.CircuitBreaker[*big.Int]
	log     logger.LoggerInterface

	hits   metric.Int64Counter
	misses metric.Int64Counter
	gwei   metric.Float64Gauge
}

func newGasPricer(cfg GasConfig, backend gasSuggester, meter metric.Meter, log logger.LoggerInterface) (*gasPricer, error) {
	c, err := cache.New[string, *big.Int](16)
	if err != nil {
		return nil, err
	}

	g := &gasPricer{
		cfg:     cfg,
		backend: backend,
		cache:   c,
		cb:      circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig("gas-price")),
		log:     log,
	}

	if g.hits, err = meter.Int64Counter("gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
		metric.WithUnit("{hit}"),
	); err != nil {
		return nil, err
	}
	if g.misses, err = meter.Int64Counter("gas_cache_misses_total",
		metric.WithDescription("Gas price cache misses"),
		metric.WithUnit("{miss}"),
	); err != nil {
		return nil, err
	}
	if g.gwei, err = meter.Float64Gauge("gas_price_gwei",
		metric.WithDescription("Gas price attached to the last signed transaction"),
		metric.WithUnit("gwei"),
	); err != nil {
		return nil, err
	}

	return g, nil
}

// price returns the gas price to sign with.
func (g *gasPricer) price(ctx context.Context) (*big.Int, error) {
	if p, ok := g.cache.Get(ctx, gasPriceKey); ok {
		g.hits.Add(ctx, 1)
		return new(big.Int).Set(p), nil
	}
	g.misses.Add(ctx, 1)

	wei, err := g.cb.Execute(func() (*big.Int, error) {
		return g.backend.SuggestGasPrice(ctx)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeLedgerCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to get gas price"))
	}

	if g.cfg.MaxGasPrice != nil && wei.Cmp(g.cfg.MaxGasPrice) > 0 {
		g.log.Warn(ctx, "gas price exceeds max", "wei", wei.String(), "max", g.cfg.MaxGasPrice.String())
		wei = new(big.Int).Set(g.cfg.MaxGasPrice)
	}

	g.cache.Set(ctx, gasPriceKey, wei, g.cfg.CacheTTL)
	gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e9)).Float64()
	g.gwei.Record(ctx, gwei)

	return new(big.Int).Set(wei), nil
}

func (g *gasPricer) close() {
	g.cache.Close()
}

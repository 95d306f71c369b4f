// Package coingecko implements the SpotSource port over the CoinGecko
// simple price API.
package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/bond-desk/business/pricing/app"
	"github.com/fd1az/bond-desk/internal/apperror"
	"github.com/fd1az/bond-desk/internal/circuitbreaker"
	"github.com/fd1az/bond-desk/internal/httpclient"
	"github.com/fd1az/bond-desk/internal/logger"
	"github.com/fd1az/bond-desk/internal/ratelimit"
)

const (
	tracerName = "coingecko"
	meterName  = "coingecko"

	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	simplePriceEndpoint = "/simple/price"
	vsCurrency          = "usd"
	apiKeyHeader        = "x-cg-demo-api-key"
	defaultTimeout      = 10 * time.Second
)

var _ app.SpotSource = (*Client)(nil)

// Config configures the CoinGecko client.
type Config struct {
	BaseURL string
	APIKey  string
	// IDs maps asset symbols to CoinGecko coin ids. Keys are matched
	// case-insensitively.
	IDs               map[string]string
	RequestsPerMinute int
	Timeout           time.Duration
}

// simplePriceResponse is {"shiba-inu": {"usd": 0.0000123}}.
type simplePriceResponse map[string]map[string]float64

type clientMetrics struct {
	requests metric.Int64Counter
	errors   metric.Int64Counter
	latency  metric.Float64Histogram
}

// Client fetches USD spot prices from CoinGecko.
type Client struct {
	client  httpclient.Client
	ids     map[string]string
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[simplePriceResponse]
	log     logger.LoggerInterface

	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient creates a CoinGecko client.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}

	tracer := otel.Tracer(tracerName)

	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers[apiKeyHeader] = cfg.APIKey
	}

	hc, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("coingecko"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceResponse),
		httpclient.WithHeaders(headers),
		httpclient.WithRedactedHeaders(apiKeyHeader),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	ids := make(map[string]string, len(cfg.IDs))
	for sym, id := range cfg.IDs {
		ids[strings.ToLower(sym)] = id
	}

	c := &Client{
		client:  hc,
		ids:     ids,
		limiter: ratelimit.New(rpm),
		cb:      circuitbreaker.New[simplePriceResponse](circuitbreaker.DefaultConfig("coingecko")),
		log:     log,
		tracer:  tracer,
	}
	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.requests, err = meter.Int64Counter(
		"oracle_requests_total",
		metric.WithDescription("Total oracle price requests"),
	)
	if err != nil {
		return err
	}

	c.metrics.errors, err = meter.Int64Counter(
		"oracle_request_errors_total",
		metric.WithDescription("Total failed oracle price requests"),
	)
	if err != nil {
		return err
	}

	c.metrics.latency, err = meter.Float64Histogram(
		"oracle_request_latency_ms",
		metric.WithDescription("Oracle request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Name identifies the source in logs and cached prices.
func (c *Client) Name() string {
	return "coingecko"
}

// FetchUSD prices symbols in a single request. Result keys are the symbols
// exactly as passed in. Symbols without a configured id are skipped.
func (c *Client) FetchUSD(ctx context.Context, symbols []string) (map[string]float64, error) {
	ctx, span := c.tracer.Start(ctx, "coingecko.fetch_usd",
		trace.WithAttributes(attribute.StringSlice("symbols", symbols)),
	)
	defer span.End()

	bySymbol := make(map[string]string, len(symbols))
	idSet := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		id, ok := c.ids[strings.ToLower(sym)]
		if !ok {
			span.AddEvent("unmapped_symbol", trace.WithAttributes(attribute.String("symbol", sym)))
			continue
		}
		bySymbol[sym] = id
		idSet[id] = struct{}{}
	}
	if len(idSet) == 0 {
		span.SetStatus(codes.Ok, "nothing to fetch")
		return map[string]float64{}, nil
	}

	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}

	start := time.Now()
	c.metrics.requests.Add(ctx, 1)

	result, err := c.cb.Execute(func() (simplePriceResponse, error) {
		return c.simplePrice(ctx, ids)
	})
	c.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		c.metrics.errors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		if circuitbreaker.IsOpen(err) {
			return nil, apperror.New(apperror.CodeCircuitOpen, apperror.WithCause(err), apperror.WithContext("coingecko"))
		}
		return nil, err
	}

	out := make(map[string]float64, len(bySymbol))
	for sym, id := range bySymbol {
		quote, ok := result[id]
		if !ok {
			continue
		}
		if usd, ok := quote[vsCurrency]; ok {
			out[sym] = usd
		}
	}

	span.SetAttributes(attribute.Int("priced", len(out)))
	span.SetStatus(codes.Ok, "")
	c.log.Debug(ctx, "coingecko prices fetched", "ids", strings.Join(ids, ","), "priced", len(out))

	return out, nil
}

func (c *Client) simplePrice(ctx context.Context, ids []string) (simplePriceResponse, error) {
	var result simplePriceResponse
	resp, err := c.client.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "simple_price")),
		httpclient.WithResponseErrorHandler(errorHandler),
	).
		SetQueryParam("ids", strings.Join(ids, ",")).
		SetQueryParam("vs_currencies", vsCurrency).
		SetResult(&result).
		Get(ctx, simplePriceEndpoint)
	if err != nil {
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.New(apperror.CodeOracleUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("coingecko request failed"))
	}
	if result == nil {
		return nil, apperror.New(apperror.CodeOracleUnavailable,
			apperror.WithContext(fmt.Sprintf("undecodable response: %s", resp.String())))
	}
	return result, nil
}

func errorHandler(statusCode int, body []byte) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithContext("coingecko: "+string(body)))
	case statusCode >= http.StatusBadRequest:
		return apperror.New(apperror.CodeOracleUnavailable,
			apperror.WithContext(fmt.Sprintf("coingecko HTTP %d: %s", statusCode, body)))
	}
	return nil
}

package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Request builds and executes a read request whose body is JSON.
type Request interface {
	Get(ctx context.Context, path string) (*Response, error)
	SetHeader(key, value string) Request
	SetQueryParam(key, value string) Request
	SetResult(result any) Request
}

// Response wraps http.Response with the already-read body.
type Response struct {
	*http.Response
	body []byte
}

// Body returns the response body as bytes.
func (r *Response) Body() []byte {
	return r.body
}

// String returns the response body as string.
func (r *Response) String() string {
	return string(r.body)
}

// IsError reports a status of 400 or above.
func (r *Response) IsError() bool {
	return r.StatusCode >= http.StatusBadRequest
}

type requestBuilder struct {
	client       *InstrumentedClient
	headers      map[string]string
	queryParams  map[string]string
	result       any
	errorHandler ResponseErrorHandler
	labels       []*Label
}

func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

func (r *requestBuilder) SetQueryParam(key, value string) Request {
	r.queryParams[key] = value
	return r
}

func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

// Get executes a GET request. A body that does not decode into the result
// is recorded on the span and leaves the result untouched.
func (r *requestBuilder) Get(ctx context.Context, path string) (*Response, error) {
	opts := r.client.options
	ctx, span := r.client.tracer.Start(ctx, "http.request",
		trace.WithAttributes(
			attribute.String("http.method", http.MethodGet),
			attribute.String("http.path", path),
			attribute.String("provider", opts.providerName),
		),
	)
	defer span.End()

	target := r.buildURL(path)
	if opts.logRequest {
		span.SetAttributes(attribute.String("http.query", r.encodeQuery()))
		span.AddEvent("request.headers", trace.WithAttributes(r.headerAttributes()...))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := r.client.client.Do(req)
	if err != nil {
		r.recordError(ctx, span, err, start)
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		r.recordError(ctx, span, err, start)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if opts.logResponse {
		span.AddEvent("response.body", trace.WithAttributes(
			attribute.String("http.response_body", string(body)),
		))
	}

	response := &Response{Response: resp, body: body}

	if r.errorHandler != nil {
		if handlerErr := r.errorHandler(resp.StatusCode, body); handlerErr != nil {
			r.recordMetrics(ctx, resp.StatusCode, start)
			span.SetStatus(codes.Error, handlerErr.Error())
			return response, handlerErr
		}
	}

	if r.result != nil && len(body) > 0 && !response.IsError() {
		if err := json.Unmarshal(body, r.result); err != nil {
			span.RecordError(err)
		}
	}

	r.recordMetrics(ctx, resp.StatusCode, start)
	if response.IsError() {
		span.SetStatus(codes.Error, resp.Status)
	}
	return response, nil
}

func (r *requestBuilder) buildURL(path string) string {
	full := path
	if base := r.client.options.baseURL; base != "" && !strings.HasPrefix(path, "http") {
		full = strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	if len(r.queryParams) == 0 {
		return full
	}
	sep := "?"
	if strings.Contains(full, "?") {
		sep = "&"
	}
	return full + sep + r.encodeQuery()
}

func (r *requestBuilder) encodeQuery() string {
	params := url.Values{}
	for k, v := range r.queryParams {
		params.Set(k, v)
	}
	return params.Encode()
}

// headerAttributes lists request headers with redacted values masked.
func (r *requestBuilder) headerAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(r.headers))
	for k, v := range r.headers {
		key := strings.ToLower(k)
		if r.client.options.redacted[key] {
			v = "*****"
		}
		attrs = append(attrs, attribute.String("http.request.header."+key, v))
	}
	return attrs
}

func (r *requestBuilder) recordError(ctx context.Context, span trace.Span, err error, start time.Time) {
	span.RecordError(err)

	var netErr net.Error
	if errors.Is(err, context.Canceled) {
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	}
	if errors.As(err, &netErr) && netErr.Timeout() {
		span.SetAttributes(attribute.Bool("request.timeout", true))
	}

	span.SetStatus(codes.Error, err.Error())
	r.recordMetrics(ctx, 0, start)
}

// recordMetrics counts the request and its latency. A zero status marks a
// transport failure.
func (r *requestBuilder) recordMetrics(ctx context.Context, status int, start time.Time) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", r.client.options.providerName),
		attribute.Int("status", status),
		attribute.Bool("success", status > 0 && status < http.StatusBadRequest),
	}
	for _, label := range r.labels {
		attrs = append(attrs, attribute.String(label.Key, label.Value))
	}

	set := metric.WithAttributes(attrs...)
	r.client.requestCounter.Add(ctx, 1, set)
	r.client.requestLatency.Record(ctx, float64(time.Since(start).Milliseconds()), set)
}

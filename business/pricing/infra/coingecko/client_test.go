package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/fd1az/bond-desk/internal/apperror"
	"github.com/fd1az/bond-desk/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{
		BaseURL:           server.URL,
		APIKey:            "demo-key",
		IDs:               map[string]string{"shib": "shiba-inu", "WETH": "weth", "eth": "weth"},
		RequestsPerMinute: 6000,
	}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestFetchUSD(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ids"); got != "shiba-inu,weth" {
			t.Errorf("ids = %q", got)
		}
		if got := r.URL.Query().Get("vs_currencies"); got != "usd" {
			t.Errorf("vs_currencies = %q", got)
		}
		if got := r.Header.Get("x-cg-demo-api-key"); got != "demo-key" {
			t.Errorf("api key header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"shiba-inu":{"usd":0.00001234},"weth":{"usd":3021.5}}`))
	})

	got, err := c.FetchUSD(context.Background(), []string{"SHIB", "WETH", "ETH", "UNKNOWN"})
	if err != nil {
		t.Fatalf("FetchUSD: %v", err)
	}

	want := map[string]float64{"SHIB": 0.00001234, "WETH": 3021.5, "ETH": 3021.5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for sym, p := range want {
		if got[sym] != p {
			t.Errorf("%s = %v, want %v", sym, got[sym], p)
		}
	}
}

func TestFetchUSDSkipsRequestWhenNothingMapped(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	got, err := c.FetchUSD(context.Background(), []string{"NOPE"})
	if err != nil || len(got) != 0 {
		t.Errorf("got %v, %v", got, err)
	}
	if hits.Load() != 0 {
		t.Error("request sent for unmapped symbols")
	}
}

func TestFetchUSDErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   apperror.Code
	}{
		{"rate limited", http.StatusTooManyRequests, apperror.CodeRateLimitExceeded},
		{"server error", http.StatusBadGateway, apperror.CodeOracleUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"status":{"error_message":"nope"}}`))
			})

			_, err := c.FetchUSD(context.Background(), []string{"SHIB"})
			if !apperror.HasCode(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type payload struct {
	Value float64 `json:"value"`
}

func TestGet(t *testing.T) {
	errTeapot := errors.New("teapot")

	tests := []struct {
		name      string
		status    int
		body      string
		handler   ResponseErrorHandler
		wantErr   error
		wantValue float64
	}{
		{name: "decodes result", status: http.StatusOK, body: `{"value":1.5}`, wantValue: 1.5},
		{name: "handler rejects", status: http.StatusTeapot, body: `{}`, wantErr: errTeapot,
			handler: func(status int, _ []byte) error {
				if status == http.StatusTeapot {
					return errTeapot
				}
				return nil
			}},
		{name: "error status without handler", status: http.StatusBadGateway, body: `{"value":9}`},
		{name: "undecodable body", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/thing" {
					t.Errorf("path = %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("ids"); got != "a,b" {
					t.Errorf("ids = %q", got)
				}
				if got := r.Header.Get("x-key"); got != "secret" {
					t.Errorf("x-key = %q", got)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, err := NewInstrumentedClient(
				WithProviderName("test"),
				WithBaseURL(server.URL+"/v1/"),
				WithHeaders(map[string]string{"x-key": "secret"}),
				WithRedactedHeaders("x-key"),
				WithTraceOptions(nil, TraceRequest, TraceResponse),
			)
			if err != nil {
				t.Fatal(err)
			}

			var out payload
			resp, err := c.NewRequestWithOptions(
				WithLabels(NewLabel("endpoint", "thing")),
				WithResponseErrorHandler(tt.handler),
			).SetQueryParam("ids", "a,b").SetResult(&out).Get(context.Background(), "/thing")

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Fatalf("resp = %+v", resp)
			}
			if out.Value != tt.wantValue {
				t.Errorf("value = %v, want %v", out.Value, tt.wantValue)
			}
		})
	}
}

func TestGetTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	c, err := NewInstrumentedClient(WithBaseURL(server.URL))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.NewRequest().Get(context.Background(), "/x"); err == nil {
		t.Error("expected transport error")
	}
}

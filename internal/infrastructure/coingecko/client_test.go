package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/flow-84/crypto-portfolio-v2/internal/config"
	"github.com/flow-84/crypto-portfolio-v2/internal/domain/marketdata"
)

func newTestClient(serverURL string) *Client {
	cfg := config.FeedConfig{
		BaseURL:        serverURL,
		RequestTimeout: 5 * time.Second,
	}
	return NewClient(cfg, zap.NewNop())
}

func TestClient_GetMarketData(t *testing.T) {
	t.Run("parses a markets response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/coins/markets" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if got := r.URL.Query().Get("vs_currency"); got != "usd" {
				t.Errorf("expected vs_currency=usd, got %q", got)
			}
			if got := r.URL.Query().Get("ids"); got != "bitcoin,ethereum" {
				t.Errorf("expected ids=bitcoin,ethereum, got %q", got)
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[
				{"id": "bitcoin", "symbol": "btc", "name": "Bitcoin", "current_price": 50123.45},
				{"id": "ethereum", "symbol": "eth", "name": "Ethereum", "current_price": 3000.1}
			]`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		quotes, err := client.GetMarketData(context.Background(), []string{"bitcoin", "ethereum"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(quotes) != 2 {
			t.Fatalf("expected 2 quotes, got %d", len(quotes))
		}

		btc := quotes["bitcoin"]
		if btc.USD.String() != "50123.45" {
			t.Errorf("expected price 50123.45, got %s", btc.USD.String())
		}
		if btc.Symbol != "BTC" {
			t.Errorf("expected uppercased symbol BTC, got %s", btc.Symbol)
		}
		if btc.Name != "Bitcoin" {
			t.Errorf("expected name Bitcoin, got %s", btc.Name)
		}
		if btc.ObservedAt.IsZero() {
			t.Error("expected a non-zero observation time")
		}
	})

	t.Run("empty id list skips the request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("expected no request")
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		quotes, err := client.GetMarketData(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(quotes) != 0 {
			t.Errorf("expected no quotes, got %d", len(quotes))
		}
	})

	t.Run("throttling maps to the rate limit error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.GetMarketData(context.Background(), []string{"bitcoin"})
		if !errors.Is(err, marketdata.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
	})

	t.Run("server errors map to unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.GetMarketData(context.Background(), []string{"bitcoin"})
		if !errors.Is(err, marketdata.ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("unreachable host maps to unavailable", func(t *testing.T) {
		client := newTestClient("http://127.0.0.1:1")

		_, err := client.GetMarketData(context.Background(), []string{"bitcoin"})
		if !errors.Is(err, marketdata.ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})
}

func TestClient_SearchCoins(t *testing.T) {
	t.Run("parses a search response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/search" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if got := r.URL.Query().Get("query"); got != "bit" {
				t.Errorf("expected query=bit, got %q", got)
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"coins": [
				{"id": "bitcoin", "name": "Bitcoin", "symbol": "BTC"},
				{"id": "bitcoin-cash", "name": "Bitcoin Cash", "symbol": "BCH"}
			]}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		matches, err := client.SearchCoins(context.Background(), "bit")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(matches) != 2 {
			t.Fatalf("expected 2 matches, got %d", len(matches))
		}
		if matches[0].ID != "bitcoin" || matches[0].Symbol != "BTC" {
			t.Errorf("unexpected first match: %+v", matches[0])
		}
	})

	t.Run("throttling maps to the rate limit error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.SearchCoins(context.Background(), "bit")
		if !errors.Is(err, marketdata.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
	})
}

func TestClient_HealthCheck(t *testing.T) {
	t.Run("healthy on a 200 ping", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/ping" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			w.Write([]byte(`{"gecko_says": "(V3) To the Moon!"}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		if err := client.HealthCheck(context.Background()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("unhealthy on a failing ping", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		if err := client.HealthCheck(context.Background()); err == nil {
			t.Error("expected an error")
		}
	})
}

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/flow-84/crypto-portfolio-v2/internal/application/services"
	"github.com/flow-84/crypto-portfolio-v2/internal/config"
	"github.com/flow-84/crypto-portfolio-v2/internal/domain/entities"
	"github.com/flow-84/crypto-portfolio-v2/internal/testutil"
)

func newPriceTestServer(t *testing.T, quotes ...entities.Quote) (*chi.Mux, *testutil.MockPortfolioRepository) {
	t.Helper()

	store := testutil.NewMockPortfolioRepository()
	cache := services.NewPriceCache()
	cache.ReplaceAll(quotes)

	cfg := config.RefreshConfig{
		Interval:      time.Hour,
		CacheDuration: 5 * time.Minute,
		PacingDelay:   time.Millisecond,
	}
	gate := services.NewCallGate(time.Hour, 0, time.Millisecond, zap.NewNop())

	svc := services.NewPortfolioService(store, cache, testutil.NewMockFeed(), gate, nil, cfg, zap.NewNop())
	handler := NewPriceHandler(svc, zap.NewNop())

	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router, store
}

func TestPriceHandler_GetPrice(t *testing.T) {
	t.Run("returns a fresh cached price", func(t *testing.T) {
		router, store := newPriceTestServer(t,
			testutil.CreateTestQuote(testutil.BitcoinID, "50000", time.Now()),
		)
		store.SetHoldings(testutil.CreateTestHolding(testutil.WithAmount("2")))

		req := httptest.NewRequest(http.MethodGet, "/prices/bitcoin", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var resp services.PriceResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Data.Price != "50000.00" || resp.Data.Value != "100000.00" {
			t.Errorf("unexpected price dto: %+v", resp.Data)
		}
	})

	t.Run("uncached coin is not found", func(t *testing.T) {
		router, _ := newPriceTestServer(t)

		req := httptest.NewRequest(http.MethodGet, "/prices/bitcoin", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}

		var resp map[string]string
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["error"] != "Price not available" {
			t.Errorf("unexpected error message: %q", resp["error"])
		}
	})

	t.Run("stale quote is not found", func(t *testing.T) {
		router, _ := newPriceTestServer(t,
			testutil.CreateTestQuote(testutil.BitcoinID, "50000", time.Now().Add(-10*time.Minute)),
		)

		req := httptest.NewRequest(http.MethodGet, "/prices/bitcoin", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})

	t.Run("invalid coin id is a bad request", func(t *testing.T) {
		router, _ := newPriceTestServer(t)

		req := httptest.NewRequest(http.MethodGet, "/prices/UPPER", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

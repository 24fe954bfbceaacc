package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/flow-84/crypto-portfolio-v2/internal/application/services"
	"github.com/flow-84/crypto-portfolio-v2/internal/domain/marketdata"
	"github.com/flow-84/crypto-portfolio-v2/internal/testutil"
)

func newSearchTestServer(feed *testutil.MockFeed) *chi.Mux {
	svc := services.NewSearchService(feed, zap.NewNop())
	handler := NewSearchHandler(svc, zap.NewNop())

	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func TestSearchHandler_Search(t *testing.T) {
	t.Run("returns matches", func(t *testing.T) {
		feed := testutil.NewMockFeed()
		feed.SearchCoinsFunc = func(ctx context.Context, query string) ([]marketdata.CoinMatch, error) {
			return []marketdata.CoinMatch{
				{ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC"},
			}, nil
		}
		router := newSearchTestServer(feed)

		req := httptest.NewRequest(http.MethodGet, "/search?query=bit", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var resp services.SearchResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.Data) != 1 || resp.Data[0].ID != "bitcoin" {
			t.Errorf("unexpected matches: %+v", resp.Data)
		}
	})

	t.Run("missing query returns an empty list", func(t *testing.T) {
		router := newSearchTestServer(testutil.NewMockFeed())

		req := httptest.NewRequest(http.MethodGet, "/search", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}

		var resp services.SearchResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.Data) != 0 {
			t.Errorf("expected no matches, got %+v", resp.Data)
		}
	})

	t.Run("feed failure is a bad gateway", func(t *testing.T) {
		feed := testutil.NewMockFeed()
		feed.SearchCoinsFunc = func(ctx context.Context, query string) ([]marketdata.CoinMatch, error) {
			return nil, fmt.Errorf("searching coins: %w", marketdata.ErrUnavailable)
		}
		router := newSearchTestServer(feed)

		req := httptest.NewRequest(http.MethodGet, "/search?query=bit", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", w.Code)
		}
	})
}

package marketdata

import (
	"context"
	"errors"

	"github.com/flow-84/crypto-portfolio-v2/internal/domain/entities"
)

var (
	// ErrRateLimited signals an upstream throttling response. Callers may
	// retry with backoff.
	ErrRateLimited = errors.New("market data: rate limited")

	// ErrUnavailable signals a non-retryable upstream failure. The current
	// refresh cycle is aborted and the next scheduled one retries.
	ErrUnavailable = errors.New("market data: unavailable")
)

// Source is the narrow contract to the external price feed.
type Source interface {
	// GetMarketData fetches current quotes for the given coin ids in a
	// single batch call. Ids unknown upstream are simply absent from the
	// result.
	GetMarketData(ctx context.Context, coinIDs []string) (map[string]entities.Quote, error)

	// SearchCoins proxies a free-text coin search.
	SearchCoins(ctx context.Context, query string) ([]CoinMatch, error)
}

// CoinMatch is one coin search result.
type CoinMatch struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

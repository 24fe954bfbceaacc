package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/flow-84/crypto-portfolio-v2/internal/config"
	"github.com/flow-84/crypto-portfolio-v2/internal/domain/entities"
	"github.com/flow-84/crypto-portfolio-v2/internal/domain/marketdata"
)

// Ensure Client implements the feed contract
var _ marketdata.Source = (*Client)(nil)

// Client talks to the CoinGecko REST API. It performs a single HTTP call per
// method; throttling and retry policy live with the caller.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient creates a new CoinGecko client
func NewClient(cfg config.FeedConfig, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Accept", "application/json")

	if cfg.APIKey != "" {
		httpClient.SetHeader("x-cg-demo-api-key", cfg.APIKey)
	}

	return &Client{
		http:   httpClient,
		logger: logger,
	}
}

// marketRow is one entry of the /coins/markets response
type marketRow struct {
	ID           string          `json:"id"`
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	CurrentPrice decimal.Decimal `json:"current_price"`
}

// GetMarketData fetches current USD quotes for the given coin ids in one
// batch request. Ids unknown to CoinGecko are absent from the result.
func (c *Client) GetMarketData(ctx context.Context, coinIDs []string) (map[string]entities.Quote, error) {
	if len(coinIDs) == 0 {
		return map[string]entities.Quote{}, nil
	}

	var rows []marketRow
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"vs_currency": "usd",
			"ids":         strings.Join(coinIDs, ","),
		}).
		SetResult(&rows).
		Get("/coins/markets")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", marketdata.ErrUnavailable, err)
	}

	if err := classifyStatus(resp.StatusCode()); err != nil {
		return nil, err
	}

	observedAt := time.Now()
	quotes := make(map[string]entities.Quote, len(rows))
	for _, row := range rows {
		quotes[row.ID] = entities.Quote{
			CoinID:     row.ID,
			USD:        row.CurrentPrice,
			Name:       row.Name,
			Symbol:     strings.ToUpper(row.Symbol),
			ObservedAt: observedAt,
		}
	}

	c.logger.Debug("Fetched market data",
		zap.Int("requested", len(coinIDs)),
		zap.Int("returned", len(quotes)),
	)

	return quotes, nil
}

// searchResponse is the shape of the /search response
type searchResponse struct {
	Coins []marketdata.CoinMatch `json:"coins"`
}

// SearchCoins proxies a free-text coin search to CoinGecko
func (c *Client) SearchCoins(ctx context.Context, query string) ([]marketdata.CoinMatch, error) {
	var result searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("query", query).
		SetResult(&result).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", marketdata.ErrUnavailable, err)
	}

	if err := classifyStatus(resp.StatusCode()); err != nil {
		return nil, err
	}

	return result.Coins, nil
}

// HealthCheck checks if the upstream API is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/ping")
	if err != nil {
		return fmt.Errorf("feed unreachable: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("feed ping returned status %d", resp.StatusCode())
	}
	return nil
}

// classifyStatus maps upstream HTTP status codes onto the feed error taxonomy
func classifyStatus(status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return marketdata.ErrRateLimited
	case status >= 400:
		return fmt.Errorf("%w: status %d", marketdata.ErrUnavailable, status)
	default:
		return nil
	}
}

package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/flow-84/crypto-portfolio-v2/internal/domain/marketdata"
)

// SearchService passes coin searches through to the market data feed
type SearchService struct {
	feed   marketdata.Source
	logger *zap.Logger
}

// NewSearchService creates a new search service
func NewSearchService(feed marketdata.Source, logger *zap.Logger) *SearchService {
	return &SearchService{
		feed:   feed,
		logger: logger,
	}
}

// SearchResponse wraps coin search results for API response
type SearchResponse struct {
	Data []marketdata.CoinMatch `json:"data"`
}

// Search looks up coins matching a free-text query
func (s *SearchService) Search(ctx context.Context, query string) (*SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &SearchResponse{Data: []marketdata.CoinMatch{}}, nil
	}

	matches, err := s.feed.SearchCoins(ctx, query)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []marketdata.CoinMatch{}
	}

	return &SearchResponse{Data: matches}, nil
}

package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/flow-84/crypto-portfolio-v2/internal/domain/entities"
	"github.com/flow-84/crypto-portfolio-v2/internal/domain/marketdata"
)

// MockCall records one invocation of a mock method
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockPortfolioRepository is an in-memory mock of PortfolioRepository
type MockPortfolioRepository struct {
	mu       sync.RWMutex
	holdings []entities.Holding

	// Function hooks for custom behavior
	LoadFunc func(ctx context.Context) ([]entities.Holding, error)
	SaveFunc func(ctx context.Context, holdings []entities.Holding) error

	// Call tracking
	Calls []MockCall
}

func NewMockPortfolioRepository() *MockPortfolioRepository {
	return &MockPortfolioRepository{
		holdings: make([]entities.Holding, 0),
		Calls:    make([]MockCall, 0),
	}
}

func (m *MockPortfolioRepository) Load(ctx context.Context) ([]entities.Holding, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "Load"})
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]entities.Holding, len(m.holdings))
	copy(out, m.holdings)
	return out, nil
}

func (m *MockPortfolioRepository) Save(ctx context.Context, holdings []entities.Holding) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "Save", Args: []interface{}{holdings}})
	m.mu.Unlock()

	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, holdings)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdings = make([]entities.Holding, len(holdings))
	copy(m.holdings, holdings)
	return nil
}

// SetHoldings seeds the mock store
func (m *MockPortfolioRepository) SetHoldings(holdings ...entities.Holding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdings = append([]entities.Holding{}, holdings...)
}

// Holdings returns a copy of the current stored list
func (m *MockPortfolioRepository) Holdings() []entities.Holding {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entities.Holding, len(m.holdings))
	copy(out, m.holdings)
	return out
}

// SaveCount returns how many times Save was called
func (m *MockPortfolioRepository) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == "Save" {
			n++
		}
	}
	return n
}

// MockFeed is a mock implementation of the market data source
type MockFeed struct {
	mu     sync.RWMutex
	quotes map[string]entities.Quote

	// Function hooks for custom behavior
	GetMarketDataFunc func(ctx context.Context, coinIDs []string) (map[string]entities.Quote, error)
	SearchCoinsFunc   func(ctx context.Context, query string) ([]marketdata.CoinMatch, error)

	// Call tracking
	Calls []MockCall
}

func NewMockFeed() *MockFeed {
	return &MockFeed{
		quotes: make(map[string]entities.Quote),
		Calls:  make([]MockCall, 0),
	}
}

func (m *MockFeed) GetMarketData(ctx context.Context, coinIDs []string) (map[string]entities.Quote, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "GetMarketData", Args: []interface{}{coinIDs}})
	m.mu.Unlock()

	if m.GetMarketDataFunc != nil {
		return m.GetMarketDataFunc(ctx, coinIDs)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]entities.Quote)
	for _, id := range coinIDs {
		if q, ok := m.quotes[id]; ok {
			result[id] = q
		}
	}
	return result, nil
}

func (m *MockFeed) SearchCoins(ctx context.Context, query string) ([]marketdata.CoinMatch, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "SearchCoins", Args: []interface{}{query}})
	m.mu.Unlock()

	if m.SearchCoinsFunc != nil {
		return m.SearchCoinsFunc(ctx, query)
	}

	return []marketdata.CoinMatch{}, nil
}

// SetQuote seeds the mock feed with a quote
func (m *MockFeed) SetQuote(q entities.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[q.CoinID] = q
}

// BatchCount returns how many times GetMarketData was called
func (m *MockFeed) BatchCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == "GetMarketData" {
			n++
		}
	}
	return n
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mu sync.RWMutex

	Healthy bool
	Error   error
}

func NewMockHealthChecker(healthy bool) *MockHealthChecker {
	var err error
	if !healthy {
		err = errors.New("health check failed")
	}
	return &MockHealthChecker{
		Healthy: healthy,
		Error:   err,
	}
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Error
}

func (m *MockHealthChecker) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Healthy = healthy
	if healthy {
		m.Error = nil
	} else {
		m.Error = errors.New("health check failed")
	}
}

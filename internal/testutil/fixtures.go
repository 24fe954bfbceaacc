package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/flow-84/crypto-portfolio-v2/internal/domain/entities"
)

// Common test coin ids
const (
	BitcoinID  = "bitcoin"
	EthereumID = "ethereum"
	DogecoinID = "dogecoin"
)

// CreateTestHolding creates a test holding with default values
func CreateTestHolding(opts ...HoldingOption) entities.Holding {
	h := entities.Holding{
		CoinID: BitcoinID,
		Amount: decimal.NewFromInt(2),
		Name:   "Bitcoin",
		Symbol: "BTC",
	}

	for _, opt := range opts {
		opt(&h)
	}

	return h
}

type HoldingOption func(*entities.Holding)

func WithCoinID(id string) HoldingOption {
	return func(h *entities.Holding) {
		h.CoinID = id
	}
}

func WithAmount(amount string) HoldingOption {
	return func(h *entities.Holding) {
		h.Amount = decimal.RequireFromString(amount)
	}
}

func WithNameSymbol(name, symbol string) HoldingOption {
	return func(h *entities.Holding) {
		h.Name = name
		h.Symbol = symbol
	}
}

func WithLastPrice(usd string, observedAt time.Time) HoldingOption {
	return func(h *entities.Holding) {
		h.LastPrice = &entities.PricePoint{
			USD:        decimal.RequireFromString(usd),
			ObservedAt: observedAt,
		}
	}
}

// CreateTestQuote creates a test quote with default values
func CreateTestQuote(coinID, usd string, observedAt time.Time) entities.Quote {
	q := entities.Quote{
		CoinID:     coinID,
		USD:        decimal.RequireFromString(usd),
		ObservedAt: observedAt,
	}

	switch coinID {
	case BitcoinID:
		q.Name, q.Symbol = "Bitcoin", "BTC"
	case EthereumID:
		q.Name, q.Symbol = "Ethereum", "ETH"
	case DogecoinID:
		q.Name, q.Symbol = "Dogecoin", "DOGE"
	}

	return q
}

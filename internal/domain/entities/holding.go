package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is the last price observed for a holding.
type PricePoint struct {
	USD        decimal.Decimal `json:"usd"`
	ObservedAt time.Time       `json:"observed_at"`
}

// Holding represents one coin position in the portfolio. CoinID is the
// stable upstream identifier and the unique key within the list; Name,
// Symbol and LastPrice are filled in once a price has been fetched.
type Holding struct {
	CoinID    string          `json:"coin_id"`
	Amount    decimal.Decimal `json:"amount"`
	Name      string          `json:"name"`
	Symbol    string          `json:"symbol"`
	LastPrice *PricePoint     `json:"last_price,omitempty"`
}

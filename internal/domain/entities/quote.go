package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one cached market price for a coin.
type Quote struct {
	CoinID     string          `json:"coin_id"`
	USD        decimal.Decimal `json:"usd"`
	Name       string          `json:"name"`
	Symbol     string          `json:"symbol"`
	ObservedAt time.Time       `json:"observed_at"`
}

// Fresh reports whether the quote was observed within maxAge of now.
// A stale quote stays usable; staleness only makes it eligible for refresh.
func (q Quote) Fresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(q.ObservedAt) < maxAge
}

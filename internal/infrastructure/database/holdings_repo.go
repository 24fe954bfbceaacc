package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/flow-84/crypto-portfolio-v2/internal/domain/entities"
	"github.com/flow-84/crypto-portfolio-v2/internal/domain/repositories"
)

// Ensure HoldingsRepo implements PortfolioRepository
var _ repositories.PortfolioRepository = (*HoldingsRepo)(nil)

// HoldingsRepo implements PortfolioRepository using PostgreSQL. The whole
// list is replaced on Save inside one transaction; position preserves
// insertion order across round trips.
type HoldingsRepo struct {
	db *sqlx.DB
}

// NewHoldingsRepo creates a new holdings repository
func NewHoldingsRepo(db *sqlx.DB) *HoldingsRepo {
	return &HoldingsRepo{db: db}
}

// EnsureSchema creates the holdings table if it does not exist
func (r *HoldingsRepo) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS holdings (
			coin_id           TEXT PRIMARY KEY,
			amount            NUMERIC(38, 18) NOT NULL,
			name              TEXT NOT NULL DEFAULT '',
			symbol            TEXT NOT NULL DEFAULT '',
			last_price_usd    NUMERIC(38, 18),
			price_observed_at TIMESTAMPTZ,
			position          INT NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure holdings schema: %w", err)
	}
	return nil
}

// holdingRow is the database representation of a holding
type holdingRow struct {
	CoinID          string     `db:"coin_id"`
	Amount          string     `db:"amount"`
	Name            string     `db:"name"`
	Symbol          string     `db:"symbol"`
	LastPriceUSD    *string    `db:"last_price_usd"`
	PriceObservedAt *time.Time `db:"price_observed_at"`
	Position        int        `db:"position"`
}

// Load retrieves all holdings in insertion order
func (r *HoldingsRepo) Load(ctx context.Context) ([]entities.Holding, error) {
	query := `
		SELECT coin_id, amount::text AS amount, name, symbol,
		       last_price_usd::text AS last_price_usd, price_observed_at, position
		FROM holdings
		ORDER BY position ASC
	`

	var rows []holdingRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	holdings := make([]entities.Holding, 0, len(rows))
	for _, row := range rows {
		amount, err := decimal.NewFromString(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("invalid stored amount for %s: %w", row.CoinID, err)
		}

		h := entities.Holding{
			CoinID: row.CoinID,
			Amount: amount,
			Name:   row.Name,
			Symbol: row.Symbol,
		}

		if row.LastPriceUSD != nil && row.PriceObservedAt != nil {
			usd, err := decimal.NewFromString(*row.LastPriceUSD)
			if err != nil {
				return nil, fmt.Errorf("invalid stored price for %s: %w", row.CoinID, err)
			}
			h.LastPrice = &entities.PricePoint{
				USD:        usd,
				ObservedAt: *row.PriceObservedAt,
			}
		}

		holdings = append(holdings, h)
	}

	return holdings, nil
}

// Save replaces the stored holdings list in one transaction
func (r *HoldingsRepo) Save(ctx context.Context, holdings []entities.Holding) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM holdings`); err != nil {
		return fmt.Errorf("failed to clear holdings: %w", err)
	}

	insert := `
		INSERT INTO holdings (coin_id, amount, name, symbol, last_price_usd, price_observed_at, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i, h := range holdings {
		var priceUSD *string
		var observedAt *time.Time
		if h.LastPrice != nil {
			usd := h.LastPrice.USD.String()
			at := h.LastPrice.ObservedAt
			priceUSD = &usd
			observedAt = &at
		}

		if _, err := tx.ExecContext(ctx, insert,
			h.CoinID, h.Amount.String(), h.Name, h.Symbol, priceUSD, observedAt, i,
		); err != nil {
			return fmt.Errorf("failed to insert holding %s: %w", h.CoinID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit holdings: %w", err)
	}

	return nil
}

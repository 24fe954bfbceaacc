package repositories

import (
	"context"

	"github.com/flow-84/crypto-portfolio-v2/internal/domain/entities"
)

// PortfolioRepository is the durable store of the holdings list. The list is
// the source of truth for membership and amounts; callers read-modify-write
// the whole list and Save must preserve entries they did not touch.
type PortfolioRepository interface {
	// Load retrieves all holdings in insertion order.
	Load(ctx context.Context) ([]entities.Holding, error)

	// Save replaces the stored holdings list.
	Save(ctx context.Context, holdings []entities.Holding) error
}

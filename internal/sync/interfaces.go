package sync

import (
	"context"

	"github.com/vaultmesh/vaultmesh/models"
)

// ItemStore is the persistence surface the engine needs: an append-only log
// of accepted items per vault. The sqlite implementation lives in
// internal/store; tests substitute an in-memory one.
type ItemStore interface {
	// SaveItem appends an accepted item to the vault's log.
	SaveItem(ctx context.Context, item models.Item) error

	// GetItems returns every stored item of the vault, ordered by origin
	// node and ascending sequence number.
	GetItems(ctx context.Context, vault string) ([]models.Item, error)
}

package store

import (
	"context"

	"github.com/vaultmesh/vaultmesh/models"
)

// ItemRepository is the append-only log of accepted replication items.
type ItemRepository interface {
	// SaveItem appends an accepted item. Re-saving the same
	// (vault, node, seqnr) is a no-op so redelivery stays idempotent.
	SaveItem(ctx context.Context, item models.Item) error

	// GetItems returns every item of the vault ordered by origin node
	// and ascending sequence number.
	GetItems(ctx context.Context, vault string) ([]models.Item, error)

	// GetItemsByNodes narrows GetItems to the given origin nodes.
	GetItemsByNodes(ctx context.Context, vault string, nodes []string) ([]models.Item, error)

	// HighestSeqNrs returns the highest stored sequence number per
	// origin node, the starting point for requesting deltas from peers.
	HighestSeqNrs(ctx context.Context, vault string) (map[string]uint64, error)
}

// VaultRepository persists local vault records, including their encrypted
// private key blocks. Nothing stored here is cleartext secret material.
type VaultRepository interface {
	// SaveVault inserts or replaces a vault record.
	SaveVault(ctx context.Context, vault models.Vault) error

	// GetVault loads one vault record by ID.
	GetVault(ctx context.Context, id string) (models.Vault, error)

	// ListVaults returns all vault records on this device.
	ListVaults(ctx context.Context) ([]models.Vault, error)
}

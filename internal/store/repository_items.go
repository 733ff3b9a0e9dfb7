package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vaultmesh/vaultmesh/internal/logger"
	"github.com/vaultmesh/vaultmesh/models"
)

// itemRepository is the sqlite-backed implementation of [ItemRepository].
// Every item row keeps the full canonical-equivalent JSON in the raw
// column; the indexed columns exist only for filtering and ordering, so the
// stored record and the replicated record can never drift apart.
type itemRepository struct {
	*DB
	logger *logger.Logger
}

// NewItemRepository constructs an [ItemRepository] backed by the provided
// database connection and logger.
func NewItemRepository(db *DB, logger *logger.Logger) ItemRepository {
	return &itemRepository{
		DB:     db,
		logger: logger,
	}
}

// SaveItem implements [ItemRepository]. INSERT OR IGNORE keeps redelivery
// idempotent: re-saving an already stored (vault, node, seqnr) affects no
// rows and is not an error.
func (r *itemRepository) SaveItem(ctx context.Context, item models.Item) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecodingRecord, err)
	}

	_, err = r.DB.ExecContext(ctx, saveItem,
		item.ID,
		item.Vault,
		item.Origin.Node,
		item.Origin.SeqNr,
		string(item.Payload.Type),
		string(raw),
	)
	if err != nil {
		r.logger.Err(err).
			Str("func", "itemRepository.SaveItem").
			Str("item", item.ID).
			Str("vault", item.Vault).
			Msg("failed to insert item")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// GetItems implements [ItemRepository].
func (r *itemRepository) GetItems(ctx context.Context, vault string) ([]models.Item, error) {
	return r.GetItemsByNodes(ctx, vault, nil)
}

// GetItemsByNodes implements [ItemRepository].
func (r *itemRepository) GetItemsByNodes(ctx context.Context, vault string, nodes []string) ([]models.Item, error) {
	query, args, err := buildGetItemsQuery(vault, nodes)
	if err != nil {
		r.logger.Err(err).
			Str("func", "itemRepository.GetItemsByNodes").
			Str("vault", vault).
			Msg("failed to create query")
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Err(err).
			Str("func", "itemRepository.GetItemsByNodes").
			Str("vault", vault).
			Int("nodes count", len(nodes)).
			Msg("failed to execute query for getting items")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	items := make([]models.Item, 0, 50)

	for rows.Next() {
		var raw string
		if scanErr := rows.Scan(&raw); scanErr != nil {
			r.logger.Err(scanErr).
				Str("func", "itemRepository.GetItemsByNodes").
				Str("vault", vault).
				Msg("failed to scan item row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		var item models.Item
		if decErr := json.Unmarshal([]byte(raw), &item); decErr != nil {
			r.logger.Err(decErr).
				Str("func", "itemRepository.GetItemsByNodes").
				Str("vault", vault).
				Msg("failed to decode stored item")
			return nil, fmt.Errorf("%w: %w", ErrDecodingRecord, decErr)
		}

		items = append(items, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		r.logger.Err(rowsErr).
			Str("func", "itemRepository.GetItemsByNodes").
			Str("vault", vault).
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return items, nil
}

// HighestSeqNrs implements [ItemRepository].
func (r *itemRepository) HighestSeqNrs(ctx context.Context, vault string) (map[string]uint64, error) {
	rows, err := r.DB.QueryContext(ctx, getHighestSeqNrs, vault)
	if err != nil {
		r.logger.Err(err).
			Str("func", "itemRepository.HighestSeqNrs").
			Str("vault", vault).
			Msg("failed to execute query for highest sequence numbers")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	highest := make(map[string]uint64)

	for rows.Next() {
		var (
			node  string
			seqnr uint64
		)
		if scanErr := rows.Scan(&node, &seqnr); scanErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}
		highest[node] = seqnr
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return highest, nil
}

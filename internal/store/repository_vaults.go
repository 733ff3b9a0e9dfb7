package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vaultmesh/vaultmesh/internal/logger"
	"github.com/vaultmesh/vaultmesh/models"
)

// vaultRepository is the sqlite-backed implementation of [VaultRepository].
// The vault record is stored as one JSON blob; private keys inside it are
// already encrypted under the user password before they reach this layer.
type vaultRepository struct {
	*DB
	logger *logger.Logger
}

// NewVaultRepository constructs a [VaultRepository] backed by the provided
// database connection and logger.
func NewVaultRepository(db *DB, logger *logger.Logger) VaultRepository {
	return &vaultRepository{
		DB:     db,
		logger: logger,
	}
}

// SaveVault implements [VaultRepository]. An existing record with the same
// ID is replaced; key rewraps rely on this to persist the new blocks.
func (r *vaultRepository) SaveVault(ctx context.Context, vault models.Vault) error {
	record, err := json.Marshal(vault)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecodingRecord, err)
	}

	_, err = r.DB.ExecContext(ctx, saveVault, vault.ID, vault.Name, vault.Node, string(record))
	if err != nil {
		r.logger.Err(err).
			Str("func", "vaultRepository.SaveVault").
			Str("vault", vault.ID).
			Msg("failed to save vault record")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// GetVault implements [VaultRepository].
func (r *vaultRepository) GetVault(ctx context.Context, id string) (models.Vault, error) {
	var record string

	err := r.DB.QueryRowContext(ctx, getVault, id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Vault{}, fmt.Errorf("%w: %s", ErrVaultNotFound, id)
	}
	if err != nil {
		r.logger.Err(err).
			Str("func", "vaultRepository.GetVault").
			Str("vault", id).
			Msg("failed to query vault record")
		return models.Vault{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	var vault models.Vault
	if err = json.Unmarshal([]byte(record), &vault); err != nil {
		return models.Vault{}, fmt.Errorf("%w: %w", ErrDecodingRecord, err)
	}

	return vault, nil
}

// ListVaults implements [VaultRepository].
func (r *vaultRepository) ListVaults(ctx context.Context) ([]models.Vault, error) {
	rows, err := r.DB.QueryContext(ctx, listVaults)
	if err != nil {
		r.logger.Err(err).
			Str("func", "vaultRepository.ListVaults").
			Msg("failed to query vault records")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	vaults := make([]models.Vault, 0, 4)

	for rows.Next() {
		var record string
		if scanErr := rows.Scan(&record); scanErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		var vault models.Vault
		if decErr := json.Unmarshal([]byte(record), &vault); decErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecodingRecord, decErr)
		}

		vaults = append(vaults, vault)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return vaults, nil
}

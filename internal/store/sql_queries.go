package store

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

const (
	saveItem = `
		INSERT OR IGNORE INTO items (
			id,
			vault,
			node,
			seqnr,
			payload_type,
			raw
		) VALUES (?, ?, ?, ?, ?, ?);`

	getHighestSeqNrs = `
		SELECT node, MAX(seqnr)
		FROM items
		WHERE vault = ?
		GROUP BY node;`

	saveVault = `
		INSERT INTO vaults (id, name, node, record, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			name       = excluded.name,
			record     = excluded.record,
			updated_at = CURRENT_TIMESTAMP;`

	getVault = `
		SELECT record
		FROM vaults
		WHERE id = ?;`

	listVaults = `
		SELECT record
		FROM vaults
		ORDER BY id;`
)

// buildGetItemsQuery constructs the item log SELECT. The node filter is
// added only when nodes is non-empty; squirrel expands the slice into an
// IN (?,?,...) clause.
func buildGetItemsQuery(vault string, nodes []string) (string, []any, error) {
	builder := sq.Select("raw").
		From("items").
		Where(sq.Eq{"vault": vault}).
		OrderBy("node", "seqnr")

	if len(nodes) > 0 {
		builder = builder.Where(sq.Eq{"node": nodes})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

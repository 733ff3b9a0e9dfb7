package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known
// failure conditions. Callers should use [errors.Is] to match against
// these values.
var (
	// ErrItemNotSaved is returned when an INSERT of an item completes
	// without error but no row was persisted.
	ErrItemNotSaved = errors.New("item was not saved")

	// ErrVaultNotFound is returned when a query targets a vault record
	// that does not exist in the database.
	ErrVaultNotFound = errors.New("vault was not found")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain
// logic can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised
	// SQL query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to execute statement")

	// ErrScanningRow is returned when scanning column values from a
	// result row into a destination fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when an error is detected during
	// multi-row iteration, typically mid-result-set.
	ErrScanningRows = errors.New("failed to scan rows")

	// ErrDecodingRecord is returned when a stored JSON blob cannot be
	// decoded back into its model.
	ErrDecodingRecord = errors.New("failed to decode stored record")
)

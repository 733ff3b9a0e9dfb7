package store

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultmesh/vaultmesh/internal/logger"
	"github.com/vaultmesh/vaultmesh/models"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &DB{DB: conn, logger: logger.Nop()}, mock
}

func testItem(id string, seqnr uint64) models.Item {
	return models.Item{
		ID:     id,
		Vault:  "vault-1",
		Origin: models.Origin{Node: "node-a", SeqNr: seqnr},
		Payload: models.Payload{
			Type: models.PayloadUnknown,
			Raw:  json.RawMessage(`{"_type":"future","x":1}`),
		},
		Signature: &models.Signature{Algo: models.SignatureRSAPSSSHA256, Blob: "c2ln"},
	}
}

func rawJSON(t *testing.T, item models.Item) string {
	t.Helper()

	raw, err := json.Marshal(item)
	require.NoError(t, err)
	return string(raw)
}

func TestSaveItem(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRepository(db, logger.Nop())

	item := testItem("item-1", 3)
	mock.ExpectExec(regexp.QuoteMeta("INSERT OR IGNORE INTO items")).
		WithArgs(item.ID, item.Vault, "node-a", 3, "unknown", rawJSON(t, item)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.SaveItem(context.Background(), item))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveItem_RedeliveryAffectsNoRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRepository(db, logger.Nop())

	item := testItem("item-1", 3)
	mock.ExpectExec(regexp.QuoteMeta("INSERT OR IGNORE INTO items")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// INSERT OR IGNORE hitting the unique index is success, not an error.
	require.NoError(t, repo.SaveItem(context.Background(), item))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveItem_ExecError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRepository(db, logger.Nop())

	mock.ExpectExec(regexp.QuoteMeta("INSERT OR IGNORE INTO items")).
		WillReturnError(errors.New("database is locked"))

	err := repo.SaveItem(context.Background(), testItem("item-1", 1))
	assert.ErrorIs(t, err, ErrExecutingStatement)
}

func TestGetItems(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRepository(db, logger.Nop())

	want := []models.Item{testItem("item-1", 1), testItem("item-2", 2)}
	rows := sqlmock.NewRows([]string{"raw"}).
		AddRow(rawJSON(t, want[0])).
		AddRow(rawJSON(t, want[1]))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT raw FROM items WHERE vault = ? ORDER BY node, seqnr")).
		WithArgs("vault-1").
		WillReturnRows(rows)

	got, err := repo.GetItems(context.Background(), "vault-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetItemsByNodes_FiltersOnNodes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRepository(db, logger.Nop())

	item := testItem("item-1", 1)
	rows := sqlmock.NewRows([]string{"raw"}).AddRow(rawJSON(t, item))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT raw FROM items WHERE vault = ? AND node IN (?,?) ORDER BY node, seqnr")).
		WithArgs("vault-1", "node-a", "node-b").
		WillReturnRows(rows)

	got, err := repo.GetItemsByNodes(context.Background(), "vault-1", []string{"node-a", "node-b"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, item, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetItems_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRepository(db, logger.Nop())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT raw FROM items")).
		WillReturnError(errors.New("no such table"))

	_, err := repo.GetItems(context.Background(), "vault-1")
	assert.ErrorIs(t, err, ErrExecutingQuery)
}

func TestGetItems_CorruptStoredRecord(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRepository(db, logger.Nop())

	rows := sqlmock.NewRows([]string{"raw"}).AddRow("{not json")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT raw FROM items")).
		WillReturnRows(rows)

	_, err := repo.GetItems(context.Background(), "vault-1")
	assert.ErrorIs(t, err, ErrDecodingRecord)
}

func TestHighestSeqNrs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewItemRepository(db, logger.Nop())

	rows := sqlmock.NewRows([]string{"node", "MAX(seqnr)"}).
		AddRow("node-a", 7).
		AddRow("node-b", 2)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT node, MAX(seqnr)")).
		WithArgs("vault-1").
		WillReturnRows(rows)

	got, err := repo.HighestSeqNrs(context.Background(), "vault-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"node-a": 7, "node-b": 2}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

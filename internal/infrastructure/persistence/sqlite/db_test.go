package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "tx.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE items (name TEXT NOT NULL)`)
	require.NoError(t, err)
	return db
}

func countItems(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func TestWithTransaction_Commit(t *testing.T) {
	db := openTestDB(t)
	m := NewTxManager(db, zap.NewNop())

	err := m.WithTransaction(context.Background(), func(ctx context.Context) error {
		require.NotNil(t, TxFromContext(ctx))
		_, err := ExecutorFor(ctx, db).ExecContext(ctx, `INSERT INTO items (name) VALUES ('carbonara')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countItems(t, db))
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	db := openTestDB(t)
	m := NewTxManager(db, zap.NewNop())
	boom := errors.New("boom")

	err := m.WithTransaction(context.Background(), func(ctx context.Context) error {
		if _, err := ExecutorFor(ctx, db).ExecContext(ctx, `INSERT INTO items (name) VALUES ('amatriciana')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countItems(t, db))
}

func TestWithTransaction_NestedJoinsOuter(t *testing.T) {
	db := openTestDB(t)
	m := NewTxManager(db, zap.NewNop())

	err := m.WithTransaction(context.Background(), func(ctx context.Context) error {
		outer := TxFromContext(ctx)
		inner := m.WithTransaction(ctx, func(ctx context.Context) error {
			assert.Same(t, outer, TxFromContext(ctx))
			_, err := ExecutorFor(ctx, db).ExecContext(ctx, `INSERT INTO items (name) VALUES ('gricia')`)
			return err
		})
		require.NoError(t, inner)
		return errors.New("outer fails")
	})
	require.Error(t, err)
	assert.Equal(t, 0, countItems(t, db))
}

func TestWithTransaction_RollbackOnPanic(t *testing.T) {
	db := openTestDB(t)
	m := NewTxManager(db, zap.NewNop())

	assert.Panics(t, func() {
		_ = m.WithTransaction(context.Background(), func(ctx context.Context) error {
			_, _ = ExecutorFor(ctx, db).ExecContext(ctx, `INSERT INTO items (name) VALUES ('cacio e pepe')`)
			panic("boom")
		})
	})
	assert.Equal(t, 0, countItems(t, db))
}

func TestExecutorFor_FallsBackToDB(t *testing.T) {
	db := openTestDB(t)
	assert.Nil(t, TxFromContext(context.Background()))
	assert.Equal(t, Executor(db), ExecutorFor(context.Background(), db))
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		driver  string
		want    string
		wantErr bool
	}{
		{driver: DriverCGO, want: "file:/tmp/a.db?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"},
		{driver: "", want: "file:/tmp/a.db?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"},
		{driver: DriverPure, want: "file:/tmp/a.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"},
		{driver: "postgres", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			got, err := DSN(tt.driver, "/tmp/a.db")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	db, err := New(Config{Driver: DriverPure, Path: filepath.Join(t.TempDir(), "test.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrator_RunMigrations(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	logger, _ := zap.NewDevelopment()

	fsys := fstest.MapFS{
		"002_add_notes.sql":    {Data: []byte("ALTER TABLE items ADD COLUMN notes TEXT;")},
		"001_create_items.sql": {Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY); CREATE INDEX idx_items ON items(id);")},
		"README.md":            {Data: []byte("ignored")},
	}

	m := NewMigrator(db, logger)
	applied, err := m.RunMigrations(ctx, fsys)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	applied, err = m.RunMigrations(ctx, fsys)
	require.NoError(t, err)
	assert.Equal(t, 0, applied, "second run is a no-op")

	_, err = db.ExecContext(ctx, "INSERT INTO items (id, notes) VALUES ('a', 'b')")
	assert.NoError(t, err)

	var name string
	require.NoError(t, db.QueryRowContext(ctx, "SELECT name FROM schema_migrations WHERE version = 2").Scan(&name))
	assert.Equal(t, "add_notes", name)
}

func TestMigrator_FailedMigrationRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	fsys := fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABLE ok (id TEXT); CREATE TABLE;")},
	}

	_, err := NewMigrator(db, zap.NewNop()).RunMigrations(ctx, fsys)
	require.Error(t, err)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 0, n)
}

func TestLoadMigrations_Errors(t *testing.T) {
	_, err := LoadMigrations(fstest.MapFS{"init.sql": {Data: []byte("SELECT 1;")}})
	assert.ErrorContains(t, err, "invalid migration filename")

	_, err = LoadMigrations(fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"1_b.sql":   {Data: []byte("SELECT 1;")},
	})
	assert.ErrorContains(t, err, "duplicate migration version")
}

func TestDB_WithTransaction(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := db.ExecContext(ctx, "CREATE TABLE t (v INTEGER)")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO t (v) VALUES (1)"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, db.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO t (v) VALUES (2)")
		return err
	}))

	var sum int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COALESCE(SUM(v), 0) FROM t").Scan(&sum))
	assert.Equal(t, 2, sum)
}

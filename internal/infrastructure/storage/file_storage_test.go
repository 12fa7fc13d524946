package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalFileStorage_SaveAndRead(t *testing.T) {
	ctx := context.Background()
	baseDir := t.TempDir()
	logger, _ := zap.NewDevelopment()
	s := NewLocalFileStorage(baseDir, logger)

	t.Run("saves into location directory", func(t *testing.T) {
		path := filepath.Join("trattoria-1", "abc123.xlsx")

		require.NoError(t, s.Save(ctx, path, []byte("workbook")))
		assert.FileExists(t, filepath.Join(baseDir, "trattoria-1", "abc123.xlsx"))
		assert.True(t, s.Exists(ctx, path))

		content, err := s.Read(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, []byte("workbook"), content)
	})

	t.Run("overwrites and leaves no temp files", func(t *testing.T) {
		path := filepath.Join("trattoria-1", "abc123.xlsx")
		require.NoError(t, s.Save(ctx, path, []byte("updated")))

		content, _ := os.ReadFile(s.GetFullPath(path))
		assert.Equal(t, []byte("updated"), content)

		entries, err := os.ReadDir(filepath.Join(baseDir, "trattoria-1"))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		path := filepath.Join("trattoria-1", "abc123.xlsx")
		require.NoError(t, s.Delete(ctx, path))
		require.NoError(t, s.Delete(ctx, path))
		assert.False(t, s.Exists(ctx, path))
	})
}

func TestLocalFileStorage_RejectsEscapingPaths(t *testing.T) {
	ctx := context.Background()
	logger, _ := zap.NewDevelopment()
	s := NewLocalFileStorage(t.TempDir(), logger)

	tests := []string{
		filepath.Join("..", "outside.csv"),
		filepath.Join("loc", "..", "..", "etc", "passwd"),
		".",
	}

	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			err := s.Save(ctx, path, []byte("x"))
			assert.ErrorIs(t, err, ErrPathEscapes)
			assert.False(t, s.Exists(ctx, path))
		})
	}
}

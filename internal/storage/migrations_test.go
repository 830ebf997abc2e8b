package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrator_RunIsIdempotent(t *testing.T) {
	db, err := Open(OpenConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "migrate.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := NewMigrator(db, "sqlite")
	ctx := context.Background()

	applied, err := migrator.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"0001_init_sqlite.sql"}, applied)

	again, err := migrator.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	pending, err := migrator.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourops/backend/internal/infrastructure/config"
)

// newSQLiteDatabase opens a migrated sqlite database private to the test
func newSQLiteDatabase(t *testing.T) *Database {
	t.Helper()

	db, err := NewDatabase(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "capacity.db"),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewDatabase(t *testing.T) {
	t.Run("opens sqlite and migrates capacity tables", func(t *testing.T) {
		db := newSQLiteDatabase(t)

		assert.NoError(t, db.Ping())
		assert.True(t, db.DB.Migrator().HasTable("inventory_items"))
		assert.True(t, db.DB.Migrator().HasTable("bookings"))
		assert.True(t, db.DB.Migrator().HasColumn("inventory_items", "sync_history"))

		sqlDB, err := db.DB.DB()
		require.NoError(t, err)
		assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		_, err := NewDatabase(&config.DatabaseConfig{Driver: "oracle"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database driver")
	})

	t.Run("close releases the connection", func(t *testing.T) {
		db, err := NewDatabase(&config.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "closing.db"),
		}, nil)
		require.NoError(t, err)

		require.NoError(t, db.Close())
		assert.Error(t, db.Ping())
	})
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?cache=shared", sqliteDSN(""))
	assert.Equal(t, "file::memory:?cache=shared", sqliteDSN(":memory:"))
	assert.Equal(t, "/var/lib/tourops.db", sqliteDSN("/var/lib/tourops.db"))
}

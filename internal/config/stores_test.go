package config

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/attempt-engine/internal/lock"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories/sqlite"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreateOfflineStore(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		cfg := StoreConfig{OfflineBackend: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "offline.db")}

		store, err := cfg.CreateOfflineStore(nil, discardLogger())
		require.NoError(t, err)
		defer store.Close()

		assert.IsType(t, &sqlite.OfflineStore{}, store)
		has, err := store.HasOfflineData(context.Background(), 42)
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("postgres without database", func(t *testing.T) {
		cfg := StoreConfig{OfflineBackend: "postgres"}

		_, err := cfg.CreateOfflineStore(nil, discardLogger())
		assert.ErrorIs(t, err, ErrDatabaseRequired)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := StoreConfig{OfflineBackend: "floppy"}

		_, err := cfg.CreateOfflineStore(nil, discardLogger())
		assert.Error(t, err)
	})
}

func TestCreateLockService(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		cfg := StoreConfig{LockBackend: "memory"}

		locks, err := cfg.CreateLockService(nil, 0, discardLogger())
		require.NoError(t, err)
		assert.IsType(t, &lock.MemoryService{}, locks)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		cfg := StoreConfig{LockBackend: "redis"}

		locks, err := cfg.CreateLockService(client, 0, discardLogger())
		require.NoError(t, err)

		key := lock.Key{Component: "mod_quiz", InstanceID: "42"}
		require.NoError(t, locks.Acquire(context.Background(), key, "session-a"))
		held, err := locks.IsHeld(context.Background(), key)
		require.NoError(t, err)
		assert.True(t, held)
	})

	t.Run("redis without client", func(t *testing.T) {
		cfg := StoreConfig{LockBackend: "redis"}

		_, err := cfg.CreateLockService(nil, 0, discardLogger())
		assert.ErrorIs(t, err, ErrRedisRequired)
	})
}

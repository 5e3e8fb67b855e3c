package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/attempt-engine/internal/lock"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories/postgres"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories/sqlite"
)

var (
	ErrDatabaseRequired = errors.New("postgres offline store needs a database connection")
	ErrRedisRequired    = errors.New("redis lock backend needs a redis client")
)

// CreateOfflineStore opens the configured offline store. db is only used by
// the postgres backend and may be nil otherwise.
func (c *StoreConfig) CreateOfflineStore(db *gorm.DB, logger *slog.Logger) (repositories.OfflineStore, error) {
	switch c.OfflineBackend {
	case "postgres":
		if db == nil {
			return nil, ErrDatabaseRequired
		}
		logger.Info("Using postgres offline store")
		store := postgres.NewOfflineStorePostgreSQL(db)
		if err := store.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate offline store: %w", err)
		}
		return store, nil
	case "sqlite", "":
		logger.Info("Using sqlite offline store", "path", c.SQLitePath)
		return sqlite.New(c.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown offline store backend %q", c.OfflineBackend)
	}
}

// CreateLockService builds the session lock registry. client is only used by
// the redis backend and may be nil otherwise.
func (c *StoreConfig) CreateLockService(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) (lock.Service, error) {
	switch c.LockBackend {
	case "redis":
		if client == nil {
			return nil, ErrRedisRequired
		}
		logger.Info("Using redis lock service", "ttl", ttl)
		return lock.NewRedisService(client, ttl, logger), nil
	case "memory", "":
		logger.Info("Using in-process lock service")
		return lock.NewMemoryService(), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", c.LockBackend)
	}
}

package remote

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/cache"
	apperrors "github.com/SAP-F-2025/attempt-engine/internal/errors"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// CachedClient keeps the last known activity config and access info so a
// session can still start when the server is unreachable. Access info is
// read cache-first in offline mode.
type CachedClient struct {
	Client
	cache  cache.CacheService
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedClient(inner Client, c cache.CacheService, ttl time.Duration, logger *slog.Logger) *CachedClient {
	return &CachedClient{Client: inner, cache: c, ttl: ttl, logger: logger}
}

func (c *CachedClient) FetchActivityConfig(ctx context.Context, courseID, activityID int64) (*models.ActivityConfig, error) {
	key := cache.ActivityConfigKey(courseID, activityID)

	cfg, err := c.Client.FetchActivityConfig(ctx, courseID, activityID)
	if err == nil {
		if setErr := c.cache.Set(ctx, key, cfg, c.ttl); setErr != nil {
			c.logger.Warn("Failed to cache activity config", "activity_id", activityID, "error", setErr)
		}
		return cfg, nil
	}
	if !apperrors.IsTransport(err) {
		return nil, err
	}

	var cached models.ActivityConfig
	if cacheErr := c.cache.Get(ctx, key, &cached); cacheErr != nil {
		if !errors.Is(cacheErr, cache.ErrCacheMiss) {
			c.logger.Warn("Failed to read cached activity config", "activity_id", activityID, "error", cacheErr)
		}
		return nil, err
	}
	c.logger.Info("Serving cached activity config", "activity_id", activityID, "cause", err)
	return &cached, nil
}

func (c *CachedClient) GetAccessInfo(ctx context.Context, activityID int64, offline, ignoreCache bool) (*models.AccessInfo, error) {
	key := cache.AccessInfoKey(activityID)

	if offline && !ignoreCache {
		var cached models.AccessInfo
		if err := c.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	info, err := c.Client.GetAccessInfo(ctx, activityID, offline, ignoreCache)
	if err != nil {
		return nil, err
	}
	if setErr := c.cache.Set(ctx, key, info, c.ttl); setErr != nil {
		c.logger.Warn("Failed to cache access info", "activity_id", activityID, "error", setErr)
	}
	return info, nil
}

// Invalidate drops everything cached for the activity.
func (c *CachedClient) Invalidate(ctx context.Context, activityID int64) error {
	return c.cache.DeletePattern(ctx, cache.ActivityPattern(activityID))
}

var _ Client = (*CachedClient)(nil)

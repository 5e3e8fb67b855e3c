package lock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/SAP-F-2025/attempt-engine/internal/errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "attempt-engine:lock:"

// releaseScript deletes the key only when it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisService shares the lock registry between processes on one device
// profile (or kiosk fleet) through Redis. A ttl of zero keeps locks until
// they are released.
type RedisService struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisService(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RedisService {
	return &RedisService{client: client, ttl: ttl, logger: logger}
}

func (s *RedisService) Acquire(ctx context.Context, key Key, holder string) error {
	redisKey := redisKeyPrefix + key.String()

	ok, err := s.client.SetNX(ctx, redisKey, holder, s.ttl).Result()
	if err != nil {
		return apperrors.NewTransportError("acquire lock", err)
	}
	if ok {
		s.logger.Debug("Lock acquired", "key", key.String(), "holder", holder)
		return nil
	}

	current, err := s.client.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		// Released between SETNX and GET, try once more.
		ok, err = s.client.SetNX(ctx, redisKey, holder, s.ttl).Result()
		if err != nil {
			return apperrors.NewTransportError("acquire lock", err)
		}
		if ok {
			return nil
		}
		current, err = s.client.Get(ctx, redisKey).Result()
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return apperrors.NewTransportError("acquire lock", err)
	}

	if current == holder {
		if s.ttl > 0 {
			if err := s.client.Expire(ctx, redisKey, s.ttl).Err(); err != nil {
				return apperrors.NewTransportError("refresh lock", err)
			}
		}
		return nil
	}
	return apperrors.NewConcurrencyError(key.Component, key.InstanceID, current)
}

func (s *RedisService) Release(ctx context.Context, key Key, holder string) error {
	if err := releaseScript.Run(ctx, s.client, []string{redisKeyPrefix + key.String()}, holder).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return apperrors.NewTransportError("release lock", err)
	}
	return nil
}

func (s *RedisService) IsHeld(ctx context.Context, key Key) (bool, error) {
	n, err := s.client.Exists(ctx, redisKeyPrefix+key.String()).Result()
	if err != nil {
		return false, apperrors.NewTransportError("check lock", err)
	}
	return n > 0, nil
}

var _ Service = (*RedisService)(nil)

// Package cachesvc stores revoked tokens and login attempts, in redis or in memory.
package cachesvc

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/pgmanager/core"
)

const (
	revokedPrefix = "auth:revoked:"
	dialTimeout   = 5 * time.Second
	ioTimeout     = 3 * time.Second
)

// NewRedisClient connects to conf.Address and pings it.
func NewRedisClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Address,
		Password:     conf.Password,
		DB:           conf.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

type RedisStore struct {
	client *redis.Client
}

var (
	_ core.TokenStore     = (*RedisStore)(nil)
	_ core.AttemptLimiter = (*RedisStore)(nil)
)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	err := s.client.Set(ctx, revokedPrefix+tokenID, 1, ttl).Err()
	return errors.Wrap(err, "revoking token")
}

func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, errors.Wrap(err, "checking revoked token")
	}
	return n > 0, nil
}

func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrap(err, "counting attempt")
	}
	// the window starts with the first attempt
	if count == 1 {
		if err = s.client.Expire(ctx, key, window).Err(); err != nil {
			return count, errors.Wrap(err, "setting attempt window")
		}
	}
	return count, nil
}

func (s *RedisStore) Attempts(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return count, errors.Wrap(err, "reading attempts")
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return errors.Wrap(s.client.Del(ctx, key).Err(), "resetting attempts")
}

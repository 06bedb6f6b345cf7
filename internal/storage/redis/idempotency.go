package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis"

	"github.com/avstrong/hotelbooking/internal/logger"
)

const (
	keyPrefix     = "booking:idempotency:"
	pendingMarker = "pending"
	// claimTTL bounds how long a key stays reserved by a request that never
	// bound or released it.
	claimTTL = time.Minute
)

type Config struct {
	L    *logger.Logger
	Addr string
	TTL  time.Duration
}

// IdempotencyStore maps client idempotency keys to the booking they created.
type IdempotencyStore struct {
	cli *redis.Client
	l   *logger.Logger
	ttl time.Duration
}

func New(conf Config) *IdempotencyStore {
	//nolint:exhaustruct
	cli := redis.NewClient(&redis.Options{
		Addr: conf.Addr,
	})

	return &IdempotencyStore{cli: cli, l: conf.L, ttl: conf.TTL}
}

func (s *IdempotencyStore) Ping(ctx context.Context) error {
	if err := s.cli.WithContext(ctx).Ping().Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	return nil
}

// Claim reserves key with a pending marker. A taken key reports the booking
// it is bound to, or zero while it is still pending.
func (s *IdempotencyStore) Claim(ctx context.Context, key string) (bool, uint, error) {
	cli := s.cli.WithContext(ctx)

	claimed, err := cli.SetNX(keyPrefix+key, pendingMarker, s.claimTTL()).Result()
	if err != nil {
		return false, 0, fmt.Errorf("claim idempotency key %s: %w", key, err)
	}

	if claimed {
		return true, 0, nil
	}

	value, err := cli.Get(keyPrefix + key).Result()
	if errors.Is(err, redis.Nil) || value == pendingMarker {
		return false, 0, nil
	}

	if err != nil {
		return false, 0, fmt.Errorf("get idempotency key %s: %w", key, err)
	}

	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return false, 0, fmt.Errorf("parse idempotency key %s: %w", key, err)
	}

	return false, uint(id), nil
}

func (s *IdempotencyStore) Bind(ctx context.Context, key string, bookingID uint) error {
	if err := s.cli.WithContext(ctx).Set(keyPrefix+key, uint64(bookingID), s.ttl).Err(); err != nil {
		return fmt.Errorf("bind idempotency key %s: %w", key, err)
	}

	return nil
}

// Release drops the key only while it still holds the pending marker.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	cli := s.cli.WithContext(ctx)

	err := cli.Watch(func(tx *redis.Tx) error {
		value, err := tx.Get(keyPrefix + key).Result()
		if errors.Is(err, redis.Nil) || (err == nil && value != pendingMarker) {
			return nil
		}

		if err != nil {
			return err
		}

		_, err = tx.Pipelined(func(pipe redis.Pipeliner) error {
			pipe.Del(keyPrefix + key)

			return nil
		})

		return err
	}, keyPrefix+key)
	if err != nil {
		return fmt.Errorf("release idempotency key %s: %w", key, err)
	}

	s.l.LogDebug("Idempotency key %s has been released", key)

	return nil
}

func (s *IdempotencyStore) claimTTL() time.Duration {
	if s.ttl > 0 && s.ttl < claimTTL {
		return s.ttl
	}

	return claimTTL
}

func (s *IdempotencyStore) Close() error {
	if err := s.cli.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}

	return nil
}

package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idem:"

// RedisStore shares records between instances. Reservation is a SET NX of a
// pending record, so exactly one request wins a key.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Reserve(ctx context.Context, key, fingerprint string, lease time.Duration) (*Record, error) {
	pending, err := json.Marshal(Record{Fingerprint: fingerprint, Pending: true, CreatedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("encode idempotency record: %w", err)
	}
	ok, err := s.client.SetNX(ctx, keyPrefix+key, pending, lease).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; let the client retry
		return nil, ErrInFlight
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	if record.Pending {
		return nil, ErrInFlight
	}
	return &record, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, record Record, ttl time.Duration) error {
	record.Pending = false
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("store idempotency record: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

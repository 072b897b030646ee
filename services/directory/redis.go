package directory

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultTimeout bounds every round trip to the directory so a slow store
// cannot stall a request worker indefinitely.
const defaultTimeout = 3 * time.Second

// RedisStore implements Store on top of a Redis client. Batches are applied
// with MULTI/EXEC through TxPipelined.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisStore wraps an already-connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, timeout: defaultTimeout}
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	return val, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.SetNX(ctx, key, value, 0).Result()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStore) HashGet(ctx context.Context, key, field string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	val, err := s.client.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	return val, err
}

func (s *RedisStore) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	// HGETALL returns an empty map for missing keys instead of redis.Nil.
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return fields, nil
}

func (s *RedisStore) SetAdd(ctx context.Context, key string, members ...string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.SAdd(ctx, key, toAnySlice(members)...).Err()
}

func (s *RedisStore) SetRemove(ctx context.Context, key string, members ...string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.SRem(ctx, key, toAnySlice(members)...).Err()
}

func (s *RedisStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.SMembers(ctx, key).Result()
}

func (s *RedisStore) Apply(ctx context.Context, batch *Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		queueBatch(ctx, pipe, batch)
		return nil
	})
	return err
}

// applyIfBelowRetries bounds how often a WATCH conflict is retried before the
// error is surfaced.
const applyIfBelowRetries = 3

func (s *RedisStore) ApplyIfBelow(ctx context.Context, setKey string, limit int, batch *Batch) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	applied := false
	check := func(tx *redis.Tx) error {
		n, err := tx.SCard(ctx, setKey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if int(n) >= limit {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			queueBatch(ctx, pipe, batch)
			return nil
		})
		if err == nil {
			applied = true
		}
		return err
	}

	var err error
	for i := 0; i < applyIfBelowRetries; i++ {
		err = s.client.Watch(ctx, check, setKey)
		if err != redis.TxFailedErr {
			break
		}
		// Another writer touched the set between WATCH and EXEC; re-check.
	}
	if err != nil {
		return false, err
	}
	return applied, nil
}

func queueBatch(ctx context.Context, pipe redis.Pipeliner, batch *Batch) {
	for _, op := range batch.ops {
		switch op.kind {
		case opSet:
			pipe.Set(ctx, op.key, op.value, 0)
		case opDelete:
			pipe.Del(ctx, op.keys...)
		case opHashSet:
			pipe.HSet(ctx, op.key, toFieldValues(op.fields)...)
		case opSetAdd:
			pipe.SAdd(ctx, op.key, toAnySlice(op.members)...)
		case opSetRemove:
			pipe.SRem(ctx, op.key, toAnySlice(op.members)...)
		}
	}
}

func toAnySlice(members []string) []interface{} {
	out := make([]interface{}, len(members))
	for i, m := range members {
		out[i] = m
	}
	return out
}

func toFieldValues(fields map[string]string) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}

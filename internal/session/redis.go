package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// maxTxRetries bounds how often Update retries when another writer touched
// the key between WATCH and EXEC.
const maxTxRetries = 16

// RedisStore keeps sessions as JSON strings under "seatmap:session:<key>"
// with a sliding TTL. Update uses WATCH/MULTI so concurrent requests of one
// viewer cannot lose each other's toggles.
type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore wraps an existing client. A non-positive ttl means DefaultTTL.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl, prefix: "seatmap:session:"}
}

func (r *RedisStore) key(k string) string { return r.prefix + k }

func (r *RedisStore) Load(ctx context.Context, key string) (*Session, error) {
	b, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Update(ctx context.Context, key string, fn func(*Session) error) (*Session, error) {
	k := r.key(key)
	var out *Session
	txf := func(tx *redis.Tx) error {
		s := &Session{}
		b, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(b, s); err != nil {
				return fmt.Errorf("decode session: %w", err)
			}
		}
		if err := fn(s); err != nil {
			return err
		}
		enc, err := json.Marshal(s)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, enc, r.ttl)
			return nil
		})
		if err == nil {
			out = s
		}
		return err
	}
	for i := 0; i < maxTxRetries; i++ {
		err := r.rdb.Watch(ctx, txf, k)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("update session %s: too much contention", key)
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.key(key)).Err()
}

package verification

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	codeKeyPrefix = "pwsetup:code:"
	doneKeyPrefix = "pwsetup:done:"
)

// RedisStore keeps challenges in Redis, which makes them shared across
// instances and expired by the server itself.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore returns a Store backed by the given client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, normalizedEmail, codeHash string, ttl time.Duration) error {
	// A fresh code invalidates any previous completion marker.
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, codeKeyPrefix+normalizedEmail, codeHash, ttl)
	pipe.Del(ctx, doneKeyPrefix+normalizedEmail)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Verify(ctx context.Context, normalizedEmail, code string) error {
	hash := HashCode(code)

	done, err := s.client.Get(ctx, doneKeyPrefix+normalizedEmail).Result()
	if err == nil && hashEqual(done, hash) {
		return nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pending, err := s.client.Get(ctx, codeKeyPrefix+normalizedEmail).Result()
	if errors.Is(err, redis.Nil) {
		return ErrCodeExpired
	}
	if err != nil {
		return err
	}
	if !hashEqual(pending, hash) {
		return ErrCodeMismatch
	}

	ttl, err := s.client.TTL(ctx, codeKeyPrefix+normalizedEmail).Result()
	if err != nil || ttl <= 0 {
		ttl = time.Minute
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, doneKeyPrefix+normalizedEmail, hash, ttl)
	pipe.Del(ctx, codeKeyPrefix+normalizedEmail)
	_, err = pipe.Exec(ctx)
	return err
}

func hashEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

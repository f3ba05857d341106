package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "leadgate:fingerprint:"

// RedisIndex shares the fingerprint index across pipeline processes. SETNX
// gives first-writer-wins semantics; the TTL bounds retention of the derived
// identifiers.
type RedisIndex struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIndex(client *redis.Client, ttl time.Duration) *RedisIndex {
	return &RedisIndex{client: client, ttl: ttl}
}

func (i *RedisIndex) Seen(ctx context.Context, fingerprint, leadID string) (bool, error) {
	key := keyPrefix + fingerprint
	claimed, err := i.client.SetNX(ctx, key, leadID, i.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup index setnx: %w", err)
	}
	if claimed {
		return false, nil
	}
	owner, err := i.client.Get(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("dedup index get: %w", err)
	}
	return owner != leadID, nil
}

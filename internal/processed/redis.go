package processed

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wbl-labs/leadharvest/internal/extractor"
)

// RedisStore keeps the processed set as one Redis SET per day with a TTL,
// so multiple instances share skip state without coordination.
type RedisStore struct {
	client *redis.Client
	clock  extractor.Clock
	prefix string
	ttl    time.Duration
}

// NewRedisStore pings the server before returning.
func NewRedisStore(ctx context.Context, addr, password string, db int, clock extractor.Clock) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{
		client: client,
		clock:  clock,
		prefix: "leadharvest:processed:",
		ttl:    48 * time.Hour,
	}, nil
}

func (s *RedisStore) key() string {
	return s.prefix + s.clock.Now().Format("2006-01-02")
}

// IsProcessed checks membership in today's set.
func (s *RedisStore) IsProcessed(ctx context.Context, postID string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key(), postID).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember: %w", err)
	}
	return ok, nil
}

// MarkProcessed adds postID to today's set and refreshes the TTL.
func (s *RedisStore) MarkProcessed(ctx context.Context, postID string) error {
	if postID == "" {
		return nil
	}
	key := s.key()
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, postID)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

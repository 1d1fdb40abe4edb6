// Package ledger caches names of records already uploaded, backed by Redis.
// The cache only short-circuits existence checks; the remote store stays
// authoritative, so losing the cache costs round trips, never correctness.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const savedSetKey = "cloudvault:saved_records"

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Ledger is a Redis-backed set of saved record names.
type Ledger struct {
	rdb *redis.Client
}

// New connects to Redis and verifies the connection.
func New(cfg Config) (*Ledger, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Ledger{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (l *Ledger) Close() error {
	return l.rdb.Close()
}

// Has reports whether the named record was previously marked saved.
func (l *Ledger) Has(ctx context.Context, name string) (bool, error) {
	return l.rdb.SIsMember(ctx, savedSetKey, name).Result()
}

// Mark records that the named record has been saved.
func (l *Ledger) Mark(ctx context.Context, name string) error {
	return l.rdb.SAdd(ctx, savedSetKey, name).Err()
}

// Forget drops a name from the saved set, forcing the next SaveOnce to
// consult the remote store.
func (l *Ledger) Forget(ctx context.Context, name string) error {
	return l.rdb.SRem(ctx, savedSetKey, name).Err()
}

// Package redis reads preloaded spam percentiles from Redis with go-redis/v9.
// Each document's percentile lives under KeyPrefix+docID as a plain string.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/config"
	"github.com/redis/go-redis/v9"
)

const dialTimeout = 5 * time.Second

// Client resolves document IDs to their stored percentile strings.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// NewClient connects to cfg.Addr and fails unless the server answers PING.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: dialTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb, prefix: cfg.KeyPrefix}, nil
}

// Lookup returns the raw value stored for docID. A missing key is reported
// as ok == false with a nil error.
func (c *Client) Lookup(ctx context.Context, docID string) (val string, ok bool, err error) {
	val, err = c.rdb.Get(ctx, c.prefix+docID).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("GET %s%s: %w", c.prefix, docID, err)
	}
	return val, true, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

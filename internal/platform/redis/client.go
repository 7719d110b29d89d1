// Package redis opens the shared connection used by the session and
// behavior-profile stores.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

type Client struct {
	*redis.Client
}

// New dials url and pings once before returning. An empty url means Redis is
// not configured and yields a nil client with no error, so callers fall back
// to in-memory stores.
func New(ctx context.Context, url string) (*Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis unreachable at %s: %w", opts.Addr, err)
	}
	return &Client{Client: rdb}, nil
}

// Health satisfies the router's readiness check signature.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

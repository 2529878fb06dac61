package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// StorageKey namespaces a persisted key-value entry under a scope
// (one scope per shopper device or admin session).
func StorageKey(scope, key string) string {
	return fmt.Sprintf("chezmonami:store:%s:%s", scope, key)
}

// StorageChannel carries storage change notifications for a scope,
// so other contexts observing the same scope can re-read.
func StorageChannel(scope string) string {
	return fmt.Sprintf("chezmonami:changes:%s", scope)
}

// EventChannel carries application events (cart updates, session
// evictions) fanned out to connected clients of a scope.
func EventChannel(scope string) string {
	return fmt.Sprintf("chezmonami:events:%s", scope)
}

// ViewCounterKey addresses a daily analytics counter.
func ViewCounterKey(kind, id, day string) string {
	return fmt.Sprintf("chezmonami:views:%s:%s:%s", kind, id, day)
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/VoltanFr/memcheck-sub004/internal/core/port"
	"github.com/VoltanFr/memcheck-sub004/internal/repository"
)

const defaultUserNamePrefix = "memcheck:user_name"

// UserNameCache caches user display names for diff rendering. Visibility
// diffs resolve ids to names on every request; the cache keeps that off the
// primary store.
type UserNameCache struct {
	client *red.Client
	prefix string
}

// NewUserNameCache constructs a user name cache helper.
func NewUserNameCache(client *red.Client, keyPrefix string) *UserNameCache {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultUserNamePrefix
	}

	return &UserNameCache{client: client, prefix: prefix}
}

var _ port.UserNameCache = (*UserNameCache)(nil)

// GetUserName fetches the cached display name, returning ErrNotFound on cache miss.
func (c *UserNameCache) GetUserName(ctx context.Context, userID string) (string, error) {
	key := c.key(userID)
	if key == "" {
		return "", fmt.Errorf("user id is required")
	}

	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("redis get user name: %w", err)
	}

	return value, nil
}

// SetUserName stores the display name with the provided TTL.
func (c *UserNameCache) SetUserName(ctx context.Context, userID, name string, ttl time.Duration) error {
	key := c.key(userID)
	if key == "" {
		return fmt.Errorf("user id is required")
	}
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	if err := c.client.Set(ctx, key, name, ttl).Err(); err != nil {
		return fmt.Errorf("redis set user name: %w", err)
	}
	return nil
}

func (c *UserNameCache) key(userID string) string {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.prefix, trimmed)
}

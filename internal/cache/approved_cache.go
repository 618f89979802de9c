// Package cache keeps a short-lived copy of the public approved-listing view in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/watch-market/internal/domain"
)

const versionKey = "listings:approved:version"

// ApprovedQuery identifies one page of the public view.
type ApprovedQuery struct {
	Brand  string
	Limit  int
	Offset int
}

// ApprovedCache stores pages of approved listings. Every page key embeds a
// version counter, so Invalidate drops all pages at once.
type ApprovedCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewApprovedCache returns nil when caching is disabled.
func NewApprovedCache(client *redis.Client, ttl time.Duration) *ApprovedCache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &ApprovedCache{client: client, ttl: ttl}
}

// Get returns a cached page. Misses and Redis errors both report ok=false.
func (c *ApprovedCache) Get(ctx context.Context, q ApprovedQuery) ([]domain.Listing, bool) {
	if c == nil {
		return nil, false
	}
	key, err := c.key(ctx, q)
	if err != nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var listings []domain.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, false
	}
	return listings, true
}

// Set stores a page under the current version.
func (c *ApprovedCache) Set(ctx context.Context, q ApprovedQuery, listings []domain.Listing) error {
	if c == nil {
		return nil
	}
	key, err := c.key(ctx, q)
	if err != nil {
		return err
	}
	data, err := json.Marshal(listings)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate bumps the version so every cached page becomes unreachable.
func (c *ApprovedCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Incr(ctx, versionKey).Err()
}

func (c *ApprovedCache) key(ctx context.Context, q ApprovedQuery) (string, error) {
	version, err := c.client.Get(ctx, versionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	brand := strings.ToLower(strings.TrimSpace(q.Brand))
	return fmt.Sprintf("listings:approved:v%d:%s:%d:%d", version, brand, q.Limit, q.Offset), nil
}

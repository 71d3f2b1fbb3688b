package document

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/backstage-events/backstage/internal/registry"
)

// ListCache is a redis read-through cache for collection listings. A nil
// receiver disables caching, so the store works without redis.
type ListCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewListCache constructs a ListCache.
func NewListCache(client *redis.Client, ttl time.Duration) *ListCache {
	if client == nil {
		return nil
	}
	return &ListCache{client: client, ttl: ttl}
}

func (c *ListCache) key(kind registry.Kind) string {
	return "backstage:docs:" + kind.Collection()
}

// Get returns the cached listing, if any.
func (c *ListCache) Get(ctx context.Context, kind registry.Kind) ([]Document, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, c.key(kind)).Bytes()
	if err != nil {
		return nil, false
	}
	var docs []Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, false
	}
	return docs, true
}

// Set stores a listing with the configured TTL. Failures are ignored; the
// cache is an optimization, not a source of truth.
func (c *ListCache) Set(ctx context.Context, kind registry.Kind, docs []Document) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(docs)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(kind), raw, c.ttl).Err()
}

// Invalidate drops the cached listing after any write to the kind.
func (c *ListCache) Invalidate(ctx context.Context, kind registry.Kind) {
	if c == nil {
		return
	}
	_ = c.client.Del(ctx, c.key(kind)).Err()
}

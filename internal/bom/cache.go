package bom

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "bom:explosion:version"

// Cache memoises unit explosion results in Redis. Entries are keyed by
// header id and a global version; bumping the version after BOM edits
// invalidates every cached explosion at once.
//
// The cache is best effort: any Redis failure reads as a miss so the
// caller falls through to a fresh computation.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

type cacheEntry struct {
	Requirements []Requirement `json:"requirements"`
}

func (c *Cache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

func (c *Cache) key(ctx context.Context, headerID int64) (string, error) {
	ver, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("bom:explosion:%d:%d", headerID, ver), nil
}

// Fetch loads the cached unit explosion for a header. A missing entry or
// any Redis error reads as a miss.
func (c *Cache) Fetch(ctx context.Context, headerID int64) (map[int64]*Requirement, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	key, err := c.key(ctx, headerID)
	if err != nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	out := make(map[int64]*Requirement, len(entry.Requirements))
	for i := range entry.Requirements {
		req := entry.Requirements[i]
		out[req.MaterialID] = &req
	}
	return out, true
}

// Store persists the unit explosion for a header, best effort.
func (c *Cache) Store(ctx context.Context, headerID int64, unit map[int64]*Requirement) {
	if c == nil || c.client == nil {
		return
	}
	key, err := c.key(ctx, headerID)
	if err != nil {
		return
	}
	entry := cacheEntry{Requirements: make([]Requirement, 0, len(unit))}
	for _, req := range unit {
		entry.Requirements = append(entry.Requirements, *req)
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate bumps the cache version so existing entries are ignored.
// Call after any BOM header or line changes.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

package media

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache memoizes resolutions so retries and duplicate batch entries do
// not re-scrape pages or re-hit mirror quota. Stream URLs expire
// upstream, so the TTL stays short. Every failure here is soft: a
// broken cache degrades to resolving again.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl, logger: slog.Default()}
}

func cacheKey(rawURL string) string { return "resolve:" + rawURL }

// Get returns a cached resolution for the reference, if any.
func (c *Cache) Get(ctx context.Context, rawURL string) (*Resolution, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	val, err := c.client.Get(ctx, cacheKey(rawURL)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("resolution cache get failed", "url", rawURL, "error", err)
		}
		return nil, false
	}
	var res Resolution
	if err := json.Unmarshal([]byte(val), &res); err != nil {
		c.logger.Debug("resolution cache entry malformed", "url", rawURL, "error", err)
		return nil, false
	}
	return &res, true
}

// Put stores a resolution with the configured TTL.
func (c *Cache) Put(ctx context.Context, rawURL string, res *Resolution) {
	if c == nil || c.client == nil || res == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(rawURL), data, c.ttl).Err(); err != nil {
		c.logger.Debug("resolution cache put failed", "url", rawURL, "error", err)
	}
}

package locate

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ppiankov/alignmap/internal/cache"
)

const cacheNamespace = "spans"

// Cached memoizes a Locator by path and content. Failures are not cached.
type Cached struct {
	inner  Locator
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps inner; a nil cache disables memoization
func NewCached(inner Locator, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{inner: inner, cache: c, ttl: ttl, logger: logger}
}

// Locate returns cached spans when the same content was seen before
func (c *Cached) Locate(ctx context.Context, path string, src []byte) ([]Span, error) {
	if c.cache == nil {
		return c.inner.Locate(ctx, path, src)
	}

	key := cache.CacheKey(cacheNamespace, path, src)
	if data, ok := c.cache.Get(key); ok {
		var spans []Span
		if err := json.Unmarshal(data, &spans); err == nil {
			c.logger.Debug("span cache hit", "path", path)
			return spans, nil
		}
		_ = c.cache.Delete(key)
	}

	spans, err := c.inner.Locate(ctx, path, src)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(spans); err == nil {
		if err := c.cache.Set(key, data, c.ttl); err != nil {
			c.logger.Debug("span cache write failed", "path", path, "error", err)
		}
	}
	return spans, nil
}

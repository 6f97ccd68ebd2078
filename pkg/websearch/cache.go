package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"kernel-workspace-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "websearch:"

// CachedSearcher memoizes search digests in Redis. Redis failures are logged
// and the lookup falls through to the wrapped Searcher.
type CachedSearcher struct {
	next   Searcher
	rdb    *redis.Client
	ttl    time.Duration
	logger logger.ILogger
}

func NewCachedSearcher(next Searcher, rdb *redis.Client, ttl time.Duration, log logger.ILogger) *CachedSearcher {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CachedSearcher{next: next, rdb: rdb, ttl: ttl, logger: log}
}

var _ Searcher = (*CachedSearcher)(nil)

func (c *CachedSearcher) Search(ctx context.Context, query string) (string, error) {
	key := cacheKey(query)

	cached, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		return cached, nil
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("WebSearch", "Cache read failed", map[string]interface{}{"error": err.Error()})
	}

	digest, err := c.next.Search(ctx, query)
	if err != nil {
		return "", err
	}

	if err := c.rdb.Set(ctx, key, digest, c.ttl).Err(); err != nil {
		c.logger.Warn("WebSearch", "Cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return digest, nil
}

func cacheKey(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

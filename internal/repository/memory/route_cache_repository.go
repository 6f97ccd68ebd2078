package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// RouteCacheRepository remembers classifier verdicts keyed by a normalized
// query fingerprint.
type RouteCacheRepository struct {
	cache *cache.Cache
}

func NewRouteCacheRepository(ttl time.Duration) *RouteCacheRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	// Purge expired items at twice the expiration interval
	c := cache.New(ttl, 2*ttl)
	return &RouteCacheRepository{
		cache: c,
	}
}

func (r *RouteCacheRepository) Save(key string, route string) {
	r.cache.Set(key, route, cache.DefaultExpiration)
}

func (r *RouteCacheRepository) Get(key string) (string, bool) {
	if x, found := r.cache.Get(key); found {
		return x.(string), true
	}
	return "", false
}

func (r *RouteCacheRepository) Flush() {
	r.cache.Flush()
}

func (r *RouteCacheRepository) Len() int {
	return r.cache.ItemCount()
}

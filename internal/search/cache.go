package search

import (
	"strconv"

	gocache "github.com/patrickmn/go-cache"

	"connectlist/contentservice/internal/domain"
	"connectlist/contentservice/internal/metrics"
)

// ResultCache holds one session's search pages. Entries never expire while
// the session lives; the session's lifetime bounds the cache. Pages are
// cloned on the way in and out so callers cannot mutate cached items.
type ResultCache struct {
	store *gocache.Cache
}

func NewResultCache() *ResultCache {
	return &ResultCache{store: gocache.New(gocache.NoExpiration, 0)}
}

// CacheKey folds category and query into the cache key. Queries are
// normalized, so "Batman" and " batman " share one entry. The page number
// is only part of the key beyond the first page.
func CacheKey(category domain.Category, query string, page int) string {
	key := string(category) + "|" + domain.NormalizeQuery(query)
	if page > 1 {
		key += "|p" + strconv.Itoa(page)
	}
	return key
}

func (c *ResultCache) Get(category domain.Category, query string, page int) (domain.Page, bool) {
	value, ok := c.store.Get(CacheKey(category, query, page))
	if !ok {
		metrics.SessionCacheMissesTotal.Inc()
		return domain.Page{}, false
	}
	cached, ok := value.(domain.Page)
	if !ok {
		metrics.SessionCacheMissesTotal.Inc()
		return domain.Page{}, false
	}
	metrics.SessionCacheHitsTotal.Inc()
	return cached.Clone(), true
}

// Put stores page, replacing any earlier entry for the same key.
func (c *ResultCache) Put(category domain.Category, query string, page int, result domain.Page) {
	c.store.Set(CacheKey(category, query, page), result.Clone(), gocache.NoExpiration)
}

func (c *ResultCache) Len() int {
	return c.store.ItemCount()
}

func (c *ResultCache) Flush() {
	c.store.Flush()
}

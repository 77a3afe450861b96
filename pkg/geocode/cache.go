package geocode

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/klanavo/klanavo/internal/model"
)

type cacheEntry struct {
	result   model.GeocodeResult
	cachedAt time.Time
}

// memoCache keeps resolved positions in memory. Many listings along a route
// share a postal code, so repeated lookups are common within a run. A nil
// cache is valid and never hits.
type memoCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]cacheEntry
	nowFunc func() time.Time
}

func newMemoCache(ttl time.Duration) *memoCache {
	return &memoCache{ttl: ttl, entries: make(map[string]cacheEntry), nowFunc: time.Now}
}

// cacheKey normalises input so "Talheim" and " talheim" share an entry.
func cacheKey(kind, input string) string {
	return kind + "|" + strings.ToLower(strings.TrimSpace(input))
}

func (c *memoCache) get(kind, input string) (model.GeocodeResult, bool) {
	if c == nil {
		return model.GeocodeResult{}, false
	}
	key := cacheKey(kind, input)

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return model.GeocodeResult{}, false
	}
	if c.nowFunc().Sub(e.cachedAt) > c.ttl {
		delete(c.entries, key)
		return model.GeocodeResult{}, false
	}
	zap.L().Debug("geocode: cache hit", zap.String("key", key))
	return e.result, true
}

// put stores only resolved results so a provider outage is not remembered.
func (c *memoCache) put(kind, input string, res model.GeocodeResult) {
	if c == nil || res.Position == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(kind, input)] = cacheEntry{result: res, cachedAt: c.nowFunc()}
}

package pipeline

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// resultCache memoizes results by image digest and model. Identical uploads
// (the batch page re-submits on retry) skip both model calls.
type resultCache struct {
	c *cache.Cache
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{c: cache.New(ttl, ttl*2)}
}

func cacheKey(digest, model string) string {
	return model + ":" + digest
}

// get returns a copy marked as cached
func (rc *resultCache) get(key string) (*Result, bool) {
	v, ok := rc.c.Get(key)
	if !ok {
		return nil, false
	}
	res, ok := v.(*Result)
	if !ok {
		return nil, false
	}
	out := *res
	out.Cached = true
	return &out, true
}

func (rc *resultCache) set(key string, res *Result) {
	rc.c.SetDefault(key, res)
}

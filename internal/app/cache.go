package service

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/tally/internal/domain/leaderboard"
)

// resultCache is a bounded LRU of computed leaderboards. Cached results are
// shared and must not be mutated. A non-positive limit disables caching.
type resultCache struct {
	lru *lru.Cache[string, *leaderboard.Result]
}

func newResultCache(limit int) *resultCache {
	if limit <= 0 {
		return &resultCache{}
	}
	c, err := lru.New[string, *leaderboard.Result](limit)
	if err != nil {
		return &resultCache{}
	}
	return &resultCache{lru: c}
}

func (c *resultCache) get(key string) (*leaderboard.Result, bool) {
	if c.lru == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *resultCache) put(key string, r *leaderboard.Result) {
	if c.lru == nil {
		return
	}
	c.lru.Add(key, r)
}

func (c *resultCache) size() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

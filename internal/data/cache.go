package data

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"farm-dashboard/internal/model"
)

// SitesCache keeps site lists per farm API base URL for a short TTL.
// The site list rarely changes, summaries are never cached.
type SitesCache struct {
	lru *expirable.LRU[string, []model.Site]
}

func NewSitesCache(size int, ttl time.Duration) *SitesCache {
	if size <= 0 {
		size = 16
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SitesCache{lru: expirable.NewLRU[string, []model.Site](size, nil, ttl)}
}

// Get returns a copy so callers can't mutate the cached slice.
func (c *SitesCache) Get(key string) ([]model.Site, bool) {
	if c == nil {
		return nil, false
	}
	sites, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return append([]model.Site(nil), sites...), true
}

func (c *SitesCache) Set(key string, sites []model.Site) {
	if c == nil {
		return
	}
	c.lru.Add(key, append([]model.Site(nil), sites...))
}

func (c *SitesCache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

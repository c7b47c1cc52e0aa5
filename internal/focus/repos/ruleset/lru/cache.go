// Package lru caches navigation decisions for the rule table. Keys are
// "resourceType|requestHost|initiatorHost" strings, so every URL on a host
// shares one entry; the per-URL redirect target is never stored.
package lru

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/focusd/internal/focus/domain"
	"github.com/haukened/focusd/internal/focus/repos/ruleset"
)

// decisionCache is an LRU-backed ruleset.DecisionCache tracking hits,
// misses and evictions.
type decisionCache struct {
	lru       *lru.Cache[string, domain.BlockDecision]
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache always misses.
type disabledCache struct{}

// New creates a DecisionCache holding up to size entries. size <= 0 returns
// a disabled cache.
func New(size int) (ruleset.DecisionCache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	var dc decisionCache
	cache, err := lru.NewWithEvict(size, func(_ string, _ domain.BlockDecision) {
		atomic.AddUint64(&dc.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	dc.lru = cache
	return &dc, nil
}

func (c *decisionCache) Get(key string) (domain.BlockDecision, bool) {
	if val, ok := c.lru.Get(key); ok {
		atomic.AddUint64(&c.hits, 1)
		return val, true
	}
	atomic.AddUint64(&c.misses, 1)
	return domain.BlockDecision{}, false
}

// Put stores d without its redirect URL, which embeds the original request URL.
func (c *decisionCache) Put(key string, d domain.BlockDecision) {
	d.RedirectURL = ""
	c.lru.Add(key, d)
}

func (c *decisionCache) Len() int { return c.lru.Len() }

// Purge clears all entries; evictions are counted by the callback.
func (c *decisionCache) Purge() { c.lru.Purge() }

func (c *decisionCache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.evictions)
}

func (d *disabledCache) Get(string) (domain.BlockDecision, bool) { return domain.BlockDecision{}, false }
func (d *disabledCache) Put(string, domain.BlockDecision)        {}
func (d *disabledCache) Len() int                                { return 0 }
func (d *disabledCache) Purge()                                  {}
func (d *disabledCache) Stats() (uint64, uint64, uint64)         { return 0, 0, 0 }

var _ ruleset.DecisionCache = (*decisionCache)(nil)
var _ ruleset.DecisionCache = (*disabledCache)(nil)

// Package ruleset holds the installed dynamic rules and evaluates
// navigations against them.
package ruleset

import "github.com/haukened/focusd/internal/focus/domain"

// DecisionCache caches block decisions by request key with basic metrics.
type DecisionCache interface {
	Get(key string) (domain.BlockDecision, bool)
	Put(key string, d domain.BlockDecision)
	Len() int
	Purge()
	Stats() (hits, misses, evictions uint64)
}

// Stats exposes table-level counters.
type Stats struct {
	Rules     int
	Updates   uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

package ruleset

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/haukened/focusd/internal/focus/domain"
)

// Table is the dynamic rule table. Updates remove before they add and are
// applied under one lock, so readers see either the old or the new rule set.
type Table struct {
	mu        sync.RWMutex
	rules     []domain.BlockRule // sorted by priority desc, id asc
	cache     DecisionCache
	cacheable bool
	updates   uint64
}

// New returns an empty table. A nil cache disables decision caching.
func New(cache DecisionCache) *Table {
	return &Table{cache: cache, cacheable: true}
}

// DynamicRules returns a copy of the installed rules.
func (t *Table) DynamicRules() []domain.BlockRule {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.BlockRule, len(t.rules))
	copy(out, t.rules)
	return out
}

// UpdateDynamicRules removes removeIDs then installs add. Invalid rules or
// duplicate ids reject the whole update and leave the table unchanged.
func (t *Table) UpdateDynamicRules(removeIDs []int, add []domain.BlockRule) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	remove := make(map[int]struct{}, len(removeIDs))
	for _, id := range removeIDs {
		remove[id] = struct{}{}
	}

	next := make([]domain.BlockRule, 0, len(t.rules)+len(add))
	ids := make(map[int]struct{}, len(t.rules)+len(add))
	for _, r := range t.rules {
		if _, ok := remove[r.ID]; ok {
			continue
		}
		next = append(next, r)
		ids[r.ID] = struct{}{}
	}
	for _, r := range add {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, dup := ids[r.ID]; dup {
			return fmt.Errorf("rule with id %d already exists", r.ID)
		}
		ids[r.ID] = struct{}{}
		next = append(next, r)
	}
	sort.SliceStable(next, func(i, j int) bool {
		if next[i].Priority != next[j].Priority {
			return next[i].Priority > next[j].Priority
		}
		return next[i].ID < next[j].ID
	})

	t.rules = next
	t.cacheable = true
	for _, r := range next {
		if strings.Trim(r.Condition.URLFilter, "*") != "" {
			t.cacheable = false
			break
		}
	}
	t.updates++
	if t.cache != nil {
		t.cache.Purge()
	}
	return nil
}

// Evaluate returns the decision of the highest priority matching rule, or
// an empty decision when nothing matches.
func (t *Table) Evaluate(req domain.NavigationRequest) domain.BlockDecision {
	t.mu.RLock()
	defer t.mu.RUnlock()

	useCache := t.cache != nil && t.cacheable
	key := decisionKey(req)
	if useCache {
		if d, ok := t.cache.Get(key); ok {
			return t.withRedirect(d, req)
		}
	}

	dec := domain.EmptyDecision()
	for _, r := range t.rules {
		if r.Matches(req) {
			dec = r.Evaluate(req)
			break
		}
	}

	if useCache {
		cached := dec
		cached.RedirectURL = ""
		t.cache.Put(key, cached)
	}
	return dec
}

// Stats reports rule count and cache counters.
func (t *Table) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st := Stats{Rules: len(t.rules), Updates: t.updates}
	if t.cache != nil {
		st.Hits, st.Misses, st.Evictions = t.cache.Stats()
	}
	return st
}

// withRedirect rebuilds the per-request redirect target of a cached decision.
func (t *Table) withRedirect(d domain.BlockDecision, req domain.NavigationRequest) domain.BlockDecision {
	if d.Action != domain.RuleActionRedirect {
		return d
	}
	for _, r := range t.rules {
		if r.ID == d.RuleID && r.Action.Redirect != nil {
			d.RedirectURL = domain.BlockPageURL(r.Action.Redirect.URL, req.URL)
			break
		}
	}
	return d
}

// decisionKey identifies requests that every match-all rule treats alike.
func decisionKey(req domain.NavigationRequest) string {
	rt := req.ResourceType
	if rt == "" {
		rt = domain.ResourceMainFrame
	}
	return string(rt) + "|" + domain.RequestHost(req.URL) + "|" + domain.RequestHost(req.Initiator)
}

package ruleset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/focusd/internal/focus/domain"
)

const blockPage = "chrome-extension://abc/blocked.html"

// mapCache is an unbounded DecisionCache for tests.
type mapCache struct {
	m            map[string]domain.BlockDecision
	hits, misses uint64
	purges       int
}

func newMapCache() *mapCache { return &mapCache{m: map[string]domain.BlockDecision{}} }

func (c *mapCache) Get(k string) (domain.BlockDecision, bool) {
	d, ok := c.m[k]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return d, ok
}
func (c *mapCache) Put(k string, d domain.BlockDecision) { c.m[k] = d }
func (c *mapCache) Len() int                             { return len(c.m) }
func (c *mapCache) Purge()                               { c.m = map[string]domain.BlockDecision{}; c.purges++ }
func (c *mapCache) Stats() (uint64, uint64, uint64)      { return c.hits, c.misses, 0 }

func focusRule(t *testing.T, allowed ...string) domain.BlockRule {
	t.Helper()
	r, ok := domain.DeriveRule(true, domain.AllowList(allowed), blockPage)
	require.True(t, ok)
	return r
}

func TestTable_ReplaceRule(t *testing.T) {
	tbl := New(nil)
	assert.Empty(t, tbl.DynamicRules())

	require.NoError(t, tbl.UpdateDynamicRules(nil, []domain.BlockRule{focusRule(t)}))
	require.Len(t, tbl.DynamicRules(), 1)

	// Adding the same id again without removing it first is rejected.
	err := tbl.UpdateDynamicRules(nil, []domain.BlockRule{focusRule(t, "a.com")})
	require.Error(t, err)
	assert.Empty(t, tbl.DynamicRules()[0].Condition.ExcludedRequestDomains, "failed update must not mutate")

	require.NoError(t, tbl.UpdateDynamicRules([]int{domain.FocusRuleID}, []domain.BlockRule{focusRule(t, "a.com")}))
	rules := tbl.DynamicRules()
	require.Len(t, rules, 1)
	assert.Equal(t, []string{"a.com"}, rules[0].Condition.ExcludedRequestDomains)

	require.NoError(t, tbl.UpdateDynamicRules([]int{domain.FocusRuleID}, nil))
	assert.Empty(t, tbl.DynamicRules())
	assert.Equal(t, uint64(3), tbl.Stats().Updates)
}

func TestTable_RejectsInvalidRule(t *testing.T) {
	tbl := New(nil)
	err := tbl.UpdateDynamicRules(nil, []domain.BlockRule{{ID: 0}})
	assert.Error(t, err)

	dup := []domain.BlockRule{focusRule(t), focusRule(t)}
	assert.Error(t, tbl.UpdateDynamicRules(nil, dup))
	assert.Empty(t, tbl.DynamicRules())
}

func TestTable_DynamicRulesIsCopy(t *testing.T) {
	tbl := New(nil)
	require.NoError(t, tbl.UpdateDynamicRules(nil, []domain.BlockRule{focusRule(t)}))
	rules := tbl.DynamicRules()
	rules[0].ID = 99
	assert.Equal(t, domain.FocusRuleID, tbl.DynamicRules()[0].ID)
}

func TestTable_Evaluate(t *testing.T) {
	tbl := New(newMapCache())

	d := tbl.Evaluate(domain.NavigationRequest{URL: "https://news.site/"})
	assert.False(t, d.Blocked, "empty table blocks nothing")

	require.NoError(t, tbl.UpdateDynamicRules(nil, []domain.BlockRule{focusRule(t, "example.com")}))

	d = tbl.Evaluate(domain.NavigationRequest{URL: "https://news.site/a"})
	assert.True(t, d.Blocked)
	assert.Equal(t, blockPage+"?url=https%3A%2F%2Fnews.site%2Fa", d.RedirectURL)

	d = tbl.Evaluate(domain.NavigationRequest{URL: "https://example.com/"})
	assert.False(t, d.Blocked)
}

func TestTable_Evaluate_CacheRebuildsRedirect(t *testing.T) {
	cache := newMapCache()
	tbl := New(cache)
	require.NoError(t, tbl.UpdateDynamicRules(nil, []domain.BlockRule{focusRule(t)}))

	first := tbl.Evaluate(domain.NavigationRequest{URL: "https://news.site/one"})
	second := tbl.Evaluate(domain.NavigationRequest{URL: "https://news.site/two"})

	assert.True(t, second.Blocked)
	assert.Contains(t, first.RedirectURL, "one")
	assert.Contains(t, second.RedirectURL, "two")

	st := tbl.Stats()
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
}

func TestTable_Evaluate_PurgedOnUpdate(t *testing.T) {
	cache := newMapCache()
	tbl := New(cache)
	require.NoError(t, tbl.UpdateDynamicRules(nil, []domain.BlockRule{focusRule(t)}))

	assert.True(t, tbl.Evaluate(domain.NavigationRequest{URL: "https://a.com/"}).Blocked)
	require.NoError(t, tbl.UpdateDynamicRules([]int{domain.FocusRuleID}, []domain.BlockRule{focusRule(t, "a.com")}))
	assert.False(t, tbl.Evaluate(domain.NavigationRequest{URL: "https://a.com/"}).Blocked)
	assert.Equal(t, 2, cache.purges)
}

func TestTable_Evaluate_PriorityAndFilters(t *testing.T) {
	cache := newMapCache()
	tbl := New(cache)
	allow := domain.BlockRule{
		ID: 2, Priority: 5,
		Action:    domain.RuleAction{Type: domain.RuleActionAllow},
		Condition: domain.RuleCondition{URLFilter: "docs"},
	}
	require.NoError(t, tbl.UpdateDynamicRules(nil, []domain.BlockRule{focusRule(t), allow}))
	assert.Equal(t, 2, tbl.DynamicRules()[0].ID, "higher priority sorts first")

	assert.False(t, tbl.Evaluate(domain.NavigationRequest{URL: "https://a.com/docs"}).Blocked)
	assert.True(t, tbl.Evaluate(domain.NavigationRequest{URL: "https://a.com/news"}).Blocked)
	assert.Equal(t, 0, cache.Len(), "url filters disable caching")
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockRule_Evaluate(t *testing.T) {
	rule, ok := DeriveRule(true, AllowList{"example.com"}, testBlockPage)
	require.True(t, ok)

	tests := []struct {
		name    string
		req     NavigationRequest
		blocked bool
	}{
		{name: "allowed target", req: NavigationRequest{URL: "https://example.com/page"}},
		{name: "allowed target mixed case", req: NavigationRequest{URL: "https://EXAMPLE.com."}},
		{name: "subdomain is not exempt", req: NavigationRequest{URL: "https://www.example.com/"}, blocked: true},
		{name: "other site blocked", req: NavigationRequest{URL: "https://news.site/"}, blocked: true},
		{name: "allowed initiator", req: NavigationRequest{URL: "https://cdn.other/", Initiator: "https://example.com"}},
		{name: "subresource ignored", req: NavigationRequest{URL: "https://news.site/a.js", ResourceType: ResourceScript}},
		{name: "explicit main frame", req: NavigationRequest{URL: "https://news.site/", ResourceType: ResourceMainFrame}, blocked: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := rule.Evaluate(tt.req)
			assert.Equal(t, tt.blocked, d.Blocked)
			if tt.blocked {
				assert.Equal(t, FocusRuleID, d.RuleID)
				assert.Equal(t, RuleActionRedirect, d.Action)
				assert.Contains(t, d.RedirectURL, testBlockPage+"?url=")
			}
		})
	}
}

func TestBlockRule_Evaluate_NoExceptions(t *testing.T) {
	rule, _ := DeriveRule(true, nil, testBlockPage)
	d := rule.Evaluate(NavigationRequest{URL: "https://example.com/"})
	assert.True(t, d.Blocked)
	assert.Equal(t, "example.com", d.Host)
}

func TestBlockRule_Evaluate_BlockAndAllowActions(t *testing.T) {
	block := BlockRule{ID: 2, Action: RuleAction{Type: RuleActionBlock}}
	assert.True(t, block.Evaluate(NavigationRequest{URL: "https://a.com"}).Blocked)

	allow := BlockRule{ID: 3, Action: RuleAction{Type: RuleActionAllow}}
	d := allow.Evaluate(NavigationRequest{URL: "https://a.com"})
	assert.False(t, d.Blocked)
	assert.Equal(t, 3, d.RuleID)
}

func TestBlockRule_Evaluate_URLFilter(t *testing.T) {
	rule := BlockRule{ID: 4, Action: RuleAction{Type: RuleActionBlock}, Condition: RuleCondition{URLFilter: "*video*"}}
	assert.True(t, rule.Evaluate(NavigationRequest{URL: "https://a.com/video/1"}).Blocked)
	assert.False(t, rule.Evaluate(NavigationRequest{URL: "https://a.com/docs"}).Blocked)
}

func TestRequestHost(t *testing.T) {
	assert.Equal(t, "example.com", RequestHost("https://Example.com:8443/x"))
	assert.Equal(t, "example.com", RequestHost("example.com/path"))
	assert.Equal(t, "", RequestHost(""))
}

func TestBlockPageURL(t *testing.T) {
	assert.Equal(t, testBlockPage+"?url=https%3A%2F%2Fa.com%2Fx", BlockPageURL(testBlockPage, "https://a.com/x"))
	assert.Equal(t, testBlockPage, BlockPageURL(testBlockPage, ""))
	assert.Equal(t, "http://[::1", BlockPageURL("http://[::1", "https://a.com"))
}

func TestDescribeBlockedURL(t *testing.T) {
	assert.Equal(t, "news.site", DescribeBlockedURL("https://news.site/story?id=1"))
	assert.Equal(t, "not a url", DescribeBlockedURL("not a url"))
	assert.Equal(t, "example.com", DescribeBlockedURL("example.com"))
	assert.Equal(t, "Unknown", DescribeBlockedURL("  "))
}

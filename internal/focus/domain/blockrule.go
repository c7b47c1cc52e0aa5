package domain

import (
	"fmt"
	"slices"
	"strings"
)

const (
	// FocusRuleID is the identifier of the single rule focusd installs.
	FocusRuleID = 1
	// FocusRulePriority is the priority of the focus rule.
	FocusRulePriority = 1
	// MatchAllFilter is the URL filter that matches every request.
	MatchAllFilter = "*"
)

// RuleActionType mirrors declarativeNetRequest action types.
type RuleActionType string

const (
	RuleActionRedirect RuleActionType = "redirect"
	RuleActionBlock    RuleActionType = "block"
	RuleActionAllow    RuleActionType = "allow"
)

// ResourceType mirrors declarativeNetRequest resource types.
type ResourceType string

const (
	// ResourceMainFrame is a top-level navigation.
	ResourceMainFrame ResourceType = "main_frame"
	ResourceSubFrame  ResourceType = "sub_frame"
	ResourceScript    ResourceType = "script"
	ResourceImage     ResourceType = "image"
	ResourceOther     ResourceType = "other"
)

// Redirect is the redirect target of a rule action.
type Redirect struct {
	URL string `json:"url"`
}

// RuleAction is what a matching rule does to the request.
type RuleAction struct {
	Type     RuleActionType `json:"type"`
	Redirect *Redirect      `json:"redirect,omitempty"`
}

// RuleCondition selects the requests a rule applies to.
type RuleCondition struct {
	URLFilter                string         `json:"urlFilter,omitempty"`
	ResourceTypes            []ResourceType `json:"resourceTypes,omitempty"`
	ExcludedInitiatorDomains []string       `json:"excludedInitiatorDomains,omitempty"`
	ExcludedRequestDomains   []string       `json:"excludedRequestDomains,omitempty"`
}

// BlockRule is a dynamic network rule in the JSON shape the browser's
// declarativeNetRequest API accepts, so the extension can install it verbatim.
type BlockRule struct {
	ID        int           `json:"id"`
	Priority  int           `json:"priority"`
	Action    RuleAction    `json:"action"`
	Condition RuleCondition `json:"condition"`
}

// DeriveRule computes the blocking rule for the current state.
//
// Inactive yields no rule. Active yields one rule redirecting every main-frame
// navigation to blockPageURL; a non-empty allow list adds its domains as
// exact-match initiator and request exceptions. Exceptions come from
// AllowList.Domains, so they are lowercase punycode hosts, not the stored entries.
func DeriveRule(isActive bool, allowed AllowList, blockPageURL string) (BlockRule, bool) {
	if !isActive {
		return BlockRule{}, false
	}
	rule := BlockRule{
		ID:       FocusRuleID,
		Priority: FocusRulePriority,
		Action: RuleAction{
			Type:     RuleActionRedirect,
			Redirect: &Redirect{URL: blockPageURL},
		},
		Condition: RuleCondition{
			URLFilter:     MatchAllFilter,
			ResourceTypes: []ResourceType{ResourceMainFrame},
		},
	}
	if domains := allowed.Domains(); len(domains) > 0 {
		rule.Condition.ExcludedInitiatorDomains = domains
		rule.Condition.ExcludedRequestDomains = slices.Clone(domains)
	}
	return rule, true
}

// Validate checks the fields the rule table relies on.
func (r BlockRule) Validate() error {
	if r.ID < 1 {
		return fmt.Errorf("rule id must be positive, got %d", r.ID)
	}
	switch r.Action.Type {
	case RuleActionRedirect:
		if r.Action.Redirect == nil || strings.TrimSpace(r.Action.Redirect.URL) == "" {
			return fmt.Errorf("rule %d: redirect action requires a url", r.ID)
		}
	case RuleActionBlock, RuleActionAllow:
	default:
		return fmt.Errorf("rule %d: unsupported action type %q", r.ID, r.Action.Type)
	}
	return nil
}

// Exceptions returns the union of the rule's excluded domains.
func (r BlockRule) Exceptions() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range [][]string{r.Condition.ExcludedInitiatorDomains, r.Condition.ExcludedRequestDomains} {
		for _, d := range list {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}


package domain

import (
	"net/url"
	"slices"
	"strings"

	"github.com/haukened/focusd/internal/focus/common/utils"
)

// NavigationRequest describes a request the browser is about to make.
// Initiator is the origin of the document that started it, empty for
// navigations typed into the address bar.
type NavigationRequest struct {
	URL          string       `json:"url"`
	Initiator    string       `json:"initiator,omitempty"`
	ResourceType ResourceType `json:"resourceType,omitempty"`
}

// BlockDecision is the outcome of evaluating a request against installed rules.
type BlockDecision struct {
	Blocked     bool           `json:"blocked"`
	RuleID      int            `json:"ruleId,omitempty"`
	Action      RuleActionType `json:"action,omitempty"`
	RedirectURL string         `json:"redirectUrl,omitempty"`
	Host        string         `json:"host,omitempty"`
}

// EmptyDecision returns a not-blocked decision.
func EmptyDecision() BlockDecision { return BlockDecision{Blocked: false} }

// Matches reports whether the rule applies to req, exceptions included.
func (r BlockRule) Matches(req NavigationRequest) bool {
	rt := req.ResourceType
	if rt == "" {
		rt = ResourceMainFrame
	}
	if len(r.Condition.ResourceTypes) > 0 && !slices.Contains(r.Condition.ResourceTypes, rt) {
		return false
	}
	if f := strings.Trim(r.Condition.URLFilter, "*"); f != "" && !strings.Contains(req.URL, f) {
		return false
	}
	if host := RequestHost(req.URL); host != "" && slices.Contains(r.Condition.ExcludedRequestDomains, host) {
		return false
	}
	if init := RequestHost(req.Initiator); init != "" && slices.Contains(r.Condition.ExcludedInitiatorDomains, init) {
		return false
	}
	return true
}

// Evaluate applies the rule to req.
func (r BlockRule) Evaluate(req NavigationRequest) BlockDecision {
	if !r.Matches(req) {
		return EmptyDecision()
	}
	d := BlockDecision{RuleID: r.ID, Action: r.Action.Type, Host: RequestHost(req.URL)}
	switch r.Action.Type {
	case RuleActionRedirect:
		d.Blocked = true
		if r.Action.Redirect != nil {
			d.RedirectURL = BlockPageURL(r.Action.Redirect.URL, req.URL)
		}
	case RuleActionBlock:
		d.Blocked = true
	}
	return d
}

// RequestHost extracts the canonical host of an absolute URL or origin.
// Scheme-less input is treated as a site string.
func RequestHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return utils.CanonicalHost(u.Hostname())
	}
	return utils.CanonicalHost(utils.NormalizeSite(raw))
}

// BlockPageURL appends the blocked target as the "url" query parameter of
// the block page so the page can show what was blocked.
func BlockPageURL(blockPage, target string) string {
	if target == "" {
		return blockPage
	}
	u, err := url.Parse(blockPage)
	if err != nil {
		return blockPage
	}
	q := u.Query()
	q.Set("url", target)
	u.RawQuery = q.Encode()
	return u.String()
}

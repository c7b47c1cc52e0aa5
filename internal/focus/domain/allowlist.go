package domain

import (
	"slices"

	"github.com/haukened/focusd/internal/focus/common/utils"
)

// AllowList is the ordered collection of sites exempt from blocking.
type AllowList []string

// Add normalizes site and appends it unless already present.
// The returned bool reports whether the list changed.
func (l AllowList) Add(site string) (AllowList, bool, error) {
	d := utils.NormalizeSite(site)
	if d == "" {
		return l, false, ErrEmptySite
	}
	if l.Contains(d) {
		return l, false, nil
	}
	out := make(AllowList, len(l), len(l)+1)
	copy(out, l)
	return append(out, d), true, nil
}

// Remove drops every entry equal to site, or to its normalized form.
func (l AllowList) Remove(site string) AllowList {
	d := utils.NormalizeSite(site)
	out := make(AllowList, 0, len(l))
	for _, s := range l {
		if s == site || (d != "" && s == d) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Contains reports whether site, normalized, is in the list.
func (l AllowList) Contains(site string) bool {
	return slices.Contains(l, utils.NormalizeSite(site))
}

// Domains returns the canonical exception domains derived from the list,
// dropping empty and duplicate entries while keeping first-seen order.
func (l AllowList) Domains() []string {
	seen := make(map[string]struct{}, len(l))
	out := make([]string, 0, len(l))
	for _, s := range l {
		d := utils.CanonicalHost(utils.NormalizeSite(s))
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

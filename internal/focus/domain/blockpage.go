package domain

import (
	"net/url"
	"strings"
)

// BlockedPage is what the block page displays for a blocked navigation.
type BlockedPage struct {
	Host      string `json:"host"`
	Message   string `json:"message"`
	Remaining string `json:"remaining"`
	IsActive  bool   `json:"isActive"`
}

// DescribeBlockedURL returns the host name of raw, or raw itself when it is
// not an absolute URL. Empty input yields "Unknown".
func DescribeBlockedURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "Unknown"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}

package utils

import (
	"strings"

	"golang.org/x/net/idna"
)

// NormalizeSite derives a bare domain from a user supplied site string:
// - surrounding whitespace trimmed
// - a leading "http://" or "https://" removed
// - a trailing slash removed, then anything from the first "/" on dropped
// No subdomain or wildcard handling is applied.
func NormalizeSite(raw string) string {
	site := strings.TrimSpace(raw)
	lower := strings.ToLower(site)
	switch {
	case strings.HasPrefix(lower, "https://"):
		site = site[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		site = site[len("http://"):]
	}
	site = strings.TrimSuffix(site, "/")
	if i := strings.IndexByte(site, '/'); i >= 0 {
		site = site[:i]
	}
	return site
}

// CanonicalHost returns the comparison form of a host name: lowercased, no
// trailing dot, and IDNA encoded when the name is a valid internationalized
// domain. Names idna rejects (ports, underscores) fall back to the lowercased input.
func CanonicalHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	for strings.HasSuffix(host, ".") {
		host = strings.TrimSuffix(host, ".")
	}
	if host == "" {
		return ""
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return host
	}
	return ascii
}

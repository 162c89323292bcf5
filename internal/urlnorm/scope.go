package urlnorm

import (
	"net/url"
	"strings"
)

// ShouldCrawlDomain reports whether rawURL's host is in scope for allowlist.
// An empty allowlist matches everything. A host matches an allowlist entry
// when it equals the entry or is a subdomain of it (host ends with
// "."+entry).
func ShouldCrawlDomain(rawURL string, allowlist []string) bool {
	if len(allowlist) == 0 {
		return true
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}

	for _, entry := range allowlist {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if host == entry || strings.HasSuffix(host, "."+entry) {
			return true
		}
	}
	return false
}

// IsSameDomain reports whether targetURL belongs to baseHost or one of its
// subdomains.
func IsSameDomain(targetURL, baseHost string) bool {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	baseHost = strings.ToLower(baseHost)
	return host == baseHost || strings.HasSuffix(host, "."+baseHost)
}

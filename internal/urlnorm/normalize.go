// Package urlnorm implements URL canonicalization and scope matching, the
// sole logic of its kind shared by the worker and the content extractor.
package urlnorm

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Normalize resolves raw against base (if raw is relative), validates the
// result, and returns the canonical string form.
//
// Canonicalization: only http/https schemes are accepted; the host is
// lowercased; the fragment is dropped; query parameters are sorted
// lexicographically by key (values keep their original order within a key);
// a single trailing slash is stripped from the path unless the path is "/".
func Normalize(raw string, base ...string) (string, error) {
	if raw == "" {
		return "", errors.New("urlnorm: cannot normalize empty URL")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("urlnorm: parse %q: %w", raw, err)
	}

	if len(base) > 0 && base[0] != "" && !parsed.IsAbs() {
		baseURL, err := url.Parse(base[0])
		if err != nil {
			return "", fmt.Errorf("urlnorm: parse base %q: %w", base[0], err)
		}
		parsed = baseURL.ResolveReference(parsed)
	}

	if !parsed.IsAbs() {
		return "", fmt.Errorf("urlnorm: %q is not absolute after resolution", raw)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("urlnorm: unsupported scheme %q", parsed.Scheme)
	}
	parsed.Scheme = scheme

	if parsed.Host == "" {
		return "", errors.New("urlnorm: URL has no host")
	}
	parsed.Host = strings.ToLower(parsed.Host)

	parsed.Fragment = ""
	parsed.RawFragment = ""

	if parsed.RawQuery != "" {
		parsed.RawQuery = sortQuery(parsed.RawQuery)
	}

	if parsed.Path != "/" && strings.HasSuffix(parsed.Path, "/") {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String(), nil
}

// sortQuery sorts the query string's keys lexicographically while
// preserving the relative order of repeated values for the same key.
func sortQuery(rawQuery string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		for j, v := range values[k] {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// IsHTTPScheme reports whether rawURL parses as an http or https URL.
func IsHTTPScheme(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return scheme == "http" || scheme == "https"
}

// Package robots implements the robots.txt cache:
// an in-process cache of parsed rules backed by a durable metastore record,
// so a freshly started worker doesn't have to refetch robots.txt for a host
// another worker already resolved. Fetch failures of any kind fail open.
package robots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/lukemcguire/crawlhive/internal/metastore"
)

type cached struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// Checker answers "is this URL allowed for this user agent" using a
// two-tier cache: an in-process sync.Map for the hot path, and a
// metastore.MetadataStore-backed robots_cache row for cross-process reuse.
type Checker struct {
	client   *http.Client
	store    metastore.MetadataStore
	cache    sync.Map // host -> *cached
	cacheTTL time.Duration
}

// New creates a Checker. store may be nil to disable the durable tier
// (in-process cache only).
func New(client *http.Client, store metastore.MetadataStore, cacheTTL time.Duration) *Checker {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &Checker{client: client, store: store, cacheTTL: cacheTTL}
}

// Allowed reports whether rawURL may be fetched by userAgent. Any error
// fetching, reading, or parsing robots.txt results in allow-all (fail
// open); the error is still returned so callers can log
// it.
func (c *Checker) Allowed(ctx context.Context, rawURL, userAgent string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true, fmt.Errorf("robots: parse url: %w", err)
	}
	host := parsed.Host
	if host == "" {
		return true, nil
	}

	if entry, ok := c.cache.Load(host); ok {
		if ce, ok := entry.(*cached); ok && ce != nil && time.Since(ce.fetchedAt) < c.cacheTTL {
			if ce.data == nil {
				return true, nil
			}
			return ce.data.TestAgent(parsed.Path, userAgent), nil
		}
		c.cache.Delete(host)
	}

	if c.store != nil {
		if rec, err := c.store.GetRobots(ctx, host); err == nil && rec != nil && time.Since(rec.LastUpdated) < c.cacheTTL {
			robots, parseErr := robotstxt.FromBytes([]byte(rec.RobotsTxt))
			if parseErr == nil {
				c.cache.Store(host, &cached{data: robots, fetchedAt: rec.LastUpdated})
				return robots.TestAgent(parsed.Path, userAgent), nil
			}
		}
	}

	return c.fetch(ctx, parsed, host, userAgent)
}

func (c *Checker) fetch(ctx context.Context, parsed *url.URL, host, userAgent string) (bool, error) {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", parsed.Scheme, host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		c.cacheAllowAll(ctx, host, "")
		return true, fmt.Errorf("robots: build request for %s: %w", host, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			// DNS failure: no restrictions, and the permissive result is
			// cached like any other resolved policy.
			c.cacheAllowAll(ctx, host, "")
			return true, fmt.Errorf("robots: dns failure fetching %s: %w", host, err)
		}
		// Other transport errors (connection refused, timeout): no
		// restrictions for this call only, cache left untouched so the
		// next call gets a fresh attempt.
		return true, fmt.Errorf("robots: fetch %s: %w", host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("robots: read body for %s: %w", host, err)
	}

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// 4xx (notably 404): no restrictions, cached for the full TTL.
		c.cacheAllowAll(ctx, host, "")
		return true, nil
	case resp.StatusCode >= 500:
		// 5xx: no restrictions for this call only. A single transient
		// server error must not lock in allow-all for the cache TTL.
		return true, nil
	}

	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil || robots == nil {
		c.cacheAllowAll(ctx, host, "")
		if err != nil {
			return true, fmt.Errorf("robots: parse %s: %w", host, err)
		}
		return true, nil
	}

	c.cache.Store(host, &cached{data: robots, fetchedAt: time.Now()})
	if c.store != nil {
		delay := 1
		if group := robots.FindGroup(userAgent); group != nil && group.CrawlDelay > 0 {
			delay = int(group.CrawlDelay.Seconds())
		}
		_ = c.store.UpsertRobots(ctx, metastore.RobotsRecord{Host: host, RobotsTxt: string(body), CrawlDelay: delay})
	}

	return robots.TestAgent(parsed.Path, userAgent), nil
}

func (c *Checker) cacheAllowAll(ctx context.Context, host, body string) {
	c.cache.Store(host, &cached{data: nil, fetchedAt: time.Now()})
	if c.store != nil {
		_ = c.store.UpsertRobots(ctx, metastore.RobotsRecord{Host: host, RobotsTxt: body, CrawlDelay: 1})
	}
}

// CrawlDelay returns the Crawl-delay directive userAgent's group specifies
// for host, and whether one was found, reading from whatever policy is
// currently cached for host. Call Allowed for the host first so the cache
// is populated; an unresolved host reports no delay rather than fetching
// robots.txt a second time.
func (c *Checker) CrawlDelay(host, userAgent string) (time.Duration, bool) {
	entry, ok := c.cache.Load(host)
	if !ok {
		return 0, false
	}
	ce, ok := entry.(*cached)
	if !ok || ce == nil || ce.data == nil {
		return 0, false
	}
	group := ce.data.FindGroup(userAgent)
	if group == nil || group.CrawlDelay <= 0 {
		return 0, false
	}
	return group.CrawlDelay, true
}

// ClearCache drops all in-process cache entries. Useful for tests.
func (c *Checker) ClearCache() {
	c.cache = sync.Map{}
}

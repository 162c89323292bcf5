package worker

import "time"

// Config holds the worker's tunable configuration. Values at or
// below zero fall back to the documented default in New.
type Config struct {
	// MaxConcurrent bounds the number of crawl handlers run by this
	// worker process. Default 5.
	MaxConcurrent int
	// RequestTimeout bounds a single fetch (HTTP or navigation). Default 30s.
	RequestTimeout time.Duration
	// MaxPageSize caps a plain-fetch response body. Default 5 MiB.
	MaxPageSize int64
	// DelayBetweenRequests is the default per-host minimum spacing handed
	// to the rate limiter when robots.txt specifies none. Default 1s.
	DelayBetweenRequests time.Duration
	// MaxDepth is the hard ceiling on traversal depth for frontier
	// expansion (step 8). Default 10.
	MaxDepth int
	// UserAgent is sent on all outbound HTTP and passed to the robots
	// checker.
	UserAgent string
	// RespectRobotsTxt disables the robots check entirely when false.
	RespectRobotsTxt bool
	// AllowedContentTypes is the MIME allow-list enforced by the fetcher's
	// plain phase. Defaults to text/html, text/plain, application/pdf, and
	// application/json.
	AllowedContentTypes []string
	// RecrawlWindow is how fresh a Crawled Page must be to skip
	// re-processing (step 1). Default 24h.
	RecrawlWindow time.Duration
	// DomainFilter restricts frontier expansion to these hosts; empty
	// means unrestricted.
	DomainFilter []string

	// pumpInterval and pumpBackoff govern the frontier-pump cadence
	// (every 5s, 10s after an error).
	pumpInterval time.Duration
	pumpBackoff  time.Duration
	// claimSize is how many records the frontier pump claims per tick.
	claimSize int
	// rescheduleInterval drives the periodic RescheduleFailed sweep
	// (every 2 minutes).
	rescheduleInterval time.Duration
	// rescheduleDelay is how long a failed record waits before becoming
	// pending again.
	rescheduleDelay time.Duration
	// reapInterval and reapAge drive the stalled-dispatch reaper.
	reapInterval time.Duration
	reapAge      time.Duration
	// shutdownGrace bounds how long Shutdown waits for active handlers.
	shutdownGrace time.Duration
}

// WithDefaults returns a copy of cfg with every unset field filled in per
// the worker's documented defaults.
func (c Config) WithDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 5
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 5 << 20
	}
	if c.DelayBetweenRequests <= 0 {
		c.DelayBetweenRequests = time.Second
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 10
	}
	if c.UserAgent == "" {
		c.UserAgent = "crawlhivebot/1.0 (+https://github.com/lukemcguire/crawlhive)"
	}
	if c.RecrawlWindow <= 0 {
		c.RecrawlWindow = 24 * time.Hour
	}
	if len(c.AllowedContentTypes) == 0 {
		c.AllowedContentTypes = []string{"text/html", "text/plain", "application/pdf", "application/json"}
	}
	if c.pumpInterval <= 0 {
		c.pumpInterval = 5 * time.Second
	}
	if c.pumpBackoff <= 0 {
		c.pumpBackoff = 10 * time.Second
	}
	if c.claimSize <= 0 {
		c.claimSize = 10
	}
	if c.rescheduleInterval <= 0 {
		c.rescheduleInterval = 2 * time.Minute
	}
	if c.rescheduleDelay <= 0 {
		c.rescheduleDelay = time.Hour
	}
	if c.reapInterval <= 0 {
		c.reapInterval = 2 * time.Minute
	}
	if c.reapAge <= 0 {
		c.reapAge = 30 * time.Minute
	}
	if c.shutdownGrace <= 0 {
		c.shutdownGrace = 30 * time.Second
	}
	return c
}

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Shared wraps a Local limiter with a Redis-backed gate so multiple
// worker processes pace the same host together. The gate is a single key
// per host that exists, with a TTL of the host's gap, while the current
// slot is taken; Wait passes the local token bucket first and then
// reserves the next slot with SetNX. Any Redis error is treated as "no shared state available"
// and pacing falls back to Local alone (fail open, matching the robots
// and rate-limit politeness posture elsewhere in the crawler).
type Shared struct {
	local  *Local
	client *redis.Client
	prefix string
	minGap time.Duration

	mu       sync.Mutex
	hostGaps map[string]time.Duration
}

// NewShared creates a Redis-coordinated Limiter. minGap is the default
// minimum spacing enforced across all processes for a host that hasn't
// had a robots.txt Crawl-delay applied via SetDelay, independent of the
// adaptive rate Local tracks locally.
func NewShared(client *redis.Client, local *Local, minGap time.Duration) *Shared {
	if minGap <= 0 {
		minGap = 500 * time.Millisecond
	}
	return &Shared{local: local, client: client, prefix: "crawlhive:ratelimit:", minGap: minGap, hostGaps: make(map[string]time.Duration)}
}

func (s *Shared) Wait(ctx context.Context, host string) error {
	if err := s.local.Wait(ctx, host); err != nil {
		return err
	}
	return s.reserveSlot(ctx, host)
}

// reserveSlot blocks until this process holds the exclusive right to the
// next gap-wide slot for host, or ctx is done. It retries on contention
// rather than erroring, since losing a race for a slot is the expected
// steady state under concurrent workers.
func (s *Shared) reserveSlot(ctx context.Context, host string) error {
	key := s.prefix + host
	gap := s.gapFor(host)
	for {
		ok, err := s.client.SetNX(ctx, key, "1", gap).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("ratelimit: reserve slot for %s: %w", host, err)
			}
			// Redis unavailable: fail open, local pacing already applied.
			return nil
		}
		if ok {
			return nil
		}

		ttl, err := s.client.PTTL(ctx, key).Result()
		if err != nil || ttl <= 0 {
			ttl = gap
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ttl):
		}
	}
}

func (s *Shared) gapFor(host string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gap, ok := s.hostGaps[host]; ok {
		return gap
	}
	return s.minGap
}

func (s *Shared) Observe(host string, rtt time.Duration) {
	s.local.Observe(host, rtt)
}

func (s *Shared) CurrentRate(host string) float64 {
	return s.local.CurrentRate(host)
}

// SetDelay records host's robots-derived crawl delay as the minimum gap
// between reserved Redis slots, in addition to narrowing the local
// adaptive rate's ceiling.
func (s *Shared) SetDelay(host string, delay time.Duration) {
	if delay > 0 {
		s.mu.Lock()
		s.hostGaps[host] = delay
		s.mu.Unlock()
	}
	s.local.SetDelay(host, delay)
}

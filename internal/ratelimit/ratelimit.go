// Package ratelimit implements the per-host politeness pacing described in
// Requests to the same host are spaced no closer than the
// host's configured minimum interval, and the pacing adapts to observed
// response latency. A Redis-backed tier lets multiple worker processes
// share one host's pacing state; it is optional and fails open.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// minRateFloor is the slowest a host's adaptive rate is allowed to fall
	// to, unless a SetDelay ceiling for the host is lower still.
	minRateFloor = 0.2 // one request per 5s
	// maxRateCeiling is the fastest a host's adaptive rate is allowed to climb to.
	maxRateCeiling = 20.0
	// emaAlpha weights new RTT observations against the running average.
	emaAlpha = 0.2
	// recoveryFactor is the per-good-RTT rate increase when the host is fast.
	recoveryFactor = 1.1
	// backoffFactor bounds how much a single slow RTT can cut the rate.
	backoffFactor = 0.5
)

// hostLimiter is a single host's adaptive token bucket, adapted from the
// crawler package's AdaptiveLimiter to operate per host rather than
// globally across an entire crawl.
type hostLimiter struct {
	mu          sync.RWMutex
	limiter     *rate.Limiter
	targetRTT   time.Duration
	emaRTT      time.Duration
	currentRate float64
	maxRate     float64 // ceiling imposed by a robots.txt Crawl-delay, if any
	disabled    bool
}

func newHostLimiter(initialRPS float64, targetRTT time.Duration) *hostLimiter {
	clamped := clampRate(initialRPS, maxRateCeiling)
	return &hostLimiter{
		limiter:     rate.NewLimiter(rate.Limit(clamped), int(math.Ceil(clamped))),
		targetRTT:   targetRTT,
		currentRate: clamped,
		emaRTT:      targetRTT,
		maxRate:     maxRateCeiling,
	}
}

// setDelay imposes delay as the minimum spacing between requests to this
// host, overriding maxRateCeiling with 1/delay when delay is the tighter
// bound. A robots.txt Crawl-delay narrows the adaptive ceiling; it never
// widens it.
func (h *hostLimiter) setDelay(delay time.Duration) {
	if delay <= 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	maxRate := 1.0 / delay.Seconds()
	if maxRate > maxRateCeiling {
		maxRate = maxRateCeiling
	}
	h.maxRate = maxRate
	if h.currentRate > maxRate {
		h.currentRate = maxRate
		h.limiter.SetLimit(rate.Limit(maxRate))
		h.limiter.SetBurst(int(math.Ceil(maxRate)))
	}
}

func (h *hostLimiter) wait(ctx context.Context) error {
	return h.limiter.Wait(ctx)
}

func (h *hostLimiter) observeRTT(rtt time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.disabled {
		return
	}

	newEMA := time.Duration(emaAlpha*float64(rtt) + (1-emaAlpha)*float64(h.emaRTT))
	h.emaRTT = newEMA

	ratio := float64(h.targetRTT) / float64(newEMA)

	var newRate float64
	if ratio < 1 {
		proposed := h.currentRate * ratio
		floor := h.currentRate * backoffFactor
		if proposed < floor {
			newRate = floor
		} else {
			newRate = proposed
		}
	} else {
		newRate = h.currentRate * recoveryFactor
	}
	newRate = clampRate(newRate, h.maxRate)

	if math.Abs(newRate-h.currentRate) > 0.01 {
		h.currentRate = newRate
		h.limiter.SetLimit(rate.Limit(newRate))
		h.limiter.SetBurst(int(math.Ceil(newRate)))
	}
}

func (h *hostLimiter) rate() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.currentRate
}

func clampRate(rps, ceiling float64) float64 {
	if rps < minRateFloor {
		rps = minRateFloor
	}
	if rps > ceiling {
		return ceiling
	}
	return rps
}

// Limiter paces requests to a host and adapts to observed latency.
type Limiter interface {
	// Wait blocks until a request to host is permitted, or ctx is done.
	Wait(ctx context.Context, host string) error
	// Observe records a request's round-trip time against host's pacing.
	Observe(host string, rtt time.Duration)
	// CurrentRate reports host's current requests-per-second allowance.
	CurrentRate(host string) float64
	// SetDelay imposes delay as the minimum spacing between requests to
	// host, typically sourced from the host's robots.txt Crawl-delay.
	// A delay of zero or less is a no-op.
	SetDelay(host string, delay time.Duration)
}

// Local paces every host independently within this process, with no
// cross-process coordination.
type Local struct {
	mu         sync.Mutex
	hosts      map[string]*hostLimiter
	initialRPS float64
	targetRTT  time.Duration
}

// NewLocal creates a process-local Limiter. Each newly seen host starts at
// initialRPS and adapts toward targetRTT.
func NewLocal(initialRPS float64, targetRTT time.Duration) *Local {
	if initialRPS <= 0 {
		initialRPS = 1.0
	}
	if targetRTT <= 0 {
		targetRTT = 2 * time.Second
	}
	return &Local{hosts: make(map[string]*hostLimiter), initialRPS: initialRPS, targetRTT: targetRTT}
}

func (l *Local) limiterFor(host string) *hostLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	hl, ok := l.hosts[host]
	if !ok {
		hl = newHostLimiter(l.initialRPS, l.targetRTT)
		l.hosts[host] = hl
	}
	return hl
}

func (l *Local) Wait(ctx context.Context, host string) error {
	return l.limiterFor(host).wait(ctx)
}

func (l *Local) Observe(host string, rtt time.Duration) {
	l.limiterFor(host).observeRTT(rtt)
}

func (l *Local) CurrentRate(host string) float64 {
	return l.limiterFor(host).rate()
}

func (l *Local) SetDelay(host string, delay time.Duration) {
	l.limiterFor(host).setDelay(delay)
}

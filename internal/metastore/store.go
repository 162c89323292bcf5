package metastore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EnqueueOutcome reports whether Frontier.Enqueue inserted a new row or hit
// the URL's uniqueness constraint.
type EnqueueOutcome int

const (
	Added EnqueueOutcome = iota
	Duplicate
)

// MetadataStore is the relational backing store for crawl jobs, the URL
// frontier, crawled-page dedup state, and the robots.txt cache. Any
// backend that preserves the field set and constraints it describes
// qualifies; this repository ships a Postgres implementation (Postgres)
// and an in-memory one (Memory) for tests and embedding without external
// services.
type MetadataStore interface {
	// EnqueueURL inserts a pending URL record. A second insertion of the
	// same normalized URL is a silent no-op (Duplicate), never an error.
	EnqueueURL(ctx context.Context, url, parentURL string, depth, priority int, jobID uuid.UUID) (EnqueueOutcome, error)

	// ClaimBatch atomically selects up to n pending, eligible, non-exhausted
	// records, marks them processing, increments attempts, and returns them
	// ordered by priority DESC, created_at ASC.
	ClaimBatch(ctx context.Context, n int) ([]URLRecord, error)

	// MarkDispatched transitions a claimed record to dispatched once it has
	// been handed off to the job queue.
	MarkDispatched(ctx context.Context, id uuid.UUID) error

	// CompleteURL sets a record's terminal status. This is the single
	// Frontier-owned mutation point for URL lifecycle transitions.
	CompleteURL(ctx context.Context, id uuid.UUID, status URLStatus, errMsg string) error

	// RescheduleFailed moves failed records with attempts<MaxAttempts back
	// to pending with scheduled_at = now + delay.
	RescheduleFailed(ctx context.Context, delay time.Duration) (int, error)

	// ReapStale reschedules records stuck in processing/dispatched past
	// olderThan (recovers from a crashed worker; idempotent re-execution
	// makes this safe).
	ReapStale(ctx context.Context, olderThan time.Duration) (int, error)

	// FrontierStats returns counts by url_queue.status.
	FrontierStats(ctx context.Context) (FrontierStats, error)

	// GetCrawledPage returns the dedup record for a normalized URL, or nil
	// if none exists.
	GetCrawledPage(ctx context.Context, url string) (*CrawledPage, error)

	// UpsertCrawledPage inserts or updates the dedup record, keyed by URL.
	UpsertCrawledPage(ctx context.Context, page CrawledPage) error

	// GetCrawlJob returns a crawl job by id.
	GetCrawlJob(ctx context.Context, id uuid.UUID) (*CrawlJob, error)

	// CreateCrawlJob inserts a new crawl job.
	CreateCrawlJob(ctx context.Context, job CrawlJob) error

	// UpdateCrawlJobProgress increments the job's counters and, when
	// terminal is non-empty, sets the job's terminal status.
	UpdateCrawlJobProgress(ctx context.Context, id uuid.UUID, pagesCrawled, pagesIndexed int, terminal JobStatus, errMsg string) error

	// GetRobots returns the cached robots.txt record for host, or nil.
	GetRobots(ctx context.Context, host string) (*RobotsRecord, error)

	// UpsertRobots stores the robots.txt record for host.
	UpsertRobots(ctx context.Context, rec RobotsRecord) error

	// Close releases underlying connections.
	Close()
}

// Package frontier implements the URL frontier: a durable,
// priority-ordered queue of discovered URLs backed by a metastore.MetadataStore,
// fronted by an in-process bloom filter that absorbs repeat-discovery churn
// before it reaches the store.
package frontier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lukemcguire/crawlhive/internal/metastore"
)

// Frontier is the durable URL queue. All mutation flows through a single
// MetadataStore; LocalSeen only shortcuts the common case of rediscovering
// a URL already known to this process.
type Frontier struct {
	store     metastore.MetadataStore
	seen      *LocalSeen
	jobID     uuid.UUID
	claimSize int
}

// New constructs a Frontier over store for the given crawl job. claimSize
// bounds how many records ClaimBatch pulls per call; seen may be nil to
// disable the local dedup shortcut (every Enqueue then round-trips to store).
func New(store metastore.MetadataStore, jobID uuid.UUID, claimSize int, seen *LocalSeen) *Frontier {
	if claimSize <= 0 {
		claimSize = 50
	}
	return &Frontier{store: store, seen: seen, jobID: jobID, claimSize: claimSize}
}

// Enqueue adds url to the frontier unless LocalSeen already reports it, or
// the store itself rejects it as a duplicate (the
// same URL discovered from two parents enqueues once).
func (f *Frontier) Enqueue(ctx context.Context, url, parentURL string, depth, priority int) (metastore.EnqueueOutcome, error) {
	if f.seen != nil && !f.seen.VisitIfNew(url) {
		return metastore.Duplicate, nil
	}
	outcome, err := f.store.EnqueueURL(ctx, url, parentURL, depth, priority, f.jobID)
	if err != nil {
		return metastore.Duplicate, fmt.Errorf("frontier: enqueue %q: %w", url, err)
	}
	return outcome, nil
}

// ClaimBatch atomically claims up to the frontier's configured batch size
// of eligible URLs and returns them as processing.
func (f *Frontier) ClaimBatch(ctx context.Context) ([]metastore.URLRecord, error) {
	records, err := f.store.ClaimBatch(ctx, f.claimSize)
	if err != nil {
		return nil, fmt.Errorf("frontier: claim batch: %w", err)
	}
	return records, nil
}

// Dispatch marks a claimed record as handed off to the job queue.
func (f *Frontier) Dispatch(ctx context.Context, id uuid.UUID) error {
	if err := f.store.MarkDispatched(ctx, id); err != nil {
		return fmt.Errorf("frontier: dispatch %s: %w", id, err)
	}
	return nil
}

// Complete is the single frontier-owned mutation point for terminal URL
// transitions (collapses a dual
// markURLProcessed/markURLCompleted paths into one).
func (f *Frontier) Complete(ctx context.Context, id uuid.UUID, status metastore.URLStatus, errMsg string) error {
	if err := f.store.CompleteURL(ctx, id, status, errMsg); err != nil {
		return fmt.Errorf("frontier: complete %s: %w", id, err)
	}
	return nil
}

// RescheduleFailed moves failed-but-retryable records back to pending after
// delay. Intended to run on a periodic sweep, every 2 minutes.
func (f *Frontier) RescheduleFailed(ctx context.Context, delay time.Duration) (int, error) {
	n, err := f.store.RescheduleFailed(ctx, delay)
	if err != nil {
		return 0, fmt.Errorf("frontier: reschedule failed: %w", err)
	}
	return n, nil
}

// ReapStale recovers records stranded in processing/dispatched by a crashed
// worker. Safe to call repeatedly because re-execution is idempotent: the
// content hash and deterministic document id make a duplicate crawl a no-op.
func (f *Frontier) ReapStale(ctx context.Context, olderThan time.Duration) (int, error) {
	n, err := f.store.ReapStale(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("frontier: reap stale: %w", err)
	}
	return n, nil
}

// Stats reports the frontier's current status-bucket counts.
func (f *Frontier) Stats(ctx context.Context) (metastore.FrontierStats, error) {
	stats, err := f.store.FrontierStats(ctx)
	if err != nil {
		return metastore.FrontierStats{}, fmt.Errorf("frontier: stats: %w", err)
	}
	return stats, nil
}

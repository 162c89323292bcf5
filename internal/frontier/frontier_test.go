package frontier_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lukemcguire/crawlhive/internal/frontier"
	"github.com/lukemcguire/crawlhive/internal/metastore"
)

// TestFrontierEnqueueDeduplicatesViaLocalSeen verifies that a Frontier with
// a LocalSeen cache never round-trips a repeat URL to the store.
func TestFrontierEnqueueDeduplicatesViaLocalSeen(t *testing.T) {
	store := metastore.NewMemory()
	defer store.Close()
	seen, err := frontier.NewLocalSeen(1000, 0.001)
	if err != nil {
		t.Fatalf("NewLocalSeen: %v", err)
	}
	defer seen.Close()

	f := frontier.New(store, uuid.New(), 10, seen)
	ctx := context.Background()

	outcome, err := f.Enqueue(ctx, "https://example.com/a", "", 0, 5)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if outcome != metastore.Added {
		t.Fatalf("first enqueue = %v, want Added", outcome)
	}

	outcome, err = f.Enqueue(ctx, "https://example.com/a", "", 0, 5)
	if err != nil {
		t.Fatalf("Enqueue (dup): %v", err)
	}
	if outcome != metastore.Duplicate {
		t.Fatalf("second enqueue = %v, want Duplicate", outcome)
	}

	stats, err := f.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Pending != 1 {
		t.Errorf("Pending = %d, want 1 (duplicate must not add a second row)", stats.Pending)
	}
}

// TestFrontierClaimDispatchComplete walks a URL record through its full
// lifecycle: claim, dispatch, complete.
func TestFrontierClaimDispatchComplete(t *testing.T) {
	store := metastore.NewMemory()
	defer store.Close()
	f := frontier.New(store, uuid.New(), 10, nil)
	ctx := context.Background()

	if _, err := f.Enqueue(ctx, "https://example.com/a", "", 0, 5); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	claimed, err := f.ClaimBatch(ctx)
	if err != nil {
		t.Fatalf("ClaimBatch: %v", err)
	}
	if len(claimed) != 1 {
		t.Fatalf("claimed %d records, want 1", len(claimed))
	}

	if err := f.Dispatch(ctx, claimed[0].ID); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := f.Complete(ctx, claimed[0].ID, metastore.URLCompleted, ""); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	stats, err := f.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Completed != 1 || stats.Pending != 0 {
		t.Errorf("stats = %+v, want Completed=1 Pending=0", stats)
	}
}

// TestFrontierWithoutLocalSeenRoundTripsEveryEnqueue verifies a nil LocalSeen
// is a valid configuration that delegates dedup entirely to the store.
func TestFrontierWithoutLocalSeenRoundTripsEveryEnqueue(t *testing.T) {
	store := metastore.NewMemory()
	defer store.Close()
	f := frontier.New(store, uuid.New(), 10, nil)
	ctx := context.Background()

	if _, err := f.Enqueue(ctx, "https://example.com/a", "", 0, 5); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	outcome, err := f.Enqueue(ctx, "https://example.com/a", "", 0, 5)
	if err != nil {
		t.Fatalf("Enqueue (dup): %v", err)
	}
	if outcome != metastore.Duplicate {
		t.Fatalf("second enqueue = %v, want Duplicate even without LocalSeen", outcome)
	}
}

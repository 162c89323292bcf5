package frontier_test

import (
	"testing"

	"github.com/lukemcguire/crawlhive/internal/frontier"
)

// TestLocalSeenVisitIfNew verifies that VisitIfNew reports true only for the
// first observation of a URL.
func TestLocalSeenVisitIfNew(t *testing.T) {
	seen, err := frontier.NewLocalSeen(1000, 0.001)
	if err != nil {
		t.Fatalf("NewLocalSeen: %v", err)
	}
	defer func() {
		if closeErr := seen.Close(); closeErr != nil {
			t.Errorf("Close: %v", closeErr)
		}
	}()

	url := "https://example.com/page"

	if !seen.VisitIfNew(url) {
		t.Error("VisitIfNew returned false for first visit")
	}
	if seen.VisitIfNew(url) {
		t.Error("VisitIfNew returned true for second visit")
	}
}

// TestLocalSeenDistinctURLs verifies independent URLs are tracked separately.
func TestLocalSeenDistinctURLs(t *testing.T) {
	seen, err := frontier.NewLocalSeen(1000, 0.001)
	if err != nil {
		t.Fatalf("NewLocalSeen: %v", err)
	}
	defer seen.Close()

	if !seen.VisitIfNew("https://example.com/a") {
		t.Error("VisitIfNew(a) returned false for first visit")
	}
	if !seen.VisitIfNew("https://example.com/b") {
		t.Error("VisitIfNew(b) returned false for first visit")
	}
	if seen.VisitIfNew("https://example.com/a") {
		t.Error("VisitIfNew(a) returned true on second visit")
	}
}

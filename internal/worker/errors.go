// Package worker implements the crawl handler: the process that claims
// frontier URLs, drives them through robots/rate-limit/fetch/extract,
// persists and indexes the result, and expands the frontier with newly
// discovered links.
package worker

import "errors"

// Typed outcomes for the crawl procedure's steps. A handler uses these to
// decide the URL record's terminal status without string-matching error
// messages.
var (
	// errSkippedRecent means step 1 found a Crawled Page fresher than the
	// recrawl window; the URL is not an error, just not re-processed.
	errSkippedRecent = errors.New("worker: recently crawled, skipped")

	// errDisallowedByRobots means step 2's robots check rejected the URL.
	errDisallowedByRobots = errors.New("worker: disallowed by robots.txt")

	// errExtractionFailed means step 5's extractor returned no usable
	// content for the fetched body.
	errExtractionFailed = errors.New("worker: content extraction failed")
)

// terminalMessage returns the error_message to record on the url_queue
// row for a failed outcome, falling back to err's own text for anything
// not in the typed taxonomy above.
func terminalMessage(err error) string {
	switch {
	case errors.Is(err, errDisallowedByRobots):
		return "Disallowed by robots.txt"
	case errors.Is(err, errExtractionFailed):
		return "Content extraction failed"
	default:
		return err.Error()
	}
}

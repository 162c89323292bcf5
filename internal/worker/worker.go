package worker

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lukemcguire/crawlhive/internal/docsink"
	"github.com/lukemcguire/crawlhive/internal/extract"
	"github.com/lukemcguire/crawlhive/internal/fetch"
	"github.com/lukemcguire/crawlhive/internal/frontier"
	"github.com/lukemcguire/crawlhive/internal/jobqueue"
	"github.com/lukemcguire/crawlhive/internal/metastore"
	"github.com/lukemcguire/crawlhive/internal/ratelimit"
	"github.com/lukemcguire/crawlhive/internal/robots"
	"github.com/lukemcguire/crawlhive/internal/urlnorm"
)

// Worker ties the frontier, robots cache, rate limiter, fetcher, and
// content extractor together into the crawl handler pool.
// Every collaborator is a constructed, explicitly-injected dependency —
// no package-level singletons — so a worker process, and each of its
// tests, can swap in in-memory or fake implementations freely.
type Worker struct {
	cfg      Config
	frontier *frontier.Frontier
	robots   *robots.Checker
	limiter  ratelimit.Limiter
	fetcher  *fetch.Fetcher
	store    metastore.MetadataStore
	sink     docsink.DocumentSink
	queue    jobqueue.JobQueue
	log      *slog.Logger

	shuttingDown atomic.Bool
	pumpCancel   context.CancelFunc
}

// New constructs a Worker from its collaborators. log may be nil, in
// which case slog.Default() is used.
func New(cfg Config, fr *frontier.Frontier, rc *robots.Checker, lim ratelimit.Limiter, fe *fetch.Fetcher, store metastore.MetadataStore, sink docsink.DocumentSink, queue jobqueue.JobQueue, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.WithDefaults()
	fe.SetAllowedContentTypes(cfg.AllowedContentTypes)
	fe.SetMaxBodyBytes(cfg.MaxPageSize)
	return &Worker{
		cfg:      cfg,
		frontier: fr,
		robots:   rc,
		limiter:  lim,
		fetcher:  fe,
		store:    store,
		sink:     sink,
		queue:    queue,
		log:      log,
	}
}

// Run starts cfg.MaxConcurrent crawl handlers plus the frontier-pump,
// reschedule-sweep, and stalled-dispatch-reaper supervisor goroutines. It
// blocks until ctx is cancelled or a handler returns an unrecoverable
// error, then waits for in-flight handlers to drain.
func (w *Worker) Run(ctx context.Context) error {
	pumpCtx, cancel := context.WithCancel(ctx)
	w.pumpCancel = cancel

	group, groupCtx := errgroup.WithContext(ctx)

	deliveries, err := w.queue.Consume(groupCtx)
	if err != nil {
		cancel()
		return err
	}

	for i := 0; i < w.cfg.MaxConcurrent; i++ {
		group.Go(func() error {
			return w.handlerLoop(groupCtx, deliveries)
		})
	}

	group.Go(func() error {
		w.frontierPump(pumpCtx)
		return nil
	})
	group.Go(func() error {
		w.rescheduleSweep(pumpCtx)
		return nil
	})
	group.Go(func() error {
		w.reapSweep(pumpCtx)
		return nil
	})

	return group.Wait()
}

// Shutdown marks the worker as draining, stops the frontier pump and
// supervisor sweeps, and gives active handlers up to the configured grace
// period to finish their current URL before returning. Handlers that
// don't finish in time leave their record in status=processing; the
// reaper sweep recovers them on a subsequent run, safely, because
// re-execution is idempotent.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.shuttingDown.Store(true)
	if w.pumpCancel != nil {
		w.pumpCancel()
	}

	done := make(chan struct{})
	go func() {
		// Run's errgroup.Wait is the actual drain; callers are expected to
		// select on both Run's return and this grace window, so Shutdown
		// itself only needs to bound how long it waits before closing
		// shared resources out from under still-running handlers.
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.cfg.shutdownGrace):
	case <-ctx.Done():
	}

	if err := w.queue.Close(); err != nil {
		return err
	}
	return nil
}

// frontierPump claims batches of eligible URLs and hands them to the job
// queue, ticking every pumpInterval (pumpBackoff after an error).
func (w *Worker) frontierPump(ctx context.Context) {
	interval := w.cfg.pumpInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := w.pumpOnce(ctx); err != nil {
				w.log.Error("frontier pump", "error", err)
				interval = w.cfg.pumpBackoff
			} else {
				interval = w.cfg.pumpInterval
			}
			timer.Reset(interval)
		}
	}
}

func (w *Worker) pumpOnce(ctx context.Context) error {
	records, err := w.frontier.ClaimBatch(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		msg := jobqueue.URLMessage{
			RecordID:  rec.ID,
			JobID:     rec.JobID,
			URL:       rec.URL,
			ParentURL: rec.ParentURL,
			Depth:     rec.Depth,
			Attempt:   rec.Attempts,
		}
		if err := w.queue.Publish(ctx, msg); err != nil {
			w.log.Error("publish dispatch", "url", rec.URL, "error", err)
			continue
		}
		if err := w.frontier.Dispatch(ctx, rec.ID); err != nil {
			w.log.Error("mark dispatched", "url", rec.URL, "error", err)
		}
	}
	return nil
}

// rescheduleSweep periodically moves exhausted-retry-eligible failed
// records back to pending.
func (w *Worker) rescheduleSweep(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.rescheduleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.frontier.RescheduleFailed(ctx, w.cfg.rescheduleDelay)
			if err != nil {
				w.log.Error("reschedule sweep", "error", err)
				continue
			}
			if n > 0 {
				w.log.Info("rescheduled failed urls", "count", n)
			}
		}
	}
}

// reapSweep recovers records stranded in processing/dispatched by a
// crashed or killed worker.
func (w *Worker) reapSweep(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.frontier.ReapStale(ctx, w.cfg.reapAge)
			if err != nil {
				w.log.Error("reap sweep", "error", err)
				continue
			}
			if n > 0 {
				w.log.Info("reaped stalled urls", "count", n)
			}
		}
	}
}

// handlerLoop is one crawl handler: it pulls deliveries from the job
// queue until the channel closes or ctx is cancelled.
func (w *Worker) handlerLoop(ctx context.Context, deliveries <-chan jobqueue.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

// handle runs the crawl procedure for one
// delivered URL message, then acks or nacks the delivery.
func (w *Worker) handle(ctx context.Context, d jobqueue.Delivery) {
	msg := d.Message
	log := w.log.With("url", msg.URL, "job_id", msg.JobID, "depth", msg.Depth)

	err := w.crawlOne(ctx, msg, log)
	switch {
	case err == nil:
		if ackErr := d.Ack(); ackErr != nil {
			log.Error("ack delivery", "error", ackErr)
		}
	case errors.Is(err, errSkippedRecent):
		// Not an error: the page is fresh. Still complete the frontier
		// record, or the reaper would re-dispatch it forever.
		if compErr := w.frontier.Complete(ctx, msg.RecordID, metastore.URLCompleted, ""); compErr != nil {
			log.Error("complete skipped record", "error", compErr)
		}
		if ackErr := d.Ack(); ackErr != nil {
			log.Error("ack delivery", "error", ackErr)
		}
	default:
		log.Warn("crawl failed", "error", err)
		if compErr := w.frontier.Complete(ctx, msg.RecordID, metastore.URLFailed, terminalMessage(err)); compErr != nil {
			log.Error("record failure", "error", compErr)
		}
		// Re-throw to the job queue's own retry machinery so its retry policy
		// engages rather than duplicating it here.
		if nackErr := d.Nack(true); nackErr != nil {
			log.Error("nack delivery", "error", nackErr)
		}
	}
}

// crawlOne executes steps 1-9. Any step 4-8 failure is returned so handle
// can mark the URL failed and let the queue's retry policy run.
func (w *Worker) crawlOne(ctx context.Context, msg jobqueue.URLMessage, log *slog.Logger) error {
	// Step 1: recency check.
	if page, err := w.store.GetCrawledPage(ctx, msg.URL); err == nil && page != nil {
		if time.Since(page.LastCrawled) < w.cfg.RecrawlWindow {
			return errSkippedRecent
		}
	}

	host := hostOf(msg.URL)

	// Step 2: robots check. A Crawl-delay directive replaces the configured
	// DelayBetweenRequests as this host's minimum spacing.
	delay := w.cfg.DelayBetweenRequests
	if w.cfg.RespectRobotsTxt {
		allowed, err := w.robots.Allowed(ctx, msg.URL, w.cfg.UserAgent)
		if err != nil {
			log.Warn("robots check error, failing open", "error", err)
		}
		if !allowed {
			return errDisallowedByRobots
		}
		if robotsDelay, ok := w.robots.CrawlDelay(host, w.cfg.UserAgent); ok {
			delay = robotsDelay
		}
	}

	// Step 3: rate limit.
	w.limiter.SetDelay(host, delay)
	if err := w.limiter.Wait(ctx, host); err != nil {
		return err
	}

	// Step 4: fetch.
	result, err := w.fetcher.Fetch(ctx, msg.URL, w.cfg.RequestTimeout)
	if err != nil {
		return err
	}
	w.limiter.Observe(host, result.RTT)

	if result.StatusCode >= 400 {
		// Client/server errors from origin are terminal for this URL,
		// not retried, but still recorded through the same
		// failure path as any other step 4-8 error.
		return errors.New(httpStatusMessage(result.StatusCode))
	}

	// Step 5: extract.
	doc, err := extractDocument(msg.URL, result.ContentType, result.Body)
	if err != nil || doc == nil {
		return errExtractionFailed
	}

	// Step 6: persist.
	var lastModified *time.Time
	if !result.LastModified.IsZero() {
		lm := result.LastModified
		lastModified = &lm
	}
	page := metastore.CrawledPage{
		URL:          msg.URL,
		Title:        doc.Title,
		ContentHash:  doc.ContentHash,
		LastCrawled:  time.Now().UTC(),
		LastModified: lastModified,
		StatusCode:   result.StatusCode,
		ContentType:  result.ContentType,
		WordCount:    doc.WordCount,
		Domain:       host,
		Indexed:      true,
		ErrorCount:   0,
	}
	if err := w.store.UpsertCrawledPage(ctx, page); err != nil {
		return err
	}

	// Step 7: index.
	links := make([]docsink.Link, len(doc.Links))
	for i, l := range doc.Links {
		links[i] = docsink.Link{URL: l.URL, Text: l.Text, Title: l.Title}
	}
	indexed := docsink.Document{
		ID:           extract.ContentHash([]byte(msg.URL)),
		URL:          msg.URL,
		Title:        doc.Title,
		Description:  doc.Description,
		Text:         doc.Text,
		Language:     doc.Language,
		Keywords:     doc.Keywords,
		Host:         host,
		ContentType:  result.ContentType,
		WordCount:    doc.WordCount,
		ContentHash:  doc.ContentHash,
		CrawledAt:    page.LastCrawled,
		LastModified: result.LastModified,
		Links:        links,
		Metadata:     doc.Metadata,
	}
	if err := w.sink.IndexDocument(ctx, indexed); err != nil {
		return err
	}

	// Step 8: frontier expansion.
	if msg.Depth < w.cfg.MaxDepth {
		for _, link := range doc.Links {
			if !urlnorm.IsHTTPScheme(link.URL) {
				continue
			}
			if !urlnorm.ShouldCrawlDomain(link.URL, w.cfg.DomainFilter) {
				continue
			}
			if existing, err := w.store.GetCrawledPage(ctx, link.URL); err == nil && existing != nil {
				continue
			}
			if _, err := w.frontier.Enqueue(ctx, link.URL, msg.URL, msg.Depth+1, 5); err != nil {
				log.Warn("frontier enqueue", "link", link.URL, "error", err)
			}
		}
	}

	// Step 9: report progress.
	if err := w.store.UpdateCrawlJobProgress(ctx, msg.JobID, 1, 1, "", ""); err != nil {
		log.Warn("update job progress", "error", err)
	}
	if err := w.frontier.Complete(ctx, msg.RecordID, metastore.URLCompleted, ""); err != nil {
		return err
	}
	return nil
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.Host
}

// extractDocument dispatches to the format-specific extractor by content
// type. Any other content type yields a nil Document.
func extractDocument(pageURL, contentType string, body []byte) (*extract.Document, error) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "html"):
		return extract.FromHTML(pageURL, body)
	case strings.Contains(ct, "json"):
		return extract.FromJSON(pageURL, body)
	case strings.Contains(ct, "pdf"):
		return extract.FromPDF(pageURL, body), nil
	case strings.Contains(ct, "text/plain"):
		return extract.FromText(pageURL, body), nil
	default:
		return nil, nil
	}
}

func httpStatusMessage(status int) string {
	switch {
	case status >= 500:
		return "origin server error"
	default:
		return "client error from origin"
	}
}

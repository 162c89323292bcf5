package metastore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process MetadataStore for tests and for embedding
// crawlhive without standing up Postgres. It preserves the same
// uniqueness and atomic-claim guarantees as Postgres, behind a mutex
// instead of row locks.
type Memory struct {
	mu     sync.Mutex
	urls   map[uuid.UUID]*URLRecord
	byURL  map[string]uuid.UUID
	pages  map[string]*CrawledPage
	jobs   map[uuid.UUID]*CrawlJob
	robots map[string]*RobotsRecord
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		urls:   make(map[uuid.UUID]*URLRecord),
		byURL:  make(map[string]uuid.UUID),
		pages:  make(map[string]*CrawledPage),
		jobs:   make(map[uuid.UUID]*CrawlJob),
		robots: make(map[string]*RobotsRecord),
	}
}

func (m *Memory) Close() {}

func (m *Memory) EnqueueURL(_ context.Context, url, parentURL string, depth, priority int, jobID uuid.UUID) (EnqueueOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byURL[url]; exists {
		return Duplicate, nil
	}
	now := time.Now().UTC()
	id := uuid.New()
	rec := &URLRecord{
		ID: id, URL: url, ParentURL: parentURL, Depth: depth, Priority: priority,
		JobID: jobID, Status: URLPending, CreatedAt: now, ScheduledAt: now,
	}
	m.urls[id] = rec
	m.byURL[url] = id
	return Added, nil
}

func (m *Memory) ClaimBatch(_ context.Context, n int) ([]URLRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var eligible []*URLRecord
	for _, rec := range m.urls {
		if rec.Status == URLPending && !rec.ScheduledAt.After(now) && rec.Attempts < MaxAttempts {
			eligible = append(eligible, rec)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority > eligible[j].Priority
		}
		return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
	})
	if len(eligible) > n {
		eligible = eligible[:n]
	}

	claimed := make([]URLRecord, 0, len(eligible))
	for _, rec := range eligible {
		rec.Status = URLProcessing
		rec.Attempts++
		claimed = append(claimed, *rec)
	}
	return claimed, nil
}

func (m *Memory) MarkDispatched(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.urls[id]; ok {
		rec.Status = URLDispatched
	}
	return nil
}

func (m *Memory) CompleteURL(_ context.Context, id uuid.UUID, status URLStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.urls[id]; ok {
		rec.Status = status
		rec.ErrorMessage = errMsg
	}
	return nil
}

func (m *Memory) RescheduleFailed(_ context.Context, delay time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.urls {
		if rec.Status == URLFailed && rec.Attempts < MaxAttempts {
			rec.Status = URLPending
			rec.ScheduledAt = time.Now().UTC().Add(delay)
			n++
		}
	}
	return n, nil
}

func (m *Memory) ReapStale(_ context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	n := 0
	for _, rec := range m.urls {
		if (rec.Status == URLProcessing || rec.Status == URLDispatched) && rec.CreatedAt.Before(cutoff) {
			rec.Status = URLPending
			rec.ScheduledAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (m *Memory) FrontierStats(_ context.Context) (FrontierStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats FrontierStats
	for _, rec := range m.urls {
		switch rec.Status {
		case URLPending:
			stats.Pending++
		case URLProcessing:
			stats.Processing++
		case URLDispatched:
			stats.Dispatched++
		case URLCompleted:
			stats.Completed++
		case URLFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (m *Memory) GetCrawledPage(_ context.Context, url string) (*CrawledPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if page, ok := m.pages[url]; ok {
		cp := *page
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) UpsertCrawledPage(_ context.Context, page CrawledPage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if page.ID == uuid.Nil {
		page.ID = uuid.New()
	}
	cp := page
	m.pages[page.URL] = &cp
	return nil
}

func (m *Memory) GetCrawlJob(_ context.Context, id uuid.UUID) (*CrawlJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		cj := *job
		return &cj, nil
	}
	return nil, nil
}

func (m *Memory) CreateCrawlJob(_ context.Context, job CrawlJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.CreatedAt = time.Now().UTC()
	cj := job
	m.jobs[cj.ID] = &cj
	return nil
}

func (m *Memory) UpdateCrawlJobProgress(_ context.Context, id uuid.UUID, pagesCrawled, pagesIndexed int, terminal JobStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	job.PagesCrawled += pagesCrawled
	job.PagesIndexed += pagesIndexed
	now := time.Now().UTC()
	if terminal != "" {
		job.Status = terminal
		job.ErrorMessage = errMsg
		job.CompletedAt = &now
	} else {
		job.Status = JobInProgress
		if job.StartedAt == nil {
			job.StartedAt = &now
		}
	}
	return nil
}

func (m *Memory) GetRobots(_ context.Context, host string) (*RobotsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.robots[host]; ok {
		rr := *rec
		return &rr, nil
	}
	return nil, nil
}

func (m *Memory) UpsertRobots(_ context.Context, rec RobotsRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.LastUpdated = time.Now().UTC()
	rr := rec
	m.robots[rec.Host] = &rr
	return nil
}

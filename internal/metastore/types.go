// Package metastore implements the relational MetadataStore described in
// Crawl jobs, the URL frontier table, crawled-page dedup
// records, and the robots.txt cache, plus the store-level uniqueness and
// atomic-claim guarantees the frontier depends on.
package metastore

import (
	"time"

	"github.com/google/uuid"
)

// URLStatus is the lifecycle state of a URLRecord.
type URLStatus string

const (
	URLPending    URLStatus = "pending"
	URLProcessing URLStatus = "processing"
	URLDispatched URLStatus = "dispatched"
	URLCompleted  URLStatus = "completed"
	URLFailed     URLStatus = "failed"
)

// JobStatus is the lifecycle state of a CrawlJob.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// MaxAttempts caps retries for a single URL record.
const MaxAttempts = 3

// URLRecord is a row of the url_queue table — one discovered URL and its
// frontier lifecycle state.
type URLRecord struct {
	ID           uuid.UUID
	URL          string
	ParentURL    string
	Depth        int
	Priority     int
	JobID        uuid.UUID
	Status       URLStatus
	Attempts     int
	CreatedAt    time.Time
	ScheduledAt  time.Time
	ErrorMessage string
}

// CrawlJob is a row of the crawl_jobs table.
type CrawlJob struct {
	ID           uuid.UUID
	URL          string
	Status       JobStatus
	Priority     int
	Depth        int
	MaxDepth     int
	DomainFilter []string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
	PagesCrawled int
	PagesIndexed int
}

// CrawledPage is a row of the crawled_pages table — the "have we seen this
// recently" oracle keyed on normalized URL.
type CrawledPage struct {
	ID           uuid.UUID
	URL          string
	Title        string
	ContentHash  string
	LastCrawled  time.Time
	LastModified *time.Time
	StatusCode   int
	ContentType  string
	WordCount    int
	Domain       string
	Indexed      bool
	ErrorCount   int
}

// RobotsRecord is a row of the robots_cache table.
type RobotsRecord struct {
	Host        string
	RobotsTxt   string
	LastUpdated time.Time
	CrawlDelay  int
}

// FrontierStats reports counts by url_queue.status.
type FrontierStats struct {
	Pending    int
	Processing int
	Dispatched int
	Completed  int
	Failed     int
}

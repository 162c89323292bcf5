package metastore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/0001_init.sql
var initSchema string

// Postgres is the pgx/v5-backed MetadataStore, implementing the
// crawl_jobs/crawled_pages/url_queue/robots_cache schema.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a pool against dsn and applies the embedded schema.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("metastore: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, initSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("metastore: apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

// EnqueueURL inserts a pending record; a conflict on the unique url column
// is treated as a silent Duplicate.
func (p *Postgres) EnqueueURL(ctx context.Context, url, parentURL string, depth, priority int, jobID uuid.UUID) (EnqueueOutcome, error) {
	now := time.Now().UTC()
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO url_queue (id, url, parent_url, depth, priority, job_id, status, attempts, created_at, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', 0, $7, $7)
		ON CONFLICT (url) DO NOTHING`,
		uuid.New(), url, parentURL, depth, priority, jobID, now)
	if err != nil {
		return Duplicate, fmt.Errorf("metastore: enqueue %q: %w", url, err)
	}
	if tag.RowsAffected() == 0 {
		return Duplicate, nil
	}
	return Added, nil
}

// ClaimBatch selects and marks pending, eligible records processing, and
// increments attempts, in one transaction so the claim and the attempts
// increment happen atomically, so no claim is ever orphaned.
func (p *Postgres) ClaimBatch(ctx context.Context, n int) ([]URLRecord, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("metastore: begin claim: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		UPDATE url_queue
		SET status = 'processing', attempts = attempts + 1
		WHERE id IN (
			SELECT id FROM url_queue
			WHERE status = 'pending' AND scheduled_at <= now() AND attempts < $1
			ORDER BY priority DESC, created_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, url, parent_url, depth, priority, job_id, status, attempts, created_at, scheduled_at, coalesce(error_message, '')`,
		MaxAttempts, n)
	if err != nil {
		return nil, fmt.Errorf("metastore: claim batch: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByPos[URLRecord])
	if err != nil {
		return nil, fmt.Errorf("metastore: scan claimed batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("metastore: commit claim: %w", err)
	}
	return records, nil
}

func (p *Postgres) MarkDispatched(ctx context.Context, id uuid.UUID) error {
	_, err := p.pool.Exec(ctx, `UPDATE url_queue SET status = 'dispatched' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("metastore: mark dispatched %s: %w", id, err)
	}
	return nil
}

func (p *Postgres) CompleteURL(ctx context.Context, id uuid.UUID, status URLStatus, errMsg string) error {
	_, err := p.pool.Exec(ctx, `UPDATE url_queue SET status = $2, error_message = NULLIF($3, '') WHERE id = $1`,
		id, status, errMsg)
	if err != nil {
		return fmt.Errorf("metastore: complete %s: %w", id, err)
	}
	return nil
}

func (p *Postgres) RescheduleFailed(ctx context.Context, delay time.Duration) (int, error) {
	tag, err := p.pool.Exec(ctx, `
		UPDATE url_queue
		SET status = 'pending', scheduled_at = now() + $1::interval
		WHERE status = 'failed' AND attempts < $2`,
		fmt.Sprintf("%d milliseconds", delay.Milliseconds()), MaxAttempts)
	if err != nil {
		return 0, fmt.Errorf("metastore: reschedule failed: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *Postgres) ReapStale(ctx context.Context, olderThan time.Duration) (int, error) {
	tag, err := p.pool.Exec(ctx, `
		UPDATE url_queue
		SET status = 'pending', scheduled_at = now()
		WHERE status IN ('processing', 'dispatched') AND created_at < now() - $1::interval`,
		fmt.Sprintf("%d milliseconds", olderThan.Milliseconds()))
	if err != nil {
		return 0, fmt.Errorf("metastore: reap stale: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *Postgres) FrontierStats(ctx context.Context) (FrontierStats, error) {
	rows, err := p.pool.Query(ctx, `SELECT status, count(*) FROM url_queue GROUP BY status`)
	if err != nil {
		return FrontierStats{}, fmt.Errorf("metastore: stats: %w", err)
	}
	defer rows.Close()

	var stats FrontierStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return FrontierStats{}, fmt.Errorf("metastore: scan stats: %w", err)
		}
		switch URLStatus(status) {
		case URLPending:
			stats.Pending = count
		case URLProcessing:
			stats.Processing = count
		case URLDispatched:
			stats.Dispatched = count
		case URLCompleted:
			stats.Completed = count
		case URLFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

func (p *Postgres) GetCrawledPage(ctx context.Context, url string) (*CrawledPage, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, url, coalesce(title, ''), coalesce(content_hash, ''), last_crawled, last_modified,
		       coalesce(status_code, 0), coalesce(content_type, ''), coalesce(word_count, 0),
		       coalesce(domain, ''), indexed, error_count
		FROM crawled_pages WHERE url = $1`, url)

	var page CrawledPage
	err := row.Scan(&page.ID, &page.URL, &page.Title, &page.ContentHash, &page.LastCrawled, &page.LastModified,
		&page.StatusCode, &page.ContentType, &page.WordCount, &page.Domain, &page.Indexed, &page.ErrorCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metastore: get crawled page %q: %w", url, err)
	}
	return &page, nil
}

func (p *Postgres) UpsertCrawledPage(ctx context.Context, page CrawledPage) error {
	id := page.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO crawled_pages (id, url, title, content_hash, last_crawled, last_modified, status_code, content_type, word_count, domain, indexed, error_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			content_hash = EXCLUDED.content_hash,
			last_crawled = EXCLUDED.last_crawled,
			last_modified = EXCLUDED.last_modified,
			status_code = EXCLUDED.status_code,
			content_type = EXCLUDED.content_type,
			word_count = EXCLUDED.word_count,
			domain = EXCLUDED.domain,
			indexed = EXCLUDED.indexed,
			error_count = EXCLUDED.error_count`,
		id, page.URL, page.Title, page.ContentHash, page.LastCrawled, page.LastModified,
		page.StatusCode, page.ContentType, page.WordCount, page.Domain, page.Indexed, page.ErrorCount)
	if err != nil {
		return fmt.Errorf("metastore: upsert crawled page %q: %w", page.URL, err)
	}
	return nil
}

func (p *Postgres) GetCrawlJob(ctx context.Context, id uuid.UUID) (*CrawlJob, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, url, status, priority, depth, max_depth, domain_filter, created_at, started_at, completed_at,
		       coalesce(error_message, ''), pages_crawled, pages_indexed
		FROM crawl_jobs WHERE id = $1`, id)

	var job CrawlJob
	err := row.Scan(&job.ID, &job.URL, &job.Status, &job.Priority, &job.Depth, &job.MaxDepth, &job.DomainFilter,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt, &job.ErrorMessage, &job.PagesCrawled, &job.PagesIndexed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metastore: get crawl job %s: %w", id, err)
	}
	return &job, nil
}

func (p *Postgres) CreateCrawlJob(ctx context.Context, job CrawlJob) error {
	id := job.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO crawl_jobs (id, url, status, priority, depth, max_depth, domain_filter, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		id, job.URL, job.Status, job.Priority, job.Depth, job.MaxDepth, job.DomainFilter)
	if err != nil {
		return fmt.Errorf("metastore: create crawl job %q: %w", job.URL, err)
	}
	return nil
}

func (p *Postgres) UpdateCrawlJobProgress(ctx context.Context, id uuid.UUID, pagesCrawled, pagesIndexed int, terminal JobStatus, errMsg string) error {
	var err error
	var tag pgconn.CommandTag
	if terminal != "" {
		tag, err = p.pool.Exec(ctx, `
			UPDATE crawl_jobs
			SET pages_crawled = pages_crawled + $2, pages_indexed = pages_indexed + $3,
			    status = $4, error_message = NULLIF($5, ''), completed_at = now()
			WHERE id = $1`, id, pagesCrawled, pagesIndexed, terminal, errMsg)
	} else {
		tag, err = p.pool.Exec(ctx, `
			UPDATE crawl_jobs
			SET pages_crawled = pages_crawled + $2, pages_indexed = pages_indexed + $3,
			    status = 'in_progress', started_at = coalesce(started_at, now())
			WHERE id = $1`, id, pagesCrawled, pagesIndexed)
	}
	if err != nil {
		return fmt.Errorf("metastore: update crawl job progress %s: %w", id, err)
	}
	_ = tag
	return nil
}

func (p *Postgres) GetRobots(ctx context.Context, host string) (*RobotsRecord, error) {
	row := p.pool.QueryRow(ctx, `SELECT domain, coalesce(robots_txt, ''), last_updated, crawl_delay FROM robots_cache WHERE domain = $1`, host)
	var rec RobotsRecord
	err := row.Scan(&rec.Host, &rec.RobotsTxt, &rec.LastUpdated, &rec.CrawlDelay)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metastore: get robots %q: %w", host, err)
	}
	return &rec, nil
}

func (p *Postgres) UpsertRobots(ctx context.Context, rec RobotsRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO robots_cache (domain, robots_txt, last_updated, crawl_delay)
		VALUES ($1, $2, now(), $3)
		ON CONFLICT (domain) DO UPDATE SET robots_txt = EXCLUDED.robots_txt, last_updated = EXCLUDED.last_updated, crawl_delay = EXCLUDED.crawl_delay`,
		rec.Host, rec.RobotsTxt, rec.CrawlDelay)
	if err != nil {
		return fmt.Errorf("metastore: upsert robots %q: %w", rec.Host, err)
	}
	return nil
}

// Command crawlhive runs a crawlhive worker daemon: it claims URLs from
// the frontier, drives them through robots/rate-limit/fetch/extract, and
// persists and indexes the results, while a terminal UI displays the
// frontier's live status counts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lukemcguire/crawlhive/internal/config"
	"github.com/lukemcguire/crawlhive/internal/crawlhivelog"
	"github.com/lukemcguire/crawlhive/internal/docsink"
	"github.com/lukemcguire/crawlhive/internal/fetch"
	"github.com/lukemcguire/crawlhive/internal/frontier"
	"github.com/lukemcguire/crawlhive/internal/jobqueue"
	"github.com/lukemcguire/crawlhive/internal/metastore"
	"github.com/lukemcguire/crawlhive/internal/ratelimit"
	"github.com/lukemcguire/crawlhive/internal/robots"
	"github.com/lukemcguire/crawlhive/internal/worker"
	"github.com/lukemcguire/crawlhive/tui"
)

func main() {
	configPath := flag.String("config", "", "path to a crawlhive YAML config file")
	jsonLogs := flag.Bool("json-logs", false, "emit structured logs as JSON instead of text")
	noTUI := flag.Bool("no-tui", false, "run headless, logging progress instead of rendering a terminal UI")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "crawlhive: %v\n", err)
		os.Exit(1)
	}

	log := crawlhivelog.New(crawlhivelog.Options{JSON: *jsonLogs})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cancel, cfg, log, *noTUI); err != nil {
		log.Error("crawlhive exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.AppConfig, log *slog.Logger, noTUI bool) error {
	store, err := buildMetadataStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build metadata store: %w", err)
	}
	defer store.Close()

	sink, err := buildDocumentSink(cfg)
	if err != nil {
		return fmt.Errorf("build document sink: %w", err)
	}
	defer sink.Close()

	queue, err := buildJobQueue(cfg)
	if err != nil {
		return fmt.Errorf("build job queue: %w", err)
	}

	jobID := uuid.New()
	if err := seedJob(ctx, store, cfg, jobID); err != nil {
		return fmt.Errorf("seed crawl job: %w", err)
	}

	fr := frontier.New(store, jobID, 10, nil)
	rc := robots.New(&http.Client{Timeout: 5 * time.Second}, store, 24*time.Hour)
	lim := buildLimiter(cfg)

	var renderer fetch.Renderer
	if cfg.HeadlessEnabled {
		chrome := fetch.NewChromeRenderer()
		defer chrome.Close()
		renderer = chrome
	}
	fe := fetch.New(&http.Client{}, renderer, cfg.UserAgent)
	fe.SetMaxBodyBytes(cfg.MaxPageSizeBytes)

	w := worker.New(worker.Config{
		MaxConcurrent:        cfg.MaxConcurrent,
		RequestTimeout:       cfg.RequestTimeout(),
		MaxPageSize:          cfg.MaxPageSizeBytes,
		DelayBetweenRequests: cfg.DelayBetweenRequestsDuration(),
		MaxDepth:             cfg.MaxDepth,
		UserAgent:            cfg.UserAgent,
		RespectRobotsTxt:     cfg.RespectRobotsTxt,
		AllowedContentTypes:  cfg.AllowedContentTypes,
		RecrawlWindow:        cfg.RecrawlWindow(),
		DomainFilter:         cfg.DomainFilter,
	}, fr, rc, lim, fe, store, sink, queue, log)

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- w.Run(ctx) }()

	if noTUI {
		<-ctx.Done()
	} else {
		model := tui.NewModel(ctx, cancel, fr, 2*time.Second)
		if _, err := tea.NewProgram(model).Run(); err != nil {
			log.Error("tui exited with error", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := w.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}

	return <-runErrCh
}

func buildMetadataStore(ctx context.Context, cfg *config.AppConfig) (metastore.MetadataStore, error) {
	if cfg.PostgresDSN == "" {
		return metastore.NewMemory(), nil
	}
	return metastore.NewPostgres(ctx, cfg.PostgresDSN)
}

func buildDocumentSink(cfg *config.AppConfig) (docsink.DocumentSink, error) {
	if len(cfg.ElasticsearchURLs) == 0 {
		return docsink.NewMemory(), nil
	}
	return docsink.NewIndex(cfg.ElasticsearchURLs, cfg.ElasticsearchIndex)
}

func buildJobQueue(cfg *config.AppConfig) (jobqueue.JobQueue, error) {
	if cfg.RabbitMQURL == "" {
		return jobqueue.NewMemory(1000, 2*time.Minute), nil
	}
	return jobqueue.NewQueue(jobqueue.Config{URL: cfg.RabbitMQURL})
}

func buildLimiter(cfg *config.AppConfig) ratelimit.Limiter {
	local := ratelimit.NewLocal(1.0/cfg.DelayBetweenRequestsDuration().Seconds(), 2*time.Second)
	if cfg.RedisAddr == "" {
		return local
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return ratelimit.NewShared(client, local, cfg.DelayBetweenRequestsDuration())
}

// seedJob creates the owning crawl job and enqueues every configured seed
// URL under it at depth 0.
func seedJob(ctx context.Context, store metastore.MetadataStore, cfg *config.AppConfig, jobID uuid.UUID) error {
	if len(cfg.SeedURLs) == 0 {
		return fmt.Errorf("no seed URLs configured")
	}
	job := metastore.CrawlJob{
		ID:           jobID,
		URL:          cfg.SeedURLs[0],
		Status:       metastore.JobInProgress,
		MaxDepth:     cfg.MaxDepth,
		DomainFilter: cfg.DomainFilter,
	}
	if err := store.CreateCrawlJob(ctx, job); err != nil {
		return err
	}
	for _, seed := range cfg.SeedURLs {
		if _, err := store.EnqueueURL(ctx, seed, "", 0, 10, jobID); err != nil {
			return fmt.Errorf("enqueue seed %s: %w", seed, err)
		}
	}
	return nil
}

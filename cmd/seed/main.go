// Command seed adds one or more URLs to an existing crawl job's frontier,
// for operators who want to feed a running worker fleet new starting
// points without restarting it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/lukemcguire/crawlhive/internal/config"
	"github.com/lukemcguire/crawlhive/internal/metastore"
)

func main() {
	configPath := flag.String("config", "", "path to a crawlhive YAML config file")
	jobIDFlag := flag.String("job-id", "", "existing crawl job id to seed URLs into (required)")
	priority := flag.Int("priority", 5, "frontier priority for the seeded URLs")
	flag.Parse()

	urls := flag.Args()
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "seed: at least one URL argument is required")
		os.Exit(2)
	}
	if *jobIDFlag == "" {
		fmt.Fprintln(os.Stderr, "seed: -job-id is required")
		os.Exit(2)
	}
	jobID, err := uuid.Parse(*jobIDFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: invalid -job-id: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := buildMetadataStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if _, err := store.GetCrawlJob(ctx, jobID); err != nil {
		fmt.Fprintf(os.Stderr, "seed: lookup crawl job %s: %v\n", jobID, err)
		os.Exit(1)
	}

	added := 0
	for _, rawURL := range urls {
		outcome, err := store.EnqueueURL(ctx, rawURL, "", 0, *priority, jobID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed: enqueue %s: %v\n", rawURL, err)
			continue
		}
		if outcome == metastore.Added {
			added++
		}
	}
	fmt.Printf("seeded %d/%d urls into job %s\n", added, len(urls), jobID)
}

func buildMetadataStore(ctx context.Context, cfg *config.AppConfig) (metastore.MetadataStore, error) {
	if cfg.PostgresDSN == "" {
		return metastore.NewMemory(), nil
	}
	return metastore.NewPostgres(ctx, cfg.PostgresDSN)
}

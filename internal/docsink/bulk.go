package docsink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esutil"
)

// BulkIndexer batches many IndexDocument calls through esutil's bulk
// helper, for a seed crawl's initial burst of pages where one request per
// document would otherwise dominate indexing latency.
type BulkIndexer struct {
	indexer esutil.BulkIndexer
}

// NewBulkIndexer wraps idx's client in an esutil.BulkIndexer flushing at
// flushBytes or flushInterval, whichever comes first.
func NewBulkIndexer(idx *Index, flushBytes int, flushInterval time.Duration) (*BulkIndexer, error) {
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        idx.client,
		Index:         idx.indexName,
		FlushBytes:    flushBytes,
		FlushInterval: flushInterval,
		NumWorkers:    2,
	})
	if err != nil {
		return nil, fmt.Errorf("docsink: create bulk indexer: %w", err)
	}
	return &BulkIndexer{indexer: bi}, nil
}

// Add enqueues doc for the next bulk flush.
func (b *BulkIndexer) Add(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docsink: marshal document %s: %w", doc.ID, err)
	}
	return b.indexer.Add(ctx, esutil.BulkIndexerItem{
		Action:     "index",
		DocumentID: doc.ID,
		Body:       bytes.NewReader(body),
		OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, resp esutil.BulkIndexerResponseItem, err error) {
			// Bulk failures are surfaced via Close's stats, not individually;
			// a single bad document must not abort the rest of the batch.
		},
	})
}

// Close flushes any pending items and reports aggregate stats.
func (b *BulkIndexer) Close(ctx context.Context) (esutil.BulkIndexerStats, error) {
	if err := b.indexer.Close(ctx); err != nil {
		return esutil.BulkIndexerStats{}, fmt.Errorf("docsink: close bulk indexer: %w", err)
	}
	return b.indexer.Stats(), nil
}

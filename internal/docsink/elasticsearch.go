package docsink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
)

// Index is the Elasticsearch-backed DocumentSink.
type Index struct {
	client    *elasticsearch.Client
	indexName string
}

// NewIndex creates an Index against the given Elasticsearch addresses.
func NewIndex(addresses []string, indexName string) (*Index, error) {
	if indexName == "" {
		indexName = "crawlhive-pages"
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("docsink: create client: %w", err)
	}
	return &Index{client: client, indexName: indexName}, nil
}

func (i *Index) IndexDocument(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docsink: marshal document %s: %w", doc.ID, err)
	}

	resp, err := i.client.Index(
		i.indexName,
		bytes.NewReader(body),
		i.client.Index.WithDocumentID(doc.ID),
		i.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("docsink: index %s: %w", doc.ID, err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("docsink: index %s: elasticsearch returned %s: %s", doc.ID, resp.Status(), payload)
	}
	return nil
}

func (i *Index) DeleteDocument(ctx context.Context, id string) error {
	resp, err := i.client.Delete(i.indexName, id, i.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("docsink: delete %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.IsError() && resp.StatusCode != 404 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("docsink: delete %s: elasticsearch returned %s: %s", id, resp.Status(), payload)
	}
	return nil
}

func (i *Index) Close() error {
	return nil
}

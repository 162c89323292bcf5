// Package docsink implements the DocumentSink: the
// full-text index a crawled page's extracted content is published to once
// the worker finishes processing it.
package docsink

import (
	"context"
	"time"
)

// Link is one outbound link carried on an indexed document, in crawl
// order.
type Link struct {
	URL   string
	Text  string
	Title string
}

// Document is an indexable record of one crawled page.
type Document struct {
	ID           string // lower_hex(sha256(url)), deterministic across re-crawls
	URL          string
	Title        string
	Description  string
	Text         string
	Language     string
	Keywords     []string
	Host         string
	ContentType  string
	WordCount    int
	ContentHash  string
	CrawledAt    time.Time
	LastModified time.Time
	Links        []Link
	// Metadata is the extractor's free-form Open Graph / Twitter Card /
	// schema.org map, carried through unchanged for the index.
	Metadata map[string]string
}

// DocumentSink is the full-text index abstraction, an
// external interface. This repository ships an Elasticsearch
// implementation (Index) and an in-memory one (Memory) for tests and
// embedding.
type DocumentSink interface {
	// IndexDocument upserts doc, keyed by doc.ID, so re-crawling the same
	// URL overwrites rather than duplicates its indexed entry.
	IndexDocument(ctx context.Context, doc Document) error
	// DeleteDocument removes a previously indexed document by id.
	DeleteDocument(ctx context.Context, id string) error
	// Close releases underlying connections.
	Close() error
}

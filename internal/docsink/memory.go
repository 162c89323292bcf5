package docsink

import (
	"context"
	"sync"
)

// Memory is an in-process DocumentSink for tests and embedding.
type Memory struct {
	mu   sync.Mutex
	docs map[string]Document
}

// NewMemory returns an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Document)}
}

func (m *Memory) IndexDocument(_ context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *Memory) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *Memory) Close() error { return nil }

// Get returns the indexed document for id, for assertions in tests.
func (m *Memory) Get(id string) (Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	return doc, ok
}

// Len reports how many documents are currently indexed.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

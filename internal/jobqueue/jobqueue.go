// Package jobqueue implements the dispatch queue: the
// channel a claimed URL travels over on its way to a worker, decoupling
// frontier claims from worker capacity and allowing retries to be
// expressed as a delayed requeue.
package jobqueue

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// URLMessage is the payload carried on the dispatch queue: everything a
// worker needs to fetch and process a claimed URL without a second round
// trip to the frontier.
type URLMessage struct {
	RecordID  uuid.UUID `json:"record_id"`
	JobID     uuid.UUID `json:"job_id"`
	URL       string    `json:"url"`
	ParentURL string    `json:"parent_url"`
	Depth     int       `json:"depth"`
	Attempt   int       `json:"attempt"`
}

func (m URLMessage) marshal() ([]byte, error) {
	return json.Marshal(m)
}

func unmarshal(body []byte) (URLMessage, error) {
	var m URLMessage
	err := json.Unmarshal(body, &m)
	return m, err
}

// Delivery is one dequeued message plus the means to acknowledge it.
type Delivery struct {
	Message URLMessage
	Ack     func() error
	Nack    func(requeue bool) error
}

// JobQueue is the dispatch queue abstraction, an
// external interface. This repository ships a RabbitMQ implementation
// (Queue) and an in-memory one (Memory) for tests and embedding.
type JobQueue interface {
	// Publish enqueues msg for delivery to a worker.
	Publish(ctx context.Context, msg URLMessage) error
	// PublishDelayed enqueues msg to become visible after the queue's
	// configured retry delay, used for failed-URL retry scheduling.
	PublishDelayed(ctx context.Context, msg URLMessage) error
	// Consume returns a channel of deliveries; closing ctx stops delivery.
	Consume(ctx context.Context) (<-chan Delivery, error)
	// Close releases underlying connections.
	Close() error
}

package jobqueue_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lukemcguire/crawlhive/internal/jobqueue"
)

func TestMemoryPublishConsume(t *testing.T) {
	q := jobqueue.NewMemory(10, 0)
	defer q.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	deliveries, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	msg := jobqueue.URLMessage{RecordID: uuid.New(), JobID: uuid.New(), URL: "https://example.com/a"}
	if err := q.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case d := <-deliveries:
		if d.Message.URL != msg.URL {
			t.Errorf("delivered URL = %q, want %q", d.Message.URL, msg.URL)
		}
		if err := d.Ack(); err != nil {
			t.Errorf("Ack: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestMemoryPublishDelayedRedeliversAfterDelay(t *testing.T) {
	q := jobqueue.NewMemory(10, 50*time.Millisecond)
	defer q.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	deliveries, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	msg := jobqueue.URLMessage{RecordID: uuid.New(), URL: "https://example.com/retry"}
	if err := q.PublishDelayed(ctx, msg); err != nil {
		t.Fatalf("PublishDelayed: %v", err)
	}

	select {
	case <-time.After(20 * time.Millisecond):
	case <-deliveries:
		t.Fatal("delivery arrived before the configured delay elapsed")
	}

	select {
	case d := <-deliveries:
		if d.Message.URL != msg.URL {
			t.Errorf("delivered URL = %q, want %q", d.Message.URL, msg.URL)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delayed delivery")
	}
}

func TestMemoryNackRequeue(t *testing.T) {
	q := jobqueue.NewMemory(10, 0)
	defer q.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	deliveries, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	msg := jobqueue.URLMessage{RecordID: uuid.New(), URL: "https://example.com/a"}
	if err := q.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	first := <-deliveries
	if err := first.Nack(true); err != nil {
		t.Fatalf("Nack: %v", err)
	}

	select {
	case second := <-deliveries:
		if second.Message.URL != msg.URL {
			t.Errorf("requeued URL = %q, want %q", second.Message.URL, msg.URL)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for requeued delivery")
	}
}

package jobqueue

import (
	"context"
	"time"
)

// Memory is an in-process JobQueue for tests and for embedding crawlhive
// without standing up RabbitMQ. PublishDelayed uses a timer rather than a
// broker's dead-letter mechanism to approximate the same delayed-redelivery
// behavior.
type Memory struct {
	ch    chan URLMessage
	delay time.Duration
}

// NewMemory creates an in-process JobQueue buffered to capacity and using
// delay for PublishDelayed's redelivery wait.
func NewMemory(capacity int, delay time.Duration) *Memory {
	if capacity <= 0 {
		capacity = 100
	}
	return &Memory{ch: make(chan URLMessage, capacity), delay: delay}
}

func (m *Memory) Publish(ctx context.Context, msg URLMessage) error {
	select {
	case m.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) PublishDelayed(ctx context.Context, msg URLMessage) error {
	go func() {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			select {
			case m.ch <- msg:
			case <-ctx.Done():
			}
		case <-ctx.Done():
		}
	}()
	return nil
}

func (m *Memory) Consume(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-m.ch:
				if !ok {
					return
				}
				delivery := Delivery{
					Message: msg,
					Ack:     func() error { return nil },
					Nack: func(requeue bool) error {
						if requeue {
							return m.Publish(context.Background(), msg)
						}
						return nil
					},
				}
				select {
				case out <- delivery:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (m *Memory) Close() error {
	close(m.ch)
	return nil
}

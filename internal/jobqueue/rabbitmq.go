package jobqueue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue is the RabbitMQ-backed JobQueue. Delayed retries use the standard
// dead-letter-exchange pattern: a message published to the delay queue
// sits until its per-message TTL expires, then RabbitMQ dead-letters it
// back onto the main queue.
type Queue struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	name        string
	delayName   string
	exchange    string
	delayExpiry time.Duration
}

// Config names the queue, exchange, and retry delay to use.
type Config struct {
	URL        string
	QueueName  string        // default "crawlhive.dispatch"
	Exchange   string        // default "crawlhive.direct"
	RetryDelay time.Duration // default 2 minutes, matches the frontier's reschedule sweep
}

// NewQueue dials RabbitMQ and declares the main dispatch queue plus its
// delay queue and the exchange wiring between them.
func NewQueue(cfg Config) (*Queue, error) {
	if cfg.QueueName == "" {
		cfg.QueueName = "crawlhive.dispatch"
	}
	if cfg.Exchange == "" {
		cfg.Exchange = "crawlhive.direct"
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Minute
	}
	delayName := cfg.QueueName + ".delay"

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("jobqueue: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jobqueue: open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("jobqueue: declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("jobqueue: declare main queue: %w", err)
	}
	if err := ch.QueueBind(cfg.QueueName, cfg.QueueName, cfg.Exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("jobqueue: bind main queue: %w", err)
	}
	_, err = ch.QueueDeclare(delayName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    cfg.Exchange,
		"x-dead-letter-routing-key": cfg.QueueName,
		"x-message-ttl":             cfg.RetryDelay.Milliseconds(),
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jobqueue: declare delay queue: %w", err)
	}
	if err := ch.QueueBind(delayName, delayName, cfg.Exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("jobqueue: bind delay queue: %w", err)
	}

	return &Queue{
		conn: conn, channel: ch, name: cfg.QueueName, delayName: delayName,
		exchange: cfg.Exchange, delayExpiry: cfg.RetryDelay,
	}, nil
}

func (q *Queue) Publish(ctx context.Context, msg URLMessage) error {
	return q.publishTo(ctx, q.name, msg)
}

func (q *Queue) PublishDelayed(ctx context.Context, msg URLMessage) error {
	return q.publishTo(ctx, q.delayName, msg)
}

func (q *Queue) publishTo(ctx context.Context, routingKey string, msg URLMessage) error {
	body, err := msg.marshal()
	if err != nil {
		return fmt.Errorf("jobqueue: marshal message for %s: %w", msg.URL, err)
	}
	err = q.channel.PublishWithContext(ctx, q.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("jobqueue: publish to %s: %w", routingKey, err)
	}
	return nil
}

func (q *Queue) Consume(ctx context.Context) (<-chan Delivery, error) {
	deliveries, err := q.channel.Consume(q.name, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("jobqueue: consume %s: %w", q.name, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				msg, err := unmarshal(d.Body)
				if err != nil {
					_ = d.Nack(false, false)
					continue
				}
				delivery := Delivery{
					Message: msg,
					Ack:     func() error { return d.Ack(false) },
					Nack:    func(requeue bool) error { return d.Nack(false, requeue) },
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

func (q *Queue) Close() error {
	if err := q.channel.Close(); err != nil {
		q.conn.Close()
		return fmt.Errorf("jobqueue: close channel: %w", err)
	}
	if err := q.conn.Close(); err != nil {
		return fmt.Errorf("jobqueue: close connection: %w", err)
	}
	return nil
}

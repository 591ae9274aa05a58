// Package queue carries batch jobs over RabbitMQ, one durable queue per
// provider, so a slow provider never holds up the others.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"news_ingest/internal/domain"
	"news_ingest/internal/job"
)

type Config struct {
	URL         string
	Exchange    string
	QueuePrefix string
}

// QueueName renders the queue of one provider, sync_guardian by default.
func QueueName(prefix string, p domain.Provider) string {
	return prefix + string(p)
}

type RabbitMQ struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	prefix   string
	logger   *slog.Logger
}

// NewRabbitMQ declares a direct exchange and binds one queue per provider,
// routed by the provider name.
func NewRabbitMQ(cfg Config, providers []domain.Provider, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declare(ch, cfg, providers); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue_prefix", cfg.QueuePrefix,
		"providers", providers,
	)

	return &RabbitMQ{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		prefix:   cfg.QueuePrefix,
		logger:   logger,
	}, nil
}

func declare(ch *amqp.Channel, cfg Config, providers []domain.Provider) error {
	err := ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, p := range providers {
		q, err := ch.QueueDeclare(
			QueueName(cfg.QueuePrefix, p),
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", p, err)
		}

		if err := ch.QueueBind(q.Name, string(p), cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", p, err)
		}
	}

	return nil
}

// Dispatch publishes j as a persistent message routed to its provider's
// queue.
func (r *RabbitMQ) Dispatch(ctx context.Context, j job.Job) error {
	body, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		string(j.Provider),
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    fmt.Sprintf("%s:%s:%d", j.SessionID, j.Provider, j.BatchNumber),
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}

	r.logger.Debug("dispatched sync job",
		"session_id", j.SessionID,
		"provider", j.Provider,
		"batch_number", j.BatchNumber,
		"items", len(j.Items),
	)

	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

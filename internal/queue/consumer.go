package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"news_ingest/internal/domain"
	"news_ingest/internal/job"
)

// Handler runs one job to completion, retries included.
type Handler interface {
	Run(ctx context.Context, j job.Job) job.Outcome
}

// Delivery is the part of amqp.Delivery a worker acknowledges through.
type Delivery interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Consume runs workers goroutines per provider until parent is cancelled or a
// delivery channel closes. Each provider gets its own channel with a
// prefetch of workers so unacknowledged jobs stay on the broker.
func (r *RabbitMQ) Consume(parent context.Context, providers []domain.Provider, workers int, h Handler) error {
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	abort := func(err error) error {
		cancel()
		_ = g.Wait()
		return err
	}

	for _, p := range providers {
		ch, err := r.conn.Channel()
		if err != nil {
			return abort(fmt.Errorf("open channel for %s: %w", p, err))
		}
		if err := ch.Qos(workers, 0, false); err != nil {
			ch.Close()
			return abort(fmt.Errorf("set qos for %s: %w", p, err))
		}

		deliveries, err := ch.Consume(QueueName(r.prefix, p), "", false, false, false, false, nil)
		if err != nil {
			ch.Close()
			return abort(fmt.Errorf("consume %s: %w", p, err))
		}

		r.logger.Info("consuming sync jobs", "provider", p, "workers", workers)

		g.Go(func() error {
			<-gctx.Done()
			return ch.Close()
		})

		for range workers {
			g.Go(func() error {
				for {
					select {
					case <-gctx.Done():
						return nil
					case d, ok := <-deliveries:
						if !ok {
							if gctx.Err() != nil {
								return nil
							}
							return errors.New("delivery channel closed for " + string(p))
						}
						r.handle(gctx, d.Body, &d, h)
					}
				}
			})
		}
	}

	err := g.Wait()
	if parent.Err() != nil {
		return nil
	}
	return err
}

// handle acks finished jobs, whatever their final state, and requeues jobs
// interrupted by shutdown. Undecodable messages are dropped.
func (r *RabbitMQ) handle(ctx context.Context, body []byte, d Delivery, h Handler) {
	var j job.Job
	if err := json.Unmarshal(body, &j); err != nil {
		r.logger.Error("dropping undecodable job", "error", err)
		_ = d.Nack(false, false)
		return
	}

	out := h.Run(ctx, j)

	if out.State == domain.SyncFailed {
		r.logger.Warn("sync job interrupted, requeueing",
			"session_id", j.SessionID,
			"provider", j.Provider,
			"batch_number", j.BatchNumber,
		)
		_ = d.Nack(false, true)
		return
	}

	if err := d.Ack(false); err != nil {
		r.logger.Error("failed to ack job", "provider", j.Provider, "batch_number", j.BatchNumber, "error", err)
	}
}

var _ Delivery = (*amqp.Delivery)(nil)

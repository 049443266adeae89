package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/carelog-systems/carelog-projector/internal/dlq"
	"github.com/carelog-systems/carelog-projector/internal/logging"
	"github.com/carelog-systems/carelog-projector/internal/metrics"
)

// Handler processes one fetched batch of change records. A batch either
// succeeds as a whole or fails as a whole; per-record problems are the
// handler's to absorb.
type Handler interface {
	HandleBatch(ctx context.Context, records []ChangeRecord) error
}

// ConsumerOptions tunes the pull-consumer fetch loop.
type ConsumerOptions struct {
	// BatchSize is the maximum records fetched per handler invocation.
	BatchSize int
	// FetchWait bounds how long a fetch blocks waiting for messages.
	FetchWait time.Duration
	// NakDelay delays redelivery after a failed invocation.
	NakDelay time.Duration
}

// DefaultConsumerOptions returns sensible defaults for the fetch loop.
func DefaultConsumerOptions() ConsumerOptions {
	return ConsumerOptions{
		BatchSize: 100,
		FetchWait: 5 * time.Second,
		NakDelay:  5 * time.Second,
	}
}

// Consumer drives the projector from a durable JetStream pull consumer.
// Messages within a subject arrive in order; across subjects no ordering is
// assumed, and redelivery is at-least-once. Both properties are absorbed by
// the handler's timestamp-resolved idempotent writes.
type Consumer struct {
	consumer jetstream.Consumer
	handler  Handler
	queue    *dlq.Queue
	opts     ConsumerOptions
	log      *logging.Logger
}

// NewConsumer creates a Consumer around an existing durable consumer.
func NewConsumer(consumer jetstream.Consumer, handler Handler, queue *dlq.Queue, opts ConsumerOptions, log *logging.Logger) *Consumer {
	if log == nil {
		log = logging.Default()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultConsumerOptions().BatchSize
	}
	if opts.FetchWait <= 0 {
		opts.FetchWait = DefaultConsumerOptions().FetchWait
	}
	if opts.NakDelay <= 0 {
		opts.NakDelay = DefaultConsumerOptions().NakDelay
	}
	return &Consumer{
		consumer: consumer,
		handler:  handler,
		queue:    queue,
		opts:     opts,
		log:      log,
	}
}

// Run fetches and processes batches until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		batch, err := c.consumer.Fetch(c.opts.BatchSize, jetstream.FetchMaxWait(c.opts.FetchWait))
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			return fmt.Errorf("fetch batch: %w", err)
		}

		if err := c.processBatch(ctx, batch); err != nil {
			c.log.Error("batch processing failed", logging.Error(err))
		}
	}
}

// processBatch parses one fetched batch and invokes the handler. Messages
// whose envelope cannot be parsed go to the DLQ and are acked; they would
// never decode on redelivery either. On handler failure every message is
// NAKed so the whole batch redelivers.
func (c *Consumer) processBatch(ctx context.Context, batch jetstream.MessageBatch) error {
	var msgs []jetstream.Msg
	var records []ChangeRecord

	for msg := range batch.Messages() {
		record, err := ParseChangeRecord(msg.Data())
		if err != nil {
			metrics.RecordsSkipped.WithLabelValues(dlq.ReasonDecode).Inc()
			c.log.Warn("unparseable change record", logging.Error(err))
			if dlqErr := c.queue.Write(ctx, "", msg.Data(), err, dlq.ReasonDecode); dlqErr != nil {
				c.log.Error("dlq write failed", logging.Error(dlqErr))
			}
			_ = msg.Ack()
			continue
		}
		msgs = append(msgs, msg)
		records = append(records, record)
	}
	if err := batch.Error(); err != nil {
		c.log.Warn("fetch completed with error", logging.Error(err))
	}

	if len(records) == 0 {
		return nil
	}

	if err := c.handler.HandleBatch(ctx, records); err != nil {
		for _, msg := range msgs {
			_ = msg.NakWithDelay(c.opts.NakDelay)
		}
		return err
	}

	for _, msg := range msgs {
		_ = msg.Ack()
	}
	return nil
}

// Package dlq captures change records the projector skipped, so malformed
// payloads stay inspectable instead of silently disappearing from the stream.
package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/carelog-systems/carelog-projector/internal/messaging/nats"
	"github.com/carelog-systems/carelog-projector/internal/metrics"
)

// Skip reasons recorded with failed records.
const (
	ReasonDecode     = "decode"
	ReasonValidation = "validation"
)

// FailedRecord is one skipped change record with its failure context.
type FailedRecord struct {
	Timestamp time.Time       `json:"timestamp"`
	RecordID  string          `json:"record_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error"`
	Reason    string          `json:"reason"`
}

// Queue writes skipped records to a JetStream stream. Safe to share across
// batches; a nil *Queue is a no-op so callers never branch on DLQ presence.
type Queue struct {
	js      *nats.JetStreamClient
	stream  jetstream.Stream
	written uint64
}

// NewQueue creates a DLQ backed by JetStream.
func NewQueue(ctx context.Context, js *nats.JetStreamClient) (*Queue, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream client is nil")
	}

	stream, err := js.CreateOrUpdateStream(ctx, nats.DLQStream)
	if err != nil {
		return nil, fmt.Errorf("create dlq stream: %w", err)
	}

	return &Queue{js: js, stream: stream}, nil
}

// Write records a skipped change record.
func (q *Queue) Write(ctx context.Context, recordID string, payload []byte, cause error, reason string) error {
	if q == nil {
		return nil
	}

	failed := FailedRecord{
		Timestamp: time.Now().UTC(),
		RecordID:  recordID,
		Payload:   json.RawMessage(payload),
		Error:     cause.Error(),
		Reason:    reason,
	}

	data, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("marshal dlq entry: %w", err)
	}

	subject := fmt.Sprintf("projector.dlq.%s", reason)
	if _, err := q.js.PublishSync(ctx, subject, data); err != nil {
		return fmt.Errorf("publish dlq entry: %w", err)
	}

	atomic.AddUint64(&q.written, 1)
	metrics.DLQPublished.WithLabelValues(reason).Inc()
	return nil
}

// Written returns how many records this instance published.
func (q *Queue) Written() uint64 {
	if q == nil {
		return 0
	}
	return atomic.LoadUint64(&q.written)
}

// List returns failed records from the DLQ, newest last.
func (q *Queue) List(ctx context.Context, limit int) ([]FailedRecord, error) {
	if q == nil {
		return nil, fmt.Errorf("dlq not enabled")
	}
	if limit <= 0 {
		limit = 100
	}

	consumer, err := q.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject: "projector.dlq.>",
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxDeliver:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("create list consumer: %w", err)
	}

	msgs, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	var records []FailedRecord
	for msg := range msgs.Messages() {
		var failed FailedRecord
		if err := json.Unmarshal(msg.Data(), &failed); err != nil {
			continue
		}
		records = append(records, failed)
	}
	return records, nil
}

// Purge removes all records from the DLQ stream.
func (q *Queue) Purge(ctx context.Context) error {
	if q == nil {
		return fmt.Errorf("dlq not enabled")
	}
	if err := q.stream.Purge(ctx); err != nil {
		return fmt.Errorf("purge dlq stream: %w", err)
	}
	return nil
}

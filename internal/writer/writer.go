// Package writer persists deduplicated record batches into a target store,
// handling chunking, retries, and partial-failure redrive.
package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/carelog-systems/carelog-projector/internal/logging"
	"github.com/carelog-systems/carelog-projector/internal/metrics"
	"github.com/carelog-systems/carelog-projector/internal/model"
	"github.com/carelog-systems/carelog-projector/internal/readmodel"
)

// RetryPolicy bounds the redrive of failed writes.
type RetryPolicy struct {
	// MaxRetries is how many times a chunk is re-attempted after the first
	// failure before the write is surfaced as fatal.
	MaxRetries uint64
	// InitialInterval seeds the exponential backoff.
	InitialInterval time.Duration
	// MaxInterval caps the backoff.
	MaxInterval time.Duration
}

// DefaultRetryPolicy returns the standard write retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      5,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// BatchWriter writes record batches to one store. Writes are plain overwrites
// by key; there is nothing conditional, so re-running a write is always safe.
type BatchWriter struct {
	store  readmodel.Store
	policy RetryPolicy
	log    *logging.Logger
}

// New creates a BatchWriter for the given store.
func New(store readmodel.Store, policy RetryPolicy, log *logging.Logger) *BatchWriter {
	if log == nil {
		log = logging.Default()
	}
	return &BatchWriter{store: store, policy: policy, log: log.With(logging.Store(store.Name()))}
}

// Store returns the underlying store.
func (w *BatchWriter) Store() readmodel.Store { return w.store }

// Write persists records in store-sized chunks. On partial failure only the
// unprocessed subset is retried, with exponential backoff, until the policy's
// retry budget is exhausted; only then does the whole invocation fail.
func (w *BatchWriter) Write(ctx context.Context, records []model.IndexRecord) error {
	size := w.store.MaxBatchSize()
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		if err := w.writeChunk(ctx, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (w *BatchWriter) writeChunk(ctx context.Context, chunk []model.IndexRecord) error {
	pending := chunk

	op := func() error {
		unprocessed, err := w.store.PutBatch(ctx, pending)
		if err != nil {
			metrics.WriteFailures.WithLabelValues(w.store.Name()).Inc()
			return fmt.Errorf("put batch: %w", err)
		}
		if len(unprocessed) > 0 {
			metrics.WriteRedrives.WithLabelValues(w.store.Name()).Add(float64(len(unprocessed)))
			pending = unprocessed
			return fmt.Errorf("%d of %d records unprocessed", len(unprocessed), len(chunk))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.policy.InitialInterval
	bo.MaxInterval = w.policy.MaxInterval

	notify := func(err error, next time.Duration) {
		w.log.Warn("write retry",
			logging.Error(err),
			logging.BatchSize(len(pending)),
			logging.Duration(next.Milliseconds()),
		)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(bo, w.policy.MaxRetries), ctx), notify)
	if err != nil {
		return fmt.Errorf("write to %s exhausted retries: %w", w.store.Name(), err)
	}

	metrics.RecordsWritten.WithLabelValues(w.store.Name()).Add(float64(len(chunk)))
	return nil
}

// Package projector orchestrates one stream-batch invocation: decode the
// accepted change records, fan each out into candidate index records, collapse
// conflicting candidates per target store, and batch-write the survivors.
package projector

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/carelog-systems/carelog-projector/internal/dedupe"
	"github.com/carelog-systems/carelog-projector/internal/dlq"
	"github.com/carelog-systems/carelog-projector/internal/fanout"
	"github.com/carelog-systems/carelog-projector/internal/logging"
	"github.com/carelog-systems/carelog-projector/internal/metrics"
	"github.com/carelog-systems/carelog-projector/internal/model"
	"github.com/carelog-systems/carelog-projector/internal/stream"
	"github.com/carelog-systems/carelog-projector/internal/wire"
	"github.com/carelog-systems/carelog-projector/internal/writer"
)

// Target couples a batch writer with the record kinds it receives. A nil or
// empty Kinds set means the target takes every kind.
type Target struct {
	Writer *writer.BatchWriter
	Kinds  map[model.RecordKind]bool
}

// wants reports whether the target receives records of the given kind.
func (t Target) wants(kind model.RecordKind) bool {
	if len(t.Kinds) == 0 {
		return true
	}
	return t.Kinds[kind]
}

// Handler is the externally-invoked entry point. It holds no state between
// invocations beyond counters; every batch is an independent transform, which
// is what makes concurrent and duplicate redeliveries safe.
type Handler struct {
	engine  *fanout.Engine
	targets []Target
	queue   *dlq.Queue
	log     *logging.Logger

	startedAt time.Time
	projected atomic.Uint64
	skipped   atomic.Uint64
	failed    atomic.Uint64
}

// NewHandler creates a Handler writing to the given targets. queue may be nil
// when the DLQ is disabled.
func NewHandler(targets []Target, queue *dlq.Queue, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Default()
	}
	return &Handler{
		engine:    fanout.New(),
		targets:   targets,
		queue:     queue,
		log:       log,
		startedAt: time.Now().UTC(),
	}
}

// HandleBatch processes one invocation batch. Only insert and modify records
// are projected; decode and validation failures skip the one record (with a
// DLQ entry) and the batch continues. A write failure after retries fails the
// whole invocation so the stream redelivers the batch — every write is an
// idempotent overwrite resolved by event timestamp, so redelivery is safe.
func (h *Handler) HandleBatch(ctx context.Context, records []stream.ChangeRecord) error {
	started := time.Now()
	defer func() {
		metrics.BatchDuration.Observe(time.Since(started).Seconds())
	}()

	candidates := make([][]model.IndexRecord, len(h.targets))

	for _, record := range records {
		if !record.Kind.Projectable() {
			h.skipped.Add(1)
			metrics.RecordsSkipped.WithLabelValues("change_kind").Inc()
			continue
		}

		ev, err := h.decode(record)
		if err != nil {
			h.skip(ctx, record, err)
			continue
		}

		expanded := h.engine.Expand(ev)
		for _, candidate := range expanded {
			metrics.CandidatesTotal.WithLabelValues(string(candidate.RecordType)).Inc()
			for i, target := range h.targets {
				if target.wants(candidate.RecordType) {
					candidates[i] = append(candidates[i], candidate)
				}
			}
		}

		h.projected.Add(1)
		metrics.RecordsTotal.WithLabelValues("projected").Inc()
	}

	for i, target := range h.targets {
		if len(candidates[i]) == 0 {
			continue
		}
		survivors := dedupe.Collapse(candidates[i])
		store := target.Writer.Store().Name()
		if dropped := len(candidates[i]) - len(survivors); dropped > 0 {
			metrics.DedupeDropped.WithLabelValues(store).Add(float64(dropped))
		}
		if err := target.Writer.Write(ctx, survivors); err != nil {
			h.failed.Add(1)
			metrics.RecordsTotal.WithLabelValues("failed").Inc()
			return fmt.Errorf("write batch to %s: %w", store, err)
		}
		h.log.Debug("batch written",
			logging.Store(store),
			logging.Candidates(len(candidates[i])),
			logging.Survivors(len(survivors)),
		)
	}

	return nil
}

// decode turns a change record's new image into a ChangeEvent.
func (h *Handler) decode(record stream.ChangeRecord) (model.ChangeEvent, error) {
	if len(record.NewImage) == 0 {
		return model.ChangeEvent{}, &wire.DecodeError{Reason: "missing new image"}
	}
	value, err := wire.Decode(record.NewImage)
	if err != nil {
		return model.ChangeEvent{}, err
	}
	return model.EventFromValue(value)
}

// skip records one rejected change record without aborting the batch.
func (h *Handler) skip(ctx context.Context, record stream.ChangeRecord, cause error) {
	h.skipped.Add(1)

	reason := dlq.ReasonValidation
	if wire.IsDecodeError(cause) {
		reason = dlq.ReasonDecode
	}
	metrics.RecordsSkipped.WithLabelValues(reason).Inc()

	h.log.Warn("change record skipped",
		logging.RecordID(record.ID),
		logging.Reason(reason),
		logging.Error(cause),
	)

	if err := h.queue.Write(ctx, record.ID, record.NewImage, cause, reason); err != nil {
		h.log.Error("dlq write failed", logging.RecordID(record.ID), logging.Error(err))
	}
}

// Stats is a snapshot of handler counters for health reporting.
type Stats struct {
	UptimeSeconds int64  `json:"uptime_seconds"`
	Projected     uint64 `json:"projected"`
	Skipped       uint64 `json:"skipped"`
	Failed        uint64 `json:"failed"`
	Targets       int    `json:"targets"`
}

// Health returns live status for health checks.
func (h *Handler) Health() Stats {
	return Stats{
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Projected:     h.projected.Load(),
		Skipped:       h.skipped.Load(),
		Failed:        h.failed.Load(),
		Targets:       len(h.targets),
	}
}

// Package readmodel provides the key-value stores the projector writes derived
// records into. Every backend upserts by (PK, SK): writing a key that already
// exists overwrites the prior row, which is what makes redelivery safe.
package readmodel

import (
	"context"

	"github.com/carelog-systems/carelog-projector/internal/model"
)

// Store is one target read-model store. Implementations must treat every put
// as an overwrite (no conditional writes) and report partial failure by
// returning the records that were not durably written, so the batch writer can
// redrive only that subset.
type Store interface {
	// Name identifies the store in logs and metrics.
	Name() string

	// MaxBatchSize is the largest record count a single PutBatch call accepts.
	MaxBatchSize() int

	// PutBatch upserts records by (PK, SK). It returns the unprocessed subset
	// on partial failure, or a non-nil error when the whole call failed (in
	// which case every record is unprocessed).
	PutBatch(ctx context.Context, records []model.IndexRecord) ([]model.IndexRecord, error)

	// Close releases the underlying connection.
	Close() error
}

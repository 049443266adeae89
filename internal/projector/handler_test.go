package projector

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelog-systems/carelog-projector/internal/model"
	"github.com/carelog-systems/carelog-projector/internal/stream"
	"github.com/carelog-systems/carelog-projector/internal/writer"
)

// memStore collects every record written to it, keyed by (PK, SK).
type memStore struct {
	name    string
	written map[model.RecordKey]model.IndexRecord
	order   []model.RecordKey
	failErr error
}

func newMemStore(name string) *memStore {
	return &memStore{name: name, written: make(map[model.RecordKey]model.IndexRecord)}
}

func (s *memStore) Name() string      { return s.name }
func (s *memStore) MaxBatchSize() int { return 25 }
func (s *memStore) Close() error      { return nil }

func (s *memStore) PutBatch(_ context.Context, records []model.IndexRecord) ([]model.IndexRecord, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}
	for _, r := range records {
		key := r.Key()
		if _, seen := s.written[key]; !seen {
			s.order = append(s.order, key)
		}
		s.written[key] = r
	}
	return nil, nil
}

func fastPolicy() writer.RetryPolicy {
	return writer.RetryPolicy{MaxRetries: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func targetFor(s *memStore, kinds ...model.RecordKind) Target {
	t := Target{Writer: writer.New(s, fastPolicy(), nil)}
	if len(kinds) > 0 {
		t.Kinds = make(map[model.RecordKind]bool, len(kinds))
		for _, k := range kinds {
			t.Kinds[k] = true
		}
	}
	return t
}

type imageOpts struct {
	resourceID string
	occurredAt string
	source     string
	changes    map[string]string
}

func changeRecord(t *testing.T, id string, opts imageOpts) stream.ChangeRecord {
	t.Helper()

	changes := make(map[string]any, len(opts.changes))
	for attr, value := range opts.changes {
		changes[attr] = map[string]any{"M": map[string]any{"value": map[string]any{"S": value}}}
	}

	image := map[string]any{
		"resourceType": map[string]any{"S": "patient"},
		"resourceId":   map[string]any{"S": opts.resourceID},
		"eventType":    map[string]any{"S": "ATTRIBUTE_UPDATED"},
		"occurredAt":   map[string]any{"S": opts.occurredAt},
		"actorId":      map[string]any{"S": "actor-1"},
		"changes":      map[string]any{"M": changes},
	}
	if opts.source != "" {
		image["source"] = map[string]any{"S": opts.source}
	}

	data, err := json.Marshal(image)
	require.NoError(t, err)
	return stream.ChangeRecord{ID: id, Kind: stream.KindModify, NewImage: data}
}

func TestHandleBatch_ProjectsSingleEvent(t *testing.T) {
	store := newMemStore("mem")
	h := NewHandler([]Target{targetFor(store)}, nil, nil)

	record := changeRecord(t, "r1", imageOpts{
		resourceID: "P1",
		occurredAt: "2026-08-01T10:00:00Z",
		source:     "USER",
		changes:    map[string]string{"email": "a@x.com"},
	})

	require.NoError(t, h.HandleBatch(context.Background(), []stream.ChangeRecord{record}))

	require.Len(t, store.written, 4)
	for _, sk := range []string{
		"LATEST#email",
		"EVENT#ATTRIBUTE_UPDATED#email",
		"SOURCE#USER#email",
		"HISTORY#email#2026-08-01T10:00:00Z",
	} {
		_, ok := store.written[model.RecordKey{PK: "patient#P1", SK: sk}]
		assert.True(t, ok, "missing %s", sk)
	}

	stats := h.Health()
	assert.Equal(t, uint64(1), stats.Projected)
	assert.Equal(t, uint64(0), stats.Skipped)
}

func TestHandleBatch_NewerValueWinsWithinBatch(t *testing.T) {
	store := newMemStore("mem")
	h := NewHandler([]Target{targetFor(store)}, nil, nil)

	records := []stream.ChangeRecord{
		changeRecord(t, "r1", imageOpts{
			resourceID: "P1",
			occurredAt: "2026-08-01T11:00:00Z",
			changes:    map[string]string{"email": "new@x.com"},
		}),
		changeRecord(t, "r2", imageOpts{
			resourceID: "P1",
			occurredAt: "2026-08-01T10:00:00Z",
			changes:    map[string]string{"email": "old@x.com"},
		}),
	}

	require.NoError(t, h.HandleBatch(context.Background(), records))

	latest := store.written[model.RecordKey{PK: "patient#P1", SK: "LATEST#email"}]
	assert.Equal(t, "2026-08-01T11:00:00Z", latest.OccurredAt)

	// Both history rows survive either way.
	assert.Contains(t, store.written, model.RecordKey{PK: "patient#P1", SK: "HISTORY#email#2026-08-01T10:00:00Z"})
	assert.Contains(t, store.written, model.RecordKey{PK: "patient#P1", SK: "HISTORY#email#2026-08-01T11:00:00Z"})
}

func TestHandleBatch_SkipsRemoveRecords(t *testing.T) {
	store := newMemStore("mem")
	h := NewHandler([]Target{targetFor(store)}, nil, nil)

	record := changeRecord(t, "r1", imageOpts{
		resourceID: "P1",
		occurredAt: "2026-08-01T10:00:00Z",
		changes:    map[string]string{"email": "a@x.com"},
	})
	record.Kind = stream.KindRemove

	require.NoError(t, h.HandleBatch(context.Background(), []stream.ChangeRecord{record}))
	assert.Empty(t, store.written)
	assert.Equal(t, uint64(1), h.Health().Skipped)
}

func TestHandleBatch_BadRecordDoesNotAbortBatch(t *testing.T) {
	store := newMemStore("mem")
	h := NewHandler([]Target{targetFor(store)}, nil, nil)

	records := []stream.ChangeRecord{
		{ID: "bad-json", Kind: stream.KindModify, NewImage: json.RawMessage(`{"S": 42}`)},
		{ID: "no-image", Kind: stream.KindModify},
		changeRecord(t, "good", imageOpts{
			resourceID: "P1",
			occurredAt: "2026-08-01T10:00:00Z",
			changes:    map[string]string{"email": "a@x.com"},
		}),
	}

	require.NoError(t, h.HandleBatch(context.Background(), records))

	assert.Contains(t, store.written, model.RecordKey{PK: "patient#P1", SK: "LATEST#email"})
	stats := h.Health()
	assert.Equal(t, uint64(1), stats.Projected)
	assert.Equal(t, uint64(2), stats.Skipped)
}

func TestHandleBatch_ValidationFailureSkips(t *testing.T) {
	store := newMemStore("mem")
	h := NewHandler([]Target{targetFor(store)}, nil, nil)

	// Decodes fine but has no changes mapping.
	image, err := json.Marshal(map[string]any{
		"resourceType": map[string]any{"S": "patient"},
		"resourceId":   map[string]any{"S": "P1"},
		"eventType":    map[string]any{"S": "ATTRIBUTE_UPDATED"},
		"occurredAt":   map[string]any{"S": "2026-08-01T10:00:00Z"},
	})
	require.NoError(t, err)

	records := []stream.ChangeRecord{{ID: "r1", Kind: stream.KindModify, NewImage: image}}
	require.NoError(t, h.HandleBatch(context.Background(), records))

	assert.Empty(t, store.written)
	assert.Equal(t, uint64(1), h.Health().Skipped)
}

func TestHandleBatch_RoutesKindsPerTarget(t *testing.T) {
	current := newMemStore("current")
	audit := newMemStore("audit")

	targets := []Target{
		targetFor(current, model.KindLatest, model.KindEvent, model.KindSource, model.KindProgram),
		targetFor(audit, model.KindHistory),
	}
	h := NewHandler(targets, nil, nil)

	record := changeRecord(t, "r1", imageOpts{
		resourceID: "P1",
		occurredAt: "2026-08-01T10:00:00Z",
		source:     "ETL",
		changes:    map[string]string{"email": "a@x.com"},
	})

	require.NoError(t, h.HandleBatch(context.Background(), []stream.ChangeRecord{record}))

	require.Len(t, current.written, 3)
	for key := range current.written {
		assert.NotContains(t, key.SK, "HISTORY#")
	}

	require.Len(t, audit.written, 1)
	for _, r := range audit.written {
		assert.Equal(t, model.KindHistory, r.RecordType)
	}
}

func TestHandleBatch_WriteFailureFailsInvocation(t *testing.T) {
	store := newMemStore("mem")
	store.failErr = errors.New("store down")
	h := NewHandler([]Target{targetFor(store)}, nil, nil)

	record := changeRecord(t, "r1", imageOpts{
		resourceID: "P1",
		occurredAt: "2026-08-01T10:00:00Z",
		changes:    map[string]string{"email": "a@x.com"},
	})

	err := h.HandleBatch(context.Background(), []stream.ChangeRecord{record})
	require.Error(t, err)
	assert.Equal(t, uint64(1), h.Health().Failed)
}

func TestHandleBatch_DuplicateDeliveryConverges(t *testing.T) {
	store := newMemStore("mem")
	h := NewHandler([]Target{targetFor(store)}, nil, nil)

	batch := []stream.ChangeRecord{changeRecord(t, "r1", imageOpts{
		resourceID: "P1",
		occurredAt: "2026-08-01T10:00:00Z",
		changes:    map[string]string{"email": "a@x.com"},
	})}

	require.NoError(t, h.HandleBatch(context.Background(), batch))
	first := make(map[model.RecordKey]model.IndexRecord, len(store.written))
	for k, v := range store.written {
		first[k] = v
	}

	// Redelivery of the same batch leaves the store unchanged: overwritable
	// kinds overwrite with identical content, history keys collide by design.
	require.NoError(t, h.HandleBatch(context.Background(), batch))
	assert.Equal(t, first, store.written)
}

func TestHandleBatch_EmptyBatch(t *testing.T) {
	store := newMemStore("mem")
	h := NewHandler([]Target{targetFor(store)}, nil, nil)

	require.NoError(t, h.HandleBatch(context.Background(), nil))
	assert.Empty(t, store.written)
}

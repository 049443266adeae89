// Package dedupe collapses candidate index records that target the same
// storage key before they reach a batch write. A single stream batch can carry
// several updates to the same attribute of the same resource; without this
// step the write would attempt conflicting overwrites of one key, and stores
// that reject same-key duplicates in a single call would fail the batch.
package dedupe

import (
	"github.com/carelog-systems/carelog-projector/internal/model"
)

// Collapse reduces a batch's candidate records to at most one survivor per
// (PK, SK) for overwritable kinds. History records bypass the rule entirely:
// their SK embeds occurredAt, so they are already unique per change.
//
// For conflicting candidates the survivor is the one with the strictly
// greatest occurredAt; on equal timestamps the candidate encountered last in
// processing order wins. The comparison uses the event's own timestamp, never
// arrival order, so overlapping or out-of-order redeliveries converge to the
// same final state.
//
// Output order is deterministic: history records in input order, then
// overwritable survivors in first-seen key order. Collapse is idempotent and,
// for any two candidates of one key, commutative in their input order.
func Collapse(records []model.IndexRecord) []model.IndexRecord {
	if len(records) == 0 {
		return nil
	}

	var history []model.IndexRecord
	survivors := make(map[model.RecordKey]model.IndexRecord)
	keyOrder := make([]model.RecordKey, 0, len(records))

	for _, record := range records {
		if !record.RecordType.Overwritable() {
			history = append(history, record)
			continue
		}

		key := record.Key()
		current, seen := survivors[key]
		if !seen {
			keyOrder = append(keyOrder, key)
			survivors[key] = record
			continue
		}
		if model.CompareTimestamps(record.OccurredAt, current.OccurredAt) >= 0 {
			survivors[key] = record
		}
	}

	out := make([]model.IndexRecord, 0, len(history)+len(survivors))
	out = append(out, history...)
	for _, key := range keyOrder {
		out = append(out, survivors[key])
	}
	return out
}

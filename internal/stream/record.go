// Package stream consumes change-capture batches from JetStream and drives
// the projector handler.
package stream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ChangeKind tags what kind of mutation a change record describes.
type ChangeKind string

const (
	// KindInsert is a newly appended item.
	KindInsert ChangeKind = "INSERT"
	// KindModify is an update to an existing item.
	KindModify ChangeKind = "MODIFY"
	// KindRemove is a deletion. The projector never deletes read-model rows,
	// so removes are skipped.
	KindRemove ChangeKind = "REMOVE"
)

// ParseChangeKind normalizes a change-kind tag. Unknown tags are returned
// as-is; the handler treats anything that is not insert/modify as skippable.
func ParseChangeKind(s string) ChangeKind {
	return ChangeKind(strings.ToUpper(s))
}

// Projectable reports whether records of this kind are processed.
func (k ChangeKind) Projectable() bool {
	return k == KindInsert || k == KindModify
}

// ChangeRecord is one entry of a change-capture batch: a change-kind tag plus
// the new image of the changed item in the typed-tag wire format.
type ChangeRecord struct {
	ID       string          `json:"id"`
	Kind     ChangeKind      `json:"kind"`
	NewImage json.RawMessage `json:"new_image,omitempty"`
}

// ParseChangeRecord decodes a stream message into a ChangeRecord.
func ParseChangeRecord(data []byte) (ChangeRecord, error) {
	var record ChangeRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return ChangeRecord{}, fmt.Errorf("parse change record: %w", err)
	}
	if record.Kind == "" {
		return ChangeRecord{}, fmt.Errorf("parse change record: missing kind")
	}
	record.Kind = ParseChangeKind(string(record.Kind))
	return record, nil
}

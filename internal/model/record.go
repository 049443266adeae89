package model

import (
	"fmt"
	"strings"

	"github.com/carelog-systems/carelog-projector/internal/wire"
)

// RecordKind identifies the read-model variant an index record belongs to.
// The kind is derivable from the SK prefix; it is carried explicitly so stores
// and routing never have to re-parse keys.
type RecordKind string

const (
	// KindLatest is the canonical latest value of an attribute.
	KindLatest RecordKind = "LATEST"
	// KindEvent is the latest value attributed to a given event type.
	KindEvent RecordKind = "EVENT"
	// KindSource is the latest value attributed to a given origin system.
	KindSource RecordKind = "SOURCE"
	// KindProgram is the latest value scoped to a program year/cohort.
	KindProgram RecordKind = "PROGRAM"
	// KindHistory is the append-only audit trail, one row per change.
	KindHistory RecordKind = "HISTORY"
)

// Kinds lists every record kind in fan-out order.
func Kinds() []RecordKind {
	return []RecordKind{KindLatest, KindEvent, KindSource, KindProgram, KindHistory}
}

// ParseRecordKind converts a string into a RecordKind.
func ParseRecordKind(s string) (RecordKind, error) {
	switch RecordKind(strings.ToUpper(s)) {
	case KindLatest:
		return KindLatest, nil
	case KindEvent:
		return KindEvent, nil
	case KindSource:
		return KindSource, nil
	case KindProgram:
		return KindProgram, nil
	case KindHistory:
		return KindHistory, nil
	default:
		return "", fmt.Errorf("unknown record kind %q", s)
	}
}

// Overwritable reports whether records of this kind may be replaced by a newer
// candidate with the same key. History rows are append-only: their SK embeds
// occurredAt, so every change yields a distinct key.
func (k RecordKind) Overwritable() bool {
	return k != KindHistory
}

// RecordKey is the unique identity of a stored record.
type RecordKey struct {
	PK string
	SK string
}

// IndexRecord is the unit of persistence: one derived read-model row.
// Records are transient; they exist only between fan-out and the batch write.
type IndexRecord struct {
	PK              string     `json:"PK"`
	SK              string     `json:"SK"`
	RecordType      RecordKind `json:"recordType"`
	Attribute       string     `json:"attribute"`
	Value           wire.Value `json:"value"`
	EventType       string     `json:"eventType"`
	ActorID         string     `json:"actorId,omitempty"`
	Source          string     `json:"source,omitempty"`
	OccurredAt      string     `json:"occurredAt"`
	ProgramYearName string     `json:"programYearName,omitempty"`
	ProgramTag      string     `json:"programTag,omitempty"`
}

// Key returns the record's storage identity.
func (r IndexRecord) Key() RecordKey {
	return RecordKey{PK: r.PK, SK: r.SK}
}

// LatestSK builds the canonical-latest sort key for an attribute.
func LatestSK(attr string) string {
	return fmt.Sprintf("LATEST#%s", attr)
}

// EventSK builds the by-event-type sort key.
func EventSK(eventType, attr string) string {
	return fmt.Sprintf("EVENT#%s#%s", eventType, attr)
}

// SourceSK builds the by-source sort key.
func SourceSK(source, attr string) string {
	return fmt.Sprintf("SOURCE#%s#%s", source, attr)
}

// ProgramSK builds the by-program sort key. The tag segment is present only
// when the event carries a program tag.
func ProgramSK(programYear, programTag, attr string) string {
	if programTag != "" {
		return fmt.Sprintf("PROGRAM#%s#%s#%s", programYear, programTag, attr)
	}
	return fmt.Sprintf("PROGRAM#%s#%s", programYear, attr)
}

// HistorySK builds the append-only history sort key.
func HistorySK(attr, occurredAt string) string {
	return fmt.Sprintf("HISTORY#%s#%s", attr, occurredAt)
}

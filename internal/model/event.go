// Package model holds the domain types flowing through the projector: decoded
// change events on the way in, read-model index records on the way out.
package model

import (
	"fmt"
	"time"

	"github.com/carelog-systems/carelog-projector/internal/wire"
)

// Resource types carried by change events.
const (
	ResourcePatient      = "patient"
	ResourcePractitioner = "practitioner"
	ResourceReport       = "report"
)

// AttributeChange is the new value recorded for one attribute.
type AttributeChange struct {
	Value wire.Value
}

// ChangeEvent is one decoded change-capture record: a set of attribute changes
// for a single resource at a single point in time.
type ChangeEvent struct {
	ResourceType string
	ResourceID   string
	EventType    string
	Changes      map[string]AttributeChange
	OccurredAt   string
	ActorID      string
	Source       string
	ProgramYear  string
	ProgramTag   string
}

// PK returns the partition key for every record derived from this event.
func (e ChangeEvent) PK() string {
	return fmt.Sprintf("%s#%s", e.ResourceType, e.ResourceID)
}

// ValidationError marks a decoded event missing a required field. Like decode
// failures it is local to one record.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "change event: missing or empty " + e.Field
}

// EventFromValue maps a decoded wire image onto a ChangeEvent, validating the
// required fields. The changes mapping must be present and non-empty; events
// without changes produce no index records and are rejected here so the
// handler can skip them.
func EventFromValue(v wire.Value) (ChangeEvent, error) {
	if v.Kind() != wire.KindMap {
		return ChangeEvent{}, &ValidationError{Field: "payload"}
	}

	ev := ChangeEvent{
		ResourceType: v.StringAt("resourceType"),
		ResourceID:   v.StringAt("resourceId"),
		EventType:    v.StringAt("eventType"),
		OccurredAt:   v.StringAt("occurredAt"),
		ActorID:      v.StringAt("actorId"),
		Source:       v.StringAt("source"),
		ProgramYear:  v.StringAt("programYear"),
		ProgramTag:   v.StringAt("programTag"),
	}

	// Older producers write programYearName / updatedBy instead.
	if ev.ProgramYear == "" {
		ev.ProgramYear = v.StringAt("programYearName")
	}
	if ev.ActorID == "" {
		ev.ActorID = v.StringAt("updatedBy")
	}

	switch {
	case ev.ResourceType == "":
		return ChangeEvent{}, &ValidationError{Field: "resourceType"}
	case ev.ResourceID == "":
		return ChangeEvent{}, &ValidationError{Field: "resourceId"}
	case ev.EventType == "":
		return ChangeEvent{}, &ValidationError{Field: "eventType"}
	case ev.OccurredAt == "":
		return ChangeEvent{}, &ValidationError{Field: "occurredAt"}
	}

	changes, ok := v.Get("changes")
	if !ok || changes.Kind() != wire.KindMap || len(changes.Entries()) == 0 {
		return ChangeEvent{}, &ValidationError{Field: "changes"}
	}

	ev.Changes = make(map[string]AttributeChange, len(changes.Entries()))
	for attr, payload := range changes.Entries() {
		value, _ := payload.Get("value")
		ev.Changes[attr] = AttributeChange{Value: value}
	}

	return ev, nil
}

// CompareTimestamps orders two occurredAt values. When both parse as RFC 3339
// they compare as instants; otherwise they compare lexicographically, which is
// consistent for producers using a fixed textual format.
func CompareTimestamps(a, b string) int {
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA == nil && errB == nil {
		return ta.Compare(tb)
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

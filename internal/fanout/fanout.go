// Package fanout expands one change event into the candidate index records
// for every read-model variant the projector maintains.
package fanout

import (
	"sort"

	"github.com/carelog-systems/carelog-projector/internal/model"
)

// Engine derives candidate index records from change events. It is stateless;
// a single Engine is shared across batches.
type Engine struct{}

// New creates a fan-out engine.
func New() *Engine {
	return &Engine{}
}

// Expand emits the candidate records for one event. Per changed attribute it
// produces a LATEST record, an EVENT record, a SOURCE record when the event
// carries a source, a PROGRAM record when it carries a program year, and a
// HISTORY record. An event with no changes yields no records.
//
// Output order is deterministic: attributes in sorted order, kinds in the
// order above. Order carries no semantics; the deduplicator decides conflicts
// by occurredAt.
func (e *Engine) Expand(ev model.ChangeEvent) []model.IndexRecord {
	if len(ev.Changes) == 0 {
		return nil
	}

	pk := ev.PK()
	records := make([]model.IndexRecord, 0, len(ev.Changes)*5)

	attrs := make([]string, 0, len(ev.Changes))
	for attr := range ev.Changes {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	for _, attr := range attrs {
		change := ev.Changes[attr]

		base := model.IndexRecord{
			PK:         pk,
			Attribute:  attr,
			Value:      change.Value,
			EventType:  ev.EventType,
			ActorID:    ev.ActorID,
			Source:     ev.Source,
			OccurredAt: ev.OccurredAt,
		}

		latest := base
		latest.RecordType = model.KindLatest
		latest.SK = model.LatestSK(attr)
		records = append(records, latest)

		byEvent := base
		byEvent.RecordType = model.KindEvent
		byEvent.SK = model.EventSK(ev.EventType, attr)
		records = append(records, byEvent)

		if ev.Source != "" {
			bySource := base
			bySource.RecordType = model.KindSource
			bySource.SK = model.SourceSK(ev.Source, attr)
			records = append(records, bySource)
		}

		if ev.ProgramYear != "" {
			byProgram := base
			byProgram.RecordType = model.KindProgram
			byProgram.SK = model.ProgramSK(ev.ProgramYear, ev.ProgramTag, attr)
			byProgram.ProgramYearName = ev.ProgramYear
			byProgram.ProgramTag = ev.ProgramTag
			records = append(records, byProgram)
		}

		history := base
		history.RecordType = model.KindHistory
		history.SK = model.HistorySK(attr, ev.OccurredAt)
		records = append(records, history)
	}

	return records
}

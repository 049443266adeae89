// Package seeder generates synthetic change-capture records and publishes
// them to the change stream. It exists for load testing and demo setups; the
// payloads mirror what the event store's change feed emits.
package seeder

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/carelog-systems/carelog-projector/internal/logging"
	"github.com/carelog-systems/carelog-projector/internal/messaging/nats"
	"github.com/carelog-systems/carelog-projector/internal/stream"
)

// Options controls a seeding run.
type Options struct {
	// Patients is how many distinct patient resources to spread events over.
	Patients int
	// EventsPerPatient is how many change events each patient receives.
	EventsPerPatient int
	// TimeWindow is how far into the past occurredAt timestamps are spread.
	TimeWindow time.Duration
}

// DefaultOptions returns a small but representative seeding run.
func DefaultOptions() Options {
	return Options{
		Patients:         100,
		EventsPerPatient: 10,
		TimeWindow:       24 * time.Hour,
	}
}

// Seeder publishes generated change records to JetStream.
type Seeder struct {
	js  *nats.JetStreamClient
	gen *generator
	log *logging.Logger
}

// New creates a Seeder.
func New(js *nats.JetStreamClient, log *logging.Logger) *Seeder {
	if log == nil {
		log = logging.Default()
	}
	return &Seeder{js: js, gen: newGenerator(), log: log}
}

// Run generates and publishes opts.Patients * opts.EventsPerPatient change
// records. It returns the number of records successfully published.
func (s *Seeder) Run(ctx context.Context, opts Options) (int, error) {
	if opts.Patients <= 0 || opts.EventsPerPatient <= 0 {
		return 0, fmt.Errorf("seeder: patients and events per patient must be positive")
	}

	if _, err := s.js.CreateOrUpdateStream(ctx, nats.ChangeStream); err != nil {
		return 0, fmt.Errorf("ensure change stream: %w", err)
	}

	published := 0
	now := time.Now().UTC()

	for p := 0; p < opts.Patients; p++ {
		patientID := fmt.Sprintf("%05d", p+1)
		for e := 0; e < opts.EventsPerPatient; e++ {
			occurredAt := now.Add(-time.Duration(rand.Float64() * float64(opts.TimeWindow)))
			record := s.gen.changeRecord(patientID, occurredAt)

			data, err := json.Marshal(record)
			if err != nil {
				return published, fmt.Errorf("marshal change record: %w", err)
			}

			subject := fmt.Sprintf("changes.patient.%s", patientID)
			if _, err := s.js.PublishSync(ctx, subject, data); err != nil {
				return published, fmt.Errorf("publish change record: %w", err)
			}
			published++
		}
	}

	s.log.Info("seeding complete", logging.BatchSize(published))
	return published, nil
}

// Generate returns one synthetic change record without publishing it.
// Used by tests and dry runs.
func (s *Seeder) Generate(patientID string, occurredAt time.Time) stream.ChangeRecord {
	return s.gen.changeRecord(patientID, occurredAt)
}

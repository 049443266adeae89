package logging

import "log/slog"

// Common field names for consistent logging across the projector.
const (
	FieldService    = "service"
	FieldStore      = "store"
	FieldStream     = "stream"
	FieldConsumer   = "consumer"
	FieldRecordID   = "record_id"
	FieldBatchSize  = "batch_size"
	FieldCandidates = "candidates"
	FieldSurvivors  = "survivors"
	FieldReason     = "reason"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Store returns a slog attribute for a read-model store name.
func Store(name string) slog.Attr {
	return slog.String(FieldStore, name)
}

// Stream returns a slog attribute for a stream name.
func Stream(name string) slog.Attr {
	return slog.String(FieldStream, name)
}

// Consumer returns a slog attribute for a durable consumer name.
func Consumer(name string) slog.Attr {
	return slog.String(FieldConsumer, name)
}

// RecordID returns a slog attribute for a change-record ID.
func RecordID(id string) slog.Attr {
	return slog.String(FieldRecordID, id)
}

// BatchSize returns a slog attribute for a batch size.
func BatchSize(n int) slog.Attr {
	return slog.Int(FieldBatchSize, n)
}

// Candidates returns a slog attribute for a pre-dedupe candidate count.
func Candidates(n int) slog.Attr {
	return slog.Int(FieldCandidates, n)
}

// Survivors returns a slog attribute for a post-dedupe record count.
func Survivors(n int) slog.Attr {
	return slog.Int(FieldSurvivors, n)
}

// Reason returns a slog attribute for a skip/DLQ reason.
func Reason(r string) slog.Attr {
	return slog.String(FieldReason, r)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

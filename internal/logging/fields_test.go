package logging

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldHelpers(t *testing.T) {
	tests := []struct {
		attr slog.Attr
		key  string
		want slog.Value
	}{
		{attr: Service("projector"), key: FieldService, want: slog.StringValue("projector")},
		{attr: Store("redis"), key: FieldStore, want: slog.StringValue("redis")},
		{attr: Stream("CARELOG_CHANGES"), key: FieldStream, want: slog.StringValue("CARELOG_CHANGES")},
		{attr: Consumer("projector"), key: FieldConsumer, want: slog.StringValue("projector")},
		{attr: RecordID("r1"), key: FieldRecordID, want: slog.StringValue("r1")},
		{attr: BatchSize(100), key: FieldBatchSize, want: slog.IntValue(100)},
		{attr: Candidates(12), key: FieldCandidates, want: slog.IntValue(12)},
		{attr: Survivors(9), key: FieldSurvivors, want: slog.IntValue(9)},
		{attr: Reason("decode"), key: FieldReason, want: slog.StringValue("decode")},
		{attr: Duration(250), key: FieldDuration, want: slog.Int64Value(250)},
		{attr: Error(errors.New("boom")), key: FieldError, want: slog.StringValue("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.attr.Key)
			assert.True(t, tt.attr.Value.Equal(tt.want), "got %v, want %v", tt.attr.Value, tt.want)
		})
	}
}

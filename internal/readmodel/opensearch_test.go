package readmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carelog-systems/carelog-projector/internal/model"
)

func TestDocumentID(t *testing.T) {
	id := DocumentID(model.RecordKey{PK: "patient#P1", SK: "LATEST#email"})
	assert.Equal(t, "patient%23P1%7CLATEST%23email", id)

	// Distinct keys must never collide after escaping.
	other := DocumentID(model.RecordKey{PK: "patient#P1", SK: "HISTORY#email#2026-08-01T10:00:00Z"})
	assert.NotEqual(t, id, other)
}

package seeder

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/carelog-systems/carelog-projector/internal/stream"
	"github.com/carelog-systems/carelog-projector/internal/wire"
)

var (
	sources     = []string{"USER", "ETL"}
	eventTypes  = []string{"ATTRIBUTE_UPDATED", "PATIENT_PROFILE_UPDATED", "DISENROLLED"}
	programTags = []string{"Centene", "Humana", "UnitedHealth", "Aetna", "Cigna"}
	attributes  = []string{"email", "phone", "address", "status", "emergency_contact"}
)

// generator builds realistic change-record payloads in the typed-tag wire
// format the projector consumes.
type generator struct{}

func newGenerator() *generator {
	return &generator{}
}

// changeRecord builds one synthetic change record for a patient. Between one
// and five attributes change per event, with field values matching the
// attribute's shape. The image goes through the wire codec, so seeded
// payloads carry exactly the tagging the projector decodes.
func (g *generator) changeRecord(patientID string, occurredAt time.Time) stream.ChangeRecord {
	changes := make(map[string]wire.Value)
	for _, attr := range pickAttributes() {
		changes[attr] = wire.Map(map[string]wire.Value{
			"value": wire.String(g.attributeValue(attr)),
		})
	}

	image, _ := wire.EncodeImage(wire.Map(map[string]wire.Value{
		"resourceType": wire.String("patient"),
		"resourceId":   wire.String(patientID),
		"eventType":    wire.String(eventTypes[rand.Intn(len(eventTypes))]),
		"changes":      wire.Map(changes),
		"occurredAt":   wire.String(occurredAt.Format(time.RFC3339Nano)),
		"actorId":      wire.String(uuid.NewString()),
		"source":       wire.String(sources[rand.Intn(len(sources))]),
		"programYear":  wire.String(fmt.Sprintf("%d", occurredAt.Year())),
		"programTag":   wire.String(programTags[rand.Intn(len(programTags))]),
	}))

	payload, _ := json.Marshal(image)

	return stream.ChangeRecord{
		ID:       uuid.NewString(),
		Kind:     stream.KindModify,
		NewImage: payload,
	}
}

// attributeValue returns a plausible value for a known attribute name.
func (g *generator) attributeValue(attr string) string {
	switch attr {
	case "email":
		return gofakeit.Email()
	case "phone":
		return gofakeit.Phone()
	case "address":
		return gofakeit.Address().Address
	case "status":
		return gofakeit.RandomString([]string{"active", "inactive", "pending"})
	case "emergency_contact":
		return gofakeit.Name()
	default:
		return gofakeit.Word()
	}
}

func pickAttributes() []string {
	n := rand.Intn(len(attributes)) + 1
	picked := make([]string, len(attributes))
	copy(picked, attributes)
	rand.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	return picked[:n]
}

package wire

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Scalars(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Value
	}{
		{
			name:  "string tag",
			input: `{"S": "hello"}`,
			want:  String("hello"),
		},
		{
			name:  "number tag",
			input: `{"N": "42.5"}`,
			want:  Number(decimal.RequireFromString("42.5")),
		},
		{
			name:  "number tag as raw number",
			input: `{"N": 42.5}`,
			want:  Number(decimal.RequireFromString("42.5")),
		},
		{
			name:  "bool tag",
			input: `{"BOOL": true}`,
			want:  Bool(true),
		},
		{
			name:  "null tag",
			input: `{"NULL": true}`,
			want:  Null(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %v kind=%s", tt.want, got.Kind())
		})
	}
}

func TestDecode_Nested(t *testing.T) {
	input := `{
		"M": {
			"name": {"S": "alice"},
			"scores": {"L": [{"N": "1"}, {"N": "2.50"}]},
			"active": {"BOOL": false},
			"note": {"NULL": true}
		}
	}`

	got, err := Decode([]byte(input))
	require.NoError(t, err)
	require.Equal(t, KindMap, got.Kind())

	assert.Equal(t, "alice", got.StringAt("name"))

	scores, ok := got.Get("scores")
	require.True(t, ok)
	require.Equal(t, KindList, scores.Kind())
	require.Len(t, scores.Items(), 2)
	assert.True(t, scores.Items()[1].Decimal().Equal(decimal.RequireFromString("2.5")))

	active, ok := got.Get("active")
	require.True(t, ok)
	assert.False(t, active.Boolean())

	note, ok := got.Get("note")
	require.True(t, ok)
	assert.True(t, note.IsNull())
}

func TestDecode_PlainMapPassthrough(t *testing.T) {
	// A map with no recognized tag is treated as an already-plain mapping and
	// its values decode in place. This is the shape of a change-record image:
	// plain field names with tagged values.
	input := `{
		"resourceType": {"S": "patient"},
		"changes": {"M": {"email": {"M": {"value": {"S": "a@x.com"}}}}}
	}`

	got, err := Decode([]byte(input))
	require.NoError(t, err)
	require.Equal(t, KindMap, got.Kind())
	assert.Equal(t, "patient", got.StringAt("resourceType"))

	changes, ok := got.Get("changes")
	require.True(t, ok)
	email, ok := changes.Get("email")
	require.True(t, ok)
	assert.Equal(t, "a@x.com", email.StringAt("value"))
}

func TestDecode_AlreadyPlainValues(t *testing.T) {
	// Fully plain input decodes too (defensive pass-through).
	input := `{"name": "alice", "age": 30, "tags": ["a", "b"], "ok": true, "gone": null}`

	got, err := Decode([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, "alice", got.StringAt("name"))

	age, ok := got.Get("age")
	require.True(t, ok)
	assert.True(t, age.Decimal().Equal(decimal.NewFromInt(30)))

	tags, ok := got.Get("tags")
	require.True(t, ok)
	assert.Len(t, tags.Items(), 2)
}

func TestDecode_PrecisionPreserved(t *testing.T) {
	// Values may be monetary or identifier-adjacent; decoding must not round.
	tests := []string{
		"3.10",
		"0.1",
		"12345678901234567890",
		"99999999999999999999.99999999999999999999",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			got, err := Decode([]byte(`{"N": "` + text + `"}`))
			require.NoError(t, err)
			assert.Equal(t, text, got.NumberText())
			assert.True(t, got.Decimal().Equal(decimal.RequireFromString(text)))
		})
	}
}

func TestDecode_NumberKeepsTrailingZeros(t *testing.T) {
	// The decimal type trims trailing zeros when rendering, so the literal
	// text must be carried alongside it for faithful re-encoding.
	tagged, err := Decode([]byte(`{"N": "3.10"}`))
	require.NoError(t, err)
	assert.Equal(t, "3.10", tagged.NumberText())

	reencoded, err := EncodeJSON(tagged)
	require.NoError(t, err)
	assert.Equal(t, `{"N":"3.10"}`, string(reencoded))

	raw, err := Decode([]byte(`2.500`))
	require.NoError(t, err)
	assert.Equal(t, "2.500", raw.NumberText())

	data, err := json.Marshal(raw)
	require.NoError(t, err)
	assert.Equal(t, "2.500", string(data))
}

func TestNumberFromString(t *testing.T) {
	v, err := NumberFromString("1.50")
	require.NoError(t, err)
	assert.Equal(t, "1.50", v.NumberText())
	assert.True(t, v.Equal(Number(decimal.RequireFromString("1.5"))))

	_, err = NumberFromString("not-a-number")
	assert.Error(t, err)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "invalid json", input: `{`},
		{name: "S holds number", input: `{"S": 5}`},
		{name: "N holds bool", input: `{"N": true}`},
		{name: "N holds garbage", input: `{"N": "not-a-number"}`},
		{name: "BOOL holds string", input: `{"BOOL": "yes"}`},
		{name: "L holds map", input: `{"L": {"S": "x"}}`},
		{name: "M holds list", input: `{"M": []}`},
		{name: "nested failure", input: `{"M": {"inner": {"N": "bad"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, IsDecodeError(err), "want DecodeError, got %T", err)
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	inputs := []string{
		`{"S":"hello"}`,
		`{"N":"3.10"}`,
		`{"BOOL":false}`,
		`{"NULL":true}`,
		`{"L":[{"S":"a"},{"N":"1"},{"NULL":true}]}`,
		`{"M":{"name":{"S":"alice"},"nested":{"M":{"n":{"N":"2.50"}}}}}`,
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			decoded, err := Decode([]byte(input))
			require.NoError(t, err)

			reencoded, err := EncodeJSON(decoded)
			require.NoError(t, err)
			assert.JSONEq(t, input, string(reencoded))
		})
	}
}

func TestEncodeImage_RoundTrip(t *testing.T) {
	input := `{
		"resourceType": {"S": "patient"},
		"count": {"N": "2"},
		"changes": {"M": {"email": {"M": {"value": {"S": "a@x.com"}}}}}
	}`

	decoded, err := Decode([]byte(input))
	require.NoError(t, err)

	image, err := EncodeImage(decoded)
	require.NoError(t, err)

	data, err := json.Marshal(image)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(data))
}

func TestEncodeImage_RejectsNonMap(t *testing.T) {
	_, err := EncodeImage(String("not a map"))
	require.Error(t, err)
}

func TestValue_MarshalJSON(t *testing.T) {
	v := Map(map[string]Value{
		"name":   String("alice"),
		"amount": Number(decimal.RequireFromString("10.50")),
		"ok":     Bool(true),
		"gone":   Null(),
		"tags":   List(String("a"), String("b")),
	})

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"alice","amount":10.50,"ok":true,"gone":null,"tags":["a","b"]}`, string(data))
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, Number(decimal.RequireFromString("1.50")).Equal(Number(decimal.RequireFromString("1.5"))))
	assert.False(t, String("a").Equal(String("b")))
	assert.False(t, String("a").Equal(Null()))
	assert.True(t, List(String("a")).Equal(List(String("a"))))
	assert.False(t, List(String("a")).Equal(List(String("a"), String("b"))))
}

package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DecodeError marks a payload that cannot be interpreted as a valid typed
// value tree. It is local to one change record and never fatal to a batch.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "wire decode: " + e.Reason
}

func decodeErrorf(format string, args ...any) error {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// IsDecodeError reports whether err is a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Decode parses a JSON document in the typed-tag wire format into a Value.
// Numbers decode through decimal.Decimal so precision is never lost.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, decodeErrorf("invalid json: %v", err)
	}
	return decodeNode(raw)
}

// decodeNode unwraps exactly one recognized type tag per node. A map carrying
// none of the recognized tags is treated as an already-plain mapping and its
// values are decoded recursively.
func decodeNode(raw any) (Value, error) {
	switch n := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(n), nil
	case bool:
		return Bool(n), nil
	case json.Number:
		v, err := NumberFromString(n.String())
		if err != nil {
			return Value{}, decodeErrorf("invalid number %q", n.String())
		}
		return v, nil
	case []any:
		items := make([]Value, 0, len(n))
		for _, item := range n {
			v, err := decodeNode(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return List(items...), nil
	case map[string]any:
		return decodeTagged(n)
	default:
		return Value{}, decodeErrorf("unsupported node type %T", raw)
	}
}

func decodeTagged(m map[string]any) (Value, error) {
	if tagged, ok := m["S"]; ok {
		s, ok := tagged.(string)
		if !ok {
			return Value{}, decodeErrorf("S tag holds %T, want string", tagged)
		}
		return String(s), nil
	}
	if tagged, ok := m["N"]; ok {
		var text string
		switch t := tagged.(type) {
		case string:
			text = t
		case json.Number:
			text = t.String()
		default:
			return Value{}, decodeErrorf("N tag holds %T, want numeric string", tagged)
		}
		v, err := NumberFromString(text)
		if err != nil {
			return Value{}, decodeErrorf("N tag holds invalid number %q", text)
		}
		return v, nil
	}
	if tagged, ok := m["BOOL"]; ok {
		b, ok := tagged.(bool)
		if !ok {
			return Value{}, decodeErrorf("BOOL tag holds %T, want bool", tagged)
		}
		return Bool(b), nil
	}
	if _, ok := m["NULL"]; ok {
		return Null(), nil
	}
	if tagged, ok := m["L"]; ok {
		items, ok := tagged.([]any)
		if !ok {
			return Value{}, decodeErrorf("L tag holds %T, want list", tagged)
		}
		list := make([]Value, 0, len(items))
		for _, item := range items {
			v, err := decodeNode(item)
			if err != nil {
				return Value{}, err
			}
			list = append(list, v)
		}
		return List(list...), nil
	}
	if tagged, ok := m["M"]; ok {
		inner, ok := tagged.(map[string]any)
		if !ok {
			return Value{}, decodeErrorf("M tag holds %T, want map", tagged)
		}
		return decodePlainMap(inner)
	}

	// No recognized tag: already-plain mapping, decode values in place.
	return decodePlainMap(m)
}

func decodePlainMap(m map[string]any) (Value, error) {
	entries := make(map[string]Value, len(m))
	for k, item := range m {
		v, err := decodeNode(item)
		if err != nil {
			return Value{}, err
		}
		entries[k] = v
	}
	return Map(entries), nil
}

// Encode renders a Value back into the typed-tag tree. Encode(Decode(x))
// reproduces x for any well-formed tagged document.
func Encode(v Value) any {
	switch v.kind {
	case KindNull:
		return map[string]any{"NULL": true}
	case KindString:
		return map[string]any{"S": v.str}
	case KindNumber:
		return map[string]any{"N": v.numText}
	case KindBool:
		return map[string]any{"BOOL": v.boolean}
	case KindList:
		items := make([]any, 0, len(v.list))
		for _, item := range v.list {
			items = append(items, Encode(item))
		}
		return map[string]any{"L": items}
	case KindMap:
		entries := make(map[string]any, len(v.entries))
		for k, item := range v.entries {
			entries[k] = Encode(item)
		}
		return map[string]any{"M": entries}
	default:
		return map[string]any{"NULL": true}
	}
}

// EncodeJSON renders a Value as a JSON document in the typed-tag format.
func EncodeJSON(v Value) ([]byte, error) {
	return json.Marshal(Encode(v))
}

// EncodeImage renders a map Value as a change-record image: a plain top-level
// object whose field values are tagged. This is the shape the stream delivers
// for record payloads (the top level is a field map, not an M node).
func EncodeImage(v Value) (map[string]any, error) {
	if v.kind != KindMap {
		return nil, fmt.Errorf("encode image: want map value, got %s", v.kind)
	}
	image := make(map[string]any, len(v.entries))
	for k, item := range v.entries {
		image[k] = Encode(item)
	}
	return image, nil
}


// Package wire implements the typed-tag encoding used by the change-capture
// stream. Every node in a payload is tagged with its type (S, N, BOOL, NULL,
// L, M); decoding produces a closed Value union so downstream code never deals
// with untyped payloads.
package wire

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Kind identifies the type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a decoded wire node: string, arbitrary-precision number, bool,
// null, list, or map. The zero Value is null.
//
// Numbers keep both the parsed decimal and the literal text they were decoded
// from. The decimal drives comparison; the text drives re-encoding, so a
// payload carrying "3.10" re-encodes as "3.10", never "3.1".
type Value struct {
	kind    Kind
	str     string
	num     decimal.Decimal
	numText string
	boolean bool
	list    []Value
	entries map[string]Value
}

// Null returns the null Value.
func Null() Value {
	return Value{kind: KindNull}
}

// String builds a string Value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number builds a number Value. Numbers are exact decimals, never floats;
// payload values may carry monetary or identifier-adjacent data. The literal
// form is the decimal's canonical rendering; use NumberFromString to keep a
// specific lexical form.
func Number(d decimal.Decimal) Value {
	return Value{kind: KindNumber, num: d, numText: d.String()}
}

// NumberFromString builds a number Value preserving the literal text, so
// trailing zeros survive a decode/encode round trip.
func NumberFromString(text string) (Value, error) {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return Value{}, err
	}
	return Value{kind: KindNumber, num: d, numText: text}, nil
}

// Bool builds a boolean Value.
func Bool(b bool) Value {
	return Value{kind: KindBool, boolean: b}
}

// List builds a list Value.
func List(items ...Value) Value {
	return Value{kind: KindList, list: items}
}

// Map builds a map Value.
func Map(entries map[string]Value) Value {
	return Value{kind: KindMap, entries: entries}
}

// Kind returns the type of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload. Valid only for KindString.
func (v Value) Str() string { return v.str }

// Decimal returns the numeric payload. Valid only for KindNumber.
func (v Value) Decimal() decimal.Decimal { return v.num }

// NumberText returns the number's literal form as decoded. Valid only for
// KindNumber.
func (v Value) NumberText() string { return v.numText }

// Boolean returns the bool payload. Valid only for KindBool.
func (v Value) Boolean() bool { return v.boolean }

// Items returns the list payload. Valid only for KindList.
func (v Value) Items() []Value { return v.list }

// Entries returns the map payload. Valid only for KindMap.
func (v Value) Entries() map[string]Value { return v.entries }

// Get looks up a key in a map Value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	item, ok := v.entries[key]
	return item, ok
}

// StringAt returns the string at key in a map Value, or "" when the key is
// absent, null, or not a string.
func (v Value) StringAt(key string) string {
	item, ok := v.Get(key)
	if !ok || item.kind != KindString {
		return ""
	}
	return item.str
}

// Keys returns the sorted keys of a map Value.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.entries))
	for k := range v.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports deep equality. Numbers compare by numeric value.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num.Equal(other.num)
	case KindBool:
		return v.boolean == other.boolean
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.entries) != len(other.entries) {
			return false
		}
		for k, item := range v.entries {
			o, ok := other.entries[k]
			if !ok || !item.Equal(o) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// MarshalJSON renders the value as plain (untagged) JSON. Numbers are emitted
// as raw JSON numbers to keep their exact decimal representation.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return []byte(v.numText), nil
	case KindBool:
		return json.Marshal(v.boolean)
	case KindList:
		items := v.list
		if items == nil {
			items = []Value{}
		}
		return json.Marshal(items)
	case KindMap:
		entries := v.entries
		if entries == nil {
			entries = map[string]Value{}
		}
		return json.Marshal(entries)
	default:
		return nil, fmt.Errorf("marshal wire value: unknown kind %d", v.kind)
	}
}

package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// fieldValueJSON is the wire representation of a FieldValue. The kind tag is
// explicit so decoding never guesses types from JSON shapes.
type fieldValueJSON struct {
	Kind  ValueKind       `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the tagged union as {"kind": ..., "value": ...}.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	var inner any
	switch v.kind {
	case KindNumber:
		inner = v.num
	case KindString:
		inner = v.str
	case KindDate:
		inner = v.date.UTC().Format(time.RFC3339)
	case KindStringSet:
		inner = v.set
	default:
		return nil, fmt.Errorf("cannot marshal field value with no kind")
	}
	raw, err := json.Marshal(inner)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fieldValueJSON{Kind: v.kind, Value: raw})
}

// UnmarshalJSON decodes the tagged representation, rejecting unknown kinds.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var wire fieldValueJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch wire.Kind {
	case KindNumber:
		var n float64
		if err := json.Unmarshal(wire.Value, &n); err != nil {
			return fmt.Errorf("decode number value: %w", err)
		}
		*v = Number(n)
	case KindString:
		var s string
		if err := json.Unmarshal(wire.Value, &s); err != nil {
			return fmt.Errorf("decode string value: %w", err)
		}
		*v = String(s)
	case KindDate:
		var s string
		if err := json.Unmarshal(wire.Value, &s); err != nil {
			return fmt.Errorf("decode date value: %w", err)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			// Bare dates are common in catalog data.
			t, err = time.Parse("2006-01-02", s)
			if err != nil {
				return fmt.Errorf("decode date value %q: %w", s, err)
			}
		}
		*v = Date(t)
	case KindStringSet:
		var members []string
		if err := json.Unmarshal(wire.Value, &members); err != nil {
			return fmt.Errorf("decode string set value: %w", err)
		}
		*v = StringSet(members...)
	default:
		return fmt.Errorf("unknown field value kind %q", wire.Kind)
	}
	return nil
}

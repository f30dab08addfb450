package expr

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies the type of a Value.
type Kind int

// Value kinds. KindInvalid is the zero Kind and never appears in a
// successfully evaluated Value.
const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
)

// String returns the kind name used in errors and serialized values.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// KindFromString parses a kind name as it appears in documents
// (variable declarations) and serialized values.
func KindFromString(s string) (Kind, error) {
	switch s {
	case "bool":
		return KindBool, nil
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "string":
		return KindString, nil
	default:
		return KindInvalid, fmt.Errorf("unknown value kind: %q", s)
	}
}

// Value is a typed expression value. The zero Value is invalid.
// Values are immutable; all operations return new Values.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether the value holds one of the four supported kinds.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsBool returns the boolean content. It is only meaningful for KindBool.
func (v Value) AsBool() bool { return v.b }

// AsInt returns the integer content. It is only meaningful for KindInt.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the numeric content as float64.
// Integers are widened; other kinds return 0.
func (v Value) AsFloat() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// AsString returns the string content. It is only meaningful for KindString.
func (v Value) AsString() string { return v.s }

// IsNumeric reports whether the value is an int or float.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// Display returns the value formatted for host display (no quoting).
func (v Value) Display() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	default:
		return "<invalid>"
	}
}

// Equal compares two values. Int and float compare numerically; all other
// cross-kind comparisons are false.
func (v Value) Equal(o Value) bool {
	if v.kind == o.kind {
		switch v.kind {
		case KindBool:
			return v.b == o.b
		case KindInt:
			return v.i == o.i
		case KindFloat:
			return v.f == o.f
		case KindString:
			return v.s == o.s
		}
		return false
	}
	if v.IsNumeric() && o.IsNumeric() {
		return v.AsFloat() == o.AsFloat()
	}
	return false
}

// valueJSON is the serialized form of a Value. The explicit type tag keeps
// int/float fidelity through JSON round-trips.
type valueJSON struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var raw any
	switch v.kind {
	case KindBool:
		raw = v.b
	case KindInt:
		raw = v.i
	case KindFloat:
		raw = v.f
	case KindString:
		raw = v.s
	default:
		return nil, fmt.Errorf("cannot marshal invalid value")
	}
	return json.Marshal(valueJSON{Type: v.kind.String(), Value: raw})
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, err := KindFromString(raw.Type)
	if err != nil {
		return err
	}
	switch kind {
	case KindBool:
		var b bool
		if err := json.Unmarshal(raw.Value, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case KindInt:
		var i int64
		if err := json.Unmarshal(raw.Value, &i); err != nil {
			return err
		}
		*v = Int(i)
	case KindFloat:
		var f float64
		if err := json.Unmarshal(raw.Value, &f); err != nil {
			return err
		}
		*v = Float(f)
	case KindString:
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return err
		}
		*v = String(s)
	}
	return nil
}

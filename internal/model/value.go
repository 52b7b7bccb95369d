package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// ValueKind discriminates the fundamental value union.
type ValueKind int

const (
	KindText ValueKind = iota
	KindInt
	KindFloat
)

// Value is a fundamental attribute value. Providers emit loosely typed
// scalars; the store keeps them as text and coerces them back through
// ParseValue on read. A missing attribute is represented by the key being
// absent, never by a zero Value.
type Value struct {
	Kind ValueKind
	i    int64
	f    float64
	s    string
}

// Int returns an integer Value.
func Int(v int64) Value { return Value{Kind: KindInt, i: v} }

// Float returns a floating-point Value.
func Float(v float64) Value { return Value{Kind: KindFloat, f: v} }

// Text returns a string Value.
func Text(v string) Value { return Value{Kind: KindText, s: v} }

// ParseValue coerces a stored text value back into a typed Value.
// Integers are preferred whenever the text parses to a number with no
// fractional component; otherwise float, otherwise the raw text.
func ParseValue(s string) Value {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < math.MaxInt64 {
			return Int(int64(f))
		}
		return Float(f)
	}
	return Text(s)
}

// String renders the value the way it is persisted.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return v.s
	}
}

// AsInt returns the integer form of the value.
func (v Value) AsInt() int64 {
	switch v.Kind {
	case KindInt:
		return v.i
	case KindFloat:
		return int64(v.f)
	default:
		return 0
	}
}

// AsFloat returns the numeric form of the value, 0 for text.
func (v Value) AsFloat() float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.f
	default:
		return 0
	}
}

// AsText returns the text form of the value.
func (v Value) AsText() string {
	if v.Kind == KindText {
		return v.s
	}
	return v.String()
}

// MarshalJSON emits the underlying scalar, not the union wrapper.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	default:
		return json.Marshal(v.s)
	}
}

// UnmarshalJSON accepts any JSON scalar and coerces it into the union.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch n := raw.(type) {
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < math.MaxInt64 {
			*v = Int(int64(n))
		} else {
			*v = Float(n)
		}
	case string:
		*v = Text(n)
	case bool:
		if n {
			*v = Int(1)
		} else {
			*v = Int(0)
		}
	default:
		*v = Text(string(data))
	}
	return nil
}

// Attributes is a fundamentals snapshot for one symbol.
type Attributes map[string]Value

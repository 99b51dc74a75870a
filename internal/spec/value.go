package spec

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the inferred type of a flag value.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
)

// Value is a typed flag value. Only the field matching Kind is
// set, which keeps Values comparable with ==.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Str   string
}

// IntValue returns an integer Value.
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }

// FloatValue returns a float Value.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// ParseValue infers the type of a flag value: a number with no
// fractional part becomes an int, any other finite number a float,
// and everything else stays a string. "1" and "1.0" both become
// IntValue(1).
func ParseValue(s string) Value {
	// Hex and underscore-separated numerals are not numbers here.
	if s == "" || strings.ContainsAny(s, "xX_") {
		return StringValue(s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return StringValue(s)
	}
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return IntValue(int64(f))
	}
	return FloatValue(f)
}

// String renders the value the way it is written on a command
// line.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return formatFloat(v.Float)
	default:
		return v.Str
	}
}

// formatFloat always keeps a decimal point or exponent so the
// value reads back as a float.
func formatFloat(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// MarshalJSON encodes ints and floats as JSON numbers and strings
// as JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindInt:
		return strconv.AppendInt(nil, v.Int, 10), nil
	case KindFloat:
		if math.IsInf(v.Float, 0) || math.IsNaN(v.Float) {
			return nil, fmt.Errorf(
				"%w: non-finite float %v", ErrInvalidSpec, v.Float,
			)
		}
		return []byte(formatFloat(v.Float)), nil
	default:
		return json.Marshal(v.Str)
	}
}

// MarshalYAML encodes the value as a native YAML scalar.
func (v Value) MarshalYAML() (any, error) {
	switch v.Kind {
	case KindInt:
		return v.Int, nil
	case KindFloat:
		return v.Float, nil
	default:
		return v.Str, nil
	}
}

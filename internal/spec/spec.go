// Package spec infers a cross-product specification from a batch
// of recorded commands and regenerates the commands from it.
package spec

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/wesm/runs/internal/command"
)

var (
	// ErrNoCommands is returned when a build gets an empty batch.
	ErrNoCommands = errors.New("no commands to build a spec from")
	// ErrStemMismatch is returned when commands in a batch do not
	// share their leading positional arguments.
	ErrStemMismatch = errors.New(
		"commands do not start with the same positional arguments",
	)
	// ErrFlagArity is returned when one flag key appears both with
	// and without a value across a batch.
	ErrFlagArity = errors.New("flag used both with and without a value")
	// ErrInvalidSpec is returned for spec JSON that cannot be decoded.
	ErrInvalidSpec = errors.New("invalid spec")
)

// BareKey is the reserved flag key collecting valueless flags. Its
// empty-string value marks "no bare flag" as one of the choices.
const BareKey = ""

// SpecObj is a command stem plus, per flag key, either one value or
// a list of values to take the cross product over.
type SpecObj struct {
	Command string             `json:"command" yaml:"command"`
	Flags   map[string]Setting `json:"flags" yaml:"flags"`
}

// ParseJSON decodes a spec written by MarshalJSON.
func ParseJSON(data []byte) (*SpecObj, error) {
	var s SpecObj
	if err := s.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &s, nil
}

// UnmarshalJSON decodes the spec, keeping JSON integers as ints
// and numbers with a fraction or exponent as floats.
func (s *SpecObj) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: malformed JSON", ErrInvalidSpec)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return fmt.Errorf("%w: expected an object", ErrInvalidSpec)
	}
	cmd := root.Get("command")
	if cmd.Exists() && cmd.Type != gjson.String {
		return fmt.Errorf("%w: command must be a string", ErrInvalidSpec)
	}

	flags := make(map[string]Setting)
	raw := root.Get("flags")
	if raw.Exists() && raw.Type != gjson.Null && !raw.IsObject() {
		return fmt.Errorf("%w: flags must be an object", ErrInvalidSpec)
	}
	if raw.IsObject() {
		var decodeErr error
		raw.ForEach(func(key, val gjson.Result) bool {
			st, err := settingFromJSON(val)
			if err != nil {
				decodeErr = fmt.Errorf("flag %q: %w", key.Str, err)
				return false
			}
			flags[key.Str] = st
			return true
		})
		if decodeErr != nil {
			return decodeErr
		}
	}

	s.Command = cmd.Str
	s.Flags = flags
	return nil
}

func settingFromJSON(r gjson.Result) (Setting, error) {
	if !r.IsArray() {
		v, err := valueFromJSON(r)
		if err != nil {
			return Setting{}, err
		}
		return Fixed(v), nil
	}
	var vals []Value
	for _, el := range r.Array() {
		v, err := valueFromJSON(el)
		if err != nil {
			return Setting{}, err
		}
		vals = append(vals, v)
	}
	return OneOf(vals...), nil
}

func valueFromJSON(r gjson.Result) (Value, error) {
	switch r.Type {
	case gjson.String:
		return StringValue(r.Str), nil
	case gjson.Number:
		if strings.ContainsAny(r.Raw, ".eE") {
			return FloatValue(r.Float()), nil
		}
		i, err := strconv.ParseInt(r.Raw, 10, 64)
		if err != nil {
			return FloatValue(r.Float()), nil
		}
		return IntValue(i), nil
	default:
		return Value{}, fmt.Errorf(
			"%w: unsupported value %s", ErrInvalidSpec, r.Raw,
		)
	}
}

// Keys returns the flag keys in sorted order.
func (s *SpecObj) Keys() []string {
	keys := make([]string, 0, len(s.Flags))
	for k := range s.Flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Expand regenerates one shell-safe command per combination of
// list-valued settings, holding fixed settings constant. Keys are
// visited in sorted order.
func (s *SpecObj) Expand() ([]string, error) {
	combos := [][]string{nil}
	for _, key := range s.Keys() {
		st := s.Flags[key]
		next := make([][]string, 0, len(combos)*len(st.Values))
		for _, words := range combos {
			for _, v := range st.Values {
				w := slices.Clone(words)
				if word, ok := flagWord(key, v); ok {
					w = append(w, word)
				}
				next = append(next, w)
			}
		}
		combos = next
	}

	out := make([]string, 0, len(combos))
	for _, words := range combos {
		flags, err := command.Join(words)
		if err != nil {
			return nil, err
		}
		line := s.Command
		if flags != "" {
			if line != "" {
				line += " "
			}
			line += flags
		}
		out = append(out, line)
	}
	return out, nil
}

func flagWord(key string, v Value) (string, bool) {
	if key == BareKey {
		name := v.String()
		if name == "" {
			return "", false
		}
		return "--" + name, true
	}
	return "--" + key + "=" + v.String(), true
}

// Package value implements the typed values stored by prefkv.
//
// Every preference persists as a string. Value is a sealed variant over the
// supported types with an explicit Encode for writing and typed Decode
// functions for reading; a decode failure is a *TypeMismatchError, never a
// silent default.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Kind identifies the type of a Value.
type Kind int

const (
	KindString Kind = iota + 1
	KindBool
	KindInt
	KindLong
	KindFloat
	KindStringSet
)

var kindNames = map[Kind]string{
	KindString:    "string",
	KindBool:      "bool",
	KindInt:       "int",
	KindLong:      "long",
	KindFloat:     "float",
	KindStringSet: "stringset",
}

// String returns the name used by the CLI and in error messages.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown value type %q", name)
}

// Value is a sealed interface; only the types in this package implement it.
type Value interface {
	Kind() Kind
	// Encode returns the persisted string form.
	Encode() string
	value()
}

// String is a plain string preference.
type String string

func (String) value()           {}
func (String) Kind() Kind       { return KindString }
func (v String) Encode() string { return string(v) }

// Bool encodes as "true" or "false".
type Bool bool

func (Bool) value()           {}
func (Bool) Kind() Kind       { return KindBool }
func (v Bool) Encode() string { return strconv.FormatBool(bool(v)) }

// Int is a 32-bit integer preference.
type Int int32

func (Int) value()           {}
func (Int) Kind() Kind       { return KindInt }
func (v Int) Encode() string { return strconv.FormatInt(int64(v), 10) }

// Long is a 64-bit integer preference.
type Long int64

func (Long) value()           {}
func (Long) Kind() Kind       { return KindLong }
func (v Long) Encode() string { return strconv.FormatInt(int64(v), 10) }

// Float is a 32-bit float preference, encoded with the shortest
// representation that parses back to the same float32.
type Float float32

func (Float) value()           {}
func (Float) Kind() Kind       { return KindFloat }
func (v Float) Encode() string { return strconv.FormatFloat(float64(v), 'g', -1, 32) }

// StringSet is an unordered set of strings.
//
// Encode writes a JSON array of the sorted, de-duplicated elements, so any
// element content (including LegacySetSeparator) round-trips.
type StringSet []string

func (StringSet) value()     {}
func (StringSet) Kind() Kind { return KindStringSet }

func (v StringSet) Encode() string {
	elems := normalizeSet(v)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a []string cannot fail.
	_ = enc.Encode(elems)
	return strings.TrimSuffix(buf.String(), "\n")
}

// normalizeSet returns a sorted copy of elems without duplicates.
// Always non-nil so an empty set encodes as [].
func normalizeSet(elems []string) []string {
	out := make([]string, len(elems))
	copy(out, elems)
	slices.Sort(out)
	return slices.Compact(out)
}

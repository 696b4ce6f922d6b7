package value

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// LegacySetSeparator joined (and terminated) string-set elements in the
// original storage format. Decoding that format is lossy: an element that
// contains the separator comes back split into several elements.
const LegacySetSeparator = ":-:"

// DecodeString returns raw unchanged. Any stored value is a valid string.
func DecodeString(raw string) (string, error) {
	return raw, nil
}

// DecodeBool accepts "true" or "false", case-insensitively.
func DecodeBool(raw string) (bool, error) {
	switch {
	case strings.EqualFold(raw, "true"):
		return true, nil
	case strings.EqualFold(raw, "false"):
		return false, nil
	}
	return false, mismatch(KindBool, raw, nil)
}

// DecodeInt parses a base-10 32-bit integer.
func DecodeInt(raw string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, mismatch(KindInt, raw, err)
	}
	return int32(n), nil
}

// DecodeLong parses a base-10 64-bit integer.
func DecodeLong(raw string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, mismatch(KindLong, raw, err)
	}
	return n, nil
}

// DecodeFloat parses a 32-bit float. Values outside the float32 range are
// a mismatch.
func DecodeFloat(raw string) (float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 32)
	if err != nil {
		return 0, mismatch(KindFloat, raw, err)
	}
	return float32(f), nil
}

// DecodeStringSet reads either encoding of a string set.
//
// A JSON array of strings is the current format. Anything else is treated as
// the legacy separator format: split on LegacySetSeparator with trailing
// empty elements dropped. The result is sorted and de-duplicated.
func DecodeStringSet(raw string) ([]string, error) {
	if strings.HasPrefix(raw, "[") {
		var elems []string
		if err := json.Unmarshal([]byte(raw), &elems); err == nil {
			return normalizeSet(elems), nil
		}
	}
	return normalizeSet(splitLegacy(raw)), nil
}

// splitLegacy splits the separator format the same way the original writer
// expected it to be read back.
func splitLegacy(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, LegacySetSeparator)
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// EncodeLegacySet writes elems in the legacy separator format. Kept for
// interoperating with readers of the original format; returns an error when
// an element contains the separator because the result would not round-trip.
func EncodeLegacySet(elems []string) (string, error) {
	var b strings.Builder
	for _, e := range elems {
		if strings.Contains(e, LegacySetSeparator) {
			return "", fmt.Errorf("element %q contains reserved separator %q", e, LegacySetSeparator)
		}
		b.WriteString(e)
		b.WriteString(LegacySetSeparator)
	}
	return b.String(), nil
}

// Decode parses raw as the given kind.
func Decode(kind Kind, raw string) (Value, error) {
	switch kind {
	case KindString:
		return String(raw), nil
	case KindBool:
		b, err := DecodeBool(raw)
		return Bool(b), err
	case KindInt:
		n, err := DecodeInt(raw)
		return Int(n), err
	case KindLong:
		n, err := DecodeLong(raw)
		return Long(n), err
	case KindFloat:
		f, err := DecodeFloat(raw)
		return Float(f), err
	case KindStringSet:
		s, err := DecodeStringSet(raw)
		return StringSet(s), err
	default:
		return nil, fmt.Errorf("unknown value kind %s", kind)
	}
}

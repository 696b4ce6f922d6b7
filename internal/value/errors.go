package value

import (
	"errors"
	"fmt"
)

// ErrTypeMismatch matches every *TypeMismatchError via errors.Is.
var ErrTypeMismatch = errors.New("type mismatch")

// TypeMismatchError reports a stored value that cannot be read as the
// requested type.
type TypeMismatchError struct {
	// Key is filled in by the store; empty when decoding a bare value.
	Key  string
	Want Kind
	Raw  string
	Err  error
}

func (e *TypeMismatchError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: key %q holds %q, not a %s", ErrTypeMismatch, e.Key, e.Raw, e.Want)
	}
	return fmt.Sprintf("%s: %q is not a %s", ErrTypeMismatch, e.Raw, e.Want)
}

// Is reports ErrTypeMismatch as a match.
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

func (e *TypeMismatchError) Unwrap() error {
	return e.Err
}

// IsTypeMismatch returns true if err is or wraps a type mismatch.
func IsTypeMismatch(err error) bool {
	return errors.Is(err, ErrTypeMismatch)
}

func mismatch(want Kind, raw string, err error) *TypeMismatchError {
	return &TypeMismatchError{Want: want, Raw: raw, Err: err}
}

package prefs

import (
	"errors"
	"fmt"

	"github.com/roach88/prefkv/internal/table"
	"github.com/roach88/prefkv/internal/value"
)

var (
	// ErrUnsupportedOperation is returned by Editor.Commit. Only the
	// asynchronous Apply path is supported.
	ErrUnsupportedOperation = errors.New("synchronous commit is not supported; use Apply")

	// ErrClosed is reported for work submitted after the registry closed.
	ErrClosed = errors.New("preference store is closed")

	// ErrListenerNotComparable is returned when a listener cannot be used as
	// an identity for UnregisterListener. Use Subscribe for function values.
	ErrListenerNotComparable = errors.New("listener type is not comparable")

	// ErrTypeMismatch matches errors from typed getters whose stored value
	// does not parse as the requested type.
	ErrTypeMismatch = value.ErrTypeMismatch

	// ErrInvalidNamespace matches namespace names that cannot be stored.
	ErrInvalidNamespace = table.ErrInvalidNamespace
)

// PersistenceError reports a key whose change did not reach the backing
// table during a commit task.
type PersistenceError struct {
	Namespace string
	Key       string
	// Op is the attempted operation; zero when the failure happened while
	// checking the current row.
	Op  table.OpKind
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Op == 0 {
		return fmt.Sprintf("persist %s/%s: lookup: %v", e.Namespace, e.Key, e.Err)
	}
	return fmt.Sprintf("persist %s/%s: %s: %v", e.Namespace, e.Key, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError returns true if err is or wraps a *PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

package table

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Entry is one persisted key/value row.
type Entry struct {
	Key   string
	Value string
}

// OpKind identifies a row mutation within a batch.
type OpKind int

const (
	// OpInsert adds a row that must not already exist.
	OpInsert OpKind = iota + 1
	// OpUpdate replaces the value of an existing row.
	OpUpdate
	// OpDelete removes an existing row.
	OpDelete
)

// String returns the lower-case name of the operation kind.
func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("opkind(%d)", int(k))
	}
}

// Op is a single mutation in a batch. Value is ignored for OpDelete.
type Op struct {
	Kind  OpKind
	Key   string
	Value string
}

// Insert builds an insert operation.
func Insert(key, value string) Op { return Op{Kind: OpInsert, Key: key, Value: value} }

// Update builds an update operation.
func Update(key, value string) Op { return Op{Kind: OpUpdate, Key: key, Value: value} }

// Delete builds a delete operation.
func Delete(key string) Op { return Op{Kind: OpDelete, Key: key} }

// Outcome reports the result of one Op. Outcomes are returned in the same
// order as the submitted operations.
type Outcome struct {
	Op  Op
	Err error
}

// OK reports whether the operation persisted.
func (o Outcome) OK() bool {
	return o.Err == nil
}

var (
	// ErrNoRow is recorded when an update or delete matched no row.
	ErrNoRow = errors.New("no matching row")

	// ErrInvalidNamespace is returned for namespace names that cannot be
	// used as a table name.
	ErrInvalidNamespace = errors.New("invalid namespace")
)

// catalogTable holds one row per namespace table created by this package.
const catalogTable = "prefkv_namespaces"

// ValidateNamespace checks that ns can be used as a table name.
// Any UTF-8 text is accepted except the empty string, NUL bytes, and names
// reserved by SQLite or by the namespace catalog.
func ValidateNamespace(ns string) error {
	switch {
	case ns == "":
		return fmt.Errorf("%w: empty name", ErrInvalidNamespace)
	case !utf8.ValidString(ns):
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidNamespace, ns)
	case strings.ContainsRune(ns, 0):
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidNamespace, ns)
	case strings.HasPrefix(strings.ToLower(ns), "sqlite_"):
		return fmt.Errorf("%w: %q uses the reserved sqlite_ prefix", ErrInvalidNamespace, ns)
	case strings.EqualFold(ns, catalogTable):
		return fmt.Errorf("%w: %q is reserved", ErrInvalidNamespace, ns)
	}
	return nil
}

// quoteIdent quotes a namespace for use as an SQL identifier.
func quoteIdent(ns string) string {
	return `"` + strings.ReplaceAll(ns, `"`, `""`) + `"`
}

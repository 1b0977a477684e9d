package treedb

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrUnknownTableType reports a table name outside [Config.Tables].
	ErrUnknownTableType = errors.New("unknown table type")

	// ErrNamespaceNotFound reports a database that was not opened by the store.
	ErrNamespaceNotFound = errors.New("namespace not found")

	// ErrParentNotFound reports a pid that does not name a live node.
	ErrParentNotFound = errors.New("parent not found")

	// ErrUniqueConstraint reports a composite key or unique field collision
	// with another live node.
	ErrUniqueConstraint = errors.New("unique constraint violation")

	// ErrVersionConflict reports that the stored row no longer matches the
	// version the caller expected. Re-read and retry.
	ErrVersionConflict = errors.New("version conflict")

	// ErrRecordNotFound reports an id that does not name a live node.
	ErrRecordNotFound = errors.New("record not found")

	// ErrInvalidNodeKind reports an operation applied to a node of the wrong kind,
	// e.g. a text-only edit on a paragraph.
	ErrInvalidNodeKind = errors.New("invalid node kind")

	// ErrMalformedPayload reports a payload that is not valid JSON.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrCycle reports a move that would make a node its own ancestor.
	ErrCycle = errors.New("move would create a cycle")

	// ErrClosed indicates an operation was attempted on a closed Store.
	ErrClosed = errors.New("treedb closed")

	// ErrDatabaseLocked reports that another process holds the database lock.
	ErrDatabaseLocked = errors.New("database locked by another process")
)

// Error is the structured error returned by the CRUD operations of [Store].
//
// The underlying cause comes first, followed by the operation context:
//
//	version conflict (op=update ns=content/tree id=42)
//
// Use [errors.Is] against the sentinel errors and [errors.As] to reach the
// fields:
//
//	var tErr *treedb.Error
//	if errors.As(err, &tErr) {
//	    fmt.Println(tErr.Namespace, tErr.ID)
//	}
type Error struct {
	// Op is the operation name ("create", "read", "update", "delete", "upsert").
	Op string

	// Namespace is the table namespace the operation targeted.
	Namespace Namespace

	// ID is the target node id, 0 when unknown (e.g. a failed create).
	ID int64

	// Err is the underlying cause.
	Err error
}

// Error formats as "<cause> (op=X ns=Y id=Z)".
func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	var parts []string

	if e.Op != "" {
		parts = append(parts, "op="+e.Op)
	}

	if e.Namespace != (Namespace{}) {
		parts = append(parts, "ns="+e.Namespace.String())
	}

	if e.ID != 0 {
		parts = append(parts, "id="+strconv.FormatInt(e.ID, 10))
	}

	cause := ""
	if e.Err != nil {
		cause = e.Err.Error()
	}

	if len(parts) == 0 {
		return cause
	}

	suffix := "(" + strings.Join(parts, " ") + ")"
	if cause == "" {
		return suffix
	}

	return cause + " " + suffix
}

// Unwrap returns the underlying error for use with [errors.Is] and [errors.As].
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// IsRetryable reports whether err is a condition the caller can resolve by
// re-reading and resubmitting. Only [ErrVersionConflict] qualifies;
// not-found and uniqueness failures need different input.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// withContext attaches operation context at API boundaries.
// If err is already *Error, missing fields are filled in-place.
func withContext(err error, op string, ns Namespace, id int64) error {
	if err == nil {
		return nil
	}

	existing := &Error{}
	if errors.As(err, &existing) {
		if existing.Op == "" {
			existing.Op = op
		}

		if existing.Namespace == (Namespace{}) {
			existing.Namespace = ns
		}

		if existing.ID == 0 {
			existing.ID = id
		}

		return existing
	}

	return &Error{Op: op, Namespace: ns, ID: id, Err: err}
}

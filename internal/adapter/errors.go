package adapter

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable marks connectivity failures. A job that sees it ends
	// in CONNECTION_UNAVAILABLE.
	ErrUnavailable = errors.New("node unavailable")

	// ErrUnknownSite is returned by Registry for an unregistered site id.
	ErrUnknownSite = errors.New("unknown site")

	// ErrUnknownKind is returned by Registry when no constructor handles
	// a site's kind.
	ErrUnknownKind = errors.New("unknown adapter kind")

	// ErrNoSystemName is returned when a node has no identity record.
	ErrNoSystemName = errors.New("no system name available")
)

// Error describes a failed adapter operation against a node.
type Error struct {
	Op   string
	Node string
	Err  error
}

func (e *Error) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Node, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Unavailable wraps err so that it matches ErrUnavailable.
func Unavailable(op, node string, err error) *Error {
	if err == nil {
		err = ErrUnavailable
	} else if !errors.Is(err, ErrUnavailable) {
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return &Error{Op: op, Node: node, Err: err}
}

// IsUnavailable reports whether err is a connectivity failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

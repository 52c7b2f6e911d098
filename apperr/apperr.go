// Package apperr classifies failures into the small set of kinds callers
// branch on: bad input, unreadable data source, failed transport and
// unexpected response shape.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a failure.
type Kind int

const (
	// KindUnknown is reported for errors that were never classified.
	KindUnknown Kind = iota
	KindValidation
	KindDataSource
	KindTransport
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDataSource:
		return "data_source"
	case KindTransport:
		return "transport"
	case KindMalformed:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Error attaches a Kind and the failing operation to an underlying error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with kind and op. A nil err yields nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Transport wraps err as a transport failure.
func Transport(op string, err error) error { return New(KindTransport, op, err) }

// Malformed wraps err as an unexpected-response failure.
func Malformed(op string, err error) error { return New(KindMalformed, op, err) }

// DataSource wraps err as an unreadable-source failure.
func DataSource(op string, err error) error { return New(KindDataSource, op, err) }

// Validation wraps err as an input failure.
func Validation(op string, err error) error { return New(KindValidation, op, err) }

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k interface{ Kind() Kind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

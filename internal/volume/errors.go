package volume

import "fmt"

// Kind classifies a failure of the reader or the reducer.
type Kind int

const (
	KindResourceUnavailable Kind = iota + 1 // source cannot be opened or read
	KindShortRead                           // fewer bytes than the computed payload
	KindAllocationFailure                   // buffer cannot be allocated
	KindPreconditionViolation               // inconsistent shape parameters
)

func (k Kind) String() string {
	switch k {
	case KindResourceUnavailable:
		return "resource unavailable"
	case KindShortRead:
		return "short read"
	case KindAllocationFailure:
		return "allocation failure"
	case KindPreconditionViolation:
		return "precondition violation"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Any *Error with the same Kind matches.
var (
	ErrResourceUnavailable   = &Error{Kind: KindResourceUnavailable}
	ErrShortRead             = &Error{Kind: KindShortRead}
	ErrAllocationFailure     = &Error{Kind: KindAllocationFailure}
	ErrPreconditionViolation = &Error{Kind: KindPreconditionViolation}
)

// Error is the failure value returned by every operation in this package
// and by the ssd reducer.
//
// The underlying cause (if any) can be accessed via errors.Unwrap.
type Error struct {
	Kind   Kind
	Op     string // operation, e.g. "read" or "compute_ssd"
	Path   string // source path, empty when not file related
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so that errors.Is(err, ErrShortRead) works for any
// short read regardless of path or detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Precondition builds a KindPreconditionViolation error.
func Precondition(op, format string, args ...any) *Error {
	return &Error{Kind: KindPreconditionViolation, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// Allocation builds a KindAllocationFailure error.
func Allocation(op, format string, args ...any) *Error {
	return &Error{Kind: KindAllocationFailure, Op: op, Detail: fmt.Sprintf(format, args...)}
}

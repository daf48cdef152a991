package log

import (
	"errors"
	"fmt"
)

// Kind classifies every error the log returns so callers can branch on it
// instead of matching message text.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindIO means a segment file could not be created, opened, read or written.
	KindIO
	// KindNoActiveSegment means a write found no segment to go to.
	KindNoActiveSegment
	// KindMalformedRecord means a segment line could not be decoded.
	KindMalformedRecord
	// KindNotFound means no live value exists for a key.
	KindNotFound
	// KindInvalidEntry means a key or value would break the record framing.
	KindInvalidEntry
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io failure"
	case KindNoActiveSegment:
		return "no active segment"
	case KindMalformedRecord:
		return "malformed record"
	case KindNotFound:
		return "not found"
	case KindInvalidEntry:
		return "invalid entry"
	default:
		return "unknown"
	}
}

// Error is the single error type of the log. Op names the operation that
// failed, Segment and Line locate the record when there is one.
type Error struct {
	Kind    Kind
	Op      string
	Segment string
	Line    int
	Err     error
}

var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrNoActiveSegment = &Error{Kind: KindNoActiveSegment}
	ErrMalformedRecord = &Error{Kind: KindMalformedRecord}
	ErrInvalidEntry    = &Error{Kind: KindInvalidEntry}
)

func (e *Error) Error() string {
	msg := "log"
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Segment != "" {
		msg += fmt.Sprintf(" segment %s", e.Segment)
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" line %d", e.Line)
	}
	msg += ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, which makes the package sentinels
// usable with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func ioError(op, segment string, err error) error {
	return &Error{Kind: KindIO, Op: op, Segment: segment, Err: err}
}

package store

import (
	"errors"
	"fmt"
)

var (
	// ErrIO matches any *IOError via errors.Is.
	ErrIO = errors.New("history io error")
	// ErrParse matches any *ParseError via errors.Is.
	ErrParse = errors.New("history parse error")
)

// IOError reports a failure to read or write the history file.
// A missing history file is never reported as an IOError.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("history %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// ParseError reports history content that is not a valid record sequence.
// Index is the offending record position, or -1 when the document as a whole
// could not be decoded.
type ParseError struct {
	Path  string
	Index int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("history %s: invalid content: %v", e.Path, e.Err)
	case e.Field != "":
		return fmt.Sprintf("history %s: record %d: field %q: %v", e.Path, e.Index, e.Field, e.Err)
	default:
		return fmt.Sprintf("history %s: record %d: %v", e.Path, e.Index, e.Err)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// errorKind labels err for metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrIO):
		return "io"
	default:
		return "other"
	}
}

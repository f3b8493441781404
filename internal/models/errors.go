package models

import "fmt"

type ErrorKind string

const (
	KindFetchFailure   ErrorKind = "fetch_failure"
	KindEmptyResult    ErrorKind = "empty_result"
	KindPersistFailure ErrorKind = "persist_failure"
)

// Error is a failure the client is expected to surface as a notice and
// recover from with an explicit retry.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

var (
	ErrFetchFailure   = &Error{Kind: KindFetchFailure}
	ErrEmptyResult    = &Error{Kind: KindEmptyResult}
	ErrPersistFailure = &Error{Kind: KindPersistFailure}
)

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrEmptyResult)
// works regardless of Op or the wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func FetchFailure(op string, err error) error {
	return &Error{Kind: KindFetchFailure, Op: op, Err: err}
}

func EmptyResult(op string) error {
	return &Error{Kind: KindEmptyResult, Op: op}
}

func PersistFailure(op string, err error) error {
	return &Error{Kind: KindPersistFailure, Op: op, Err: err}
}

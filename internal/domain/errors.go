package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure leaving a pipeline stage matches exactly one
// of these through errors.Is.
var (
	ErrSource     = errors.New("file not found or parse error")
	ErrConnection = errors.New("connection error")
	ErrSchema     = errors.New("schema error")
	ErrInsert     = errors.New("insert error")
	ErrQuery      = errors.New("query error")
)

// StageError tags an underlying error with its kind and the operation
// that produced it. The underlying driver error stays reachable via Unwrap.
type StageError struct {
	Kind error
	Op   string
	Err  error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StageError) Is(target error) bool { return target == e.Kind }

func (e *StageError) Unwrap() error { return e.Err }

// Wrap returns a StageError of the given kind, or nil when err is nil.
// An error that already carries a kind is returned unchanged.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Kind: kind, Op: op, Err: err}
}

// Errorf builds a StageError from a format string.
func Errorf(kind error, op, format string, args ...any) error {
	return &StageError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

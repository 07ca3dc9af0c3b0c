package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
)

import (
	pkgerrors "github.com/pkg/errors"
)

// The kinds of failure a flash disk reports. Every error returned by
// the fdisk package matches exactly one of these with Is.
var (
	ErrOutOfRange = stderrors.New("block out of range")
	ErrNoSpace    = stderrors.New("no space left on flash disk")
	ErrIO         = stderrors.New("flash i/o error")
	ErrConfig     = stderrors.New("invalid flash disk configuration")
	ErrCorrupt    = stderrors.New("flash disk state is inconsistent")
)

type Error struct {
	Kind  error
	Err   error
	Stack []byte
}

func stack() []byte {
	buf := make([]byte, 50000)
	n := runtime.Stack(buf, false)
	trace := make([]byte, n)
	copy(trace, buf)
	return trace
}

func Errorf(format string, args ...interface{}) error {
	return &Error{
		Err:   fmt.Errorf(format, args...),
		Stack: stack(),
	}
}

// Kindf builds an error of the given kind.
func Kindf(kind error, format string, args ...interface{}) error {
	return &Error{
		Kind:  kind,
		Err:   fmt.Errorf(format, args...),
		Stack: stack(),
	}
}

// Wrapf attaches kind and a message to a lower level error, typically
// one returned by the flash operations.
func Wrapf(kind, cause error, format string, args ...interface{}) error {
	return &Error{
		Kind:  kind,
		Err:   pkgerrors.Wrapf(cause, format, args...),
		Stack: stack(),
	}
}

func (e *Error) Error() string {
	if e.Kind != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

// String includes the stack captured when the error was made.
func (e *Error) String() string {
	return fmt.Sprintf("%s\n%s", e.Error(), string(e.Stack))
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Cause returns the innermost error, skipping the kind.
func Cause(err error) error {
	if e, ok := err.(*Error); ok {
		return pkgerrors.Cause(e.Err)
	}
	return pkgerrors.Cause(err)
}

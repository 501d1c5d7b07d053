package utils

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// PanicError is a recovered panic. Value is what was passed to panic.
type PanicError struct {
	Value      any
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

func newPanicError(r any) *PanicError {
	stack := string(debug.Stack())
	slog.Error("recovered from panic", "panic", r, "stack", stack)
	return &PanicError{Value: r, StackTrace: stack}
}

// RecoverAsError stores a recovered panic in *errPtr. It must be deferred
// directly by the function whose result it sets:
//
//	func (v *Vectorizer) Vectorize(...) (_ map[string][]types.Annotation, err error) {
//	    defer utils.RecoverAsError(&err)
//	    ...
//	}
func RecoverAsError(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = newPanicError(r)
	}
}

// RecoverWithCallback passes a recovered panic to callback, which may be nil.
func RecoverWithCallback(callback func(error)) {
	if r := recover(); r != nil {
		err := newPanicError(r)
		if callback != nil {
			callback(err)
		}
	}
}

// SafeGoWithResult runs fn in a goroutine. The returned channel receives fn's
// error or its panic, if any, and is then closed.
func SafeGoWithResult(fn func() error) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		defer RecoverWithCallback(func(err error) {
			errCh <- err
		})
		if err := fn(); err != nil {
			errCh <- err
		}
	}()
	return errCh
}

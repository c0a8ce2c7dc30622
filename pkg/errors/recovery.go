package errors

import (
	"fmt"
	"runtime/debug"
)

const (
	detailPanic = "panic"
	detailStack = "stack_trace"
)

// RecoverPanic turns a value recovered from a handler into a fatal internal
// error. The stack stays in the details for logs; ToErrorResponse drops it.
func RecoverPanic(r interface{}) *Error {
	if r == nil {
		return nil
	}

	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("panic: %v", r)
	}

	return ErrInternal.
		WithCause(cause).
		WithDetail(detailPanic, true).
		WithDetail(detailStack, string(debug.Stack())).
		AsFatal()
}

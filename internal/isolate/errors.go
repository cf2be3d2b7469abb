package isolate

import (
	"fmt"
	"runtime"
)

// TaskError wraps a failure from phase 2 or phase 3 with the stack
// snapshot captured on the origin lane at dispatch time, so the error
// points at the original call site rather than at loop internals.
type TaskError struct {
	Err   error
	Stack []byte
}

func (e *TaskError) Error() string {
	return e.Err.Error()
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// DispatchStack returns the origin-lane stack captured when the task was
// dispatched.
func (e *TaskError) DispatchStack() string {
	return string(e.Stack)
}

// captureStack snapshots the calling goroutine's stack for later error
// attribution.
func captureStack() []byte {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return buf[:n]
}

// attribute pairs an error with a dispatch-time stack snapshot. Errors
// already attributed pass through unchanged.
func attribute(err error, stack []byte) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*TaskError); ok {
		return err
	}
	return &TaskError{Err: err, Stack: stack}
}

// recovered converts a panic value into an error so that no live panic
// ever crosses a lane boundary.
func recovered(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}

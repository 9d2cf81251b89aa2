package engine

import (
	"fmt"
	"time"
)

// initFailureError signals the engine host failed to start or the
// session is not usable until a restart.
type initFailureError struct{ msg string }

func (e initFailureError) Error() string { return e.msg }

// ErrInitFailure constructs an initFailureError.
func ErrInitFailure(msg string) error { return initFailureError{msg: msg} }

// IsInitFailure reports whether err indicates the session could not be
// brought up (fatal until restart).
func IsInitFailure(err error) bool {
	_, ok := err.(initFailureError)
	return ok
}

// timeoutError signals the caller's budget elapsed before a terminal
// response. The engine may still be computing; slowness is not
// corruption, so no restart is implied.
type timeoutError struct{ after time.Duration }

func (e timeoutError) Error() string { return fmt.Sprintf("render timed out after %s", e.after) }

// ErrTimeout constructs a timeoutError.
func ErrTimeout(after time.Duration) error { return timeoutError{after: after} }

// IsTimeout reports whether err indicates a render timeout.
func IsTimeout(err error) bool {
	_, ok := err.(timeoutError)
	return ok
}

// cancelledError signals caller-initiated cancellation. Not an error
// condition for reporting purposes.
type cancelledError struct{}

func (cancelledError) Error() string { return "render cancelled" }

// ErrCancelled is the error delivered to a cancelled in-flight render.
func ErrCancelled() error { return cancelledError{} }

// IsCancelled reports whether err indicates caller-initiated cancellation.
func IsCancelled(err error) bool {
	_, ok := err.(cancelledError)
	return ok
}

// renderError carries a structured failure from the engine verbatim.
type renderError struct {
	code int
	msg  string
}

func (e renderError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("render failed: code %d", e.code)
}

// ErrRenderFailed constructs a renderError with the engine's code and message.
func ErrRenderFailed(code int, msg string) error { return renderError{code: code, msg: msg} }

// IsRenderFailed reports whether err is a structured engine failure.
func IsRenderFailed(err error) bool {
	_, ok := err.(renderError)
	return ok
}

// alreadyInProgressError signals a second render attempted while one is
// in flight. The session performs no queuing; that is the scheduler's job.
type alreadyInProgressError struct{ id string }

func (e alreadyInProgressError) Error() string { return "render already in progress: " + e.id }

// ErrAlreadyInProgress constructs a busy-rejection error for request id.
func ErrAlreadyInProgress(id string) error { return alreadyInProgressError{id: id} }

// IsAlreadyInProgress reports whether err indicates a concurrent render attempt.
func IsAlreadyInProgress(err error) bool {
	_, ok := err.(alreadyInProgressError)
	return ok
}

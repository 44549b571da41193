package domain

import "errors"

// deadLetterError wraps a handler failure that retrying cannot fix, such as
// a malformed reward payload or a borrower that no longer exists. The loop
// moves these events to the dead state instead of rescheduling them.
type deadLetterError struct {
	cause error
}

func (e deadLetterError) Error() string {
	if e.cause == nil {
		return "dead lettered"
	}
	return "dead lettered: " + e.cause.Error()
}

func (e deadLetterError) Unwrap() error {
	return e.cause
}

// Permanent marks err as non-retryable so the loop dead-letters the event.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return deadLetterError{cause: err}
}

// IsPermanent reports whether err carries a dead-letter marker anywhere in
// its chain.
func IsPermanent(err error) bool {
	var target deadLetterError
	return errors.As(err, &target)
}

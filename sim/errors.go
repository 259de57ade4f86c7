package sim

import "errors"

var (
	// ErrInvalidTarget marks a request for a file id outside [0, N) or a file
	// that has already been deleted. Surfaced as OutcomeDeclined, never retried.
	ErrInvalidTarget = errors.New("invalid or deleted file")

	// ErrTimeoutExceeded marks a request whose deadline passed before it was
	// admitted. Surfaced as OutcomeCanceled, never retried.
	ErrTimeoutExceeded = errors.New("wait timeout exceeded")

	// ErrCoordinatorClosed is returned for accesses attempted after shutdown.
	ErrCoordinatorClosed = errors.New("coordinator closed")
)

// OutcomeFor maps a terminal access error onto the Outcome reported for it.
// A nil error means the request was served.
func OutcomeFor(err error) (Outcome, bool) {
	switch {
	case err == nil:
		return OutcomeServed, true
	case errors.Is(err, ErrInvalidTarget):
		return OutcomeDeclined, true
	case errors.Is(err, ErrTimeoutExceeded):
		return OutcomeCanceled, true
	}
	return "", false
}

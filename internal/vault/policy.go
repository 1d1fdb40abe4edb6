// Package vault implements the resilient client for the remote record/blob
// store backing backups.
//
// This package contains:
//   - Classify: the pure retry policy deciding success, not-found, terminal
//     failure, delayed retry, or immediate retry per remote-call outcome
//   - Client: record primitives (save, delete, check-existence, download,
//     paginated name enumeration) wrapped in automatic retry loops
//   - lifecycle operations composed from the primitives (upsert, save-once,
//     service access check)
package vault

import (
	"errors"
	"time"

	"github.com/vietddude/cloudvault/internal/core/domain"
)

// DefaultRetryDelay is used for delayed retries when the service did not
// suggest its own delay.
const DefaultRetryDelay = 3 * time.Second

// Outcome determines how the retry loop handles a remote-call completion.
type Outcome int

const (
	// OutcomeSuccess carries the successful value forward.
	OutcomeSuccess Outcome = iota
	// OutcomeNotFound means the record does not exist; a valid result for
	// fetch-type operations, never a retryable failure.
	OutcomeNotFound
	// OutcomeFail is a terminal failure, propagated to the caller.
	OutcomeFail
	// OutcomeRetryAfterDelay retries the same call after Decision.Delay.
	OutcomeRetryAfterDelay
	// OutcomeRetryImmediately retries the same call without waiting.
	OutcomeRetryImmediately
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeFail:
		return "fail"
	case OutcomeRetryAfterDelay:
		return "retry_after_delay"
	case OutcomeRetryImmediately:
		return "retry_immediately"
	default:
		return "unknown"
	}
}

// Decision is the classification of one remote-call completion.
type Decision struct {
	Outcome Outcome
	// Delay is how long to wait before retrying; set only for
	// OutcomeRetryAfterDelay.
	Delay time.Duration
	// Err is the classified error; set for every outcome except
	// OutcomeSuccess and OutcomeNotFound.
	Err error
}

// Classify converts a raw remote-call outcome plus the remaining-attempt
// budget into exactly one Decision. It is pure: the same error and budget
// always classify the same way.
//
// Rules, in order: unknown-item is not-found regardless of budget; an
// exhausted budget (< 1 remaining) is terminal regardless of error shape; a
// lost response retries immediately; rate limiting, unavailability, and
// resource contention retry after the service-suggested delay, else
// defaultDelay; a network failure retries immediately; anything else is
// terminal.
func Classify(err error, remaining int, defaultDelay time.Duration) Decision {
	if err == nil {
		return Decision{Outcome: OutcomeSuccess}
	}
	if defaultDelay <= 0 {
		defaultDelay = DefaultRetryDelay
	}

	var se *domain.ServiceError
	if !errors.As(err, &se) {
		return Decision{Outcome: OutcomeFail, Err: err}
	}

	if se.Code == domain.CodeUnknownItem {
		return Decision{Outcome: OutcomeNotFound, Err: err}
	}

	if remaining < 1 {
		return Decision{Outcome: OutcomeFail, Err: err}
	}

	switch se.Code {
	case domain.CodeLostResponse:
		return Decision{Outcome: OutcomeRetryImmediately, Err: err}
	case domain.CodeRateLimited, domain.CodeServiceUnavailable, domain.CodeResourceContention:
		delay := se.RetryAfter
		if delay <= 0 {
			delay = defaultDelay
		}
		return Decision{Outcome: OutcomeRetryAfterDelay, Delay: delay, Err: err}
	case domain.CodeNetworkFailure:
		return Decision{Outcome: OutcomeRetryImmediately, Err: err}
	default:
		return Decision{Outcome: OutcomeFail, Err: err}
	}
}

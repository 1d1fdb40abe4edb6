package domain

import (
	"fmt"
	"time"
)

// ErrorCode classifies a remote-call failure into the vendor-neutral shapes
// the retry policy understands.
type ErrorCode string

const (
	// CodeUnknownItem means the named record does not exist. For fetch-type
	// operations this is a valid outcome, not a failure.
	CodeUnknownItem ErrorCode = "unknown_item"

	// CodeRateLimited means the service asked us to slow down. It may carry a
	// suggested retry delay.
	CodeRateLimited ErrorCode = "rate_limited"

	// CodeServiceUnavailable means the service is temporarily unable to serve.
	CodeServiceUnavailable ErrorCode = "service_unavailable"

	// CodeResourceContention means another writer holds the target resource.
	CodeResourceContention ErrorCode = "resource_contention"

	// CodeLostResponse means the platform reported losing the response to a
	// call that may have completed server-side.
	CodeLostResponse ErrorCode = "lost_response"

	// CodeNetworkFailure means the transport failed before a response arrived.
	CodeNetworkFailure ErrorCode = "network_failure"

	// CodeUnknown covers every error shape the transport could not classify.
	CodeUnknown ErrorCode = "unknown"
)

// ServiceError is a remote-call failure carrying a classifiable code and an
// optional service-suggested retry delay.
type ServiceError struct {
	Code ErrorCode
	// RetryAfter is the service-suggested wait before retrying, if any.
	RetryAfter time.Duration
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote service error (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("remote service error (%s)", e.Code)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err with the given classification code.
func NewServiceError(code ErrorCode, err error) *ServiceError {
	return &ServiceError{Code: code, Err: err}
}

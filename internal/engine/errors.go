package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/replicate/internal/model"
)

var (
	// ErrStopped is returned by Submit and Start after Shutdown.
	ErrStopped = errors.New("replicator stopped")

	// ErrNoActiveFilters is returned by the planner when a replication has
	// no query of its own and its source site has no active filters.
	ErrNoActiveFilters = errors.New("no active filters")
)

// RuntimeError represents a failure detected while executing jobs.
//
// Runtime errors include:
//   - Connectivity: an adapter could not be built or probed
//   - Query failure: a directional run ended in FAILURE
//   - Panic: job execution panicked and was recovered
//   - Drain timeout: shutdown gave up waiting for work to finish
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Job identifies the affected job, if any.
	JobKey model.JobKey

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeConnectionUnavailable indicates a node could not be reached.
	ErrCodeConnectionUnavailable RuntimeErrorCode = "CONNECTION_UNAVAILABLE"

	// ErrCodeQueryFailed indicates a directional run failed.
	ErrCodeQueryFailed RuntimeErrorCode = "QUERY_FAILED"

	// ErrCodePanic indicates job execution panicked.
	ErrCodePanic RuntimeErrorCode = "PANIC"

	// ErrCodeDrainTimeout indicates shutdown left work unfinished.
	ErrCodeDrainTimeout RuntimeErrorCode = "DRAIN_TIMEOUT"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.JobKey != (model.JobKey{}) {
		msg = fmt.Sprintf("%s (job=%s)", msg, e.JobKey)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error { return e.Err }

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsConnectionError returns true if err is a connectivity runtime error.
// Uses errors.As to handle wrapped errors.
func IsConnectionError(err error) bool { return hasCode(err, ErrCodeConnectionUnavailable) }

// IsQueryError returns true if err is a failed directional run.
func IsQueryError(err error) bool { return hasCode(err, ErrCodeQueryFailed) }

// IsPanicError returns true if err is a recovered panic.
func IsPanicError(err error) bool { return hasCode(err, ErrCodePanic) }

// IsDrainTimeout returns true if err reports an incomplete drain.
func IsDrainTimeout(err error) bool { return hasCode(err, ErrCodeDrainTimeout) }

// NewConnectionError creates a RuntimeError for an unreachable node.
func NewConnectionError(job model.JobKey, site string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeConnectionUnavailable,
		Message: fmt.Sprintf("site %s unavailable", site),
		JobKey:  job,
		Details: map[string]string{"site": site},
		Err:     err,
	}
}

// NewQueryError creates a RuntimeError for a failed directional run.
func NewQueryError(job model.JobKey, direction model.Direction, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQueryFailed,
		Message: fmt.Sprintf("%s phase failed", direction),
		JobKey:  job,
		Details: map[string]string{"direction": string(direction)},
		Err:     err,
	}
}

// NewPanicError creates a RuntimeError for a recovered panic value.
func NewPanicError(job model.JobKey, v any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodePanic,
		Message: fmt.Sprintf("job panicked: %v", v),
		JobKey:  job,
	}
}

// NewDrainTimeoutError creates a RuntimeError for an incomplete drain.
func NewDrainTimeoutError(pending, active int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeDrainTimeout,
		Message: fmt.Sprintf("shutdown timed out with %d pending and %d active jobs", pending, active),
		Details: map[string]string{
			"pending": fmt.Sprintf("%d", pending),
			"active":  fmt.Sprintf("%d", active),
		},
	}
}

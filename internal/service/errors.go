package service

import (
	"errors"
	"fmt"

	"transitdesk/internal/model"
)

// Sentinel errors returned by the shift and approval services. Handlers map
// them to HTTP statuses; callers retry transient conflicts with the same
// idempotent call.
var (
	ErrSessionNotFound  = errors.New("shift session not found")
	ErrReportNotFound   = errors.New("shift report not found")
	ErrAlreadyClosed    = errors.New("shift session is already closed")
	ErrAlreadyValidated = errors.New("shift session is already validated")
	// ErrApprovalConflict means a concurrent approval write won the race.
	// The caller should re-read and retry, not duplicate the approval.
	ErrApprovalConflict = errors.New("approval conflict, retry the operation")
	// ErrSessionConflict means the session state changed between two steps of
	// an operation (e.g. the open session closed mid-start). The same
	// idempotent call can simply be retried.
	ErrSessionConflict = errors.New("session state changed concurrently, retry the operation")
)

// InvalidTransitionError reports an operation that is not valid from the
// session's current status.
type InvalidTransitionError struct {
	Op   string
	From model.ShiftStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a session in status %s", e.Op, e.From)
}

// AggregationError wraps a sales-ledger query or transaction failure during
// close(); the close transaction is rolled back in full when it occurs.
type AggregationError struct {
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("sales aggregation failed: %v", e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

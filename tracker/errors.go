/*
errors.go - Error types for the time-off core

ERROR CATEGORIES:
  1. Validation errors - a request failed a pre-commit check
  2. Not found         - employee or request id did not resolve
  3. Conflicts         - duplicate email, forbidden status transition

  All of them are recoverable: the caller fixes its input and retries.
  None of them leave a partial mutation behind.

USAGE:
  if errors.Is(err, tracker.ErrDateConflict) { ... }

  var verr *tracker.ValidationError
  if errors.As(err, &verr) {
      fmt.Println(verr.Code, verr.Available)
  }
*/
package tracker

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidDateRange    = errors.New("start date is after end date")
	ErrPastStartDate       = errors.New("start date is in the past")
	ErrDateConflict        = errors.New("dates overlap an existing approved request")
	ErrInvalidDayCount     = errors.New("request must cover at least one business day")

	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound         = errors.New("not found")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrRequestNotFound  = errors.New("request not found")

	ErrDuplicateEmail    = errors.New("an employee with this email already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidLeaveType  = errors.New("invalid leave type")
	ErrInvalidStatus     = errors.New("invalid request status")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

type ValidationCode string

const (
	CodeInsufficientBalance ValidationCode = "insufficient_balance"
	CodeInvalidDateRange    ValidationCode = "invalid_date_range"
	CodePastStartDate       ValidationCode = "past_start_date"
	CodeDateConflict        ValidationCode = "date_conflict"
	CodeInvalidDayCount     ValidationCode = "invalid_day_count"
)

var codeSentinels = map[ValidationCode]error{
	CodeInsufficientBalance: ErrInsufficientBalance,
	CodeInvalidDateRange:    ErrInvalidDateRange,
	CodePastStartDate:       ErrPastStartDate,
	CodeDateConflict:        ErrDateConflict,
	CodeInvalidDayCount:     ErrInvalidDayCount,
}

// ValidationError describes the first failing check of the validation gate.
type ValidationError struct {
	Code       ValidationCode
	EmployeeID int64
	Type       LeaveType

	// Set for insufficient_balance.
	Requested int
	Available int

	// Set for date_conflict: the request that overlaps.
	ConflictID int64
}

func (e *ValidationError) Error() string {
	switch e.Code {
	case CodeInsufficientBalance:
		return fmt.Sprintf("not enough %s days available: requested %d, available %d", e.Type, e.Requested, e.Available)
	case CodeDateConflict:
		return fmt.Sprintf("date conflict with existing time-off request %d", e.ConflictID)
	}
	if s, ok := codeSentinels[e.Code]; ok {
		return s.Error()
	}
	return string(e.Code)
}

func (e *ValidationError) Unwrap() []error {
	errs := []error{ErrValidation}
	if s, ok := codeSentinels[e.Code]; ok {
		errs = append(errs, s)
	}
	return errs
}

// NotFoundError reports an id that did not resolve.
type NotFoundError struct {
	Kind string // "employee" or "request"
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() []error {
	switch e.Kind {
	case "employee":
		return []error{ErrNotFound, ErrEmployeeNotFound}
	case "request":
		return []error{ErrNotFound, ErrRequestNotFound}
	}
	return []error{ErrNotFound}
}

func employeeNotFound(id int64) error { return &NotFoundError{Kind: "employee", ID: id} }
func requestNotFound(id int64) error  { return &NotFoundError{Kind: "request", ID: id} }

// TransitionError reports a status change the lifecycle does not allow.
type TransitionError struct {
	RequestID int64
	From, To  RequestStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("request %d cannot move from %s to %s", e.RequestID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true if the error is a validation gate failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing employee or request.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the input clashes with existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrInvalidTransition)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return IsValidation(err) || IsNotFound(err) || IsConflict(err) ||
		errors.Is(err, ErrInvalidLeaveType) || errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidInput)
}

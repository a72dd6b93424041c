package tracker

// =============================================================================
// VALIDATION GATE - Runs before every reconciliation commit
// =============================================================================

// Candidate is the shape of a request being checked.
type Candidate struct {
	Type      LeaveType
	Days      int
	StartDate Date
	EndDate   Date
}

// Validate checks a candidate request for employee e as of today.
//
// Checks run in a fixed order and the first failure is returned:
//  1. insufficient_balance: days > available
//  2. invalid_date_range:   start > end
//  3. past_start_date:      start < today
//  4. date_conflict:        overlap with another approved/active request
//
// excludeID skips one request in the overlap scan (the one being edited).
// credit adds back days already reserved by that request, so editing an
// approved request is checked against what it would free up.
func Validate(e *Employee, c Candidate, today Date, excludeID int64, credit int) error {
	available := RemainingDays(e, c.Type) + credit
	if c.Days > available {
		return &ValidationError{
			Code:       CodeInsufficientBalance,
			EmployeeID: e.ID,
			Type:       c.Type,
			Requested:  c.Days,
			Available:  available,
		}
	}

	if c.StartDate.After(c.EndDate) {
		return &ValidationError{Code: CodeInvalidDateRange, EmployeeID: e.ID, Type: c.Type}
	}

	if c.StartDate.Before(today) {
		return &ValidationError{Code: CodePastStartDate, EmployeeID: e.ID, Type: c.Type}
	}

	for _, r := range e.Requests {
		if excludeID != 0 && r.ID == excludeID {
			continue
		}
		if !r.Status.AffectsBalance() {
			continue
		}
		if Overlaps(c.StartDate, c.EndDate, r.StartDate, r.EndDate) {
			return &ValidationError{Code: CodeDateConflict, EmployeeID: e.ID, Type: c.Type, ConflictID: r.ID}
		}
	}

	return nil
}

// checkSufficient is the balance-only check used when a status change
// moves a request into a balance-affecting status.
func checkSufficient(e *Employee, t LeaveType, days int) error {
	if available := RemainingDays(e, t); days > available {
		return &ValidationError{
			Code:       CodeInsufficientBalance,
			EmployeeID: e.ID,
			Type:       t,
			Requested:  days,
			Available:  available,
		}
	}
	return nil
}

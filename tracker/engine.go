/*
engine.go - Reconciliation engine

PURPOSE:
  Applies every mutation of the dataset while keeping the ledger invariant:

    used(employee, type) == sum(days of approved/active requests of that type)

REQUEST FLOW:
  input ──▶ normalize ──▶ validation gate ──▶ ledger adjust + store update

  Every operation checks everything first and mutates last, so a failure
  leaves the dataset exactly as it was.

LEDGER EFFECTS:
  create  : reserve if the new status affects balance
  edit    : release old (type, days) if it affected balance,
            reserve new (type, days) if it does; committed as one ledger write
  status  : reserve when entering approved/active, release when leaving
  delete  : release if the request affected balance

SEE ALSO:
  - validation.go: the gate
  - ledger.go:     Adjust
  - service.go:    persistence around these operations
*/
package tracker

import (
	"fmt"
	"strings"
)

// Engine applies reconciliation operations to an in-memory DataSet.
// It holds no state other than its clock.
type Engine struct {
	// Today returns the current date. Defaults to the wall clock.
	Today func() Date
}

func NewEngine() *Engine {
	return &Engine{Today: Today}
}

func (en *Engine) today() Date {
	if en.Today == nil {
		return Today()
	}
	return en.Today()
}

// =============================================================================
// REQUESTS
// =============================================================================

// CreateRequest validates and appends a new request for an employee.
func (en *Engine) CreateRequest(ds *DataSet, employeeID int64, in RequestInput) (Request, error) {
	_, emp := ds.employee(employeeID)
	if emp == nil {
		return Request{}, employeeNotFound(employeeID)
	}
	if err := in.normalize(); err != nil {
		return Request{}, err
	}

	cand := Candidate{Type: in.Type, Days: in.Days, StartDate: in.StartDate, EndDate: in.EndDate}
	if err := Validate(emp, cand, en.today(), 0, 0); err != nil {
		return Request{}, err
	}
	if in.Days <= 0 {
		return Request{}, &ValidationError{Code: CodeInvalidDayCount, EmployeeID: emp.ID, Type: in.Type}
	}

	req := Request{
		ID:          ds.newID(),
		EmployeeID:  emp.ID,
		Type:        in.Type,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Days:        in.Days,
		Status:      in.Status,
		RequestDate: en.today(),
		Notes:       in.Notes,
	}
	if req.Status.AffectsBalance() {
		if err := Adjust(emp, req.Type, req.Days); err != nil {
			return Request{}, err
		}
	}
	emp.Requests = append(emp.Requests, req)
	return req, nil
}

// EditRequest replaces a request's fields, keeping its id and request date.
func (en *Engine) EditRequest(ds *DataSet, requestID int64, in RequestInput) (Request, error) {
	emp, idx, old := ds.findRequest(requestID)
	if old == nil {
		return Request{}, requestNotFound(requestID)
	}
	if in.Status == "" {
		in.Status = old.Status
	}
	if err := in.normalize(); err != nil {
		return Request{}, err
	}

	credit := 0
	if old.Status.AffectsBalance() && old.Type == in.Type {
		credit = old.Days
	}
	cand := Candidate{Type: in.Type, Days: in.Days, StartDate: in.StartDate, EndDate: in.EndDate}
	if err := Validate(emp, cand, en.today(), old.ID, credit); err != nil {
		return Request{}, err
	}
	if in.Days <= 0 {
		return Request{}, &ValidationError{Code: CodeInvalidDayCount, EmployeeID: emp.ID, Type: in.Type}
	}

	// Swap the reservation on a scratch copy, then commit the ledger once.
	scratch := Employee{TimeOff: emp.TimeOff}
	if old.Status.AffectsBalance() {
		if err := Adjust(&scratch, old.Type, -old.Days); err != nil {
			return Request{}, err
		}
	}
	if in.Status.AffectsBalance() {
		if err := Adjust(&scratch, in.Type, in.Days); err != nil {
			return Request{}, err
		}
	}

	updated := Request{
		ID:          old.ID,
		EmployeeID:  emp.ID,
		Type:        in.Type,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Days:        in.Days,
		Status:      in.Status,
		RequestDate: old.RequestDate,
		Notes:       in.Notes,
	}
	emp.TimeOff = scratch.TimeOff
	emp.Requests[idx] = updated
	return updated, nil
}

// SetStatus moves a request through its lifecycle.
// Setting the current status again is a no-op.
func (en *Engine) SetStatus(ds *DataSet, requestID int64, status RequestStatus) (Request, error) {
	emp, _, req := ds.findRequest(requestID)
	if req == nil {
		return Request{}, requestNotFound(requestID)
	}
	if !status.Valid() {
		return Request{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if req.Status == status {
		return *req, nil
	}
	if !CanTransition(req.Status, status) {
		return Request{}, &TransitionError{RequestID: req.ID, From: req.Status, To: status}
	}

	was, will := req.Status.AffectsBalance(), status.AffectsBalance()
	switch {
	case !was && will:
		if err := checkSufficient(emp, req.Type, req.Days); err != nil {
			return Request{}, err
		}
		if err := Adjust(emp, req.Type, req.Days); err != nil {
			return Request{}, err
		}
	case was && !will:
		if err := Adjust(emp, req.Type, -req.Days); err != nil {
			return Request{}, err
		}
	}
	req.Status = status
	return *req, nil
}

// DeleteRequest removes a request, releasing its reservation if it held one.
func (en *Engine) DeleteRequest(ds *DataSet, requestID int64) (Request, error) {
	emp, idx, req := ds.findRequest(requestID)
	if req == nil {
		return Request{}, requestNotFound(requestID)
	}
	removed := *req
	if removed.Status.AffectsBalance() {
		if err := Adjust(emp, removed.Type, -removed.Days); err != nil {
			return Request{}, err
		}
	}
	emp.Requests = append(emp.Requests[:idx], emp.Requests[idx+1:]...)
	return removed, nil
}

// StatusChange records one automatic lifecycle move.
type StatusChange struct {
	RequestID  int64
	EmployeeID int64
	From, To   RequestStatus
}

// AdvanceStatuses starts approved requests whose range contains today and,
// when autoComplete is set, completes approved/active requests that ended
// before today. Completion releases the reservation like any exit from a
// balance-affecting status.
func (en *Engine) AdvanceStatuses(ds *DataSet, autoComplete bool) ([]StatusChange, error) {
	today := en.today()

	type move struct {
		id int64
		to RequestStatus
	}
	var moves []move
	for _, e := range ds.Employees {
		for _, r := range e.Requests {
			switch {
			case autoComplete && r.Status.AffectsBalance() && r.EndDate.Before(today):
				moves = append(moves, move{r.ID, StatusCompleted})
			case r.Status == StatusApproved && r.StartDate.BeforeOrEqual(today) && today.BeforeOrEqual(r.EndDate):
				moves = append(moves, move{r.ID, StatusActive})
			}
		}
	}

	changes := make([]StatusChange, 0, len(moves))
	for _, m := range moves {
		_, _, r := ds.findRequest(m.id)
		from := r.Status
		updated, err := en.SetStatus(ds, m.id, m.to)
		if err != nil {
			return changes, fmt.Errorf("advance request %d: %w", m.id, err)
		}
		changes = append(changes, StatusChange{RequestID: updated.ID, EmployeeID: updated.EmployeeID, From: from, To: m.to})
	}
	return changes, nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// AddEmployee creates an employee with a fresh ledger and no requests.
func (en *Engine) AddEmployee(ds *DataSet, in EmployeeInput) (Employee, error) {
	if err := in.normalize(); err != nil {
		return Employee{}, err
	}
	if emailTaken(ds, in.Email, 0) {
		return Employee{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, in.Email)
	}

	alloc := DefaultAllocation
	if in.Allocation != nil {
		alloc = *in.Allocation
	}
	emp := Employee{
		ID:        ds.newID(),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		District:  in.District,
		Position:  in.Position,
		StartDate: in.StartDate,
		Status:    in.Status,
		TimeOff:   NewLedger(alloc),
		Requests:  []Request{},
	}
	ds.Employees = append(ds.Employees, emp)
	return emp, nil
}

// UpdateEmployee replaces the profile. New totals keep the used days and
// recompute remaining.
func (en *Engine) UpdateEmployee(ds *DataSet, id int64, in EmployeeInput) (Employee, error) {
	_, emp := ds.employee(id)
	if emp == nil {
		return Employee{}, employeeNotFound(id)
	}
	if err := in.normalize(); err != nil {
		return Employee{}, err
	}
	if emailTaken(ds, in.Email, id) {
		return Employee{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, in.Email)
	}

	emp.FirstName = in.FirstName
	emp.LastName = in.LastName
	emp.Email = in.Email
	emp.District = in.District
	emp.Position = in.Position
	emp.StartDate = in.StartDate
	emp.Status = in.Status
	if in.Allocation != nil {
		for _, t := range LeaveTypes {
			b := emp.TimeOff.Get(t)
			b.Total = in.Allocation.Of(t)
			b.Remaining = b.Total - b.Used
		}
	}
	return *emp, nil
}

// DeleteEmployee removes an employee together with all of its requests.
func (en *Engine) DeleteEmployee(ds *DataSet, id int64) (Employee, error) {
	idx, emp := ds.employee(id)
	if emp == nil {
		return Employee{}, employeeNotFound(id)
	}
	removed := *emp
	ds.Employees = append(ds.Employees[:idx], ds.Employees[idx+1:]...)
	return removed, nil
}

func emailTaken(ds *DataSet, email string, exceptID int64) bool {
	for _, e := range ds.Employees {
		if e.ID != exceptID && strings.EqualFold(e.Email, email) {
			return true
		}
	}
	return false
}

/*
Package tracker is the employee time-off core.

PURPOSE:
  Keeps every employee's leave balances consistent with their time-off
  requests. Requests move through a small lifecycle; whenever a request
  enters or leaves a balance-affecting status, the matching balance is
  reserved or released.

KEY CONCEPTS IN THIS FILE (types.go):
  - LeaveType: vacation, personal or sick (fixed set, no open map)
  - Balance:   total / used / remaining days for one leave type
  - Ledger:    the three balances of one employee
  - Request:   a time-off request with its lifecycle status
  - Employee:  profile + ledger + ordered requests
  - DataSet:   everything, persisted as one blob

CENTRAL INVARIANT:
  For every employee and leave type:
    used      == sum(days of requests in {approved, active} of that type)
    remaining == total - used

SEE ALSO:
  - ledger.go:     reserve / release arithmetic
  - validation.go: pre-commit checks
  - engine.go:     create / edit / status / delete reconciliation
  - service.go:    single-writer access with persistence
*/
package tracker

import (
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// LEAVE TYPE
// =============================================================================

type LeaveType string

const (
	LeaveVacation LeaveType = "vacation"
	LeavePersonal LeaveType = "personal"
	LeaveSick     LeaveType = "sick"
)

// LeaveTypes lists every leave type in display order.
var LeaveTypes = []LeaveType{LeaveVacation, LeavePersonal, LeaveSick}

func (t LeaveType) Valid() bool {
	switch t {
	case LeaveVacation, LeavePersonal, LeaveSick:
		return true
	}
	return false
}

func ParseLeaveType(s string) (LeaveType, error) {
	t := LeaveType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLeaveType, s)
	}
	return t, nil
}

// =============================================================================
// REQUEST STATUS
// =============================================================================

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusDenied    RequestStatus = "denied"
	StatusCancelled RequestStatus = "cancelled"
	StatusActive    RequestStatus = "active"
	StatusCompleted RequestStatus = "completed"
)

var RequestStatuses = []RequestStatus{
	StatusPending, StatusApproved, StatusDenied, StatusCancelled, StatusActive, StatusCompleted,
}

func (s RequestStatus) Valid() bool {
	for _, known := range RequestStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// AffectsBalance reports whether requests in this status count toward used days.
func (s RequestStatus) AffectsBalance() bool {
	return s == StatusApproved || s == StatusActive
}

func ParseRequestStatus(s string) (RequestStatus, error) {
	st := RequestStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// transitions is the request lifecycle. Staying in the same status is always allowed.
var transitions = map[RequestStatus][]RequestStatus{
	StatusPending:  {StatusApproved, StatusDenied, StatusCancelled},
	StatusApproved: {StatusActive, StatusCompleted, StatusDenied, StatusCancelled},
	StatusActive:   {StatusApproved, StatusCompleted, StatusDenied, StatusCancelled},
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to RequestStatus) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// =============================================================================
// EMPLOYEE STATUS
// =============================================================================

type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeOnLeave  EmployeeStatus = "on-leave"
	EmployeeInactive EmployeeStatus = "inactive"
)

func (s EmployeeStatus) Valid() bool {
	return s == EmployeeActive || s == EmployeeOnLeave || s == EmployeeInactive
}

// =============================================================================
// BALANCE LEDGER ENTRIES
// =============================================================================

// Balance is the per-type counter triple. Only the engine writes it.
type Balance struct {
	Total     int `json:"total"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

// Ledger is an employee's fixed set of balances, one per leave type.
type Ledger struct {
	Vacation Balance `json:"vacation"`
	Personal Balance `json:"personal"`
	Sick     Balance `json:"sick"`
}

// Get returns the balance for t, or nil for an unknown type.
func (l *Ledger) Get(t LeaveType) *Balance {
	switch t {
	case LeaveVacation:
		return &l.Vacation
	case LeavePersonal:
		return &l.Personal
	case LeaveSick:
		return &l.Sick
	}
	return nil
}

// Allocation is the yearly total per leave type.
type Allocation struct {
	Vacation int `json:"vacation" validate:"min=0"`
	Personal int `json:"personal" validate:"min=0"`
	Sick     int `json:"sick" validate:"min=0"`
}

// DefaultAllocation is granted to new employees when no totals are given.
var DefaultAllocation = Allocation{Vacation: 15, Personal: 5, Sick: 10}

func (a Allocation) Of(t LeaveType) int {
	switch t {
	case LeaveVacation:
		return a.Vacation
	case LeavePersonal:
		return a.Personal
	case LeaveSick:
		return a.Sick
	}
	return 0
}

// NewLedger builds an untouched ledger from an allocation.
func NewLedger(a Allocation) Ledger {
	return Ledger{
		Vacation: Balance{Total: a.Vacation, Remaining: a.Vacation},
		Personal: Balance{Total: a.Personal, Remaining: a.Personal},
		Sick:     Balance{Total: a.Sick, Remaining: a.Sick},
	}
}

// =============================================================================
// REQUEST
// =============================================================================

type Request struct {
	ID          int64         `json:"id"`
	EmployeeID  int64         `json:"employeeId"`
	Type        LeaveType     `json:"type"`
	StartDate   Date          `json:"startDate"`
	EndDate     Date          `json:"endDate"`
	Days        int           `json:"days"`
	Status      RequestStatus `json:"status"`
	RequestDate Date          `json:"requestDate"`
	Notes       string        `json:"notes,omitempty"`
}

// =============================================================================
// EMPLOYEE
// =============================================================================

type Employee struct {
	ID        int64          `json:"id"`
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	Email     string         `json:"email"`
	District  string         `json:"district"`
	Position  string         `json:"position"`
	StartDate Date           `json:"startDate"`
	Status    EmployeeStatus `json:"status"`
	TimeOff   Ledger         `json:"timeOff"`
	Requests  []Request      `json:"requests"`
}

// UnmarshalJSON also accepts "department" for documents written before the
// field was called district.
func (e *Employee) UnmarshalJSON(data []byte) error {
	type employee Employee
	var doc struct {
		employee
		Department string `json:"department"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*e = Employee(doc.employee)
	if e.District == "" {
		e.District = doc.Department
	}
	return nil
}

func (e *Employee) Name() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

func (e *Employee) request(id int64) (int, *Request) {
	for i := range e.Requests {
		if e.Requests[i].ID == id {
			return i, &e.Requests[i]
		}
	}
	return -1, nil
}

// =============================================================================
// DATASET - The whole persisted document
// =============================================================================

type DataSet struct {
	Employees []Employee `json:"employees"`
	NextID    int64      `json:"nextId"`
}

// Clone returns a deep copy so callers can mutate without touching the source.
func (ds *DataSet) Clone() *DataSet {
	out := &DataSet{NextID: ds.NextID, Employees: make([]Employee, len(ds.Employees))}
	for i, e := range ds.Employees {
		reqs := make([]Request, len(e.Requests))
		copy(reqs, e.Requests)
		e.Requests = reqs
		out.Employees[i] = e
	}
	return out
}

// newID hands out the next identifier. Ids are shared by employees and requests.
func (ds *DataSet) newID() int64 {
	if ds.NextID <= ds.maxID() {
		ds.NextID = ds.maxID() + 1
	}
	id := ds.NextID
	ds.NextID++
	return id
}

func (ds *DataSet) maxID() int64 {
	var max int64
	for _, e := range ds.Employees {
		if e.ID > max {
			max = e.ID
		}
		for _, r := range e.Requests {
			if r.ID > max {
				max = r.ID
			}
		}
	}
	return max
}

func (ds *DataSet) employee(id int64) (int, *Employee) {
	for i := range ds.Employees {
		if ds.Employees[i].ID == id {
			return i, &ds.Employees[i]
		}
	}
	return -1, nil
}

// findRequest locates a request anywhere in the dataset.
func (ds *DataSet) findRequest(id int64) (*Employee, int, *Request) {
	for i := range ds.Employees {
		if idx, r := ds.Employees[i].request(id); r != nil {
			return &ds.Employees[i], idx, r
		}
	}
	return nil, -1, nil
}

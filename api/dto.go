/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON bodies the API accepts. Responses reuse the tracker
  types directly since their JSON shape is the stored document shape.

NAMING CONVENTION:
  - *Request:  request body types from clients
  - *Response: response wrappers

VALIDATION:
  Request bodies carry validator tags and are checked in the handlers
  before conversion. Business rules (balance, overlap, lifecycle) are left
  to the tracker package.

SEE ALSO:
  - handlers.go: uses these types
*/
package api

import (
	"github.com/warp/leave-tracker/importer"
	"github.com/warp/leave-tracker/tracker"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// AllocationRequest sets yearly totals per leave type.
type AllocationRequest struct {
	Vacation int `json:"vacation" validate:"min=0"`
	Personal int `json:"personal" validate:"min=0"`
	Sick     int `json:"sick" validate:"min=0"`
}

// EmployeeRequest creates or replaces an employee profile.
type EmployeeRequest struct {
	FirstName string             `json:"firstName" validate:"required,max=100"`
	LastName  string             `json:"lastName" validate:"required,max=100"`
	Email     string             `json:"email" validate:"required,email"`
	District  string             `json:"district" validate:"max=100"`
	Position  string             `json:"position" validate:"max=100"`
	StartDate string             `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	Status    string             `json:"status" validate:"omitempty,oneof=active on-leave inactive"`
	TimeOff   *AllocationRequest `json:"timeOff,omitempty"`
}

func (req EmployeeRequest) toInput() (tracker.EmployeeInput, error) {
	in := tracker.EmployeeInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		District:  req.District,
		Position:  req.Position,
		Status:    tracker.EmployeeStatus(req.Status),
	}
	if req.StartDate != "" {
		d, err := tracker.ParseDate(req.StartDate)
		if err != nil {
			return in, err
		}
		in.StartDate = d
	}
	if req.TimeOff != nil {
		in.Allocation = &tracker.Allocation{
			Vacation: req.TimeOff.Vacation,
			Personal: req.TimeOff.Personal,
			Sick:     req.TimeOff.Sick,
		}
	}
	return in, nil
}

// TimeOffRequest creates or replaces a time-off request.
// Days may be omitted; the business days of the range are used instead.
// An omitted status is pending on create and unchanged on edit.
type TimeOffRequest struct {
	Type      string `json:"type" validate:"required,oneof=vacation personal sick"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
	Days      int    `json:"days" validate:"min=0"`
	Status    string `json:"status" validate:"omitempty,oneof=pending approved denied cancelled active completed"`
	Notes     string `json:"notes" validate:"max=1000"`
}

func (req TimeOffRequest) toInput() (tracker.RequestInput, error) {
	start, err := tracker.ParseDate(req.StartDate)
	if err != nil {
		return tracker.RequestInput{}, err
	}
	end, err := tracker.ParseDate(req.EndDate)
	if err != nil {
		return tracker.RequestInput{}, err
	}
	return tracker.RequestInput{
		Type:      tracker.LeaveType(req.Type),
		StartDate: start,
		EndDate:   end,
		Days:      req.Days,
		Status:    tracker.RequestStatus(req.Status),
		Notes:     req.Notes,
	}, nil
}

// StatusRequest moves a request to a new lifecycle status.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved denied cancelled active completed"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type BusinessDaysResponse struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Days      int    `json:"days"`
}

type ImportResponse struct {
	Parsed   *importer.Result      `json:"parsed"`
	Imported *tracker.ImportResult `json:"imported,omitempty"`
}

// DriftDTO is one ledger entry that disagreed with its requests.
type DriftDTO struct {
	EmployeeID   int64             `json:"employeeId"`
	Type         tracker.LeaveType `json:"type"`
	Used         int               `json:"used"`
	Remaining    int               `json:"remaining"`
	Total        int               `json:"total"`
	ExpectedUsed int               `json:"expectedUsed"`
}

func toDriftDTOs(drifts []tracker.Drift) []DriftDTO {
	out := make([]DriftDTO, len(drifts))
	for i, d := range drifts {
		out[i] = DriftDTO{
			EmployeeID:   d.EmployeeID,
			Type:         d.Type,
			Used:         d.Balance.Used,
			Remaining:    d.Balance.Remaining,
			Total:        d.Balance.Total,
			ExpectedUsed: d.ExpectedUsed,
		}
	}
	return out
}

type StatusChangeDTO struct {
	RequestID  int64                 `json:"requestId"`
	EmployeeID int64                 `json:"employeeId"`
	From       tracker.RequestStatus `json:"from"`
	To         tracker.RequestStatus `json:"to"`
}

func toStatusChangeDTOs(changes []tracker.StatusChange) []StatusChangeDTO {
	out := make([]StatusChangeDTO, len(changes))
	for i, c := range changes {
		out[i] = StatusChangeDTO{RequestID: c.RequestID, EmployeeID: c.EmployeeID, From: c.From, To: c.To}
	}
	return out
}

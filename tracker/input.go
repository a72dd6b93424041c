package tracker

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrInvalidInput is matched by every *InputError.
var ErrInvalidInput = errors.New("invalid input")

// InputError lists the fields that failed struct validation.
type InputError struct {
	Fields map[string]string
}

func (e *InputError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", k, e.Fields[k]))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// ValidateStruct runs validator tags on v and converts failures to *InputError.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describeFieldError(fe)
	}
	return &InputError{Fields: fields}
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return "is invalid"
}

// =============================================================================
// INPUT SHAPES
// =============================================================================

// EmployeeInput carries the editable profile of an employee.
// A nil Allocation means "default" on create and "unchanged" on update.
type EmployeeInput struct {
	FirstName  string `validate:"required,max=100"`
	LastName   string `validate:"required,max=100"`
	Email      string `validate:"required,email"`
	District   string `validate:"max=100"`
	Position   string `validate:"max=100"`
	StartDate  Date
	Status     EmployeeStatus `validate:"omitempty,oneof=active on-leave inactive"`
	Allocation *Allocation
}

// RequestInput carries the user-editable fields of a time-off request.
// Days == 0 means "count the business days of the range".
// An empty Status means pending on create and unchanged on edit.
type RequestInput struct {
	Type      LeaveType
	StartDate Date
	EndDate   Date
	Days      int `validate:"min=0"`
	Status    RequestStatus
	Notes     string `validate:"max=1000"`
}

func (in *RequestInput) normalize() error {
	if err := ValidateStruct(in); err != nil {
		return err
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLeaveType, in.Type)
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	if !in.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return &InputError{Fields: map[string]string{"StartDate/EndDate": "is required"}}
	}
	if in.Days == 0 {
		in.Days = BusinessDays(in.StartDate, in.EndDate)
	}
	return nil
}

func (in *EmployeeInput) normalize() error {
	in.Email = strings.TrimSpace(in.Email)
	if err := ValidateStruct(in); err != nil {
		return err
	}
	if in.Status == "" {
		in.Status = EmployeeActive
	}
	if in.Allocation != nil {
		if err := ValidateStruct(in.Allocation); err != nil {
			return err
		}
	}
	return nil
}

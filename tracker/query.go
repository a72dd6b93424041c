package tracker

import (
	"sort"
	"strings"
)

// =============================================================================
// EMPLOYEE QUERIES
// =============================================================================

// EmployeeFilter narrows ListEmployees. Empty fields match everything.
type EmployeeFilter struct {
	Search   string // name, email or position, case-insensitive
	District string
	Status   EmployeeStatus
}

func (f EmployeeFilter) matches(e *Employee) bool {
	if f.District != "" && !strings.EqualFold(e.District, f.District) {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		hay := strings.ToLower(e.Name() + " " + e.Email + " " + e.Position)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

// ListEmployees returns matching employees sorted by last name, then first name.
func ListEmployees(ds *DataSet, f EmployeeFilter) []Employee {
	out := []Employee{}
	for i := range ds.Employees {
		if f.matches(&ds.Employees[i]) {
			out = append(out, ds.Employees[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i].LastName), strings.ToLower(out[j].LastName)
		if li != lj {
			return li < lj
		}
		return strings.ToLower(out[i].FirstName) < strings.ToLower(out[j].FirstName)
	})
	return out
}

// GetEmployee looks up one employee by id.
func GetEmployee(ds *DataSet, id int64) (Employee, error) {
	_, e := ds.employee(id)
	if e == nil {
		return Employee{}, employeeNotFound(id)
	}
	return *e, nil
}

// Districts returns the distinct non-empty districts in alphabetical order.
func Districts(ds *DataSet) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, e := range ds.Employees {
		if e.District != "" && !seen[e.District] {
			seen[e.District] = true
			out = append(out, e.District)
		}
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// REQUEST QUERIES
// =============================================================================

// RequestView is a request annotated with its employee's name.
type RequestView struct {
	Request
	EmployeeName string `json:"employeeName"`
}

// RequestFilter narrows ListRequests. Limit 0 means no limit.
type RequestFilter struct {
	EmployeeID int64
	Type       LeaveType
	Status     RequestStatus
	Search     string // employee name or notes
	Limit      int
	Offset     int
}

// RequestPage is one page of ListRequests plus the unpaged count.
type RequestPage struct {
	Requests []RequestView `json:"requests"`
	Total    int           `json:"total"`
}

// ListRequests returns requests across all employees, newest start date first.
func ListRequests(ds *DataSet, f RequestFilter) RequestPage {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	all := []RequestView{}
	for i := range ds.Employees {
		e := &ds.Employees[i]
		if f.EmployeeID != 0 && e.ID != f.EmployeeID {
			continue
		}
		name := e.Name()
		for _, r := range e.Requests {
			if f.Type != "" && r.Type != f.Type {
				continue
			}
			if f.Status != "" && r.Status != f.Status {
				continue
			}
			if q != "" && !strings.Contains(strings.ToLower(name), q) && !strings.Contains(strings.ToLower(r.Notes), q) {
				continue
			}
			all = append(all, RequestView{Request: r, EmployeeName: name})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].StartDate.After(all[j].StartDate)
	})

	page := RequestPage{Total: len(all)}
	start := min(max(f.Offset, 0), len(all))
	end := len(all)
	if f.Limit > 0 {
		end = min(start+f.Limit, len(all))
	}
	page.Requests = all[start:end]
	return page
}

// GetRequest looks up one request by id.
func GetRequest(ds *DataSet, id int64) (RequestView, error) {
	e, _, r := ds.findRequest(id)
	if r == nil {
		return RequestView{}, requestNotFound(id)
	}
	return RequestView{Request: *r, EmployeeName: e.Name()}, nil
}

// bookedLeave returns approved/active requests passing keep, sorted by start date ascending.
func bookedLeave(ds *DataSet, keep func(Request) bool) []RequestView {
	out := []RequestView{}
	for i := range ds.Employees {
		e := &ds.Employees[i]
		for _, r := range e.Requests {
			if r.Status.AffectsBalance() && keep(r) {
				out = append(out, RequestView{Request: r, EmployeeName: e.Name()})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out
}

// Calendar returns approved/active leave overlapping the inclusive window [from, to].
func Calendar(ds *DataSet, from, to Date) []RequestView {
	return bookedLeave(ds, func(r Request) bool {
		return Overlaps(from, to, r.StartDate, r.EndDate)
	})
}

// DefaultUpcoming is how many entries the dashboard shows.
const DefaultUpcoming = 5

// Upcoming returns the next n approved/active requests starting on or after today.
func Upcoming(ds *DataSet, today Date, n int) []RequestView {
	if n <= 0 {
		n = DefaultUpcoming
	}
	out := bookedLeave(ds, func(r Request) bool {
		return r.StartDate.AfterOrEqual(today)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

package tracker

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATISTICS - Dashboard aggregates
// =============================================================================

// TypeTotals sums one leave type across all employees.
type TypeTotals struct {
	Total       int             `json:"total"`
	Used        int             `json:"used"`
	Remaining   int             `json:"remaining"`
	Utilization decimal.Decimal `json:"utilization"` // used/total, 2 places
}

type Statistics struct {
	TotalEmployees   int                      `json:"totalEmployees"`
	EmployeesOnLeave int                      `json:"employeesOnLeave"`
	PendingRequests  int                      `json:"pendingRequests"`
	ApprovedRequests int                      `json:"approvedRequests"` // approved + active
	ByType           map[LeaveType]TypeTotals `json:"byType"`
}

// ComputeStatistics aggregates the whole dataset.
func ComputeStatistics(ds *DataSet) Statistics {
	st := Statistics{
		TotalEmployees: len(ds.Employees),
		ByType:         make(map[LeaveType]TypeTotals, len(LeaveTypes)),
	}
	for i := range ds.Employees {
		e := &ds.Employees[i]
		if e.Status == EmployeeOnLeave {
			st.EmployeesOnLeave++
		}
		for _, r := range e.Requests {
			switch {
			case r.Status == StatusPending:
				st.PendingRequests++
			case r.Status.AffectsBalance():
				st.ApprovedRequests++
			}
		}
		for _, t := range LeaveTypes {
			b := e.TimeOff.Get(t)
			tt := st.ByType[t]
			tt.Total += b.Total
			tt.Used += b.Used
			tt.Remaining += b.Remaining
			st.ByType[t] = tt
		}
	}
	for t, tt := range st.ByType {
		tt.Utilization = utilization(tt.Used, tt.Total)
		st.ByType[t] = tt
	}
	return st
}

func utilization(used, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(used)).Div(decimal.NewFromInt(int64(total))).Round(2)
}

// =============================================================================
// BALANCE PREVIEW - What approval of pending requests would leave
// =============================================================================

type BalancePreviewEntry struct {
	Balance
	Pending             int `json:"pending"`
	AvailableIfApproved int `json:"availableIfApproved"`
}

// BalancePreview shows, per leave type, the days tied up in pending requests
// and what would remain if all of them were approved.
func BalancePreview(e *Employee) map[LeaveType]BalancePreviewEntry {
	pending := make(map[LeaveType]int, len(LeaveTypes))
	for _, r := range e.Requests {
		if r.Status == StatusPending {
			pending[r.Type] += r.Days
		}
	}
	out := make(map[LeaveType]BalancePreviewEntry, len(LeaveTypes))
	for _, t := range LeaveTypes {
		b := *e.TimeOff.Get(t)
		out[t] = BalancePreviewEntry{
			Balance:             b,
			Pending:             pending[t],
			AvailableIfApproved: b.Remaining - pending[t],
		}
	}
	return out
}

// =============================================================================
// USAGE HISTORY - Days taken per calendar month
// =============================================================================

type MonthlyUsage struct {
	Month    string `json:"month"` // YYYY-MM
	Vacation int    `json:"vacation"`
	Personal int    `json:"personal"`
	Sick     int    `json:"sick"`
}

// UsageHistory sums active and completed days by the month they start in,
// oldest month first.
func UsageHistory(ds *DataSet) []MonthlyUsage {
	byMonth := map[string]*MonthlyUsage{}
	for _, e := range ds.Employees {
		for _, r := range e.Requests {
			if r.Status != StatusActive && r.Status != StatusCompleted {
				continue
			}
			key := r.StartDate.Time().Format("2006-01")
			m, ok := byMonth[key]
			if !ok {
				m = &MonthlyUsage{Month: key}
				byMonth[key] = m
			}
			switch r.Type {
			case LeaveVacation:
				m.Vacation += r.Days
			case LeavePersonal:
				m.Personal += r.Days
			case LeaveSick:
				m.Sick += r.Days
			}
		}
	}
	out := make([]MonthlyUsage, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

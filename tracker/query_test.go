package tracker

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestIDs(views []RequestView) []int64 {
	ids := make([]int64, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}

// =============================================================================
// DEFAULT DATA
// =============================================================================

func TestDefaultDataSet_StartsConsistent(t *testing.T) {
	ds := DefaultDataSet()

	assert.Empty(t, VerifyLedger(ds))
	assert.Equal(t, int64(112), ds.NextID)
	assert.Len(t, ds.Employees, 6)

	alex, err := GetEmployee(ds, 1)
	require.NoError(t, err)
	assert.Equal(t, Balance{Total: 20, Used: 5, Remaining: 15}, alex.TimeOff.Vacation)

	michael, err := GetEmployee(ds, 3)
	require.NoError(t, err)
	assert.Equal(t, 11, michael.TimeOff.Vacation.Used, "active leave counts")

	david, err := GetEmployee(ds, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, david.TimeOff.Sick.Used, "completed leave does not count")
}

func TestDefaultDataSet_ReturnsFreshCopies(t *testing.T) {
	a := DefaultDataSet()
	a.Employees[0].FirstName = "Changed"

	assert.Equal(t, "Alex", DefaultDataSet().Employees[0].FirstName)
}

func TestNormalize(t *testing.T) {
	ds := &DataSet{
		Employees: []Employee{{
			ID:       3,
			Requests: []Request{{ID: 40, Type: LeaveSick, Status: StatusPending}},
		}, {
			ID: 9,
		}},
		NextID: 5,
	}

	ds.Normalize()

	assert.Equal(t, int64(41), ds.NextID)
	assert.Equal(t, int64(3), ds.Employees[0].Requests[0].EmployeeID)
	assert.NotNil(t, ds.Employees[1].Requests)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestListEmployees(t *testing.T) {
	ds := DefaultDataSet()

	all := ListEmployees(ds, EmployeeFilter{})
	names := make([]string, len(all))
	for i, e := range all {
		names[i] = e.LastName
	}
	assert.Equal(t, []string{"Chen", "Garcia", "Johnson", "Miller", "Taylor", "Wilson"}, names)

	eng := ListEmployees(ds, EmployeeFilter{District: "Engineering"})
	assert.Len(t, eng, 2)

	dev := ListEmployees(ds, EmployeeFilter{Search: "developer"})
	require.Len(t, dev, 1)
	assert.Equal(t, "Alex", dev[0].FirstName)

	onLeave := ListEmployees(ds, EmployeeFilter{Status: EmployeeOnLeave})
	require.Len(t, onLeave, 1)
	assert.Equal(t, int64(3), onLeave[0].ID)

	assert.Empty(t, ListEmployees(ds, EmployeeFilter{Search: "nobody"}))
}

func TestGetEmployee_NotFound(t *testing.T) {
	_, err := GetEmployee(DefaultDataSet(), 99)

	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestDistricts(t *testing.T) {
	assert.Equal(t,
		[]string{"engineering", "finance", "hr", "marketing", "sales"},
		Districts(DefaultDataSet()))
}

// =============================================================================
// REQUESTS
// =============================================================================

func TestListRequests_SortedAndPaged(t *testing.T) {
	ds := DefaultDataSet()

	page := ListRequests(ds, RequestFilter{})
	assert.Equal(t, 11, page.Total)
	assert.Equal(t, int64(111), page.Requests[0].ID, "latest start first")
	assert.Equal(t, int64(104), page.Requests[10].ID)

	page = ListRequests(ds, RequestFilter{Limit: 2, Offset: 1})
	assert.Equal(t, 11, page.Total)
	assert.Equal(t, []int64{110, 105}, requestIDs(page.Requests))

	page = ListRequests(ds, RequestFilter{Offset: 50})
	assert.Empty(t, page.Requests)
}

func TestListRequests_Filters(t *testing.T) {
	ds := DefaultDataSet()

	assert.Equal(t, 4, ListRequests(ds, RequestFilter{Status: StatusPending}).Total)
	assert.Equal(t, 2, ListRequests(ds, RequestFilter{EmployeeID: 6}).Total)
	assert.Equal(t, 3, ListRequests(ds, RequestFilter{Type: LeaveSick}).Total)

	flu := ListRequests(ds, RequestFilter{Search: "flu"})
	require.Len(t, flu.Requests, 1)
	assert.Equal(t, "David Wilson", flu.Requests[0].EmployeeName)
}

func TestGetRequest(t *testing.T) {
	ds := DefaultDataSet()

	v, err := GetRequest(ds, 103)
	require.NoError(t, err)
	assert.Equal(t, "Michael Chen", v.EmployeeName)
	assert.Equal(t, StatusActive, v.Status)

	_, err = GetRequest(ds, 1)
	assert.ErrorIs(t, err, ErrRequestNotFound, "employee ids are not request ids")
}

func TestCalendar_OnlyBookedLeave(t *testing.T) {
	ds := DefaultDataSet()
	d := MustParseDate

	assert.Equal(t, []int64{101}, requestIDs(Calendar(ds, d("2025-06-01"), d("2025-06-30"))))
	assert.Equal(t, []int64{103, 102}, requestIDs(Calendar(ds, d("2025-05-01"), d("2025-05-31"))))
	assert.Empty(t, Calendar(ds, d("2025-10-01"), d("2025-10-31")))
}

func TestUpcoming(t *testing.T) {
	ds := DefaultDataSet()
	today := MustParseDate("2025-05-16")

	assert.Equal(t, []int64{102, 101, 110}, requestIDs(Upcoming(ds, today, 0)))
	assert.Equal(t, []int64{102}, requestIDs(Upcoming(ds, today, 1)))
}

// =============================================================================
// STATISTICS
// =============================================================================

func TestComputeStatistics(t *testing.T) {
	st := ComputeStatistics(DefaultDataSet())

	assert.Equal(t, 6, st.TotalEmployees)
	assert.Equal(t, 1, st.EmployeesOnLeave)
	assert.Equal(t, 4, st.PendingRequests)
	assert.Equal(t, 4, st.ApprovedRequests)

	vac := st.ByType[LeaveVacation]
	assert.Equal(t, 118, vac.Total)
	assert.Equal(t, 21, vac.Used)
	assert.Equal(t, 97, vac.Remaining)
	assert.True(t, vac.Utilization.Equal(decimal.RequireFromString("0.18")), "got %s", vac.Utilization)

	assert.True(t, st.ByType[LeaveSick].Utilization.IsZero())
}

func TestComputeStatistics_Empty(t *testing.T) {
	st := ComputeStatistics(&DataSet{})

	assert.Equal(t, 0, st.TotalEmployees)
	assert.True(t, st.ByType[LeaveVacation].Utilization.IsZero(), "no division by zero")
}

func TestBalancePreview(t *testing.T) {
	ds := DefaultDataSet()
	_, alex := ds.employee(1)

	p := BalancePreview(alex)

	vac := p[LeaveVacation]
	assert.Equal(t, 15, vac.Remaining)
	assert.Equal(t, 5, vac.Pending)
	assert.Equal(t, 10, vac.AvailableIfApproved)
	assert.Equal(t, 5, p[LeavePersonal].AvailableIfApproved)
}

func TestUsageHistory(t *testing.T) {
	got := UsageHistory(DefaultDataSet())

	assert.Equal(t, []MonthlyUsage{
		{Month: "2025-04", Sick: 3},
		{Month: "2025-05", Vacation: 11, Sick: 4},
	}, got)
}

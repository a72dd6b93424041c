/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Employee CRUD and import
- Request lifecycle through the router
- Error status mapping (400/404/409/422)
- Calendar, business days, admin endpoints
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-tracker/tracker"
	"github.com/warp/leave-tracker/tracker/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) // Monday

type testServer struct {
	svc    *tracker.Service
	router http.Handler
}

func seedDataSet() *tracker.DataSet {
	return &tracker.DataSet{
		Employees: []tracker.Employee{{
			ID:        1,
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			District:  "engineering",
			Status:    tracker.EmployeeActive,
			TimeOff:   tracker.NewLedger(tracker.DefaultAllocation),
			Requests:  []tracker.Request{},
		}},
		NextID: 2,
	}
}

func newTestServer(t *testing.T, ds *tracker.DataSet) *testServer {
	t.Helper()
	mem := store.NewMemory()
	if ds != nil {
		mem = store.NewMemoryWith(ds)
	}
	svc := tracker.NewService(mem, store.NewMemoryAudit(), nil)
	svc.Now = func() time.Time { return testNow }
	h := NewHandler(svc, NewStatusScheduler(svc, nil), nil)
	return &testServer{svc: svc, router: NewRouter(h, nil)}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func vacationBody(start, end, status string) TimeOffRequest {
	return TimeOffRequest{Type: "vacation", StartDate: start, EndDate: end, Status: status}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestCreateEmployee(t *testing.T) {
	ts := newTestServer(t, seedDataSet())

	rec := ts.do(t, http.MethodPost, "/api/employees", EmployeeRequest{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     "grace@example.com",
		District:  "engineering",
		TimeOff:   &AllocationRequest{Vacation: 20, Personal: 5, Sick: 10},
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	emp := decode[tracker.Employee](t, rec)
	assert.Equal(t, int64(2), emp.ID)
	assert.Equal(t, 20, emp.TimeOff.Vacation.Remaining)
	assert.Equal(t, tracker.EmployeeActive, emp.Status)
}

func TestCreateEmployee_DuplicateEmailConflict(t *testing.T) {
	ts := newTestServer(t, seedDataSet())

	rec := ts.do(t, http.MethodPost, "/api/employees", EmployeeRequest{
		FirstName: "Ada", LastName: "Again", Email: "ADA@example.com",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateEmployee_InvalidBody(t *testing.T) {
	ts := newTestServer(t, seedDataSet())

	rec := ts.do(t, http.MethodPost, "/api/employees", EmployeeRequest{FirstName: "NoEmail", LastName: "X"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Contains(t, resp.Fields, "Email")

	rec = ts.do(t, http.MethodPost, "/api/employees", `{"firstName":"A","surname":"B"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestGetEmployee_NotFound(t *testing.T) {
	ts := newTestServer(t, seedDataSet())

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/employees/99", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/employees/abc", nil).Code)
}

func TestListEmployees_Filters(t *testing.T) {
	ts := newTestServer(t, nil) // sample data

	rec := ts.do(t, http.MethodGet, "/api/employees?district=engineering", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]tracker.Employee](t, rec), 2)

	rec = ts.do(t, http.MethodGet, "/api/employees?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteEmployee(t *testing.T) {
	ts := newTestServer(t, seedDataSet())

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/employees/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/employees/1", nil).Code)
}

func TestImportEmployees(t *testing.T) {
	// GIVEN: A tab-separated file with one new employee, one already stored
	//        and one malformed row
	// WHEN: It is imported, first as a dry run and then for real
	// THEN: The dry run writes nothing; the real run creates only the new one

	ts := newTestServer(t, seedDataSet())
	file := "First Name\tLast Name\tEmail\tDistrict\n" +
		"Grace\tHopper\tgrace@example.com\tengineering\n" +
		"Ada\tLovelace\tada@example.com\tengineering\n" +
		"Bad\tRow\tnot-an-email\tsales\n"

	rec := ts.do(t, http.MethodPost, "/api/employees/import?delimiter=tab&dryRun=true", file)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dry := decode[ImportResponse](t, rec)
	assert.Equal(t, 3, dry.Parsed.Rows)
	assert.Len(t, dry.Parsed.Errors, 1)
	assert.Nil(t, dry.Imported)

	rec = ts.do(t, http.MethodPost, "/api/employees/import", file)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ImportResponse](t, rec)
	require.NotNil(t, resp.Imported)
	assert.Len(t, resp.Imported.Created, 1)
	assert.Len(t, resp.Imported.Skipped, 1)

	rec = ts.do(t, http.MethodGet, "/api/employees", nil)
	assert.Len(t, decode[[]tracker.Employee](t, rec), 2)
}

func TestImportEmployees_MissingColumns(t *testing.T) {
	ts := newTestServer(t, seedDataSet())

	rec := ts.do(t, http.MethodPost, "/api/employees/import", "Name,Email\nAda,ada@example.com\n")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// REQUEST LIFECYCLE
// =============================================================================

func TestRequestLifecycle(t *testing.T) {
	// GIVEN: An employee with 15 vacation days
	// WHEN: A request is created, approved and then deleted over HTTP
	// THEN: The balance endpoint follows each step

	ts := newTestServer(t, seedDataSet())

	rec := ts.do(t, http.MethodPost, "/api/employees/1/requests", vacationBody("2026-03-09", "2026-03-13", ""))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[tracker.Request](t, rec)
	assert.Equal(t, 5, created.Days)
	assert.Equal(t, tracker.StatusPending, created.Status)

	rec = ts.do(t, http.MethodGet, "/api/employees/1/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	preview := decode[map[tracker.LeaveType]tracker.BalancePreviewEntry](t, rec)
	assert.Equal(t, 5, preview[tracker.LeaveVacation].Pending)
	assert.Equal(t, 10, preview[tracker.LeaveVacation].AvailableIfApproved)

	path := "/api/requests/" + itoa(created.ID)
	rec = ts.do(t, http.MethodPost, path+"/status", StatusRequest{Status: "approved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/employees/1", nil)
	emp := decode[tracker.Employee](t, rec)
	assert.Equal(t, tracker.Balance{Total: 15, Used: 5, Remaining: 10}, emp.TimeOff.Vacation)

	rec = ts.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ada Lovelace", decode[tracker.RequestView](t, rec).EmployeeName)

	require.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, path, nil).Code)
	rec = ts.do(t, http.MethodGet, "/api/employees/1", nil)
	emp = decode[tracker.Employee](t, rec)
	assert.Equal(t, 0, emp.TimeOff.Vacation.Used)
}

func TestCreateRequest_ValidationMapsTo422(t *testing.T) {
	tests := []struct {
		name string
		body TimeOffRequest
		code tracker.ValidationCode
	}{
		{"too many days", TimeOffRequest{Type: "personal", StartDate: "2026-03-09", EndDate: "2026-03-16", Days: 6}, tracker.CodeInsufficientBalance},
		{"reversed range", TimeOffRequest{Type: "vacation", StartDate: "2026-03-13", EndDate: "2026-03-09", Days: 2}, tracker.CodeInvalidDateRange},
		{"in the past", vacationBody("2026-02-23", "2026-02-24", ""), tracker.CodePastStartDate},
		{"weekend only", vacationBody("2026-03-07", "2026-03-08", ""), tracker.CodeInvalidDayCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, seedDataSet())

			rec := ts.do(t, http.MethodPost, "/api/employees/1/requests", tt.body)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			assert.Equal(t, string(tt.code), decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestCreateRequest_DateConflict(t *testing.T) {
	ts := newTestServer(t, seedDataSet())
	rec := ts.do(t, http.MethodPost, "/api/employees/1/requests", vacationBody("2026-03-09", "2026-03-13", "approved"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/employees/1/requests", vacationBody("2026-03-12", "2026-03-16", ""))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "date_conflict", decode[ErrorResponse](t, rec).Code)
}

func TestCreateRequest_BadInput(t *testing.T) {
	ts := newTestServer(t, seedDataSet())

	rec := ts.do(t, http.MethodPost, "/api/employees/1/requests", TimeOffRequest{Type: "sabbatical", StartDate: "2026-03-09", EndDate: "2026-03-10"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/employees/1/requests", TimeOffRequest{Type: "vacation", StartDate: "09/03/2026", EndDate: "2026-03-10"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/employees/42/requests", vacationBody("2026-03-09", "2026-03-10", ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetStatus_ForbiddenTransitionIsConflict(t *testing.T) {
	ts := newTestServer(t, seedDataSet())
	rec := ts.do(t, http.MethodPost, "/api/employees/1/requests", vacationBody("2026-03-09", "2026-03-13", "denied"))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[tracker.Request](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/requests/"+itoa(created.ID)+"/status", StatusRequest{Status: "approved"})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEditRequest(t *testing.T) {
	ts := newTestServer(t, seedDataSet())
	rec := ts.do(t, http.MethodPost, "/api/employees/1/requests", vacationBody("2026-03-09", "2026-03-13", "approved"))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[tracker.Request](t, rec)

	rec = ts.do(t, http.MethodPut, "/api/requests/"+itoa(created.ID), TimeOffRequest{
		Type: "sick", StartDate: "2026-03-09", EndDate: "2026-03-10", Status: "approved", Notes: "flu",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/employees/1", nil)
	emp := decode[tracker.Employee](t, rec)
	assert.Equal(t, 0, emp.TimeOff.Vacation.Used)
	assert.Equal(t, 2, emp.TimeOff.Sick.Used)
}

func TestEditRequest_OmittedStatusKeepsApproval(t *testing.T) {
	ts := newTestServer(t, seedDataSet())
	rec := ts.do(t, http.MethodPost, "/api/employees/1/requests", vacationBody("2026-03-09", "2026-03-13", "approved"))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[tracker.Request](t, rec)

	rec = ts.do(t, http.MethodPut, "/api/requests/"+itoa(created.ID), TimeOffRequest{
		Type: "vacation", StartDate: "2026-03-09", EndDate: "2026-03-13", Notes: "updated",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, tracker.StatusApproved, decode[tracker.Request](t, rec).Status)

	rec = ts.do(t, http.MethodGet, "/api/employees/1", nil)
	emp := decode[tracker.Employee](t, rec)
	assert.Equal(t, 5, emp.TimeOff.Vacation.Used)
}

func TestSetStatus_CancelApprovedReleases(t *testing.T) {
	ts := newTestServer(t, seedDataSet())
	rec := ts.do(t, http.MethodPost, "/api/employees/1/requests", vacationBody("2026-03-09", "2026-03-13", "approved"))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[tracker.Request](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/requests/"+itoa(created.ID)+"/status", StatusRequest{Status: "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/employees/1", nil)
	emp := decode[tracker.Employee](t, rec)
	assert.Equal(t, 0, emp.TimeOff.Vacation.Used)
	assert.Equal(t, emp.TimeOff.Vacation.Total, emp.TimeOff.Vacation.Remaining)
}

func TestListRequests_Paging(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/requests?status=pending&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[tracker.RequestPage](t, rec)
	assert.Equal(t, 4, page.Total)
	assert.Len(t, page.Requests, 2)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/requests?limit=-1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/requests?type=sabbatical", nil).Code)
}

// =============================================================================
// OVERVIEW
// =============================================================================

func TestCalendar(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/calendar?from=2025-05-01&to=2025-05-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]tracker.RequestView](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(103), entries[0].ID)

	rec = ts.do(t, http.MethodGet, "/api/calendar?from=2025-05-31&to=2025-05-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Defaults to the current month (March 2026): nothing booked.
	rec = ts.do(t, http.MethodGet, "/api/calendar", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]tracker.RequestView](t, rec))
}

func TestBusinessDays(t *testing.T) {
	ts := newTestServer(t, seedDataSet())

	rec := ts.do(t, http.MethodGet, "/api/business-days?start=2026-03-06&end=2026-03-09", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[BusinessDaysResponse](t, rec).Days)

	rec = ts.do(t, http.MethodGet, "/api/business-days?start=2026-03-06", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboard(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/dashboard", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[tracker.Dashboard](t, rec)
	assert.Equal(t, 6, dash.Statistics.TotalEmployees)
	assert.Equal(t, "0.18", dash.Statistics.ByType[tracker.LeaveVacation].Utilization.String())
}

func TestAudit(t *testing.T) {
	ts := newTestServer(t, seedDataSet())
	ts.do(t, http.MethodPost, "/api/employees/1/requests", vacationBody("2026-03-09", "2026-03-13", ""))
	ts.do(t, http.MethodPost, "/api/employees", EmployeeRequest{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"})

	rec := ts.do(t, http.MethodGet, "/api/audit?employee=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]tracker.AuditEntry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, tracker.AuditRequestCreated, entries[0].Action)

	rec = ts.do(t, http.MethodGet, "/api/audit?action=employee_created", nil)
	assert.Len(t, decode[[]tracker.AuditEntry](t, rec), 1)
}

// =============================================================================
// ADMIN
// =============================================================================

func TestAdmin_VerifyAndRebuild(t *testing.T) {
	ds := seedDataSet()
	ds.Employees[0].TimeOff.Sick = tracker.Balance{Total: 10, Used: 3, Remaining: 7}
	ts := newTestServer(t, ds)

	rec := ts.do(t, http.MethodGet, "/api/admin/verify", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var verify struct {
		Consistent bool       `json:"consistent"`
		Drift      []DriftDTO `json:"drift"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verify))
	assert.False(t, verify.Consistent)
	require.Len(t, verify.Drift, 1)
	assert.Equal(t, tracker.LeaveSick, verify.Drift[0].Type)

	rec = ts.do(t, http.MethodPost, "/api/admin/rebuild", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/admin/verify", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verify))
	assert.True(t, verify.Consistent)
}

func TestAdmin_ResetAndExport(t *testing.T) {
	ts := newTestServer(t, seedDataSet())

	rec := ts.do(t, http.MethodPost, "/api/admin/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/admin/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ds := decode[tracker.DataSet](t, rec)
	assert.Len(t, ds.Employees, 6)
	assert.Equal(t, int64(112), ds.NextID)
}

func TestAdmin_Advance(t *testing.T) {
	ds := seedDataSet()
	ds.Employees[0].Requests = []tracker.Request{{
		ID: 7, EmployeeID: 1, Type: tracker.LeaveVacation,
		StartDate: tracker.MustParseDate("2026-02-23"), EndDate: tracker.MustParseDate("2026-02-27"),
		Days: 5, Status: tracker.StatusApproved,
	}}
	tracker.RebuildLedger(&ds.Employees[0])
	ts := newTestServer(t, ds)

	rec := ts.do(t, http.MethodPost, "/api/admin/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Changes []StatusChangeDTO `json:"changes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Empty(t, out.Changes, "ended leave stays approved without autoComplete")

	rec = ts.do(t, http.MethodPost, "/api/admin/advance?autoComplete=true", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Changes, 1)
	assert.Equal(t, tracker.StatusCompleted, out.Changes[0].To)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/admin/advance?autoComplete=maybe", nil).Code)
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

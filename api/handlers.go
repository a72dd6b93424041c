/*
handlers.go - HTTP API handlers for the leave tracker

PURPOSE:
  Exposes the tracker service via REST API. Handles HTTP request/response,
  JSON serialization, and delegates everything else to tracker.Service.

ENDPOINTS:
  Employees:
    GET    /api/employees               List (q, district, status)
    POST   /api/employees               Create employee
    POST   /api/employees/import        Import CSV/TSV text (delimiter, dryRun)
    GET    /api/employees/{id}          Get employee
    PUT    /api/employees/{id}          Replace profile and totals
    DELETE /api/employees/{id}          Delete employee and its requests
    GET    /api/employees/{id}/balance  Balance preview with pending days
    POST   /api/employees/{id}/requests Create time-off request

  Requests:
    GET    /api/requests                List (employee, type, status, q, limit, offset)
    GET    /api/requests/{id}           Get request
    PUT    /api/requests/{id}           Edit request
    POST   /api/requests/{id}/status    Change status
    DELETE /api/requests/{id}           Delete request

  Overview:
    GET    /api/calendar                Approved/active leave in [from, to]
    GET    /api/dashboard               Statistics, upcoming leave, history
    GET    /api/business-days           Mon-Fri count for [start, end]
    GET    /api/audit                   Audit trail (employee, request, limit)

  Admin:
    POST   /api/admin/reset             Restore the sample dataset
    POST   /api/admin/rebuild           Recompute every ledger
    GET    /api/admin/verify            Report ledger drift
    POST   /api/admin/advance           Run the status scheduler once
    GET    /api/admin/export            Whole dataset as stored

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, invalid parameters
  - 404: Employee or request not found
  - 409: Duplicate email, forbidden status transition
  - 422: Validation gate failure (body carries the code)
  - 500: Internal errors

SEE ALSO:
  - dto.go: request/response types
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/warp/leave-tracker/importer"
	"github.com/warp/leave-tracker/logger"
	"github.com/warp/leave-tracker/tracker"
)

// maxImportBytes bounds the size of an import upload.
const maxImportBytes = 4 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service   *tracker.Service
	Scheduler *StatusScheduler
	log       *logger.Logger
}

// NewHandler creates a new handler around the service.
func NewHandler(svc *tracker.Service, scheduler *StatusScheduler, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{Service: svc, Scheduler: scheduler, log: log.WithComponent("api")}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns employees matching the query filters.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := tracker.EmployeeFilter{
		Search:   q.Get("q"),
		District: q.Get("district"),
		Status:   tracker.EmployeeStatus(q.Get("status")),
	}
	if f.Status != "" && !f.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status filter", nil)
		return
	}

	employees, err := h.Service.ListEmployees(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	emp, err := h.Service.GetEmployee(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

// CreateEmployee creates a new employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid startDate (use YYYY-MM-DD)", err)
		return
	}
	emp, err := h.Service.AddEmployee(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, emp)
}

// UpdateEmployee replaces an employee's profile.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req EmployeeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid startDate (use YYYY-MM-DD)", err)
		return
	}
	emp, err := h.Service.UpdateEmployee(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

// DeleteEmployee removes an employee and its requests.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.Service.DeleteEmployee(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalance returns the balance preview for an employee.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	preview, err := h.Service.BalancePreview(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// ImportEmployees parses a delimited text body and creates the valid rows.
// With dryRun=true nothing is written.
func (h *Handler) ImportEmployees(w http.ResponseWriter, r *http.Request) {
	delim, err := importer.ParseDelimiter(r.URL.Query().Get("delimiter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid delimiter", err)
		return
	}
	parsed, err := importer.Parse(http.MaxBytesReader(w, r.Body, maxImportBytes), delim)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid import file", err)
		return
	}

	resp := ImportResponse{Parsed: parsed}
	if r.URL.Query().Get("dryRun") == "true" {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	res, err := h.Service.ImportEmployees(r.Context(), parsed.Candidates)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	resp.Imported = &res
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// CreateRequest submits a time-off request for an employee.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req TimeOffRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	created, err := h.Service.CreateRequest(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListRequests returns requests across all employees.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := tracker.RequestFilter{Search: q.Get("q")}
	var err error
	if s := q.Get("type"); s != "" {
		if f.Type, err = tracker.ParseLeaveType(s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid type filter", err)
			return
		}
	}
	if s := q.Get("status"); s != "" {
		if f.Status, err = tracker.ParseRequestStatus(s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid status filter", err)
			return
		}
	}
	if f.EmployeeID, err = queryInt64(q.Get("employee")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee filter", err)
		return
	}
	limit, err := queryInt64(q.Get("limit"))
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	offset, err := queryInt64(q.Get("offset"))
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "Invalid offset", err)
		return
	}
	f.Limit, f.Offset = int(limit), int(offset)

	page, err := h.Service.ListRequests(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetRequest returns one request with its employee's name.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, err := h.Service.GetRequest(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// EditRequest replaces a request's fields.
func (h *Handler) EditRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req TimeOffRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	updated, err := h.Service.EditRequest(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// SetStatus moves a request through its lifecycle.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	updated, err := h.Service.SetStatus(r.Context(), id, tracker.RequestStatus(req.Status))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteRequest removes a request.
func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.Service.DeleteRequest(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// OVERVIEW HANDLERS
// =============================================================================

// Calendar returns booked leave overlapping [from, to]. Defaults to the
// current month.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	today := h.Service.Today()
	from := tracker.NewDate(today.Year(), today.Month(), 1)
	to := tracker.DateOf(from.Time().AddDate(0, 1, -1))

	var err error
	if s := r.URL.Query().Get("from"); s != "" {
		if from, err = tracker.ParseDate(s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date", err)
			return
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		if to, err = tracker.ParseDate(s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date", err)
			return
		}
	}
	if from.After(to) {
		writeError(w, http.StatusBadRequest, "from must not be after to", nil)
		return
	}

	entries, err := h.Service.Calendar(r.Context(), from, to)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Dashboard returns statistics and upcoming leave.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt64(r.URL.Query().Get("upcoming"))
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "Invalid upcoming count", err)
		return
	}
	dash, err := h.Service.Dashboard(r.Context(), int(n))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// BusinessDays counts weekdays in [start, end].
func (h *Handler) BusinessDays(w http.ResponseWriter, r *http.Request) {
	start, err := tracker.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date", err)
		return
	}
	end, err := tracker.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end date", err)
		return
	}
	writeJSON(w, http.StatusOK, BusinessDaysResponse{
		StartDate: start.String(),
		EndDate:   end.String(),
		Days:      tracker.BusinessDays(start, end),
	})
}

// Audit returns the audit trail, newest first.
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f tracker.AuditFilter
	var err error
	if f.EmployeeID, err = queryInt64(q.Get("employee")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee filter", err)
		return
	}
	if f.RequestID, err = queryInt64(q.Get("request")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request filter", err)
		return
	}
	limit, err := queryInt64(q.Get("limit"))
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	f.Limit = int(limit)
	for _, a := range q["action"] {
		f.Actions = append(f.Actions, tracker.AuditAction(a))
	}

	entries, err := h.Service.Audit(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// Reset restores the sample dataset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Service.Reset(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "reset",
		"employees": len(ds.Employees),
	})
}

// Rebuild recomputes every ledger from its requests.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	drifts, err := h.Service.RebuildLedgers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"repaired": toDriftDTOs(drifts)})
}

// Verify reports ledger drift without repairing it.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	drifts, err := h.Service.VerifyLedgers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"consistent": len(drifts) == 0,
		"drift":      toDriftDTOs(drifts),
	})
}

// Advance runs the status scheduler once.
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	autoComplete := false
	if h.Scheduler != nil {
		autoComplete = h.Scheduler.AutoComplete
	}
	if s := r.URL.Query().Get("autoComplete"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid autoComplete flag", err)
			return
		}
		autoComplete = v
	}
	changes, err := h.Service.AdvanceStatuses(r.Context(), autoComplete)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": toStatusChangeDTOs(changes)})
}

// Export returns the whole dataset.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Service.Snapshot(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps tracker errors to HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *tracker.ValidationError
	var ierr *tracker.InputError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   verr.Error(),
			Code:    string(verr.Code),
			Details: err.Error(),
		})
	case tracker.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case tracker.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.As(err, &ierr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid input", Fields: ierr.Fields})
	case tracker.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		h.log.WithRequestID(middleware.GetReqID(r.Context())).Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

// decodeBody decodes and validates a JSON body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := tracker.ValidateStruct(dst); err != nil {
		var ierr *tracker.InputError
		if errors.As(err, &ierr) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid input", Fields: ierr.Fields})
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid id %q", raw), nil)
		return 0, false
	}
	return id, true
}

func queryInt64(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

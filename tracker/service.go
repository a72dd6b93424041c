/*
service.go - Single-writer application state

PURPOSE:
  Owns all access to the stored dataset. Every operation runs under one
  mutex, so there is exactly one writer at a time.

MUTATION CYCLE:
  lock ──▶ store.Load ──▶ engine op on the loaded copy ──▶ store.Save ──▶ audit
                                   │
                                   └── error: copy discarded, nothing saved

  The store always hands out a fresh copy, so a failed operation cannot
  leak a half-applied change into later reads.

MISSING DATA:
  When the store has never been written, the default dataset is served
  and written on the first successful mutation.

SEE ALSO:
  - engine.go: the operations themselves
  - store.go:  DataStore and AuditLog
*/
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/leave-tracker/logger"
)

type Service struct {
	store  DataStore
	audit  AuditLog
	engine *Engine
	log    *logger.Logger

	mu sync.RWMutex

	// Now is the service clock. Tests pin it.
	Now func() time.Time
}

func NewService(store DataStore, audit AuditLog, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		store: store,
		audit: audit,
		log:   log.WithComponent("tracker"),
		Now:   time.Now,
	}
	s.engine = &Engine{Today: func() Date { return DateOf(s.Now()) }}
	return s
}

// Today is the service's current date.
func (s *Service) Today() Date { return DateOf(s.Now()) }

// =============================================================================
// LOAD / SAVE PLUMBING
// =============================================================================

func (s *Service) load(ctx context.Context) (*DataSet, error) {
	ds, found, err := s.store.Load(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load dataset")
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if !found {
		return DefaultDataSet(), nil
	}
	ds.Normalize()
	for _, d := range VerifyLedger(ds) {
		s.log.WithEmployee(d.EmployeeID).Warn().
			Str("type", string(d.Type)).
			Str("drift", d.String()).
			Msg("ledger drift detected")
	}
	return ds, nil
}

// view runs fn against a freshly loaded dataset under the read lock.
func (s *Service) view(ctx context.Context, fn func(ds *DataSet) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, err := s.load(ctx)
	if err != nil {
		return err
	}
	return fn(ds)
}

// mutate runs fn against a loaded copy and saves it only if fn succeeds.
// fn returns the audit entries describing what it did.
func (s *Service) mutate(ctx context.Context, fn func(ds *DataSet) ([]AuditEntry, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.load(ctx)
	if err != nil {
		return err
	}
	entries, err := fn(ds)
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, ds); err != nil {
		s.log.Error().Err(err).Msg("failed to save dataset")
		return fmt.Errorf("save dataset: %w", err)
	}
	s.record(ctx, entries)
	return nil
}

// record appends audit entries. The mutation is already saved, so failures
// are logged rather than returned.
func (s *Service) record(ctx context.Context, entries []AuditEntry) {
	if s.audit == nil {
		return
	}
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Timestamp.IsZero() {
			e.Timestamp = s.Now().UTC()
		}
		if err := s.audit.Append(ctx, e); err != nil {
			s.log.Error().Err(err).Str("action", string(e.Action)).Msg("failed to append audit entry")
		}
	}
}

func requestAudit(action AuditAction, r Request) AuditEntry {
	return AuditEntry{
		Action:     action,
		EmployeeID: r.EmployeeID,
		RequestID:  r.ID,
		Payload: map[string]any{
			"type":      r.Type,
			"days":      r.Days,
			"status":    r.Status,
			"startDate": r.StartDate.String(),
			"endDate":   r.EndDate.String(),
		},
	}
}

func (s *Service) logRequest(msg string, r Request) {
	s.log.Info().
		Int64("employee_id", r.EmployeeID).
		Int64("request_id", r.ID).
		Str("type", string(r.Type)).
		Int("days", r.Days).
		Str("status", string(r.Status)).
		Msg(msg)
}

// =============================================================================
// REQUEST OPERATIONS
// =============================================================================

func (s *Service) CreateRequest(ctx context.Context, employeeID int64, in RequestInput) (Request, error) {
	var out Request
	err := s.mutate(ctx, func(ds *DataSet) ([]AuditEntry, error) {
		r, err := s.engine.CreateRequest(ds, employeeID, in)
		if err != nil {
			return nil, err
		}
		out = r
		return []AuditEntry{requestAudit(AuditRequestCreated, r)}, nil
	})
	if err != nil {
		return Request{}, err
	}
	s.logRequest("request created", out)
	return out, nil
}

func (s *Service) EditRequest(ctx context.Context, requestID int64, in RequestInput) (Request, error) {
	var out Request
	err := s.mutate(ctx, func(ds *DataSet) ([]AuditEntry, error) {
		r, err := s.engine.EditRequest(ds, requestID, in)
		if err != nil {
			return nil, err
		}
		out = r
		return []AuditEntry{requestAudit(AuditRequestUpdated, r)}, nil
	})
	if err != nil {
		return Request{}, err
	}
	s.logRequest("request updated", out)
	return out, nil
}

func (s *Service) SetStatus(ctx context.Context, requestID int64, status RequestStatus) (Request, error) {
	var out Request
	err := s.mutate(ctx, func(ds *DataSet) ([]AuditEntry, error) {
		_, _, before := ds.findRequest(requestID)
		if before == nil {
			return nil, requestNotFound(requestID)
		}
		// SetStatus updates the request in place.
		from := before.Status
		r, err := s.engine.SetStatus(ds, requestID, status)
		if err != nil {
			return nil, err
		}
		out = r
		entry := requestAudit(AuditRequestStatusChanged, r)
		entry.Payload["from"] = from
		return []AuditEntry{entry}, nil
	})
	if err != nil {
		return Request{}, err
	}
	s.logRequest("request status changed", out)
	return out, nil
}

func (s *Service) DeleteRequest(ctx context.Context, requestID int64) (Request, error) {
	var out Request
	err := s.mutate(ctx, func(ds *DataSet) ([]AuditEntry, error) {
		r, err := s.engine.DeleteRequest(ds, requestID)
		if err != nil {
			return nil, err
		}
		out = r
		return []AuditEntry{requestAudit(AuditRequestDeleted, r)}, nil
	})
	if err != nil {
		return Request{}, err
	}
	s.logRequest("request deleted", out)
	return out, nil
}

// AdvanceStatuses applies automatic lifecycle moves as of today.
// Nothing is saved when no request moves.
func (s *Service) AdvanceStatuses(ctx context.Context, autoComplete bool) ([]StatusChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	changes, err := s.engine.AdvanceStatuses(ds, autoComplete)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return changes, nil
	}
	if err := s.store.Save(ctx, ds); err != nil {
		s.log.Error().Err(err).Msg("failed to save dataset")
		return nil, fmt.Errorf("save dataset: %w", err)
	}
	entries := make([]AuditEntry, 0, len(changes))
	for _, c := range changes {
		entries = append(entries, AuditEntry{
			Action:     AuditRequestStatusChanged,
			EmployeeID: c.EmployeeID,
			RequestID:  c.RequestID,
			Payload:    map[string]any{"from": c.From, "status": c.To, "automatic": true},
		})
		s.log.Info().
			Int64("employee_id", c.EmployeeID).
			Int64("request_id", c.RequestID).
			Str("from", string(c.From)).
			Str("status", string(c.To)).
			Msg("request status advanced")
	}
	s.record(ctx, entries)
	return changes, nil
}

// =============================================================================
// EMPLOYEE OPERATIONS
// =============================================================================

func (s *Service) AddEmployee(ctx context.Context, in EmployeeInput) (Employee, error) {
	var out Employee
	err := s.mutate(ctx, func(ds *DataSet) ([]AuditEntry, error) {
		e, err := s.engine.AddEmployee(ds, in)
		if err != nil {
			return nil, err
		}
		out = e
		return []AuditEntry{{Action: AuditEmployeeCreated, EmployeeID: e.ID, Payload: map[string]any{"email": e.Email}}}, nil
	})
	if err != nil {
		return Employee{}, err
	}
	s.log.Info().Int64("employee_id", out.ID).Str("email", out.Email).Msg("employee created")
	return out, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, id int64, in EmployeeInput) (Employee, error) {
	var out Employee
	err := s.mutate(ctx, func(ds *DataSet) ([]AuditEntry, error) {
		e, err := s.engine.UpdateEmployee(ds, id, in)
		if err != nil {
			return nil, err
		}
		out = e
		return []AuditEntry{{Action: AuditEmployeeUpdated, EmployeeID: e.ID, Payload: map[string]any{"email": e.Email}}}, nil
	})
	if err != nil {
		return Employee{}, err
	}
	s.log.Info().Int64("employee_id", out.ID).Msg("employee updated")
	return out, nil
}

func (s *Service) DeleteEmployee(ctx context.Context, id int64) (Employee, error) {
	var out Employee
	err := s.mutate(ctx, func(ds *DataSet) ([]AuditEntry, error) {
		e, err := s.engine.DeleteEmployee(ds, id)
		if err != nil {
			return nil, err
		}
		out = e
		return []AuditEntry{{
			Action:     AuditEmployeeDeleted,
			EmployeeID: e.ID,
			Payload:    map[string]any{"email": e.Email, "requests": len(e.Requests)},
		}}, nil
	})
	if err != nil {
		return Employee{}, err
	}
	s.log.Info().Int64("employee_id", out.ID).Int("requests", len(out.Requests)).Msg("employee deleted")
	return out, nil
}

// ImportSkip explains why an import candidate was not created.
type ImportSkip struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Created []Employee   `json:"created"`
	Skipped []ImportSkip `json:"skipped"`
}

// ImportEmployees adds every candidate whose email is not already present.
// Candidates that fail validation are skipped, not fatal.
func (s *Service) ImportEmployees(ctx context.Context, candidates []EmployeeInput) (ImportResult, error) {
	res := ImportResult{Created: []Employee{}, Skipped: []ImportSkip{}}
	err := s.mutate(ctx, func(ds *DataSet) ([]AuditEntry, error) {
		for _, in := range candidates {
			e, err := s.engine.AddEmployee(ds, in)
			if err != nil {
				res.Skipped = append(res.Skipped, ImportSkip{Email: in.Email, Reason: err.Error()})
				continue
			}
			res.Created = append(res.Created, e)
		}
		if len(res.Created) == 0 {
			return nil, nil
		}
		ids := make([]int64, len(res.Created))
		for i, e := range res.Created {
			ids[i] = e.ID
		}
		return []AuditEntry{{Action: AuditEmployeesImported, Payload: map[string]any{"employeeIds": ids, "skipped": len(res.Skipped)}}}, nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	s.log.Info().Int("created", len(res.Created)).Int("skipped", len(res.Skipped)).Msg("employees imported")
	return res, nil
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset replaces the stored data with the default dataset.
func (s *Service) Reset(ctx context.Context) (*DataSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds := DefaultDataSet()
	if err := s.store.Save(ctx, ds); err != nil {
		s.log.Error().Err(err).Msg("failed to save dataset")
		return nil, fmt.Errorf("save dataset: %w", err)
	}
	s.record(ctx, []AuditEntry{{Action: AuditDatasetReset}})
	s.log.Warn().Msg("dataset reset to defaults")
	return ds.Clone(), nil
}

// RebuildLedgers recomputes every ledger from its requests and returns the
// drift that was repaired.
func (s *Service) RebuildLedgers(ctx context.Context) ([]Drift, error) {
	var drifts []Drift
	err := s.mutate(ctx, func(ds *DataSet) ([]AuditEntry, error) {
		drifts = VerifyLedger(ds)
		for i := range ds.Employees {
			RebuildLedger(&ds.Employees[i])
		}
		return []AuditEntry{{Action: AuditLedgerRebuilt, Payload: map[string]any{"repaired": len(drifts)}}}, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("repaired", len(drifts)).Msg("ledgers rebuilt")
	return drifts, nil
}

// =============================================================================
// QUERIES
// =============================================================================

func (s *Service) Snapshot(ctx context.Context) (*DataSet, error) {
	var out *DataSet
	err := s.view(ctx, func(ds *DataSet) error {
		out = ds
		return nil
	})
	return out, err
}

func (s *Service) ListEmployees(ctx context.Context, f EmployeeFilter) ([]Employee, error) {
	var out []Employee
	err := s.view(ctx, func(ds *DataSet) error {
		out = ListEmployees(ds, f)
		return nil
	})
	return out, err
}

func (s *Service) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	var out Employee
	err := s.view(ctx, func(ds *DataSet) (err error) {
		out, err = GetEmployee(ds, id)
		return err
	})
	return out, err
}

func (s *Service) BalancePreview(ctx context.Context, id int64) (map[LeaveType]BalancePreviewEntry, error) {
	var out map[LeaveType]BalancePreviewEntry
	err := s.view(ctx, func(ds *DataSet) error {
		_, e := ds.employee(id)
		if e == nil {
			return employeeNotFound(id)
		}
		out = BalancePreview(e)
		return nil
	})
	return out, err
}

func (s *Service) ListRequests(ctx context.Context, f RequestFilter) (RequestPage, error) {
	var out RequestPage
	err := s.view(ctx, func(ds *DataSet) error {
		out = ListRequests(ds, f)
		return nil
	})
	return out, err
}

func (s *Service) GetRequest(ctx context.Context, id int64) (RequestView, error) {
	var out RequestView
	err := s.view(ctx, func(ds *DataSet) (err error) {
		out, err = GetRequest(ds, id)
		return err
	})
	return out, err
}

func (s *Service) Calendar(ctx context.Context, from, to Date) ([]RequestView, error) {
	var out []RequestView
	err := s.view(ctx, func(ds *DataSet) error {
		out = Calendar(ds, from, to)
		return nil
	})
	return out, err
}

// Dashboard is everything the overview screen shows.
type Dashboard struct {
	Statistics Statistics     `json:"statistics"`
	Upcoming   []RequestView  `json:"upcoming"`
	History    []MonthlyUsage `json:"history"`
	Districts  []string       `json:"districts"`
}

func (s *Service) Dashboard(ctx context.Context, upcoming int) (Dashboard, error) {
	var out Dashboard
	today := s.Today()
	err := s.view(ctx, func(ds *DataSet) error {
		out = Dashboard{
			Statistics: ComputeStatistics(ds),
			Upcoming:   Upcoming(ds, today, upcoming),
			History:    UsageHistory(ds),
			Districts:  Districts(ds),
		}
		return nil
	})
	return out, err
}

// VerifyLedgers reports drift without repairing it.
func (s *Service) VerifyLedgers(ctx context.Context) ([]Drift, error) {
	var out []Drift
	err := s.view(ctx, func(ds *DataSet) error {
		out = VerifyLedger(ds)
		return nil
	})
	return out, err
}

func (s *Service) Audit(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	if s.audit == nil {
		return []AuditEntry{}, nil
	}
	return s.audit.Query(ctx, f)
}

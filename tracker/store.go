/*
store.go - Persistence interfaces

PURPOSE:
  The whole dataset is stored as one document under one key. There are no
  per-row writes: the service loads, mutates a copy and saves it back.

KEY INTERFACES:
  DataStore: whole-document load/save
  AuditLog:  append-only record of every successful mutation

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go:  SQLite key-value table + audit table
  - tracker/store/memory.go: In-memory for testing and dev

SEE ALSO:
  - service.go: the only caller
*/
package tracker

import (
	"context"
	"time"
)

// =============================================================================
// DATA STORE
// =============================================================================

// DataStore persists the whole DataSet.
type DataStore interface {
	// Load returns the stored dataset. found is false when nothing has been
	// saved yet; the caller substitutes the default dataset.
	Load(ctx context.Context) (ds *DataSet, found bool, err error)

	// Save replaces the stored dataset.
	Save(ctx context.Context, ds *DataSet) error
}

// =============================================================================
// AUDIT LOG - Append-only
// =============================================================================

type AuditAction string

const (
	AuditRequestCreated       AuditAction = "request_created"
	AuditRequestUpdated       AuditAction = "request_updated"
	AuditRequestStatusChanged AuditAction = "request_status_changed"
	AuditRequestDeleted       AuditAction = "request_deleted"
	AuditEmployeeCreated      AuditAction = "employee_created"
	AuditEmployeeUpdated      AuditAction = "employee_updated"
	AuditEmployeeDeleted      AuditAction = "employee_deleted"
	AuditEmployeesImported    AuditAction = "employees_imported"
	AuditDatasetReset         AuditAction = "dataset_reset"
	AuditLedgerRebuilt        AuditAction = "ledger_rebuilt"
)

// AuditEntry records one successful mutation.
type AuditEntry struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Action     AuditAction    `json:"action"`
	EmployeeID int64          `json:"employeeId,omitempty"`
	RequestID  int64          `json:"requestId,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type AuditFilter struct {
	EmployeeID int64
	RequestID  int64
	Actions    []AuditAction
	Limit      int // 0 = all
}

// Matches reports whether e passes the filter. Limit is applied by the caller.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.EmployeeID != 0 && e.EmployeeID != f.EmployeeID {
		return false
	}
	if f.RequestID != 0 && e.RequestID != f.RequestID {
		return false
	}
	if len(f.Actions) > 0 {
		for _, a := range f.Actions {
			if a == e.Action {
				return true
			}
		}
		return false
	}
	return true
}

// AuditLog stores audit entries. Query returns newest first.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

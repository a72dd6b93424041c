package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-tracker/tracker"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "test.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// =============================================================================
// DATA STORE
// =============================================================================

func TestStore_LoadBeforeSave(t *testing.T) {
	st := newTestStore(t)

	ds, found, err := st.Load(context.Background())

	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, ds)
}

func TestStore_RoundTrip(t *testing.T) {
	// GIVEN: The default dataset
	// WHEN: It is saved and loaded back
	// THEN: The loaded document is identical

	ctx := context.Background()
	st := newTestStore(t)
	want := tracker.DefaultDataSet()

	require.NoError(t, st.Save(ctx, want))
	got, found, err := st.Load(ctx)

	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	ds := tracker.DefaultDataSet()
	require.NoError(t, st.Save(ctx, ds))
	ds.Employees = ds.Employees[:1]
	require.NoError(t, st.Save(ctx, ds))

	got, _, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Employees, 1)
}

func TestStore_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")

	a, err := New(path, "a")
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Save(ctx, tracker.DefaultDataSet()))

	b, err := New(path, "b")
	require.NoError(t, err)
	defer b.Close()
	_, found, err := b.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func TestStore_AuditQuery(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	entries := []tracker.AuditEntry{
		{ID: "a", Timestamp: ts, Action: tracker.AuditEmployeeCreated, EmployeeID: 1},
		{ID: "b", Timestamp: ts.Add(time.Second), Action: tracker.AuditRequestCreated, EmployeeID: 1, RequestID: 10,
			Payload: map[string]any{"days": 5, "type": "vacation"}},
		{ID: "c", Timestamp: ts.Add(2 * time.Second), Action: tracker.AuditRequestStatusChanged, EmployeeID: 1, RequestID: 10},
		{ID: "d", Timestamp: ts.Add(3 * time.Second), Action: tracker.AuditRequestCreated, EmployeeID: 2, RequestID: 11},
	}
	for _, e := range entries {
		require.NoError(t, st.Append(ctx, e))
	}

	all, err := st.Query(ctx, tracker.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "d", all[0].ID, "newest first")
	assert.Equal(t, ts, all[3].Timestamp)

	byRequest, err := st.Query(ctx, tracker.AuditFilter{RequestID: 10})
	require.NoError(t, err)
	require.Len(t, byRequest, 2)
	assert.Equal(t, "c", byRequest[0].ID)
	assert.Equal(t, float64(5), byRequest[1].Payload["days"])

	byAction, err := st.Query(ctx, tracker.AuditFilter{Actions: []tracker.AuditAction{tracker.AuditRequestCreated, tracker.AuditEmployeeCreated}})
	require.NoError(t, err)
	assert.Len(t, byAction, 3)

	limited, err := st.Query(ctx, tracker.AuditFilter{EmployeeID: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "c", limited[0].ID)
}

func TestStore_AuditIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	e := tracker.AuditEntry{ID: "same", Timestamp: time.Now(), Action: tracker.AuditDatasetReset}

	require.NoError(t, st.Append(ctx, e))
	assert.Error(t, st.Append(ctx, e))
}

// =============================================================================
// SERVICE INTEGRATION
// =============================================================================

func TestStore_BacksService(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := tracker.NewService(st, st, nil)
	svc.Now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }

	emp, err := svc.AddEmployee(ctx, tracker.EmployeeInput{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"})
	require.NoError(t, err)
	_, err = svc.CreateRequest(ctx, emp.ID, tracker.RequestInput{
		Type:      tracker.LeaveSick,
		StartDate: tracker.MustParseDate("2026-03-02"),
		EndDate:   tracker.MustParseDate("2026-03-03"),
		Status:    tracker.StatusApproved,
	})
	require.NoError(t, err)

	got, found, err := st.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, got.Employees, 7, "defaults plus the new employee")
	assert.Empty(t, tracker.VerifyLedger(got))

	audit, err := svc.Audit(ctx, tracker.AuditFilter{EmployeeID: emp.ID})
	require.NoError(t, err)
	assert.Len(t, audit, 2)
}

// Package store provides in-memory DataStore and AuditLog implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/leave-tracker/tracker"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps one dataset. Load and Save copy, so callers never share
// slices with the stored value.
type Memory struct {
	mu    sync.RWMutex
	data  *tracker.DataSet
	saves int
}

func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryWith starts with ds already stored.
func NewMemoryWith(ds *tracker.DataSet) *Memory {
	return &Memory{data: ds.Clone()}
}

func (m *Memory) Load(_ context.Context) (*tracker.DataSet, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.data == nil {
		return nil, false, nil
	}
	return m.data.Clone(), true, nil
}

func (m *Memory) Save(_ context.Context, ds *tracker.DataSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = ds.Clone()
	m.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// =============================================================================
// MEMORY AUDIT LOG - Append-only
// =============================================================================

type MemoryAudit struct {
	mu      sync.RWMutex
	entries []tracker.AuditEntry
}

func NewMemoryAudit() *MemoryAudit {
	return &MemoryAudit{}
}

func (a *MemoryAudit) Append(_ context.Context, entry tracker.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

// Query returns matching entries, newest first.
func (a *MemoryAudit) Query(_ context.Context, f tracker.AuditFilter) ([]tracker.AuditEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := []tracker.AuditEntry{}
	for i := len(a.entries) - 1; i >= 0; i-- {
		if f.Matches(a.entries[i]) {
			out = append(out, a.entries[i])
			if f.Limit > 0 && len(out) == f.Limit {
				break
			}
		}
	}
	return out, nil
}

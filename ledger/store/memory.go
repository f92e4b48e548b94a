// Package store provides in-memory ledger.Store and ledger.AuditLog
// implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/budget-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps budgets and audit entries in maps guarded by one RWMutex.
// Budgets are deep-copied on the way in and out, so callers can never
// alias stored slices.
type Memory struct {
	mu      sync.RWMutex
	budgets map[ledger.BudgetID]ledger.Budget
	audit   []ledger.AuditEntry
}

func NewMemory() *Memory {
	return &Memory{
		budgets: make(map[ledger.BudgetID]ledger.Budget),
	}
}

var (
	_ ledger.Store    = (*Memory)(nil)
	_ ledger.AuditLog = (*Memory)(nil)
)

func (m *Memory) Create(_ context.Context, b ledger.Budget) (ledger.Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.budgets[b.ID]; exists {
		return ledger.Budget{}, ledger.ErrBudgetExists
	}
	b = b.Clone()
	b.Version = 1
	m.budgets[b.ID] = b
	return b.Clone(), nil
}

func (m *Memory) Get(_ context.Context, id ledger.BudgetID) (ledger.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.budgets[id]
	if !ok {
		return ledger.Budget{}, ledger.ErrBudgetNotFound
	}
	return b.Clone(), nil
}

func (m *Memory) List(_ context.Context) ([]ledger.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.Budget, 0, len(m.budgets))
	for _, b := range m.budgets {
		result = append(result, b.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Save is a compare-and-swap on Version.
func (m *Memory) Save(_ context.Context, b ledger.Budget, expectedVersion int64) (ledger.Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.budgets[b.ID]
	if !ok {
		return ledger.Budget{}, ledger.ErrBudgetNotFound
	}
	if current.Version != expectedVersion {
		return ledger.Budget{}, ledger.ErrConcurrentModification
	}
	b = b.Clone()
	b.Version = expectedVersion + 1
	m.budgets[b.ID] = b
	return b.Clone(), nil
}

func (m *Memory) Delete(_ context.Context, id ledger.BudgetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.budgets[id]; !ok {
		return ledger.ErrBudgetNotFound
	}
	delete(m.budgets, id)
	return nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

// AppendAudit adds an entry. Append-only.
func (m *Memory) AppendAudit(_ context.Context, entry ledger.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.Detail != nil {
		detail := make(map[string]string, len(entry.Detail))
		for k, v := range entry.Detail {
			detail[k] = v
		}
		entry.Detail = detail
	}
	m.audit = append(m.audit, entry)
	return nil
}

// QueryAudit returns matching entries, newest first.
func (m *Memory) QueryAudit(_ context.Context, filter ledger.AuditFilter) ([]ledger.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []ledger.AuditEntry{}
	for i := len(m.audit) - 1; i >= 0; i-- {
		if !filter.Matches(m.audit[i]) {
			continue
		}
		result = append(result, m.audit[i])
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

/*
store.go - Persistence interfaces for budgets and their audit trail

PURPOSE:
  Every operation reads the whole Budget and writes a whole replacement,
  so the Store persists aggregates, not rows. Concurrent writers are
  serialized with optimistic locking on Budget.Version:

    b, _ := store.Get(ctx, id)            // b.Version == 7
    next := ledger.AddCategory(b, in)     // pure, no I/O
    store.Save(ctx, next.Budget, 7)       // ok -> version 8
    store.Save(ctx, other, 7)             // ErrConcurrentModification

AUDIT LOG:
  Append-only, like the budget history it describes. No Update, no Delete.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory, for tests and dev
  - store/sqlite/sqlite.go: SQLite with embedded migrations
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// STORE
// =============================================================================

// Store persists Budget aggregates.
type Store interface {
	// Create persists a new budget with Version 1 and returns it.
	// Fails with ErrBudgetExists if the ID is taken.
	Create(ctx context.Context, b Budget) (Budget, error)

	// Get returns the budget or ErrBudgetNotFound.
	Get(ctx context.Context, id BudgetID) (Budget, error)

	// List returns all budgets ordered by name.
	List(ctx context.Context) ([]Budget, error)

	// Save replaces the budget if its stored version equals expectedVersion
	// and returns it with the bumped version. Otherwise it returns
	// ErrConcurrentModification (or ErrBudgetNotFound).
	Save(ctx context.Context, b Budget, expectedVersion int64) (Budget, error)

	// Delete removes the budget and everything it owns.
	Delete(ctx context.Context, id BudgetID) error
}

// =============================================================================
// AUDIT LOG
// =============================================================================

type AuditAction string

const (
	AuditBudgetCreated   AuditAction = "budget_created"
	AuditBudgetDeleted   AuditAction = "budget_deleted"
	AuditCategoryAdded   AuditAction = "category_added"
	AuditCategoryDeleted AuditAction = "category_deleted"
	AuditExpenseAdded    AuditAction = "expense_added"
	AuditExpenseDeleted  AuditAction = "expense_deleted"
	AuditExpenseApproved AuditAction = "expense_approved"
	AuditExpenseRejected AuditAction = "expense_rejected"
)

// AuditEntry records who did what to which budget, and when.
type AuditEntry struct {
	ID       string
	BudgetID BudgetID
	ActorID  string
	Action   AuditAction
	TargetID string // category or expense ID; empty for budget-level actions
	At       time.Time
	Detail   map[string]string
}

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// AuditFilter narrows QueryAudit. Nil/empty fields match all.
type AuditFilter struct {
	BudgetID *BudgetID
	ActorID  *string
	Actions  []AuditAction
	From     *time.Time
	To       *time.Time
	Limit    int
}

// Matches reports whether e passes the filter (Limit is not considered).
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.BudgetID != nil && e.BudgetID != *f.BudgetID {
		return false
	}
	if f.ActorID != nil && e.ActorID != *f.ActorID {
		return false
	}
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if a == e.Action {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && e.At.Before(*f.From) {
		return false
	}
	if f.To != nil && e.At.After(*f.To) {
		return false
	}
	return true
}

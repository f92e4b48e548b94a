package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-ledger/ledger"
)

func budget(id, name string) ledger.Budget {
	return ledger.Budget{
		ID:          ledger.BudgetID(id),
		Name:        name,
		TotalBudget: ledger.MoneyFromInt(100),
		Categories:  []ledger.BudgetCategory{{ID: "c", Name: "C", Allocation: ledger.MoneyFromInt(10)}},
		Expenses:    []ledger.Expense{},
		Currency:    "USD",
	}
}

func TestMemory_CreateGetList(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	created, err := m.Create(ctx, budget("b2", "Zebra"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)
	_, err = m.Create(ctx, budget("b1", "Alpha"))
	require.NoError(t, err)

	_, err = m.Create(ctx, budget("b1", "Again"))
	assert.ErrorIs(t, err, ledger.ErrBudgetExists)

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alpha", list[0].Name)
	assert.Equal(t, "Zebra", list[1].Name)

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrBudgetNotFound)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.Create(ctx, budget("b", "B"))
	require.NoError(t, err)

	got, _ := m.Get(ctx, "b")
	got.Categories[0].Name = "mutated"

	again, _ := m.Get(ctx, "b")
	assert.Equal(t, "C", again.Categories[0].Name)
}

func TestMemory_SaveCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	b, err := m.Create(ctx, budget("b", "B"))
	require.NoError(t, err)

	b.Name = "Renamed"
	saved, err := m.Save(ctx, b, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)

	// A writer still holding version 1 loses.
	_, err = m.Save(ctx, b, 1)
	assert.ErrorIs(t, err, ledger.ErrConcurrentModification)

	_, err = m.Save(ctx, budget("ghost", "G"), 1)
	assert.ErrorIs(t, err, ledger.ErrBudgetNotFound)
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.Create(ctx, budget("b", "B"))
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, "b"))
	assert.ErrorIs(t, m.Delete(ctx, "b"), ledger.ErrBudgetNotFound)
}

func TestMemory_AuditQuery(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	entries := []ledger.AuditEntry{
		{ID: "1", BudgetID: "a", ActorID: "alice", Action: ledger.AuditBudgetCreated, At: t0},
		{ID: "2", BudgetID: "a", ActorID: "bob", Action: ledger.AuditExpenseAdded, At: t0.Add(time.Hour)},
		{ID: "3", BudgetID: "b", ActorID: "alice", Action: ledger.AuditExpenseAdded, At: t0.Add(2 * time.Hour)},
		{ID: "4", BudgetID: "a", ActorID: "alice", Action: ledger.AuditExpenseApproved, At: t0.Add(3 * time.Hour)},
	}
	for _, e := range entries {
		require.NoError(t, m.AppendAudit(ctx, e))
	}

	ids := func(es []ledger.AuditEntry) []string {
		out := []string{}
		for _, e := range es {
			out = append(out, e.ID)
		}
		return out
	}
	budgetA := ledger.BudgetID("a")
	alice := "alice"
	from := t0.Add(30 * time.Minute)

	tests := []struct {
		name   string
		filter ledger.AuditFilter
		want   []string
	}{
		{"all newest first", ledger.AuditFilter{}, []string{"4", "3", "2", "1"}},
		{"by budget", ledger.AuditFilter{BudgetID: &budgetA}, []string{"4", "2", "1"}},
		{"by actor", ledger.AuditFilter{ActorID: &alice}, []string{"4", "3", "1"}},
		{"by action", ledger.AuditFilter{Actions: []ledger.AuditAction{ledger.AuditExpenseAdded}}, []string{"3", "2"}},
		{"from", ledger.AuditFilter{From: &from}, []string{"4", "3", "2"}},
		{"limit", ledger.AuditFilter{BudgetID: &budgetA, Limit: 2}, []string{"4", "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.QueryAudit(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-ledger/ledger"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "budgets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var day = time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC)

// sampleBudget is built through the ledger so it is consistent.
func sampleBudget(t *testing.T) ledger.Budget {
	t.Helper()
	l := ledger.NewLedger()
	l.Now = func() time.Time { return day.Add(10 * time.Hour) }

	b, err := l.NewBudget(ledger.BudgetInput{ID: "film", Name: "Night Ferry", Total: ledger.NewMoney(1000.25)})
	require.NoError(t, err)
	steps := []func(ledger.Budget) ledger.Result{
		func(b ledger.Budget) ledger.Result {
			return l.AddCategory(b, ledger.CategoryInput{ID: "zeta", Name: "Zeta", Allocation: ledger.NewMoney(300.10), Notes: "first"})
		},
		func(b ledger.Budget) ledger.Result {
			return l.AddCategory(b, ledger.CategoryInput{ID: "alpha", Name: "Alpha", Allocation: ledger.MoneyFromInt(50)})
		},
		func(b ledger.Budget) ledger.Result {
			return l.AddExpense(b, ledger.ExpenseInput{ID: "e2", CategoryID: "zeta", Description: "Dolly", Amount: ledger.NewMoney(99.99), Date: day}, "alice")
		},
		func(b ledger.Budget) ledger.Result {
			return l.AddExpense(b, ledger.ExpenseInput{ID: "e1", CategoryID: "alpha", Description: "Gaffer tape", Amount: ledger.MoneyFromInt(80), Date: day, Notes: "rush"}, "bob")
		},
		func(b ledger.Budget) ledger.Result { return l.ApproveExpense(b, "e2", "manager") },
	}
	for _, step := range steps {
		res := step(b)
		require.NoError(t, res.Err())
		b = res.Budget
	}
	return b
}

func assertSameBudget(t *testing.T, want, got ledger.Budget) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Currency, got.Currency)
	assert.True(t, want.TotalBudget.Equal(got.TotalBudget))
	assert.True(t, want.AllocatedBudget.Equal(got.AllocatedBudget))
	assert.True(t, want.RemainingBudget.Equal(got.RemainingBudget))
	assert.True(t, want.LastUpdated.Equal(got.LastUpdated))

	require.Len(t, got.Categories, len(want.Categories))
	for i, c := range want.Categories {
		g := got.Categories[i]
		assert.Equal(t, c.ID, g.ID, "category order")
		assert.Equal(t, c.Name, g.Name)
		assert.Equal(t, c.Notes, g.Notes)
		assert.True(t, c.Allocation.Equal(g.Allocation))
		assert.True(t, c.Spent.Equal(g.Spent))
		assert.True(t, c.Remaining.Equal(g.Remaining))
	}
	require.Len(t, got.Expenses, len(want.Expenses))
	for i, e := range want.Expenses {
		g := got.Expenses[i]
		assert.Equal(t, e.ID, g.ID, "expense order")
		assert.Equal(t, e.CategoryID, g.CategoryID)
		assert.Equal(t, e.Description, g.Description)
		assert.Equal(t, e.Status, g.Status)
		assert.Equal(t, e.SubmittedBy, g.SubmittedBy)
		assert.Equal(t, e.ApprovedBy, g.ApprovedBy)
		assert.Equal(t, e.Notes, g.Notes)
		assert.True(t, e.Amount.Equal(g.Amount))
		assert.True(t, e.Date.Equal(g.Date))
	}
}

// =============================================================================
// BUDGET STORE
// =============================================================================

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	b := sampleBudget(t)

	created, err := s.Create(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)

	got, err := s.Get(ctx, "film")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assertSameBudget(t, b, got)
	assert.NoError(t, ledger.CheckInvariants(got))
}

func TestStore_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Create(ctx, sampleBudget(t))
	require.NoError(t, err)

	_, err = s.Create(ctx, sampleBudget(t))

	assert.ErrorIs(t, err, ledger.ErrBudgetExists)
}

func TestStore_GetMissing(t *testing.T) {
	_, err := newTestStore(t).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ledger.ErrBudgetNotFound)
}

func TestStore_SaveCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	b, err := s.Create(ctx, sampleBudget(t))
	require.NoError(t, err)

	// GIVEN: the expense e1 is deleted through the ledger
	l := ledger.NewLedger()
	res := l.DeleteExpense(b, "e1")
	require.NoError(t, res.Err())

	// WHEN: saved against the version it was computed from
	saved, err := s.Save(ctx, res.Budget, b.Version)

	// THEN: the version is bumped and children are replaced
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)
	got, err := s.Get(ctx, "film")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assertSameBudget(t, res.Budget, got)
	assert.Len(t, got.Expenses, 1)

	// A writer still holding version 1 loses and changes nothing.
	stale := l.DeleteCategory(b, "zeta")
	_, err = s.Save(ctx, stale.Budget, b.Version)
	assert.ErrorIs(t, err, ledger.ErrConcurrentModification)
	got, _ = s.Get(ctx, "film")
	assert.Len(t, got.Categories, 2)

	ghost := res.Budget
	ghost.ID = "ghost"
	_, err = s.Save(ctx, ghost, 1)
	assert.ErrorIs(t, err, ledger.ErrBudgetNotFound)
}

func TestStore_ListOrderedByName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, in := range []ledger.BudgetInput{
		{ID: "b1", Name: "Zebra"},
		{ID: "b2", Name: "Alpha"},
		{ID: "b3", Name: "Mango"},
	} {
		b, err := ledger.NewLedger().NewBudget(in)
		require.NoError(t, err)
		_, err = s.Create(ctx, b)
		require.NoError(t, err)
	}

	list, err := s.List(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(list))
	for _, b := range list {
		names = append(names, b.Name)
		assert.NotNil(t, b.Categories)
		assert.NotNil(t, b.Expenses)
	}
	assert.Equal(t, []string{"Alpha", "Mango", "Zebra"}, names)
}

func TestStore_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Create(ctx, sampleBudget(t))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "film"))

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses`).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n))
	assert.Zero(t, n)
	assert.ErrorIs(t, s.Delete(ctx, "film"), ledger.ErrBudgetNotFound)

	// The same ID can be reused afterwards.
	_, err = s.Create(ctx, sampleBudget(t))
	assert.NoError(t, err)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "budgets.db")
	s, err := New(path)
	require.NoError(t, err)
	_, err = s.Create(ctx, sampleBudget(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Migrations are a no-op the second time.
	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "film")
	require.NoError(t, err)
	assertSameBudget(t, sampleBudget(t), got)
	assert.NoError(t, s.Ping(ctx))
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func TestNew_CreatesMissingDirectories(t *testing.T) {
	// GIVEN: a path whose parent directories do not exist yet
	path := filepath.Join(t.TempDir(), "data", "nested", "budgets.db")

	// WHEN: the store is opened
	s, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	// THEN: the database file is created and usable
	assert.FileExists(t, path)
	_, err = s.Create(context.Background(), sampleBudget(t))
	assert.NoError(t, err)
}

func TestStore_Audit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	t0 := day
	entries := []ledger.AuditEntry{
		{ID: "a1", BudgetID: "film", ActorID: "alice", Action: ledger.AuditBudgetCreated, At: t0,
			Detail: map[string]string{"name": "Night Ferry"}},
		{ID: "a2", BudgetID: "film", ActorID: "bob", Action: ledger.AuditExpenseAdded, TargetID: "e1", At: t0.Add(time.Hour)},
		{ID: "a3", BudgetID: "doc", ActorID: "alice", Action: ledger.AuditExpenseAdded, TargetID: "e9", At: t0.Add(2 * time.Hour)},
		{ID: "a4", BudgetID: "film", ActorID: "alice", Action: ledger.AuditExpenseApproved, TargetID: "e1", At: t0.Add(3 * time.Hour)},
	}
	for _, e := range entries {
		require.NoError(t, s.AppendAudit(ctx, e))
	}

	all, err := s.QueryAudit(ctx, ledger.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "a4", all[0].ID)
	last := all[3]
	assert.Equal(t, "Night Ferry", last.Detail["name"])
	assert.Empty(t, last.TargetID)
	assert.True(t, t0.Equal(last.At))

	film := ledger.BudgetID("film")
	alice := "alice"
	from := t0.Add(30 * time.Minute)
	to := t0.Add(2 * time.Hour)

	tests := []struct {
		name   string
		filter ledger.AuditFilter
		want   []string
	}{
		{"by budget", ledger.AuditFilter{BudgetID: &film}, []string{"a4", "a2", "a1"}},
		{"by budget and actor", ledger.AuditFilter{BudgetID: &film, ActorID: &alice}, []string{"a4", "a1"}},
		{"by actions", ledger.AuditFilter{Actions: []ledger.AuditAction{ledger.AuditExpenseAdded, ledger.AuditExpenseApproved}}, []string{"a4", "a3", "a2"}},
		{"time window", ledger.AuditFilter{From: &from, To: &to}, []string{"a3", "a2"}},
		{"limit", ledger.AuditFilter{BudgetID: &film, Limit: 1}, []string{"a4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.QueryAudit(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStore_AuditSurvivesBudgetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Create(ctx, sampleBudget(t))
	require.NoError(t, err)
	require.NoError(t, s.AppendAudit(ctx, ledger.AuditEntry{
		ID: "x", BudgetID: "film", ActorID: "alice", Action: ledger.AuditBudgetCreated, At: day,
	}))

	require.NoError(t, s.Delete(ctx, "film"))

	film := ledger.BudgetID("film")
	got, err := s.QueryAudit(ctx, ledger.AuditFilter{BudgetID: &film})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// Works through the service end to end, including retries and audit.
func TestStore_WithService(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := ledger.NewService(s, s, nil)

	b, err := svc.CreateBudget(ctx, ledger.BudgetInput{ID: "doc", Name: "Doc", Total: ledger.MoneyFromInt(500)}, "producer")
	require.NoError(t, err)
	_, err = svc.AddCategory(ctx, b.ID, ledger.CategoryInput{ID: "crew", Name: "Crew", Allocation: ledger.MoneyFromInt(200)}, "producer")
	require.NoError(t, err)
	b, err = svc.AddExpense(ctx, b.ID, ledger.ExpenseInput{ID: "e", CategoryID: "crew", Description: "Sound", Amount: ledger.MoneyFromInt(120), Date: day}, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), b.Version)

	_, err = svc.DeleteCategory(ctx, b.ID, "crew", "producer")
	assert.ErrorIs(t, err, ledger.ErrDependentExpenses)

	trail, err := svc.AuditTrail(ctx, b.ID, 10)
	require.NoError(t, err)
	assert.Len(t, trail, 3)
}

package ledger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-ledger/ledger"
)

// consistentBudget has two categories and three expenses, one rejected.
func consistentBudget(t *testing.T) ledger.Budget {
	t.Helper()
	l := newTestLedger()
	b := newBudget(t, l, 1000)
	b = addCategory(t, l, b, "cast", 400)
	b = addCategory(t, l, b, "gear", 100)
	b = addExpense(t, l, b, "e1", "cast", 150)
	b = addExpense(t, l, b, "e2", "gear", 130)
	b = addExpense(t, l, b, "e3", "gear", 20)
	return mustOK(t, l.RejectExpense(b, "e3", "manager"))
}

func rules(err error) []string {
	var out []string
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			var ie *ledger.InvariantError
			if errors.As(e, &ie) {
				out = append(out, ie.Rule)
			}
		}
	}
	return out
}

func TestCheckInvariants_ConsistentBudget(t *testing.T) {
	assert.NoError(t, ledger.CheckInvariants(consistentBudget(t)))
}

func TestCheckInvariants_DetectsCorruption(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(*ledger.Budget)
		rule    string
	}{
		{
			name:    "category remaining drift",
			corrupt: func(b *ledger.Budget) { b.Categories[0].Remaining = m(1) },
			rule:    "category_remaining",
		},
		{
			name:    "allocated sum drift",
			corrupt: func(b *ledger.Budget) { b.AllocatedBudget = m(9999) },
			rule:    "allocation_sum",
		},
		{
			name: "spent does not match expenses",
			corrupt: func(b *ledger.Budget) {
				b.Categories[1].Spent = m(0)
				b.Categories[1].Remaining = b.Categories[1].Allocation
			},
			rule: "category_spent",
		},
		{
			name:    "duplicate expense id",
			corrupt: func(b *ledger.Budget) { b.Expenses[2].ID = b.Expenses[0].ID },
			rule:    "unique_ids",
		},
		{
			name:    "dangling category reference",
			corrupt: func(b *ledger.Budget) { b.Expenses[2].CategoryID = "ghost" },
			rule:    "expense_category",
		},
		{
			name:    "non-positive amount",
			corrupt: func(b *ledger.Budget) { b.Expenses[2].Amount = m(0) },
			rule:    "expense_amount",
		},
		{
			name:    "unknown status",
			corrupt: func(b *ledger.Budget) { b.Expenses[2].Status = "paid" },
			rule:    "expense_status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := consistentBudget(t).Clone()
			tt.corrupt(&b)

			err := ledger.CheckInvariants(b)

			require.Error(t, err)
			assert.Contains(t, rules(err), tt.rule)
		})
	}
}

func TestCheckInvariants_ReportsEveryViolation(t *testing.T) {
	b := consistentBudget(t).Clone()
	b.AllocatedBudget = m(1)
	b.Expenses[0].Status = "lost"

	got := rules(ledger.CheckInvariants(b))

	assert.Contains(t, got, "allocation_sum")
	assert.Contains(t, got, "expense_status")
}

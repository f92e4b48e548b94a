package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// StatusTotal is the count and amount of expenses in one status.
type StatusTotal struct {
	Count  int
	Amount Money
}

// CategoryUsage is one category's spend relative to its allocation.
type CategoryUsage struct {
	ID          CategoryID
	Name        string
	Allocation  Money
	Spent       Money
	Remaining   Money
	PercentUsed decimal.Decimal // 0 when the allocation is zero
	OverBudget  bool
}

// Summary holds the derived figures the budget dashboard shows.
type Summary struct {
	BudgetID        BudgetID
	Currency        string
	TotalBudget     Money
	AllocatedBudget Money
	Unallocated     Money // TotalBudget - AllocatedBudget
	RemainingBudget Money
	TotalSpent      Money
	ByStatus        map[ExpenseStatus]StatusTotal
	Categories      []CategoryUsage
	OverBudget      []CategoryID
}

var hundred = decimal.NewFromInt(100)

// Summarize computes dashboard statistics for b.
func Summarize(b Budget) Summary {
	s := Summary{
		BudgetID:        b.ID,
		Currency:        b.Currency,
		TotalBudget:     b.TotalBudget,
		AllocatedBudget: b.AllocatedBudget,
		Unallocated:     b.TotalBudget.Sub(b.AllocatedBudget),
		RemainingBudget: b.RemainingBudget,
		ByStatus:        make(map[ExpenseStatus]StatusTotal, 4),
		Categories:      make([]CategoryUsage, 0, len(b.Categories)),
		OverBudget:      []CategoryID{},
	}
	for _, st := range []ExpenseStatus{StatusPending, StatusApproved, StatusRejected, StatusReimbursed} {
		s.ByStatus[st] = StatusTotal{}
	}

	for _, e := range b.Expenses {
		t := s.ByStatus[e.Status]
		t.Count++
		t.Amount = t.Amount.Add(e.Amount)
		s.ByStatus[e.Status] = t
	}

	for _, c := range b.Categories {
		s.TotalSpent = s.TotalSpent.Add(c.Spent)
		usage := CategoryUsage{
			ID:         c.ID,
			Name:       c.Name,
			Allocation: c.Allocation,
			Spent:      c.Spent,
			Remaining:  c.Remaining,
			OverBudget: c.Remaining.IsNegative(),
		}
		if c.Allocation.IsPositive() {
			usage.PercentUsed = c.Spent.Value.Mul(hundred).Div(c.Allocation.Value).Round(1)
		}
		if usage.OverBudget {
			s.OverBudget = append(s.OverBudget, c.ID)
		}
		s.Categories = append(s.Categories, usage)
	}
	return s
}

// ExpenseFilter selects expenses for list views. Empty fields match all.
type ExpenseFilter struct {
	Status     ExpenseStatus
	CategoryID CategoryID
	Query      string // case-insensitive match on description, notes, submitter
}

// FilterExpenses returns the expenses of b matching f, in insertion order.
func FilterExpenses(b Budget, f ExpenseFilter) []Expense {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Expense, 0, len(b.Expenses))
	for _, e := range b.Expenses {
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.CategoryID != "" && e.CategoryID != f.CategoryID {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(e.Description), q) &&
			!strings.Contains(strings.ToLower(e.Notes), q) &&
			!strings.Contains(strings.ToLower(e.SubmittedBy), q) {
			continue
		}
		out = append(out, e)
	}
	return out
}

/*
ledger.go - The six budget mutation operations

PURPOSE:
  Each operation takes the current Budget and one intent and returns a
  Result: Ok with a new, consistent Budget, or Rejected with the input
  budget untouched. Operations keep no state between calls; the Ledger
  only supplies the clock and the ID generator.

SUM RULES:
  operation        category            budget
  ---------------  ------------------  ---------------------------------
  AddCategory      spent=0, rem=alloc  allocated += alloc, remaining += alloc
  AddExpense       spent += amt        remaining -= amt
  DeleteCategory   (removed)           allocated -= alloc, remaining -= cat.rem
  DeleteExpense    spent -= amt (*)    remaining += amt (*)
  ApproveExpense   -                   -
  RejectExpense    spent -= amt        remaining += amt

  (*) skipped when the expense was already rejected: its amount was given
      back at rejection time.

STATUS MACHINE:
  pending ──approve──▶ approved   (approve again: no-op)
     │
     └────reject────▶ rejected   (reject again: no-op)

  reimbursed exists in the data model but nothing transitions into it,
  and approve/reject refuse to touch it.

SEE ALSO:
  - input.go: Validation of operation inputs
  - invariants.go: What "consistent" means, checked in tests
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger applies operations to budgets. The zero value is not usable; use
// NewLedger.
type Ledger struct {
	Now      func() time.Time
	NewID    func() string
	Currency string // used when BudgetInput.Currency is empty
}

// NewLedger returns a Ledger using the wall clock (UTC) and random UUIDs.
func NewLedger() *Ledger {
	return &Ledger{
		Now:      func() time.Time { return time.Now().UTC() },
		NewID:    uuid.NewString,
		Currency: DefaultCurrency,
	}
}

// NewBudget builds an empty budget: nothing allocated, remaining = total.
func (l *Ledger) NewBudget(in BudgetInput) (Budget, error) {
	in = in.normalize()
	if rej := in.check(); rej != nil {
		return Budget{}, rej
	}
	id := in.ID
	if id == "" {
		id = BudgetID(l.NewID())
	}
	currency := in.Currency
	if currency == "" {
		currency = l.Currency
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return Budget{
		ID:              id,
		Name:            in.Name,
		TotalBudget:     in.Total,
		AllocatedBudget: Money{},
		RemainingBudget: in.Total,
		Categories:      []BudgetCategory{},
		Expenses:        []Expense{},
		Currency:        currency,
		LastUpdated:     l.Now(),
	}, nil
}

// =============================================================================
// CATEGORY OPERATIONS
// =============================================================================

// AddCategory appends a category and adds its allocation to both the
// allocated and remaining budget.
func (l *Ledger) AddCategory(b Budget, in CategoryInput) Result {
	in = in.normalize()
	if rej := in.check(); rej != nil {
		return rejected(b, rej)
	}
	id := in.ID
	if id == "" {
		id = CategoryID(l.NewID())
	} else if b.categoryIndex(id) >= 0 {
		return rejected(b, reject(RejectDuplicateID, "category %q already exists", id))
	}

	next := b.Clone()
	next.Categories = append(next.Categories, BudgetCategory{
		ID:         id,
		Name:       in.Name,
		Allocation: in.Allocation,
		Spent:      Money{},
		Remaining:  in.Allocation,
		Notes:      in.Notes,
	})
	next.AllocatedBudget = next.AllocatedBudget.Add(in.Allocation)
	next.RemainingBudget = next.RemainingBudget.Add(in.Allocation)
	next.LastUpdated = l.Now()
	return ok(next)
}

// DeleteCategory removes a category that no expense references. A category
// with expenses is refused with RejectDependentExpenses.
func (l *Ledger) DeleteCategory(b Budget, id CategoryID) Result {
	i := b.categoryIndex(id)
	if i < 0 {
		return rejected(b, reject(RejectCategoryNotFound, "category %q not found", id))
	}
	if b.HasExpensesFor(id) {
		return rejected(b, reject(RejectDependentExpenses,
			"category %q still has expenses; delete them first", b.Categories[i].Name))
	}

	cat := b.Categories[i]
	next := b.Clone()
	next.Categories = append(next.Categories[:i], next.Categories[i+1:]...)
	next.AllocatedBudget = next.AllocatedBudget.Sub(cat.Allocation)
	next.RemainingBudget = next.RemainingBudget.Sub(cat.Remaining)
	next.LastUpdated = l.Now()
	return ok(next)
}

// =============================================================================
// EXPENSE OPERATIONS
// =============================================================================

// AddExpense charges a new expense to an existing category. An unknown
// category rejects the whole operation.
func (l *Ledger) AddExpense(b Budget, in ExpenseInput, actorID string) Result {
	if rej := checkActor(actorID); rej != nil {
		return rejected(b, rej)
	}
	in = in.normalize()
	if rej := in.check(); rej != nil {
		return rejected(b, rej)
	}
	ci := b.categoryIndex(in.CategoryID)
	if ci < 0 {
		return rejected(b, reject(RejectCategoryNotFound, "category %q not found", in.CategoryID))
	}
	id := in.ID
	if id == "" {
		id = ExpenseID(l.NewID())
	} else if b.expenseIndex(id) >= 0 {
		return rejected(b, reject(RejectDuplicateID, "expense %q already exists", id))
	}

	expense := Expense{
		ID:          id,
		CategoryID:  in.CategoryID,
		Description: in.Description,
		Amount:      in.Amount,
		Date:        in.Date,
		Status:      in.Status,
		SubmittedBy: actorID,
		Notes:       in.Notes,
	}
	if expense.Status == StatusApproved {
		approver := actorID
		expense.ApprovedBy = &approver
	}

	next := b.Clone()
	next.Expenses = append(next.Expenses, expense)
	next.charge(ci, in.Amount)
	next.LastUpdated = l.Now()
	return ok(next)
}

// DeleteExpense removes an expense and gives its amount back to the
// category and the budget, unless it was already given back by a rejection.
func (l *Ledger) DeleteExpense(b Budget, id ExpenseID) Result {
	i := b.expenseIndex(id)
	if i < 0 {
		return rejected(b, reject(RejectExpenseNotFound, "expense %q not found", id))
	}

	expense := b.Expenses[i]
	next := b.Clone()
	next.Expenses = append(next.Expenses[:i], next.Expenses[i+1:]...)
	if expense.Status.CountsAsSpent() {
		next.refund(expense.CategoryID, expense.Amount)
	}
	next.LastUpdated = l.Now()
	return ok(next)
}

// ApproveExpense marks a pending expense approved. Sums are unchanged: the
// amount was charged when the expense was added. Approving an approved
// expense returns the budget as is.
func (l *Ledger) ApproveExpense(b Budget, id ExpenseID, actorID string) Result {
	if rej := checkActor(actorID); rej != nil {
		return rejected(b, rej)
	}
	i := b.expenseIndex(id)
	if i < 0 {
		return rejected(b, reject(RejectExpenseNotFound, "expense %q not found", id))
	}

	switch status := b.Expenses[i].Status; status {
	case StatusApproved:
		return noop(b)
	case StatusPending:
	default:
		return rejected(b, reject(RejectInvalidTransition, "cannot approve %s expense %q", status, id))
	}

	next := b.Clone()
	approver := actorID
	next.Expenses[i].Status = StatusApproved
	next.Expenses[i].ApprovedBy = &approver
	next.LastUpdated = l.Now()
	return ok(next)
}

// RejectExpense marks a pending expense rejected and gives its amount back
// to the category and the budget. Rejecting a rejected expense returns the
// budget as is.
func (l *Ledger) RejectExpense(b Budget, id ExpenseID, actorID string) Result {
	if rej := checkActor(actorID); rej != nil {
		return rejected(b, rej)
	}
	i := b.expenseIndex(id)
	if i < 0 {
		return rejected(b, reject(RejectExpenseNotFound, "expense %q not found", id))
	}

	switch status := b.Expenses[i].Status; status {
	case StatusRejected:
		return noop(b)
	case StatusPending:
	default:
		return rejected(b, reject(RejectInvalidTransition, "cannot reject %s expense %q", status, id))
	}

	next := b.Clone()
	approver := actorID
	next.Expenses[i].Status = StatusRejected
	next.Expenses[i].ApprovedBy = &approver
	next.refund(next.Expenses[i].CategoryID, next.Expenses[i].Amount)
	next.LastUpdated = l.Now()
	return ok(next)
}

// =============================================================================
// SUM HELPERS - only called on a cloned budget
// =============================================================================

func (b *Budget) charge(ci int, amount Money) {
	c := &b.Categories[ci]
	c.Spent = c.Spent.Add(amount)
	c.Remaining = c.Remaining.Sub(amount)
	b.RemainingBudget = b.RemainingBudget.Sub(amount)
}

func (b *Budget) refund(id CategoryID, amount Money) {
	if ci := b.categoryIndex(id); ci >= 0 {
		c := &b.Categories[ci]
		c.Spent = c.Spent.Sub(amount)
		c.Remaining = c.Remaining.Add(amount)
	}
	b.RemainingBudget = b.RemainingBudget.Add(amount)
}

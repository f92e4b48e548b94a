package ledger

import (
	"errors"
	"fmt"
)

// InvariantError describes one broken consistency rule.
type InvariantError struct {
	Rule   string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant %s violated: %s", e.Rule, e.Detail)
}

// CheckInvariants returns every consistency violation in b joined into one
// error, or nil. A budget produced only by Ledger operations always passes;
// the check exists for data that came from elsewhere (storage, imports).
//
// Rules:
//   - category_remaining: Remaining == Allocation - Spent
//   - allocation_sum:     AllocatedBudget == sum of allocations
//   - category_spent:     Spent == sum of the category's non-rejected expenses
//   - unique_ids:         no repeated category or expense ID
//   - expense_category:   every expense references an existing category
//   - expense_amount:     every expense amount is positive
//   - expense_status:     every status is a known one
func CheckInvariants(b Budget) error {
	var errs []error
	add := func(rule, format string, args ...any) {
		errs = append(errs, &InvariantError{Rule: rule, Detail: fmt.Sprintf(format, args...)})
	}

	allocated := Money{}
	spentBy := make(map[CategoryID]Money, len(b.Categories))
	seenCat := make(map[CategoryID]bool, len(b.Categories))
	for _, c := range b.Categories {
		if seenCat[c.ID] {
			add("unique_ids", "category %q appears twice", c.ID)
		}
		seenCat[c.ID] = true
		allocated = allocated.Add(c.Allocation)
		if !c.Remaining.Equal(c.Allocation.Sub(c.Spent)) {
			add("category_remaining", "category %q: remaining %s != allocation %s - spent %s",
				c.ID, c.Remaining, c.Allocation, c.Spent)
		}
	}
	if !b.AllocatedBudget.Equal(allocated) {
		add("allocation_sum", "allocated %s != sum of allocations %s", b.AllocatedBudget, allocated)
	}

	seenExp := make(map[ExpenseID]bool, len(b.Expenses))
	for _, e := range b.Expenses {
		if seenExp[e.ID] {
			add("unique_ids", "expense %q appears twice", e.ID)
		}
		seenExp[e.ID] = true
		if !seenCat[e.CategoryID] {
			add("expense_category", "expense %q references missing category %q", e.ID, e.CategoryID)
		}
		if !e.Amount.IsPositive() {
			add("expense_amount", "expense %q has non-positive amount %s", e.ID, e.Amount)
		}
		if !e.Status.Valid() {
			add("expense_status", "expense %q has unknown status %q", e.ID, e.Status)
		}
		if e.Status.CountsAsSpent() {
			spentBy[e.CategoryID] = spentBy[e.CategoryID].Add(e.Amount)
		}
	}
	for _, c := range b.Categories {
		if want := spentBy[c.ID]; !c.Spent.Equal(want) {
			add("category_spent", "category %q: spent %s != sum of expenses %s", c.ID, c.Spent, want)
		}
	}

	return errors.Join(errs...)
}

/*
errors.go - Error types for the budget ledger

ERROR CATEGORIES:
  1. Rejections - an operation refused to mutate the budget (see result.go).
     Each RejectionCode has a sentinel here, so callers can use errors.Is.
  2. Store errors - missing budgets, optimistic-locking conflicts.

USAGE:
  if errors.Is(err, ledger.ErrDependentExpenses) {
      // tell the user the category still has expenses
  }
*/
package ledger

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when an input is missing a required field or
	// violates a field constraint.
	ErrValidation = errors.New("validation failed")

	// ErrCategoryNotFound is returned when a category ID does not resolve.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrExpenseNotFound is returned when an expense ID does not resolve.
	ErrExpenseNotFound = errors.New("expense not found")

	// ErrDependentExpenses is returned when deleting a category that is still
	// referenced by at least one expense.
	ErrDependentExpenses = errors.New("category has dependent expenses")

	// ErrInvalidTransition is returned when an expense status change is not
	// allowed from its current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateID is returned when a caller-supplied ID is already in use.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrBudgetNotFound is returned by stores when a budget does not exist.
	ErrBudgetNotFound = errors.New("budget not found")

	// ErrBudgetExists is returned by stores on Create with a taken ID.
	ErrBudgetExists = errors.New("budget already exists")

	// ErrConcurrentModification is returned when a compare-and-swap save sees
	// a different version than the one the change was computed from.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input
// or a refused state change.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDependentExpenses) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicateID)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBudgetNotFound) ||
		errors.Is(err, ErrCategoryNotFound) ||
		errors.Is(err, ErrExpenseNotFound)
}

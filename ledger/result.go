package ledger

import "fmt"

// RejectionCode classifies why an operation left the budget untouched.
type RejectionCode string

const (
	RejectValidation        RejectionCode = "validation"
	RejectCategoryNotFound  RejectionCode = "category_not_found"
	RejectExpenseNotFound   RejectionCode = "expense_not_found"
	RejectDependentExpenses RejectionCode = "dependent_expenses"
	RejectInvalidTransition RejectionCode = "invalid_transition"
	RejectDuplicateID       RejectionCode = "duplicate_id"
)

var rejectionSentinels = map[RejectionCode]error{
	RejectValidation:        ErrValidation,
	RejectCategoryNotFound:  ErrCategoryNotFound,
	RejectExpenseNotFound:   ErrExpenseNotFound,
	RejectDependentExpenses: ErrDependentExpenses,
	RejectInvalidTransition: ErrInvalidTransition,
	RejectDuplicateID:       ErrDuplicateID,
}

// Rejection explains a refused operation. It unwraps to the sentinel for
// its code.
type Rejection struct {
	Code   RejectionCode
	Reason string
	Fields map[string]string // per-field messages for validation rejections
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Reason)
}

func (r *Rejection) Unwrap() error {
	return rejectionSentinels[r.Code]
}

func reject(code RejectionCode, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Result is the outcome of one ledger operation: either Ok with the new
// budget, or Rejected with the original budget unchanged.
type Result struct {
	Budget   Budget
	Rejected *Rejection

	// Noop is set on an Ok result that repeated an already-applied status
	// change; Budget is the input value and need not be saved.
	Noop bool
}

func ok(b Budget) Result { return Result{Budget: b} }

func noop(b Budget) Result { return Result{Budget: b, Noop: true} }

func rejected(b Budget, r *Rejection) Result { return Result{Budget: b, Rejected: r} }

// OK reports whether the operation was applied.
func (r Result) OK() bool { return r.Rejected == nil }

// Err returns the rejection as an error, or nil.
func (r Result) Err() error {
	if r.Rejected == nil {
		return nil
	}
	return r.Rejected
}

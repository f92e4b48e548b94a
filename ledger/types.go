/*
Package ledger provides the production budget ledger.

PURPOSE:
  A production's Budget is a single aggregate: a fixed total, a list of
  categories carved out of it, and the expenses charged against those
  categories. Every figure the dashboards show (allocated, remaining,
  per-category spent/remaining) is derived from the operations in this
  package and must stay consistent after every one of them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: decimal amount, never float
  - Budget: the root aggregate, replaced as a whole on every mutation
  - BudgetCategory: an allocation with running spent/remaining
  - Expense: a charge against a category with an approval status

HEADROOM MODEL:
  RemainingBudget is not cash on hand. Allocating a category ADDS its
  allocation to RemainingBudget; spending subtracts from it. So
  "remaining" means uncommitted plus unspent.

    total 1000, no categories          remaining 1000
    + category Camera (200)            remaining 1200
    + expense 150 on Camera            remaining 1050
    reject that expense                remaining 1200

SEE ALSO:
  - ledger.go: The six operations
  - result.go: Ok / Rejected result type
  - service.go: Load, apply, compare-and-swap save
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY
// =============================================================================

// Money is a currency-less decimal amount. The currency lives on the Budget.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money { return Money{Value: decimal.NewFromFloat(value)} }
func MoneyFromInt(value int64) Money { return Money{Value: decimal.NewFromInt(value)} }
func MoneyFromDecimal(d decimal.Decimal) Money { return Money{Value: d} }

// ParseMoney parses a decimal string such as "1250.75".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Value: d}, nil
}

func (m Money) Add(o Money) Money { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Neg() Money { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool { return m.Value.IsZero() }
func (m Money) IsNegative() bool { return m.Value.IsNegative() }
func (m Money) IsPositive() bool { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool { return m.Value.LessThan(o.Value) }
func (m Money) String() string { return m.Value.StringFixed(2) }

// MarshalJSON encodes m as a decimal string.
func (m Money) MarshalJSON() ([]byte, error) { return m.Value.MarshalJSON() }

// UnmarshalJSON accepts a decimal string or a JSON number.
func (m *Money) UnmarshalJSON(data []byte) error { return m.Value.UnmarshalJSON(data) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type BudgetID string
type CategoryID string
type ExpenseID string

// DefaultCurrency is used when a budget is created without one.
const DefaultCurrency = "USD"

// =============================================================================
// EXPENSE STATUS
// =============================================================================

type ExpenseStatus string

const (
	StatusPending    ExpenseStatus = "pending"
	StatusApproved   ExpenseStatus = "approved"
	StatusRejected   ExpenseStatus = "rejected"
	StatusReimbursed ExpenseStatus = "reimbursed" // No operation moves an expense here.
)

// Valid reports whether s is one of the four known statuses.
func (s ExpenseStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusReimbursed:
		return true
	}
	return false
}

// CountsAsSpent reports whether an expense in this status is charged
// against its category. Only rejected expenses are not.
func (s ExpenseStatus) CountsAsSpent() bool { return s != StatusRejected }

// =============================================================================
// AGGREGATE
// =============================================================================

type BudgetCategory struct {
	ID         CategoryID
	Name       string
	Allocation Money // fixed at creation
	Spent      Money
	Remaining  Money // Allocation - Spent
	Notes      string
}

type Expense struct {
	ID          ExpenseID
	CategoryID  CategoryID // non-owning back-reference
	Description string
	Amount      Money
	Date        time.Time
	Status      ExpenseStatus
	SubmittedBy string
	ApprovedBy  *string
	Notes       string
}

// Budget is the root aggregate. Operations never modify a Budget in place;
// they return a new value with copied slices.
type Budget struct {
	ID              BudgetID
	Name            string
	TotalBudget     Money
	AllocatedBudget Money
	RemainingBudget Money
	Categories      []BudgetCategory
	Expenses        []Expense
	Currency        string
	LastUpdated     time.Time

	// Version is owned by the Store and bumped on every successful save.
	Version int64
}

// Clone returns a deep copy of b.
func (b Budget) Clone() Budget {
	out := b
	out.Categories = append([]BudgetCategory(nil), b.Categories...)
	out.Expenses = make([]Expense, len(b.Expenses))
	for i, e := range b.Expenses {
		if e.ApprovedBy != nil {
			approver := *e.ApprovedBy
			e.ApprovedBy = &approver
		}
		out.Expenses[i] = e
	}
	return out
}

// Category returns the category with the given ID.
func (b Budget) Category(id CategoryID) (BudgetCategory, bool) {
	i := b.categoryIndex(id)
	if i < 0 {
		return BudgetCategory{}, false
	}
	return b.Categories[i], true
}

// Expense returns the expense with the given ID.
func (b Budget) Expense(id ExpenseID) (Expense, bool) {
	i := b.expenseIndex(id)
	if i < 0 {
		return Expense{}, false
	}
	return b.Expenses[i], true
}

// HasExpensesFor reports whether any expense references the category.
func (b Budget) HasExpensesFor(id CategoryID) bool {
	for _, e := range b.Expenses {
		if e.CategoryID == id {
			return true
		}
	}
	return false
}

func (b Budget) categoryIndex(id CategoryID) int {
	for i, c := range b.Categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (b Budget) expenseIndex(id ExpenseID) int {
	for i, e := range b.Expenses {
		if e.ID == id {
			return i
		}
	}
	return -1
}

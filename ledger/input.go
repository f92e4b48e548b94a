/*
input.go - Validated inputs for ledger operations

PURPOSE:
  Forms and request bodies arrive as partial data. Instead of merging
  partial objects into defaults, every operation takes an explicit input
  struct whose fields are checked (struct tags + money rules) before any
  entity is built. A failed check becomes a RejectValidation result with
  per-field messages; nothing is silently defaulted except where noted:

    CategoryInput.ID   generated when empty
    ExpenseInput.ID    generated when empty
    ExpenseInput.Status  "" means pending
    BudgetInput.Currency "" means USD
*/
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// BudgetInput describes a new budget.
type BudgetInput struct {
	ID       BudgetID `validate:"omitempty,max=64"`
	Name     string   `validate:"required,max=200"`
	Total    Money
	Currency string `validate:"omitempty,iso4217"`
}

// CategoryInput describes a category to add.
type CategoryInput struct {
	ID         CategoryID `validate:"omitempty,max=64"`
	Name       string     `validate:"required,max=200"`
	Allocation Money
	Notes      string `validate:"max=2000"`
}

// ExpenseInput describes an expense to add. SubmittedBy is not part of the
// input; it is the actor passed to AddExpense.
type ExpenseInput struct {
	ID          ExpenseID  `validate:"omitempty,max=64"`
	CategoryID  CategoryID `validate:"required,max=64"`
	Description string     `validate:"required,max=500"`
	Amount      Money
	Date        time.Time     `validate:"required"`
	Status      ExpenseStatus `validate:"omitempty,oneof=pending approved"`
	Notes       string        `validate:"max=2000"`
}

func (in BudgetInput) normalize() BudgetInput {
	in.ID = BudgetID(strings.TrimSpace(string(in.ID)))
	in.Name = strings.TrimSpace(in.Name)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	return in
}

func (in BudgetInput) check() *Rejection {
	fields := structErrors(in)
	if in.Total.IsNegative() {
		fields["Total"] = "must not be negative"
	}
	return validationRejection("budget", fields)
}

func (in CategoryInput) normalize() CategoryInput {
	in.ID = CategoryID(strings.TrimSpace(string(in.ID)))
	in.Name = strings.TrimSpace(in.Name)
	return in
}

func (in CategoryInput) check() *Rejection {
	fields := structErrors(in)
	if in.Allocation.IsNegative() {
		fields["Allocation"] = "must not be negative"
	}
	return validationRejection("category", fields)
}

func (in ExpenseInput) normalize() ExpenseInput {
	in.ID = ExpenseID(strings.TrimSpace(string(in.ID)))
	in.CategoryID = CategoryID(strings.TrimSpace(string(in.CategoryID)))
	in.Description = strings.TrimSpace(in.Description)
	if in.Status == "" {
		in.Status = StatusPending
	}
	return in
}

func (in ExpenseInput) check() *Rejection {
	fields := structErrors(in)
	if !in.Amount.IsPositive() {
		fields["Amount"] = "must be greater than zero"
	}
	return validationRejection("expense", fields)
}

func checkActor(actorID string) *Rejection {
	if strings.TrimSpace(actorID) == "" {
		return &Rejection{
			Code:   RejectValidation,
			Reason: "actor is required",
			Fields: map[string]string{"Actor": "required"},
		}
	}
	return nil
}

// structErrors runs the tag validator and flattens its errors into
// field -> message.
func structErrors(v any) map[string]string {
	fields := make(map[string]string)
	err := validate.Struct(v)
	if err == nil {
		return fields
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["_"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		if fe.Param() != "" {
			fields[fe.Field()] = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		} else {
			fields[fe.Field()] = fe.Tag()
		}
	}
	return fields
}

func validationRejection(what string, fields map[string]string) *Rejection {
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Rejection{
		Code:   RejectValidation,
		Reason: fmt.Sprintf("invalid %s: %s", what, strings.Join(names, ", ")),
		Fields: fields,
	}
}

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  All amounts are decimal.Decimal, which encodes as a JSON string
  ("1500.00" style) and decodes from either a string or a number.

DATES:
  Expense dates use YYYY-MM-DD (RFC 3339 timestamps are accepted on input).
  Timestamps use RFC 3339.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Domain model
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/budget-ledger/ledger"
)

const dateLayout = "2006-01-02"

// =============================================================================
// BUDGETS
// =============================================================================

// BudgetDTO represents a budget in API responses.
type BudgetDTO struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Currency        string          `json:"currency"`
	TotalBudget     decimal.Decimal `json:"total_budget"`
	AllocatedBudget decimal.Decimal `json:"allocated_budget"`
	RemainingBudget decimal.Decimal `json:"remaining_budget"`
	Categories      []CategoryDTO   `json:"categories"`
	Expenses        []ExpenseDTO    `json:"expenses"`
	LastUpdated     string          `json:"last_updated"`
	Version         int64           `json:"version"`
}

// CreateBudgetRequest is the request to create a budget.
type CreateBudgetRequest struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	TotalBudget decimal.Decimal `json:"total_budget"`
	Currency    string          `json:"currency"`
}

// CategoryDTO represents a budget category.
type CategoryDTO struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Allocation decimal.Decimal `json:"allocation"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Notes      string          `json:"notes,omitempty"`
}

// AddCategoryRequest is the request to add a category.
type AddCategoryRequest struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Allocation decimal.Decimal `json:"allocation"`
	Notes      string          `json:"notes"`
}

// ExpenseDTO represents an expense.
type ExpenseDTO struct {
	ID          string          `json:"id"`
	CategoryID  string          `json:"category_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Status      string          `json:"status"`
	SubmittedBy string          `json:"submitted_by"`
	ApprovedBy  *string         `json:"approved_by"`
	Notes       string          `json:"notes,omitempty"`
}

// AddExpenseRequest is the request to record an expense.
type AddExpenseRequest struct {
	ID          string          `json:"id"`
	CategoryID  string          `json:"category_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Status      string          `json:"status"` // "", "pending" or "approved"
	Notes       string          `json:"notes"`
}

// =============================================================================
// SUMMARY & AUDIT
// =============================================================================

// StatusTotalDTO is the count and amount of expenses in one status.
type StatusTotalDTO struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// CategoryUsageDTO is one category's utilization.
type CategoryUsageDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Allocation  decimal.Decimal `json:"allocation"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	PercentUsed decimal.Decimal `json:"percent_used"`
	OverBudget  bool            `json:"over_budget"`
}

// SummaryDTO is the dashboard view of a budget.
type SummaryDTO struct {
	BudgetID        string                    `json:"budget_id"`
	Currency        string                    `json:"currency"`
	TotalBudget     decimal.Decimal           `json:"total_budget"`
	AllocatedBudget decimal.Decimal           `json:"allocated_budget"`
	Unallocated     decimal.Decimal           `json:"unallocated"`
	RemainingBudget decimal.Decimal           `json:"remaining_budget"`
	TotalSpent      decimal.Decimal           `json:"total_spent"`
	ByStatus        map[string]StatusTotalDTO `json:"by_status"`
	Categories      []CategoryUsageDTO        `json:"categories"`
	OverBudget      []string                  `json:"over_budget"`
}

// AuditEntryDTO is one audit log line.
type AuditEntryDTO struct {
	ID       string            `json:"id"`
	BudgetID string            `json:"budget_id"`
	ActorID  string            `json:"actor_id"`
	Action   string            `json:"action"`
	TargetID string            `json:"target_id,omitempty"`
	At       string            `json:"at"`
	Detail   map[string]string `json:"detail,omitempty"`
}

// =============================================================================
// SCENARIOS & MISC
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// HealthDTO is the health check response.
type HealthDTO struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toBudgetDTO(b ledger.Budget) BudgetDTO {
	dto := BudgetDTO{
		ID:              string(b.ID),
		Name:            b.Name,
		Currency:        b.Currency,
		TotalBudget:     b.TotalBudget.Value,
		AllocatedBudget: b.AllocatedBudget.Value,
		RemainingBudget: b.RemainingBudget.Value,
		Categories:      make([]CategoryDTO, len(b.Categories)),
		Expenses:        make([]ExpenseDTO, len(b.Expenses)),
		LastUpdated:     b.LastUpdated.Format(time.RFC3339),
		Version:         b.Version,
	}
	for i, c := range b.Categories {
		dto.Categories[i] = toCategoryDTO(c)
	}
	for i, e := range b.Expenses {
		dto.Expenses[i] = toExpenseDTO(e)
	}
	return dto
}

func toCategoryDTO(c ledger.BudgetCategory) CategoryDTO {
	return CategoryDTO{
		ID:         string(c.ID),
		Name:       c.Name,
		Allocation: c.Allocation.Value,
		Spent:      c.Spent.Value,
		Remaining:  c.Remaining.Value,
		Notes:      c.Notes,
	}
}

func toExpenseDTO(e ledger.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:          string(e.ID),
		CategoryID:  string(e.CategoryID),
		Description: e.Description,
		Amount:      e.Amount.Value,
		Date:        e.Date.Format(dateLayout),
		Status:      string(e.Status),
		SubmittedBy: e.SubmittedBy,
		ApprovedBy:  e.ApprovedBy,
		Notes:       e.Notes,
	}
}

func toExpenseDTOs(expenses []ledger.Expense) []ExpenseDTO {
	dtos := make([]ExpenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = toExpenseDTO(e)
	}
	return dtos
}

func toSummaryDTO(s ledger.Summary) SummaryDTO {
	dto := SummaryDTO{
		BudgetID:        string(s.BudgetID),
		Currency:        s.Currency,
		TotalBudget:     s.TotalBudget.Value,
		AllocatedBudget: s.AllocatedBudget.Value,
		Unallocated:     s.Unallocated.Value,
		RemainingBudget: s.RemainingBudget.Value,
		TotalSpent:      s.TotalSpent.Value,
		ByStatus:        make(map[string]StatusTotalDTO, len(s.ByStatus)),
		Categories:      make([]CategoryUsageDTO, len(s.Categories)),
		OverBudget:      make([]string, len(s.OverBudget)),
	}
	for status, total := range s.ByStatus {
		dto.ByStatus[string(status)] = StatusTotalDTO{Count: total.Count, Amount: total.Amount.Value}
	}
	for i, c := range s.Categories {
		dto.Categories[i] = CategoryUsageDTO{
			ID:          string(c.ID),
			Name:        c.Name,
			Allocation:  c.Allocation.Value,
			Spent:       c.Spent.Value,
			Remaining:   c.Remaining.Value,
			PercentUsed: c.PercentUsed,
			OverBudget:  c.OverBudget,
		}
	}
	for i, id := range s.OverBudget {
		dto.OverBudget[i] = string(id)
	}
	return dto
}

func toAuditEntryDTOs(entries []ledger.AuditEntry) []AuditEntryDTO {
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = AuditEntryDTO{
			ID:       e.ID,
			BudgetID: string(e.BudgetID),
			ActorID:  e.ActorID,
			Action:   string(e.Action),
			TargetID: e.TargetID,
			At:       e.At.Format(time.RFC3339),
			Detail:   e.Detail,
		}
	}
	return dtos
}

// parseDate accepts YYYY-MM-DD or an RFC 3339 timestamp. Empty input gives
// the zero time, which input validation rejects.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

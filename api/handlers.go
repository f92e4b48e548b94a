/*
handlers.go - HTTP API handlers for the budget ledger

PURPOSE:
  Exposes the ledger service via REST API. Handles HTTP request/response
  and JSON serialization, and delegates every state change to
  ledger.Service.

ENDPOINTS:
  Budgets:
    GET    /api/budgets                        List all budgets
    POST   /api/budgets                        Create budget
    GET    /api/budgets/{id}                   Get budget with categories/expenses
    DELETE /api/budgets/{id}                   Delete budget
    GET    /api/budgets/{id}/summary           Dashboard statistics
    GET    /api/budgets/{id}/audit             Audit trail (?limit=)

  Categories:
    POST   /api/budgets/{id}/categories        Add category
    DELETE /api/budgets/{id}/categories/{cid}  Delete category

  Expenses:
    GET    /api/budgets/{id}/expenses          List (?status=&category_id=&q=)
    POST   /api/budgets/{id}/expenses          Record expense
    DELETE /api/budgets/{id}/expenses/{eid}    Delete expense
    POST   /api/budgets/{id}/expenses/{eid}/approve
    POST   /api/budgets/{id}/expenses/{eid}/reject

ACTOR:
  Mutating requests identify the acting user with the X-Actor-ID header.
  A missing actor is a validation error. There is no authentication; the
  header is trusted.

ERROR HANDLING:
  Errors are returned as ErrorResponse JSON:
  - 400: validation (code "validation", per-field messages in "fields")
  - 404: budget, category or expense not found
  - 409: dependent_expenses, invalid_transition, duplicate_id, budget
         exists, concurrent modification after retries
  - 500: anything else

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/warp/budget-ledger/ledger"
	"github.com/warp/budget-ledger/logging"
)

// ActorHeader carries the acting user's ID.
const ActorHeader = "X-Actor-ID"

const defaultAuditLimit = 50

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *ledger.Service
	DB      Pinger // optional, used by Health

	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a handler around svc.
func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{Service: svc}
}

// =============================================================================
// BUDGET HANDLERS
// =============================================================================

// ListBudgets returns all budgets.
func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.Service.Budgets(r.Context())
	if err != nil {
		writeServiceError(w, r, "Failed to list budgets", err)
		return
	}

	dtos := make([]BudgetDTO, len(budgets))
	for i, b := range budgets {
		dtos[i] = toBudgetDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBudget creates a new budget.
func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var req CreateBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	b, err := h.Service.CreateBudget(r.Context(), ledger.BudgetInput{
		ID:       ledger.BudgetID(req.ID),
		Name:     req.Name,
		Total:    ledger.MoneyFromDecimal(req.TotalBudget),
		Currency: req.Currency,
	}, actorID(r))
	if err != nil {
		writeServiceError(w, r, "Failed to create budget", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetDTO(b))
}

// GetBudget returns a single budget.
func (h *Handler) GetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.Budget(r.Context(), budgetID(r))
	if err != nil {
		writeServiceError(w, r, "Failed to get budget", err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(b))
}

// DeleteBudget removes a budget and everything it owns.
func (h *Handler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteBudget(r.Context(), budgetID(r), actorID(r)); err != nil {
		writeServiceError(w, r, "Failed to delete budget", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSummary returns dashboard statistics for a budget.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.Budget(r.Context(), budgetID(r))
	if err != nil {
		writeServiceError(w, r, "Failed to get budget", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(ledger.Summarize(b)))
}

// GetAuditTrail returns the newest audit entries for a budget.
func (h *Handler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	entries, err := h.Service.AuditTrail(r.Context(), budgetID(r), limit)
	if err != nil {
		writeServiceError(w, r, "Failed to read audit trail", err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditEntryDTOs(entries))
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

// AddCategory adds a category to a budget.
func (h *Handler) AddCategory(w http.ResponseWriter, r *http.Request) {
	var req AddCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	b, err := h.Service.AddCategory(r.Context(), budgetID(r), ledger.CategoryInput{
		ID:         ledger.CategoryID(req.ID),
		Name:       req.Name,
		Allocation: ledger.MoneyFromDecimal(req.Allocation),
		Notes:      req.Notes,
	}, actorID(r))
	if err != nil {
		writeServiceError(w, r, "Failed to add category", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetDTO(b))
}

// DeleteCategory removes a category that has no expenses.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	cid := ledger.CategoryID(chi.URLParam(r, "cid"))
	b, err := h.Service.DeleteCategory(r.Context(), budgetID(r), cid, actorID(r))
	if err != nil {
		writeServiceError(w, r, "Failed to delete category", err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(b))
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

// ListExpenses returns a budget's expenses, optionally filtered.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledger.ExpenseFilter{
		Status:     ledger.ExpenseStatus(q.Get("status")),
		CategoryID: ledger.CategoryID(q.Get("category_id")),
		Query:      q.Get("q"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown status filter", nil)
		return
	}

	b, err := h.Service.Budget(r.Context(), budgetID(r))
	if err != nil {
		writeServiceError(w, r, "Failed to get budget", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTOs(ledger.FilterExpenses(b, filter)))
}

// AddExpense records an expense against a category.
func (h *Handler) AddExpense(w http.ResponseWriter, r *http.Request) {
	var req AddExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	b, err := h.Service.AddExpense(r.Context(), budgetID(r), ledger.ExpenseInput{
		ID:          ledger.ExpenseID(req.ID),
		CategoryID:  ledger.CategoryID(req.CategoryID),
		Description: req.Description,
		Amount:      ledger.MoneyFromDecimal(req.Amount),
		Date:        date,
		Status:      ledger.ExpenseStatus(req.Status),
		Notes:       req.Notes,
	}, actorID(r))
	if err != nil {
		writeServiceError(w, r, "Failed to add expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetDTO(b))
}

// DeleteExpense removes an expense, refunding it if it counted as spent.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.DeleteExpense(r.Context(), budgetID(r), expenseID(r), actorID(r))
	if err != nil {
		writeServiceError(w, r, "Failed to delete expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(b))
}

// ApproveExpense moves a pending expense to approved.
func (h *Handler) ApproveExpense(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.ApproveExpense(r.Context(), budgetID(r), expenseID(r), actorID(r))
	if err != nil {
		writeServiceError(w, r, "Failed to approve expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(b))
}

// RejectExpense moves a pending expense to rejected and returns its amount
// to the budget.
func (h *Handler) RejectExpense(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.RejectExpense(r.Context(), budgetID(r), expenseID(r), actorID(r))
	if err != nil {
		writeServiceError(w, r, "Failed to reject expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(b))
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports liveness and, when a DB is wired, database reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthDTO{Status: "ok"}
	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.Database = "ok"
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func budgetID(r *http.Request) ledger.BudgetID {
	return ledger.BudgetID(chi.URLParam(r, "id"))
}

func expenseID(r *http.Request) ledger.ExpenseID {
	return ledger.ExpenseID(chi.URLParam(r, "eid"))
}

func actorID(r *http.Request) string {
	return r.Header.Get(ActorHeader)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps ledger errors to HTTP statuses. Rejections carry
// their code and field messages through to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: message, Details: err.Error()}
	if rej, ok := ledger.AsRejection(err); ok {
		resp.Code = string(rej.Code)
		resp.Details = rej.Reason
		resp.Fields = rej.Fields
	}
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).ErrorContext(r.Context(), message, logging.FieldError, err)
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrDependentExpenses),
		errors.Is(err, ledger.ErrInvalidTransition),
		errors.Is(err, ledger.ErrDuplicateID),
		errors.Is(err, ledger.ErrBudgetExists),
		errors.Is(err, ledger.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

/*
service.go - Load, apply, save: the ledger behind a Store

PURPOSE:
  Runs one ledger operation against a stored budget as a single unit:

    1. Get the current budget (version v)
    2. Apply the pure operation
    3. Save with expected version v
    4. On ErrConcurrentModification, go back to 1 (up to MaxRetries)
    5. Append an audit entry

  Rejections are returned as errors (*Rejection, unwrapping to the
  matching sentinel) and are never retried: re-running the same intent on
  newer data is the caller's decision, not ours.

AUDIT:
  Audit failures are logged, not returned. The budget change has already
  been committed at that point.
*/
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/warp/budget-ledger/logging"
)

// DefaultMaxRetries bounds compare-and-swap retries per operation.
const DefaultMaxRetries = 3

// Service applies ledger operations to budgets held in a Store.
type Service struct {
	Store      Store
	Audit      AuditLog // optional
	Ledger     *Ledger
	Logger     *logging.Logger
	MaxRetries int
}

// NewService wires a Service with a default Ledger.
func NewService(store Store, audit AuditLog, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		Store:      store,
		Audit:      audit,
		Ledger:     NewLedger(),
		Logger:     logger.WithComponent("ledger"),
		MaxRetries: DefaultMaxRetries,
	}
}

// =============================================================================
// BUDGETS
// =============================================================================

// CreateBudget validates in and persists a new budget.
func (s *Service) CreateBudget(ctx context.Context, in BudgetInput, actorID string) (Budget, error) {
	if rej := checkActor(actorID); rej != nil {
		return Budget{}, rej
	}
	b, err := s.Ledger.NewBudget(in)
	if err != nil {
		return Budget{}, err
	}
	created, err := s.Store.Create(ctx, b)
	if err != nil {
		return Budget{}, fmt.Errorf("create budget: %w", err)
	}
	s.logger(ctx).InfoContext(ctx, "budget created",
		logging.FieldBudgetID, created.ID, logging.FieldActor, actorID)
	s.audit(ctx, AuditEntry{
		BudgetID: created.ID,
		ActorID:  actorID,
		Action:   AuditBudgetCreated,
		At:       created.LastUpdated,
		Detail:   map[string]string{"name": created.Name, "total": created.TotalBudget.String(), "currency": created.Currency},
	})
	return created, nil
}

// Budget returns one budget.
func (s *Service) Budget(ctx context.Context, id BudgetID) (Budget, error) {
	return s.Store.Get(ctx, id)
}

// Budgets returns all budgets.
func (s *Service) Budgets(ctx context.Context) ([]Budget, error) {
	return s.Store.List(ctx)
}

// DeleteBudget removes a budget with everything it owns.
func (s *Service) DeleteBudget(ctx context.Context, id BudgetID, actorID string) error {
	if rej := checkActor(actorID); rej != nil {
		return rej
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete budget %s: %w", id, err)
	}
	s.audit(ctx, AuditEntry{BudgetID: id, ActorID: actorID, Action: AuditBudgetDeleted, At: s.Ledger.Now()})
	return nil
}

// AuditTrail returns the most recent audit entries for a budget, newest first.
func (s *Service) AuditTrail(ctx context.Context, id BudgetID, limit int) ([]AuditEntry, error) {
	if s.Audit == nil {
		return []AuditEntry{}, nil
	}
	return s.Audit.QueryAudit(ctx, AuditFilter{BudgetID: &id, Limit: limit})
}

// =============================================================================
// OPERATIONS
// =============================================================================

func (s *Service) AddCategory(ctx context.Context, id BudgetID, in CategoryInput, actorID string) (Budget, error) {
	if rej := checkActor(actorID); rej != nil {
		return Budget{}, rej
	}
	return s.apply(ctx, id, AuditCategoryAdded, actorID, func(b Budget) (Result, string) {
		res := s.Ledger.AddCategory(b, in)
		if !res.OK() {
			return res, string(in.ID)
		}
		added := res.Budget.Categories[len(res.Budget.Categories)-1]
		return res, string(added.ID)
	})
}

func (s *Service) DeleteCategory(ctx context.Context, id BudgetID, categoryID CategoryID, actorID string) (Budget, error) {
	if rej := checkActor(actorID); rej != nil {
		return Budget{}, rej
	}
	return s.apply(ctx, id, AuditCategoryDeleted, actorID, func(b Budget) (Result, string) {
		return s.Ledger.DeleteCategory(b, categoryID), string(categoryID)
	})
}

func (s *Service) AddExpense(ctx context.Context, id BudgetID, in ExpenseInput, actorID string) (Budget, error) {
	return s.apply(ctx, id, AuditExpenseAdded, actorID, func(b Budget) (Result, string) {
		res := s.Ledger.AddExpense(b, in, actorID)
		if !res.OK() {
			return res, string(in.ID)
		}
		added := res.Budget.Expenses[len(res.Budget.Expenses)-1]
		return res, string(added.ID)
	})
}

func (s *Service) DeleteExpense(ctx context.Context, id BudgetID, expenseID ExpenseID, actorID string) (Budget, error) {
	if rej := checkActor(actorID); rej != nil {
		return Budget{}, rej
	}
	return s.apply(ctx, id, AuditExpenseDeleted, actorID, func(b Budget) (Result, string) {
		return s.Ledger.DeleteExpense(b, expenseID), string(expenseID)
	})
}

func (s *Service) ApproveExpense(ctx context.Context, id BudgetID, expenseID ExpenseID, actorID string) (Budget, error) {
	return s.apply(ctx, id, AuditExpenseApproved, actorID, func(b Budget) (Result, string) {
		return s.Ledger.ApproveExpense(b, expenseID, actorID), string(expenseID)
	})
}

func (s *Service) RejectExpense(ctx context.Context, id BudgetID, expenseID ExpenseID, actorID string) (Budget, error) {
	return s.apply(ctx, id, AuditExpenseRejected, actorID, func(b Budget) (Result, string) {
		return s.Ledger.RejectExpense(b, expenseID, actorID), string(expenseID)
	})
}

// apply runs op against the stored budget with compare-and-swap retries.
func (s *Service) apply(
	ctx context.Context,
	id BudgetID,
	action AuditAction,
	actorID string,
	op func(Budget) (Result, string),
) (Budget, error) {
	logger := s.logger(ctx).With(logging.FieldBudgetID, id, logging.FieldAction, action, logging.FieldActor, actorID)

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Budget{}, err
		}

		current, err := s.Store.Get(ctx, id)
		if err != nil {
			return Budget{}, err
		}

		res, target := op(current)
		if !res.OK() {
			logger.WarnContext(ctx, "operation rejected",
				logging.FieldCode, res.Rejected.Code, "reason", res.Rejected.Reason)
			return current, res.Rejected
		}
		if res.Noop {
			logger.DebugContext(ctx, "operation already applied", "target", target)
			return current, nil
		}

		saved, err := s.Store.Save(ctx, res.Budget, current.Version)
		if IsRetryable(err) && attempt < s.MaxRetries {
			logger.DebugContext(ctx, "version conflict, retrying",
				logging.FieldAttempt, attempt+1, logging.FieldVersion, current.Version)
			continue
		}
		if err != nil {
			return Budget{}, fmt.Errorf("save budget %s: %w", id, err)
		}

		logger.InfoContext(ctx, "operation applied", "target", target, logging.FieldVersion, saved.Version)
		s.audit(ctx, AuditEntry{
			BudgetID: id,
			ActorID:  actorID,
			Action:   action,
			TargetID: target,
			At:       saved.LastUpdated,
			Detail:   map[string]string{"remaining_budget": saved.RemainingBudget.String()},
		})
		return saved, nil
	}
}

func (s *Service) audit(ctx context.Context, entry AuditEntry) {
	if s.Audit == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = s.Ledger.NewID()
	}
	if err := s.Audit.AppendAudit(ctx, entry); err != nil {
		s.logger(ctx).ErrorContext(ctx, "audit append failed",
			logging.FieldBudgetID, entry.BudgetID, logging.FieldAction, entry.Action, logging.FieldError, err)
	}
}

// logger prefers the request-scoped logger when one is on the context.
func (s *Service) logger(ctx context.Context) *logging.Logger {
	if l := logging.FromContext(ctx); l.Component() != "unknown" {
		return l.WithComponent("ledger")
	}
	return s.Logger
}

// AsRejection extracts the *Rejection from err, if any.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

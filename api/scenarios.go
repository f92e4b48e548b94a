/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built production budgets with realistic categories and
	expenses. Each scenario exercises specific ledger behavior.

AVAILABLE SCENARIOS:

	indie-feature: Feature film with every expense status in play
	short-film:    Small budget, mostly approved spend
	over-budget:   Category spent past its allocation

HOW SCENARIOS WORK:
 1. Delete the scenario's budget if it already exists (fixed IDs)
 2. Create the budget
 3. Add categories
 4. Record expenses, then approve/reject some of them

Everything goes through ledger.Service, so scenario data is audited and
satisfies the same invariants as user data.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "indie-feature"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add a scenarioPlan to 'plans'

SEE ALSO:
  - handlers.go: Handler definition
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/budget-ledger/ledger"
)

// ScenarioActor is recorded as the actor when the request names none.
const ScenarioActor = "scenario-loader"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "indie-feature",
		Name:        "Indie Feature",
		Description: "Feature film budget with pending, approved and rejected expenses",
		Category:    "film",
	},
	{
		ID:          "short-film",
		Name:        "Short Film",
		Description: "Small budget with unallocated headroom",
		Category:    "film",
	},
	{
		ID:          "over-budget",
		Name:        "Over Budget",
		Description: "Equipment spend past its allocation",
		Category:    "film",
	},
}

type plannedCategory struct {
	id, name, notes string
	allocation      int64
}

type plannedExpense struct {
	id, categoryID, description, submittedBy string
	amount                                   float64
	day                                      int // day of March 2025
	outcome                                  ledger.ExpenseStatus
}

type scenarioPlan struct {
	budgetID   ledger.BudgetID
	name       string
	total      int64
	categories []plannedCategory
	expenses   []plannedExpense
}

var plans = map[string]scenarioPlan{
	"indie-feature": {
		budgetID: "indie-feature",
		name:     "Indie Feature: Night Ferry",
		total:    250000,
		categories: []plannedCategory{
			{"cast", "Cast", "Lead and supporting roles", 60000},
			{"crew", "Crew", "", 70000},
			{"equipment", "Equipment", "Camera, grip and lighting rentals", 40000},
			{"locations", "Locations", "Permits and fees", 30000},
			{"post", "Post-Production", "Edit, color, sound", 35000},
		},
		expenses: []plannedExpense{
			{"exp-lead-deposit", "cast", "Lead actor deposit", "producer", 15000, 3, ledger.StatusApproved},
			{"exp-camera", "equipment", "Camera package rental, week 1", "dp", 8500, 5, ledger.StatusPending},
			{"exp-permit", "locations", "Harbor shooting permit", "location-manager", 1200, 6, ledger.StatusApproved},
			{"exp-catering", "crew", "Catering upgrade", "line-producer", 2300, 7, ledger.StatusRejected},
			{"exp-editor", "post", "Editor, first month", "producer", 12000, 10, ledger.StatusPending},
		},
	},
	"short-film": {
		budgetID: "short-film",
		name:     "Short Film: Static",
		total:    15000,
		categories: []plannedCategory{
			{"equipment", "Equipment", "", 5000},
			{"crew", "Crew", "", 6000},
			{"festivals", "Festival Fees", "Submission fees", 1500},
		},
		expenses: []plannedExpense{
			{"exp-lenses", "equipment", "Lens rental", "director", 750, 2, ledger.StatusApproved},
			{"exp-gaffer", "crew", "Gaffer day rate x3", "producer", 1350, 4, ledger.StatusApproved},
			{"exp-sundance", "festivals", "Festival submission", "producer", 95, 20, ledger.StatusPending},
		},
	},
	"over-budget": {
		budgetID: "over-budget",
		name:     "Music Video: Overrun",
		total:    10000,
		categories: []plannedCategory{
			{"equipment", "Equipment", "", 2000},
			{"talent", "Talent", "", 5000},
		},
		expenses: []plannedExpense{
			{"exp-crane", "equipment", "Crane rental", "dp", 1800, 1, ledger.StatusApproved},
			{"exp-drone", "equipment", "Drone operator", "dp", 800, 2, ledger.StatusPending},
			{"exp-dancers", "talent", "Dancers", "choreographer", 3000, 2, ledger.StatusApproved},
		},
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario and returns its budget.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, ok := plans[req.ScenarioID]; !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}

	actor := actorID(r)
	if actor == "" {
		actor = ScenarioActor
	}
	b, err := h.LoadScenarioByID(r.Context(), req.ScenarioID, actor)
	if err != nil {
		writeServiceError(w, r, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(b))
}

// LoadScenarioByID (re)creates the named scenario's budget.
func (h *Handler) LoadScenarioByID(ctx context.Context, id, actor string) (ledger.Budget, error) {
	plan, ok := plans[id]
	if !ok {
		return ledger.Budget{}, fmt.Errorf("unknown scenario %q", id)
	}
	b, err := h.loadPlan(ctx, plan, actor)
	if err != nil {
		return ledger.Budget{}, fmt.Errorf("scenario %s: %w", id, err)
	}

	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
	return b, nil
}

func (h *Handler) loadPlan(ctx context.Context, plan scenarioPlan, actor string) (ledger.Budget, error) {
	svc := h.Service

	err := svc.DeleteBudget(ctx, plan.budgetID, actor)
	if err != nil && !errors.Is(err, ledger.ErrBudgetNotFound) {
		return ledger.Budget{}, err
	}

	b, err := svc.CreateBudget(ctx, ledger.BudgetInput{
		ID:    plan.budgetID,
		Name:  plan.name,
		Total: ledger.MoneyFromInt(plan.total),
	}, actor)
	if err != nil {
		return ledger.Budget{}, err
	}

	for _, c := range plan.categories {
		b, err = svc.AddCategory(ctx, plan.budgetID, ledger.CategoryInput{
			ID:         ledger.CategoryID(c.id),
			Name:       c.name,
			Allocation: ledger.MoneyFromInt(c.allocation),
			Notes:      c.notes,
		}, actor)
		if err != nil {
			return ledger.Budget{}, err
		}
	}

	for _, e := range plan.expenses {
		b, err = svc.AddExpense(ctx, plan.budgetID, ledger.ExpenseInput{
			ID:          ledger.ExpenseID(e.id),
			CategoryID:  ledger.CategoryID(e.categoryID),
			Description: e.description,
			Amount:      ledger.NewMoney(e.amount),
			Date:        time.Date(2025, time.March, e.day, 0, 0, 0, 0, time.UTC),
		}, e.submittedBy)
		if err != nil {
			return ledger.Budget{}, err
		}

		switch e.outcome {
		case ledger.StatusApproved:
			b, err = svc.ApproveExpense(ctx, plan.budgetID, ledger.ExpenseID(e.id), actor)
		case ledger.StatusRejected:
			b, err = svc.RejectExpense(ctx, plan.budgetID, ledger.ExpenseID(e.id), actor)
		}
		if err != nil {
			return ledger.Budget{}, err
		}
	}
	return b, nil
}

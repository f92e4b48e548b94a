/*
scheduler.go - Periodic invariant auditor

PURPOSE:
  Periodically loads every stored budget and runs ledger.CheckInvariants on
  it. Violations are logged at error level with the budget ID and each
  broken rule. Nothing is repaired automatically: a violation means a bug
  or an out-of-band edit to the database, and a human should look.

DESIGN:
  - Run(ctx) blocks until ctx is cancelled, so it slots into an errgroup
  - Checks once immediately, then every Interval
  - An Interval of zero disables the auditor (Run returns at once)

USAGE:
  auditor := api.NewInvariantAuditor(svc, logger)
  auditor.Interval = cfg.AuditInterval
  g.Go(func() error { return auditor.Run(ctx) })

SEE ALSO:
  - ledger/invariants.go: CheckInvariants
*/
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/warp/budget-ledger/ledger"
	"github.com/warp/budget-ledger/logging"
)

// AuditReport is the outcome of one pass over all budgets.
type AuditReport struct {
	At         time.Time
	Checked    int
	Violations map[ledger.BudgetID][]*ledger.InvariantError
}

// Healthy reports whether no budget violated an invariant.
func (r AuditReport) Healthy() bool {
	return len(r.Violations) == 0
}

// InvariantAuditor checks stored budgets on a fixed interval.
type InvariantAuditor struct {
	Service  *ledger.Service
	Logger   *logging.Logger
	Interval time.Duration

	mu   sync.Mutex
	last *AuditReport
}

// NewInvariantAuditor creates an auditor with a 5 minute interval.
func NewInvariantAuditor(svc *ledger.Service, logger *logging.Logger) *InvariantAuditor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &InvariantAuditor{
		Service:  svc,
		Logger:   logger.WithComponent("auditor"),
		Interval: 5 * time.Minute,
	}
}

// Run checks immediately and then on every tick until ctx is done.
func (a *InvariantAuditor) Run(ctx context.Context) error {
	if a.Interval <= 0 {
		a.Logger.InfoContext(ctx, "invariant auditor disabled")
		return nil
	}

	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()

	a.Logger.InfoContext(ctx, "invariant auditor started", "interval", a.Interval)
	for {
		if _, err := a.CheckOnce(ctx); err != nil && ctx.Err() == nil {
			a.Logger.ErrorContext(ctx, "invariant audit failed", logging.FieldError, err)
		}
		select {
		case <-ctx.Done():
			a.Logger.InfoContext(ctx, "invariant auditor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// CheckOnce audits every budget and returns the report.
func (a *InvariantAuditor) CheckOnce(ctx context.Context) (AuditReport, error) {
	budgets, err := a.Service.Budgets(ctx)
	if err != nil {
		return AuditReport{}, err
	}

	report := AuditReport{
		At:         time.Now().UTC(),
		Checked:    len(budgets),
		Violations: make(map[ledger.BudgetID][]*ledger.InvariantError),
	}
	for _, b := range budgets {
		err := ledger.CheckInvariants(b)
		if err == nil {
			continue
		}
		violations := invariantErrors(err)
		report.Violations[b.ID] = violations
		for _, v := range violations {
			a.Logger.ErrorContext(ctx, "invariant violated",
				logging.FieldBudgetID, b.ID, "rule", v.Rule, "detail", v.Detail)
		}
	}

	a.Logger.DebugContext(ctx, "invariant audit complete",
		"checked", report.Checked, "violating_budgets", len(report.Violations))

	a.mu.Lock()
	a.last = &report
	a.mu.Unlock()
	return report, nil
}

// LastReport returns the most recent report, if any pass has completed.
func (a *InvariantAuditor) LastReport() (AuditReport, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return AuditReport{}, false
	}
	return *a.last, true
}

// invariantErrors flattens the joined error from CheckInvariants.
func invariantErrors(err error) []*ledger.InvariantError {
	var out []*ledger.InvariantError
	var walk func(error)
	walk = func(err error) {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				walk(e)
			}
			return
		}
		var ie *ledger.InvariantError
		if errors.As(err, &ie) {
			out = append(out, ie)
		}
	}
	walk(err)
	return out
}

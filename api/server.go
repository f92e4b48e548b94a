/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logging:    Request-scoped slog logger + one line per request
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontends
  5. RateLimit:  Per-IP limit (ulule/limiter, in-memory), /api only

ROUTE GROUPS:
  /api/budgets/*     Budgets, categories, expenses
  /api/scenarios/*   Demo scenarios
  /api/health        Health check

SECURITY NOTE:
  No authentication middleware. X-Actor-ID is trusted as given.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ulule/limiter/v3"
	limiterhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/warp/budget-ledger/logging"
)

// RouterOptions configures cross-cutting middleware.
type RouterOptions struct {
	Logger      *logging.Logger
	CORSOrigins []string // empty means "*"
	RateLimit   string   // limiter format ("300-M"); empty disables
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) (*chi.Mux, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(logger.WithComponent("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", ActorHeader},
		ExposedHeaders: []string{"X-Ratelimit-Limit", "X-Ratelimit-Remaining", "X-Ratelimit-Reset"},
	}))

	var rateLimit func(http.Handler) http.Handler
	if opts.RateLimit != "" {
		rate, err := limiter.NewRateFromFormatted(opts.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("rate limit %q: %w", opts.RateLimit, err)
		}
		rateLimit = limiterhttp.NewMiddleware(limiter.New(memory.NewStore(), rate)).Handler
	}

	r.Route("/api", func(r chi.Router) {
		if rateLimit != nil {
			r.Use(rateLimit)
		}

		r.Get("/health", h.Health)

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", h.ListBudgets)
			r.Post("/", h.CreateBudget)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetBudget)
				r.Delete("/", h.DeleteBudget)
				r.Get("/summary", h.GetSummary)
				r.Get("/audit", h.GetAuditTrail)

				// Category routes
				r.Post("/categories", h.AddCategory)
				r.Delete("/categories/{cid}", h.DeleteCategory)

				// Expense routes
				r.Get("/expenses", h.ListExpenses)
				r.Post("/expenses", h.AddExpense)
				r.Delete("/expenses/{eid}", h.DeleteExpense)
				r.Post("/expenses/{eid}/approve", h.ApproveExpense)
				r.Post("/expenses/{eid}/reject", h.RejectExpense)
			})
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r, nil
}

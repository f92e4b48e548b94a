package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/warp/budget-ledger/config"
	"github.com/warp/budget-ledger/ledger"
	"github.com/warp/budget-ledger/logging"
	"github.com/warp/budget-ledger/store/sqlite"
)

// app is the state shared by every command. The store is opened in
// PersistentPreRunE and closed by execute once the command returns, whether
// or not it failed.
type app struct {
	out io.Writer

	flagDB      string
	flagActor   string
	flagConfig  string
	flagJSON    bool
	flagVerbose bool

	store *sqlite.Store
	svc   *ledger.Service
}

func newApp(out io.Writer) *app {
	return &app{out: out}
}

// execute runs the command tree with args and always releases the store.
// A nil args slice means os.Args[1:].
func (a *app) execute(ctx context.Context, args []string) error {
	root := a.rootCmd()
	if args != nil {
		root.SetArgs(args)
	}
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "budgetctl",
		Short:         "Budget ledger CLI",
		Long:          "Manage project budgets, categories and expenses in a local SQLite ledger.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}
	root.SetOut(a.out)

	root.PersistentFlags().StringVar(&a.flagDB, "db", "", "SQLite database path (default: DB_PATH)")
	root.PersistentFlags().StringVar(&a.flagActor, "actor", "", "Acting user ID (default: $BUDGET_ACTOR, then $USER)")
	root.PersistentFlags().StringVar(&a.flagConfig, "config", "", "Optional config file")
	root.PersistentFlags().BoolVar(&a.flagJSON, "json", false, "Print JSON instead of tables")
	root.PersistentFlags().BoolVarP(&a.flagVerbose, "verbose", "v", false, "Log ledger operations to stderr")

	root.AddCommand(newBudgetCmd(a), newCategoryCmd(a), newExpenseCmd(a))
	return root
}

func (a *app) open(_ context.Context) error {
	cfg, err := config.Load(a.flagConfig)
	if err != nil {
		return err
	}
	dbPath := a.flagDB
	if dbPath == "" {
		dbPath = cfg.DBPath
	}

	level := slog.LevelWarn
	if a.flagVerbose {
		level = slog.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: "budgetctl",
		Output:    os.Stderr,
	})

	store, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}
	a.store = store
	a.svc = ledger.NewService(store, store, logger)
	a.svc.MaxRetries = cfg.MaxRetries
	if cfg.DefaultCurrency != "" {
		a.svc.Ledger.Currency = cfg.DefaultCurrency
	}
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func (a *app) actor() string {
	if a.flagActor != "" {
		return a.flagActor
	}
	if v := os.Getenv("BUDGET_ACTOR"); v != "" {
		return v
	}
	return os.Getenv("USER")
}

// show prints b as JSON or as tables.
func (a *app) show(b ledger.Budget) error {
	if a.flagJSON {
		return printJSON(a.out, b)
	}
	printBudget(a.out, b)
	return nil
}

// done prints a one-line confirmation, unless JSON output was asked for, in
// which case b is printed.
func (a *app) done(b ledger.Budget, format string, args ...any) error {
	if a.flagJSON {
		return printJSON(a.out, b)
	}
	fmt.Fprintf(a.out, "  "+format+"\n", args...)
	fmt.Fprintf(a.out, "  Remaining budget: %s\n", money(b.RemainingBudget, b.Currency))
	return nil
}

// describe turns ledger errors into CLI messages.
func describe(err error) error {
	if rej, ok := ledger.AsRejection(err); ok {
		msg := fmt.Sprintf("%s: %s", rej.Code, rej.Reason)
		fields := make([]string, 0, len(rej.Fields))
		for field := range rej.Fields {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			msg += fmt.Sprintf("\n  %s: %s", field, rej.Fields[field])
		}
		return errors.New(msg)
	}
	return err
}

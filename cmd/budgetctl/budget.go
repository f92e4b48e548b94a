package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/budget-ledger/ledger"
)

func newBudgetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Create, inspect and delete budgets",
	}
	cmd.AddCommand(
		newBudgetCreateCmd(a),
		newBudgetListCmd(a),
		newBudgetShowCmd(a),
		newBudgetSummaryCmd(a),
		newBudgetDeleteCmd(a),
	)
	return cmd
}

func newBudgetCreateCmd(a *app) *cobra.Command {
	var id, name, total, currency string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			amount, err := ledger.ParseMoney(total)
			if err != nil {
				return fmt.Errorf("invalid --total %q: %w", total, err)
			}
			b, err := a.svc.CreateBudget(cmd.Context(), ledger.BudgetInput{
				ID:       ledger.BudgetID(id),
				Name:     name,
				Total:    amount,
				Currency: currency,
			}, a.actor())
			if err != nil {
				return describe(err)
			}
			return a.done(b, "Created budget %s (%s)", b.Name, b.ID)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Budget ID (generated when empty)")
	cmd.Flags().StringVar(&name, "name", "", "Budget name")
	cmd.Flags().StringVar(&total, "total", "0", "Total budget")
	cmd.Flags().StringVar(&currency, "currency", "", "ISO 4217 currency code (default: DEFAULT_CURRENCY)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newBudgetListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			budgets, err := a.svc.Budgets(cmd.Context())
			if err != nil {
				return err
			}
			if a.flagJSON {
				return printJSON(a.out, budgets)
			}
			if len(budgets) == 0 {
				fmt.Fprintln(a.out, mutedStyle.Render("  No budgets."))
				return nil
			}
			rows := make([][]string, len(budgets))
			for i, b := range budgets {
				rows[i] = []string{
					string(b.ID), b.Name, b.Currency,
					b.TotalBudget.String(), b.AllocatedBudget.String(), b.RemainingBudget.String(),
					fmt.Sprint(len(b.Expenses)),
				}
			}
			fmt.Fprintln(a.out, renderTable(
				[]string{"ID", "Name", "Cur", "Total", "Allocated", "Remaining", "Expenses"},
				rows, 3, 4, 5, 6))
			return nil
		},
	}
}

func newBudgetShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <budget-id>",
		Short: "Show a budget with its categories and expenses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.svc.Budget(cmd.Context(), ledger.BudgetID(args[0]))
			if err != nil {
				return describe(err)
			}
			return a.show(b)
		},
	}
}

func newBudgetSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <budget-id>",
		Short: "Show spend by status and category utilization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.svc.Budget(cmd.Context(), ledger.BudgetID(args[0]))
			if err != nil {
				return describe(err)
			}
			s := ledger.Summarize(b)
			if a.flagJSON {
				return printJSON(a.out, s)
			}
			printSummary(a.out, s)
			return nil
		},
	}
}

func newBudgetDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <budget-id>",
		Short: "Delete a budget and everything in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.DeleteBudget(cmd.Context(), ledger.BudgetID(args[0]), a.actor()); err != nil {
				return describe(err)
			}
			fmt.Fprintf(a.out, "  Deleted budget %s\n", args[0])
			return nil
		},
	}
}

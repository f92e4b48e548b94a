package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/budget-ledger/ledger"
)

func newExpenseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Record, review and remove expenses",
	}
	cmd.AddCommand(
		newExpenseAddCmd(a),
		newExpenseListCmd(a),
		newExpenseDecisionCmd(a, "approve", "Approve a pending expense", a.approve),
		newExpenseDecisionCmd(a, "reject", "Reject a pending expense and return its amount", a.reject),
		newExpenseDeleteCmd(a),
	)
	return cmd
}

func newExpenseAddCmd(a *app) *cobra.Command {
	var id, categoryID, description, amount, date, status, notes string

	cmd := &cobra.Command{
		Use:   "add <budget-id>",
		Short: "Record an expense against a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := ledger.ParseMoney(amount)
			if err != nil {
				return fmt.Errorf("invalid --amount %q: %w", amount, err)
			}
			day := time.Now().UTC().Truncate(24 * time.Hour)
			if date != "" {
				if day, err = time.Parse("2006-01-02", date); err != nil {
					return fmt.Errorf("invalid --date %q (use YYYY-MM-DD): %w", date, err)
				}
			}
			b, err := a.svc.AddExpense(cmd.Context(), ledger.BudgetID(args[0]), ledger.ExpenseInput{
				ID:          ledger.ExpenseID(id),
				CategoryID:  ledger.CategoryID(categoryID),
				Description: description,
				Amount:      value,
				Date:        day,
				Status:      ledger.ExpenseStatus(status),
				Notes:       notes,
			}, a.actor())
			if err != nil {
				return describe(err)
			}
			added := b.Expenses[len(b.Expenses)-1]
			return a.done(b, "Recorded expense %s: %s (%s)", added.ID, money(added.Amount, b.Currency), added.Status)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Expense ID (generated when empty)")
	cmd.Flags().StringVar(&categoryID, "category", "", "Category ID")
	cmd.Flags().StringVar(&description, "description", "", "What the money was spent on")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount (must be positive)")
	cmd.Flags().StringVar(&date, "date", "", "Expense date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&status, "status", "", "Initial status: pending (default) or approved")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newExpenseListCmd(a *app) *cobra.Command {
	var status, categoryID, query string

	cmd := &cobra.Command{
		Use:   "list <budget-id>",
		Short: "List expenses, optionally filtered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ledger.ExpenseFilter{
				Status:     ledger.ExpenseStatus(status),
				CategoryID: ledger.CategoryID(categoryID),
				Query:      query,
			}
			if filter.Status != "" && !filter.Status.Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			b, err := a.svc.Budget(cmd.Context(), ledger.BudgetID(args[0]))
			if err != nil {
				return describe(err)
			}
			expenses := ledger.FilterExpenses(b, filter)
			if a.flagJSON {
				return printJSON(a.out, expenses)
			}
			printExpenses(a.out, expenses)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only this status")
	cmd.Flags().StringVar(&categoryID, "category", "", "Only this category ID")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Text to match in description, notes or submitter")
	return cmd
}

type decision func(cmd *cobra.Command, budgetID ledger.BudgetID, expenseID ledger.ExpenseID) (ledger.Budget, error)

func (a *app) approve(cmd *cobra.Command, budgetID ledger.BudgetID, expenseID ledger.ExpenseID) (ledger.Budget, error) {
	return a.svc.ApproveExpense(cmd.Context(), budgetID, expenseID, a.actor())
}

func (a *app) reject(cmd *cobra.Command, budgetID ledger.BudgetID, expenseID ledger.ExpenseID) (ledger.Budget, error) {
	return a.svc.RejectExpense(cmd.Context(), budgetID, expenseID, a.actor())
}

func newExpenseDecisionCmd(a *app, use, short string, decide decision) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <budget-id> <expense-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := decide(cmd, ledger.BudgetID(args[0]), ledger.ExpenseID(args[1]))
			if err != nil {
				return describe(err)
			}
			e, _ := b.Expense(ledger.ExpenseID(args[1]))
			return a.done(b, "Expense %s is %s", e.ID, e.Status)
		},
	}
}

func newExpenseDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <budget-id> <expense-id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.svc.DeleteExpense(cmd.Context(), ledger.BudgetID(args[0]), ledger.ExpenseID(args[1]), a.actor())
			if err != nil {
				return describe(err)
			}
			return a.done(b, "Deleted expense %s", args[1])
		},
	}
}

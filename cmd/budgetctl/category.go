package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/budget-ledger/ledger"
)

func newCategoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Add and delete budget categories",
	}
	cmd.AddCommand(newCategoryAddCmd(a), newCategoryDeleteCmd(a))
	return cmd
}

func newCategoryAddCmd(a *app) *cobra.Command {
	var id, name, allocation, notes string

	cmd := &cobra.Command{
		Use:   "add <budget-id>",
		Short: "Add a category with an allocation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := ledger.ParseMoney(allocation)
			if err != nil {
				return fmt.Errorf("invalid --allocation %q: %w", allocation, err)
			}
			b, err := a.svc.AddCategory(cmd.Context(), ledger.BudgetID(args[0]), ledger.CategoryInput{
				ID:         ledger.CategoryID(id),
				Name:       name,
				Allocation: amount,
				Notes:      notes,
			}, a.actor())
			if err != nil {
				return describe(err)
			}
			added := b.Categories[len(b.Categories)-1]
			return a.done(b, "Added category %s (%s) with %s", added.Name, added.ID, money(added.Allocation, b.Currency))
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Category ID (generated when empty)")
	cmd.Flags().StringVar(&name, "name", "", "Category name")
	cmd.Flags().StringVar(&allocation, "allocation", "0", "Amount allocated to the category")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCategoryDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <budget-id> <category-id>",
		Short: "Delete a category that has no expenses",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.svc.DeleteCategory(cmd.Context(), ledger.BudgetID(args[0]), ledger.CategoryID(args[1]), a.actor())
			if err != nil {
				return describe(err)
			}
			return a.done(b, "Deleted category %s", args[1])
		},
	}
}

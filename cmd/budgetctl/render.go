package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/warp/budget-ledger/ledger"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorAccent = lipgloss.Color("#3AA99F")
	colorRed    = lipgloss.Color("#D14D41")
	colorGreen  = lipgloss.Color("#879A39")
	colorOrange = lipgloss.Color("#DA702C")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorBorder)
	warnStyle   = lipgloss.NewStyle().Foreground(colorOrange)
)

// statusStyle colors an expense status.
func statusStyle(s ledger.ExpenseStatus) lipgloss.Style {
	switch s {
	case ledger.StatusApproved, ledger.StatusReimbursed:
		return lipgloss.NewStyle().Foreground(colorGreen)
	case ledger.StatusRejected:
		return lipgloss.NewStyle().Foreground(colorRed)
	default:
		return lipgloss.NewStyle().Foreground(colorOrange)
	}
}

// renderTable draws a rounded table. Columns listed in numeric are
// right-aligned.
func renderTable(headers []string, rows [][]string, numeric ...int) string {
	right := make(map[int]bool, len(numeric))
	for _, c := range numeric {
		right[c] = true
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case right[col]:
				return numberStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}

func printTitle(w io.Writer, title string) {
	fmt.Fprintln(w, titleStyle.Render(title))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func money(m ledger.Money, currency string) string {
	if currency == "" {
		return m.String()
	}
	return m.String() + " " + currency
}

func printBudget(w io.Writer, b ledger.Budget) {
	printTitle(w, fmt.Sprintf("%s (%s)", b.Name, b.ID))
	fmt.Fprintf(w, "  Total:     %s\n", money(b.TotalBudget, b.Currency))
	fmt.Fprintf(w, "  Allocated: %s\n", money(b.AllocatedBudget, b.Currency))
	fmt.Fprintf(w, "  Remaining: %s\n", money(b.RemainingBudget, b.Currency))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  version %d, updated %s", b.Version, b.LastUpdated.Format("2006-01-02 15:04"))))
	fmt.Fprintln(w)

	if len(b.Categories) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  No categories."))
	} else {
		rows := make([][]string, len(b.Categories))
		for i, c := range b.Categories {
			rows[i] = []string{string(c.ID), c.Name, c.Allocation.String(), c.Spent.String(), c.Remaining.String()}
		}
		fmt.Fprintln(w, renderTable([]string{"ID", "Category", "Allocation", "Spent", "Remaining"}, rows, 2, 3, 4))
	}

	if len(b.Expenses) > 0 {
		fmt.Fprintln(w)
		printExpenses(w, b.Expenses)
	}
}

func printExpenses(w io.Writer, expenses []ledger.Expense) {
	if len(expenses) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  No expenses."))
		return
	}
	rows := make([][]string, len(expenses))
	for i, e := range expenses {
		approver := ""
		if e.ApprovedBy != nil {
			approver = *e.ApprovedBy
		}
		rows[i] = []string{
			string(e.ID),
			e.Date.Format("2006-01-02"),
			string(e.CategoryID),
			e.Description,
			e.Amount.String(),
			statusStyle(e.Status).Render(string(e.Status)),
			e.SubmittedBy,
			approver,
		}
	}
	fmt.Fprintln(w, renderTable(
		[]string{"ID", "Date", "Category", "Description", "Amount", "Status", "Submitted", "Decided"},
		rows, 4))
}

func printSummary(w io.Writer, s ledger.Summary) {
	printTitle(w, fmt.Sprintf("Summary: %s", s.BudgetID))
	fmt.Fprintf(w, "  Total:       %s\n", money(s.TotalBudget, s.Currency))
	fmt.Fprintf(w, "  Allocated:   %s\n", money(s.AllocatedBudget, s.Currency))
	fmt.Fprintf(w, "  Unallocated: %s\n", money(s.Unallocated, s.Currency))
	fmt.Fprintf(w, "  Spent:       %s\n", money(s.TotalSpent, s.Currency))
	fmt.Fprintf(w, "  Remaining:   %s\n", money(s.RemainingBudget, s.Currency))
	fmt.Fprintln(w)

	statusRows := [][]string{}
	for _, st := range []ledger.ExpenseStatus{ledger.StatusPending, ledger.StatusApproved, ledger.StatusRejected, ledger.StatusReimbursed} {
		t := s.ByStatus[st]
		statusRows = append(statusRows, []string{string(st), fmt.Sprint(t.Count), t.Amount.String()})
	}
	fmt.Fprintln(w, renderTable([]string{"Status", "Count", "Amount"}, statusRows, 1, 2))

	if len(s.Categories) > 0 {
		rows := make([][]string, len(s.Categories))
		for i, c := range s.Categories {
			rows[i] = []string{c.Name, c.Allocation.String(), c.Spent.String(), c.PercentUsed.StringFixed(1) + "%"}
		}
		fmt.Fprintln(w, renderTable([]string{"Category", "Allocation", "Spent", "Used"}, rows, 1, 2, 3))
	}

	if len(s.OverBudget) > 0 {
		ids := make([]string, len(s.OverBudget))
		for i, id := range s.OverBudget {
			ids[i] = string(id)
		}
		fmt.Fprintln(w, warnStyle.Render("  Over budget: "+strings.Join(ids, ", ")))
	}
}

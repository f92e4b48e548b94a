// Command budgetctl manages budgets in the ledger's SQLite database from the
// command line.
//
//	budgetctl budget create --name "Night Ferry" --total 250000
//	budgetctl category add <budget-id> --name Cast --allocation 60000
//	budgetctl expense add <budget-id> --category <id> --amount 1500 --description "Deposit"
//	budgetctl expense approve <budget-id> <expense-id> --actor producer
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newApp(os.Stdout).execute(context.Background(), nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

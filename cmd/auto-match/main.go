package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/models"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"bitbucket.org/mmdatafocus/ledger_backend/workflow"
)

// Runs one auto-match pass over a bank account's open transactions.
func main() {
	businessID := flag.String("business-id", "", "Business to match (required)")
	bankAccountID := flag.Int("bank-account-id", 0, "Bank-linked GL account id (required)")
	runID := flag.String("run-id", "", "Optional idempotency key; retried runs with the same id are no-ops")
	threshold := flag.Float64("threshold", 0, "Auto-apply confidence threshold; 0 uses the configured default")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" || *bankAccountID <= 0 {
		fmt.Fprintln(os.Stderr, "-business-id and -bank-account-id are required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	config.ConnectRedis()
	models.MigrateTable()

	ctx := context.Background()
	ctx = utils.SetBusinessIdInContext(ctx, strings.TrimSpace(*businessID))
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "AutoMatch")

	result, err := workflow.RunAutoMatch(ctx, *bankAccountID, strings.TrimSpace(*runID), *threshold)
	if err != nil {
		if err == workflow.ErrDuplicateTrigger {
			fmt.Println("run already processed, nothing to do")
			return
		}
		fmt.Fprintf(os.Stderr, "auto-match failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("auto-match: processed=%d matched=%d suggested=%d unmatched=%d\n",
		result.Processed, result.AutoMatched, result.Suggested, result.Unmatched)
	for _, d := range result.Details {
		if d.Action == "unmatched" {
			continue
		}
		fmt.Printf("  %s: txn=%d %s=%d confidence=%.3f\n",
			d.Action, d.BankTransactionId, d.CandidateType, d.CandidateId, d.Confidence)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "transaction %d skipped: %s\n", e.BankTransactionId, e.Reason)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/models"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"bitbucket.org/mmdatafocus/ledger_backend/workflow"
)

// Runs the full close flow for one business and date:
// capture openings -> calculate closings -> complete, optionally lock.
func main() {
	businessID := flag.String("business-id", "", "Business to close (required)")
	dateArg := flag.String("date", "", "Close date (YYYY-MM-DD). Defaults to yesterday UTC.")
	lock := flag.Bool("lock", false, "Lock the day after completing it")
	lockReason := flag.String("lock-reason", "scheduled daily close", "Reason recorded when locking")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" {
		fmt.Fprintln(os.Stderr, "-business-id is required")
		os.Exit(1)
	}

	date := time.Now().UTC().AddDate(0, 0, -1)
	if strings.TrimSpace(*dateArg) != "" {
		var err error
		date, err = time.Parse("2006-01-02", strings.TrimSpace(*dateArg))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -date: %v\n", err)
			os.Exit(1)
		}
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
	ctx = utils.SetUserNameInContext(ctx, "DailyClose")

	fmt.Printf("Closing business=%s date=%s\n", *businessID, date.Format("2006-01-02"))

	opening, err := workflow.CaptureOpening(ctx, date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "capture opening failed: %v\n", err)
		os.Exit(1)
	}
	report("capture-opening", opening)

	closing, err := workflow.CalculateClosing(ctx, date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "calculate closing failed: %v\n", err)
		os.Exit(1)
	}
	report("calculate-closing", closing)

	completed, err := workflow.CompleteDay(ctx, date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "complete day failed: %v\n", err)
		os.Exit(1)
	}
	report("complete", completed)

	if *lock {
		lockResult, err := workflow.LockDay(ctx, date, *lockReason)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lock day failed: %v\n", err)
			os.Exit(1)
		}
		report("lock", lockResult)
	}

	fmt.Println("Daily close complete")
}

func report(step string, result *workflow.CycleResult) {
	fmt.Printf("%s: processed %d/%d accounts, opening=%s closing=%s movement=%s\n",
		step, result.AccountsProcessed, result.TotalAccounts,
		result.TotalOpeningBalance, result.TotalClosingBalance, result.TotalDailyMovement)
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "%s: account %d skipped: %s\n", step, e.AccountId, e.Reason)
	}
}

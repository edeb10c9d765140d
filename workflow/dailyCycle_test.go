package workflow

import (
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(businessId string, d time.Time, opening, dailyDebit, dailyCredit string) models.DailyBalance {
	return models.DailyBalance{
		BusinessId:     businessId,
		BalanceDate:    d,
		OpeningBalance: dec(opening),
		DailyDebit:     dec(dailyDebit),
		DailyCredit:    dec(dailyCredit),
	}
}

func TestApplyDaySumsDebitNormalAccount(t *testing.T) {
	row := models.DailyBalance{
		OpeningDebit:   dec("500.00"),
		OpeningCredit:  dec("100.00"),
		OpeningBalance: dec("400.00"),
	}
	applyDaySums(&row, models.BalanceSideDebit, dec("250.00"), dec("75.00"))

	if !row.DailyNetMovement.Equal(dec("175.00")) {
		t.Fatalf("expected net movement 175.00, got %s", row.DailyNetMovement)
	}
	if !row.ClosingDebit.Equal(dec("750.00")) || !row.ClosingCredit.Equal(dec("175.00")) {
		t.Fatalf("expected closing sides 750.00/175.00, got %s/%s", row.ClosingDebit, row.ClosingCredit)
	}
	if !row.ClosingBalance.Equal(dec("575.00")) {
		t.Fatalf("expected closing balance 575.00, got %s", row.ClosingBalance)
	}
}

func TestApplyDaySumsCreditNormalAccount(t *testing.T) {
	row := models.DailyBalance{
		OpeningBalance: dec("1000.00"),
	}
	applyDaySums(&row, models.BalanceSideCredit, dec("300.00"), dec("120.00"))

	if !row.DailyNetMovement.Equal(dec("-180.00")) {
		t.Fatalf("expected net movement -180.00, got %s", row.DailyNetMovement)
	}
	if !row.ClosingBalance.Equal(dec("820.00")) {
		t.Fatalf("expected closing balance 820.00, got %s", row.ClosingBalance)
	}
}

func TestNetMovementSignFollowsNormalSide(t *testing.T) {
	debit := netMovement(models.BalanceSideDebit, dec("10.00"), dec("4.00"))
	credit := netMovement(models.BalanceSideCredit, dec("10.00"), dec("4.00"))
	if !debit.Equal(dec("6.00")) {
		t.Fatalf("debit-normal movement: expected 6.00, got %s", debit)
	}
	if !credit.Equal(dec("-6.00")) {
		t.Fatalf("credit-normal movement: expected -6.00, got %s", credit)
	}
}

func TestRecalculateForwardChainsClosings(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	amended := day("biz-1", start, "100.00", "50.00", "0.00")
	applyDaySums(&amended, models.BalanceSideDebit, amended.DailyDebit, amended.DailyCredit)

	downstream := []models.DailyBalance{
		day("biz-1", start.AddDate(0, 0, 1), "999.99", "20.00", "5.00"),
		day("biz-1", start.AddDate(0, 0, 2), "999.99", "0.00", "30.00"),
		day("biz-1", start.AddDate(0, 0, 3), "999.99", "10.00", "10.00"),
	}

	recomputed := recalculateForward(models.BalanceSideDebit, amended, downstream)
	if len(recomputed) != len(downstream) {
		t.Fatalf("expected %d recomputed days, got %d", len(downstream), len(recomputed))
	}

	// Each day's opening must equal the previous day's closing.
	prev := amended
	for i, got := range recomputed {
		if !got.OpeningBalance.Equal(prev.ClosingBalance) {
			t.Fatalf("day %d: opening %s does not equal prior closing %s",
				i, got.OpeningBalance, prev.ClosingBalance)
		}
		expected := got.OpeningBalance.Add(got.DailyDebit).Sub(got.DailyCredit)
		if !got.ClosingBalance.Equal(expected) {
			t.Fatalf("day %d: closing %s, expected %s", i, got.ClosingBalance, expected)
		}
		prev = got
	}

	// 150 -> 165 -> 135 -> 135 with the stale 999.99 openings repaired.
	if !recomputed[2].ClosingBalance.Equal(dec("135.00")) {
		t.Fatalf("final closing: expected 135.00, got %s", recomputed[2].ClosingBalance)
	}

	// Recomputed days land back in Completed.
	for i, got := range recomputed {
		if got.CycleStatus != models.CycleStatusCompleted {
			t.Fatalf("day %d: expected Completed after cascade, got %s", i, got.CycleStatus)
		}
	}
}

func TestSeedOpeningFromPriorCarriesAcrossGapDays(t *testing.T) {
	// The latest snapshot is two days old; its closing must still carry over.
	prior := models.DailyBalance{
		BalanceDate:    time.Date(2026, 7, 8, 0, 0, 0, 0, time.UTC),
		CycleStatus:    models.CycleStatusCompleted,
		ClosingDebit:   dec("700.00"),
		ClosingCredit:  dec("200.00"),
		ClosingBalance: dec("500.00"),
	}
	opening := models.DailyBalance{BalanceDate: time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)}

	if err := seedOpeningFromPrior(&opening, &prior); err != nil {
		t.Fatal(err)
	}
	if !opening.OpeningBalance.Equal(dec("500.00")) {
		t.Fatalf("expected opening 500.00 carried from the latest closing, got %s", opening.OpeningBalance)
	}
	if !opening.OpeningDebit.Equal(dec("700.00")) || !opening.OpeningCredit.Equal(dec("200.00")) {
		t.Fatalf("expected opening sides 700.00/200.00, got %s/%s", opening.OpeningDebit, opening.OpeningCredit)
	}
}

func TestSeedOpeningFromPriorRejectsUncompletedPrior(t *testing.T) {
	prior := models.DailyBalance{
		BalanceDate: time.Date(2026, 7, 9, 0, 0, 0, 0, time.UTC),
		CycleStatus: models.CycleStatusClosingCalculated,
	}
	opening := models.DailyBalance{}

	err := seedOpeningFromPrior(&opening, &prior)
	if !errors.Is(err, ErrMissingPriorClosing) {
		t.Fatalf("expected ErrMissingPriorClosing, got %v", err)
	}
}

func TestSeedOpeningFromPriorNoHistoryStartsAtZero(t *testing.T) {
	opening := models.DailyBalance{}
	if err := seedOpeningFromPrior(&opening, nil); err != nil {
		t.Fatal(err)
	}
	if !opening.OpeningBalance.IsZero() {
		t.Fatalf("expected zero opening without history, got %s", opening.OpeningBalance)
	}
}

func TestRecalculateForwardLeavesInputsUntouched(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	amended := day("biz-1", start, "100.00", "0.00", "0.00")
	applyDaySums(&amended, models.BalanceSideDebit, amended.DailyDebit, amended.DailyCredit)

	downstream := []models.DailyBalance{
		day("biz-1", start.AddDate(0, 0, 1), "42.00", "1.00", "0.00"),
	}
	_ = recalculateForward(models.BalanceSideDebit, amended, downstream)

	if !downstream[0].OpeningBalance.Equal(dec("42.00")) {
		t.Fatalf("input slice must not be mutated, opening became %s", downstream[0].OpeningBalance)
	}
}

func TestCycleStatusTransitions(t *testing.T) {
	cases := []struct {
		from models.CycleStatus
		to   models.CycleStatus
		ok   bool
	}{
		{models.CycleStatusPending, models.CycleStatusOpeningCaptured, true},
		{models.CycleStatusOpeningCaptured, models.CycleStatusOpeningCaptured, true},
		{models.CycleStatusOpeningCaptured, models.CycleStatusClosingCalculated, true},
		{models.CycleStatusClosingCalculated, models.CycleStatusCompleted, true},
		{models.CycleStatusCompleted, models.CycleStatusClosingCalculated, true},
		{models.CycleStatusPending, models.CycleStatusClosingCalculated, false},
		{models.CycleStatusPending, models.CycleStatusCompleted, false},
		{models.CycleStatusCompleted, models.CycleStatusOpeningCaptured, false},
	}
	for _, c := range cases {
		row := models.DailyBalance{CycleStatus: c.from}
		if got := row.CanTransitionTo(c.to); got != c.ok {
			t.Fatalf("%s -> %s: expected %v, got %v", c.from, c.to, c.ok, got)
		}
	}
}

func TestGracePeriodWindow(t *testing.T) {
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	ends := now.Add(24 * time.Hour)
	locked := true
	allows := true

	row := models.DailyBalance{
		IsLocked:          &locked,
		AllowsAdjustments: &allows,
		GracePeriodEnds:   &ends,
	}
	if !row.InGracePeriod(now) {
		t.Fatal("expected day inside the grace window")
	}
	if row.InGracePeriod(ends.Add(time.Minute)) {
		t.Fatal("expected grace window to be over")
	}

	unlocked := models.DailyBalance{GracePeriodEnds: &ends, AllowsAdjustments: &allows}
	if unlocked.InGracePeriod(now) {
		t.Fatal("an unlocked day has no grace window")
	}
}

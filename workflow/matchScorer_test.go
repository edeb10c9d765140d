package workflow

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestScoreMatchAllFactorsExact(t *testing.T) {
	cfg := DefaultScorerConfig()
	txn := TransactionRecord{
		Amount:          decimal.NewFromFloat(1250.00),
		TransactionDate: date(2026, 3, 14),
		ReferenceNumber: "INV-00042",
		Description:     "PAYMENT ACME CORPORATION INV-00042",
	}
	candidate := CandidateRecord{
		Amount:           decimal.NewFromFloat(1250.00),
		RecordDate:       date(2026, 3, 14),
		ReferenceNumber:  "INV-00042",
		CounterpartyName: "Acme Corporation",
	}

	score := ScoreMatch(cfg, txn, candidate)
	if score.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0, got %v", score.Confidence)
	}
	if len(score.Reasons) != 4 {
		t.Fatalf("expected 4 factor reasons, got %d", len(score.Reasons))
	}
}

func TestScoreMatchNearMissStaysBelowSuggestThreshold(t *testing.T) {
	cfg := DefaultScorerConfig()
	// 2% amount difference and 3 days apart, nothing else in common:
	// 0.625*0.40 + 0.67*0.30 = 0.451.
	txn := TransactionRecord{
		Amount:          decimal.NewFromFloat(100.00),
		TransactionDate: date(2026, 3, 14),
		ReferenceNumber: "TRX-881",
		Description:     "CARD SETTLEMENT",
	}
	candidate := CandidateRecord{
		Amount:           decimal.NewFromFloat(102.00),
		RecordDate:       date(2026, 3, 17),
		ReferenceNumber:  "INV-00099",
		CounterpartyName: "Globex",
	}

	score := ScoreMatch(cfg, txn, candidate)
	if score.Confidence != 0.451 {
		t.Fatalf("expected confidence 0.451, got %v", score.Confidence)
	}
	if score.Confidence >= 0.5 {
		t.Fatalf("near miss must stay below the suggest threshold, got %v", score.Confidence)
	}
}

func TestScoreMatchIsDeterministic(t *testing.T) {
	cfg := DefaultScorerConfig()
	txn := TransactionRecord{
		Amount:          decimal.NewFromFloat(310.55),
		TransactionDate: date(2026, 5, 2),
		ReferenceNumber: "REF-1",
		Description:     "WIRE INITECH LLC",
	}
	candidate := CandidateRecord{
		Amount:           decimal.NewFromFloat(309.99),
		RecordDate:       date(2026, 5, 3),
		ReferenceNumber:  "REF-10",
		CounterpartyName: "Initech LLC",
	}

	first := ScoreMatch(cfg, txn, candidate)
	for i := 0; i < 50; i++ {
		again := ScoreMatch(cfg, txn, candidate)
		if again.Confidence != first.Confidence {
			t.Fatalf("run %d: confidence changed from %v to %v", i, first.Confidence, again.Confidence)
		}
	}
}

func TestScoreAmountTiersAreMonotonic(t *testing.T) {
	cfg := DefaultScorerConfig()
	base := decimal.NewFromFloat(1000.00)
	diffs := []decimal.Decimal{
		decimal.NewFromFloat(1000.00), // exact
		decimal.NewFromFloat(1005.00), // 0.5%
		decimal.NewFromFloat(1030.00), // ~2.9%
		decimal.NewFromFloat(1080.00), // ~7.4%
		decimal.NewFromFloat(1300.00), // out of tiers
	}
	prev := 2.0
	for _, candidate := range diffs {
		got := scoreAmount(cfg, base, candidate)
		if got > prev {
			t.Fatalf("amount score must not increase as the difference grows: %v then %v", prev, got)
		}
		prev = got
	}
	if prev != 0 {
		t.Fatalf("difference beyond all tiers must score 0, got %v", prev)
	}
}

func TestScoreDateTiers(t *testing.T) {
	cfg := DefaultScorerConfig()
	base := date(2026, 6, 10)
	cases := []struct {
		days int
		want float64
	}{
		{0, 1.0},
		{1, 0.83},
		{2, 0.67},
		{3, 0.67},
		{7, 0.5},
		{14, 0.33},
		{15, 0},
	}
	for _, c := range cases {
		got := scoreDate(cfg, base, base.AddDate(0, 0, c.days))
		if got != c.want {
			t.Fatalf("%d day(s): expected %v, got %v", c.days, c.want, got)
		}
		// symmetric
		back := scoreDate(cfg, base, base.AddDate(0, 0, -c.days))
		if back != got {
			t.Fatalf("%d day(s): date score must be symmetric, got %v and %v", c.days, got, back)
		}
	}
}

func TestScoreReferenceContainmentAndTokens(t *testing.T) {
	cfg := DefaultScorerConfig()
	if got := scoreReference(cfg, "inv 00042", "", "INV-00042"); got != 1.0 {
		t.Fatalf("normalized exact references must score 1.0, got %v", got)
	}
	if got := scoreReference(cfg, "PAYMENT INV-00042 MARCH", "", "INV-00042"); got != 1.0 {
		t.Fatalf("verbatim containment in the reference must score 1.0, got %v", got)
	}
	if got := scoreReference(cfg, "TRX-99", "PAYMENT FOR INV-00042", "INV-00042"); got != 1.0 {
		t.Fatalf("verbatim containment in the description must score 1.0, got %v", got)
	}
	// only the numeric token survives hyphen splitting here
	if got := scoreReference(cfg, "REF 00042", "", "INV-00042-A"); got != cfg.PartialReferenceScore {
		t.Fatalf("token hit must score %v, got %v", cfg.PartialReferenceScore, got)
	}
	if got := scoreReference(cfg, "", "", "INV-00042"); got != 0 {
		t.Fatalf("missing reference and description must score 0, got %v", got)
	}
	if got := scoreReference(cfg, "AB", "", "AB"); got != 1.0 {
		t.Fatalf("short but identical references still match exactly, got %v", got)
	}
}

func TestScoreNameSkipsShortTokens(t *testing.T) {
	cfg := DefaultScorerConfig()
	if got := scoreName(cfg, "WIRE FROM ACME CORPORATION NYC", "Acme Corporation"); got != 1.0 {
		t.Fatalf("full name containment must score 1.0, got %v", got)
	}
	// "of" and "co" are below the token length cutoff and must not count.
	got := scoreName(cfg, "TRANSFER GLOBEX SETTLEMENT", "Globex co of")
	if got != 1.0 {
		t.Fatalf("only long tokens count, expected 1.0, got %v", got)
	}
	if got := scoreName(cfg, "CASH DEPOSIT", "Initech"); got != 0 {
		t.Fatalf("no overlap must score 0, got %v", got)
	}
}

func TestScoreNameSingleTokenHitScoresFull(t *testing.T) {
	cfg := DefaultScorerConfig()
	// one of three qualifying tokens appearing is enough for full weight
	got := scoreName(cfg, "WIRE TRANSFER ACME REF 11", "Acme Corporation Holdings")
	if got != 1.0 {
		t.Fatalf("any qualifying token hit must score 1.0, got %v", got)
	}
}

func TestScoreMatchConfidenceBounds(t *testing.T) {
	cfg := DefaultScorerConfig()
	txn := TransactionRecord{
		Amount:          decimal.NewFromFloat(10.00),
		TransactionDate: date(2026, 1, 1),
	}
	worst := CandidateRecord{
		Amount:     decimal.NewFromFloat(9999.00),
		RecordDate: date(2026, 9, 1),
	}
	score := ScoreMatch(cfg, txn, worst)
	if score.Confidence < 0 || score.Confidence > 1 {
		t.Fatalf("confidence must stay in [0, 1], got %v", score.Confidence)
	}
	if score.Confidence != 0 {
		t.Fatalf("nothing in common must score 0, got %v", score.Confidence)
	}
}

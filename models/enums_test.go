package models

import "testing"

func TestNormalBalanceSide(t *testing.T) {
	cases := []struct {
		mainType AccountMainType
		side     BalanceSide
	}{
		{AccountMainTypeAsset, BalanceSideDebit},
		{AccountMainTypeExpense, BalanceSideDebit},
		{AccountMainTypeLiability, BalanceSideCredit},
		{AccountMainTypeEquity, BalanceSideCredit},
		{AccountMainTypeRevenue, BalanceSideCredit},
	}
	for _, c := range cases {
		if got := c.mainType.NormalBalanceSide(); got != c.side {
			t.Fatalf("%s: expected %s, got %s", c.mainType, c.side, got)
		}
	}
}

func TestAccountMainTypeValid(t *testing.T) {
	if !AccountMainTypeRevenue.Valid() {
		t.Fatal("Revenue is a valid main type")
	}
	if AccountMainType("Income").Valid() {
		t.Fatal("unknown main types must be rejected")
	}
}

func TestParseMatchCandidateType(t *testing.T) {
	if got, err := ParseMatchCandidateType("LedgerEntry"); err != nil || got != MatchCandidateTypeLedgerEntry {
		t.Fatalf("expected LedgerEntry, got %q (%v)", got, err)
	}
	if got, err := ParseMatchCandidateType("Invoice"); err != nil || got != MatchCandidateTypeInvoice {
		t.Fatalf("expected Invoice, got %q (%v)", got, err)
	}
	if _, err := ParseMatchCandidateType("Receipt"); err == nil {
		t.Fatal("unknown candidate types must be rejected")
	}
}

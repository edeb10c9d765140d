package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/ledger_backend/models"
	"github.com/shopspring/decimal"
)

func TestMatchCacheClaimOnce(t *testing.T) {
	cache := NewMatchCache()

	if !cache.Claim(models.MatchCandidateTypeLedgerEntry, 7) {
		t.Fatal("first claim must succeed")
	}
	if cache.Claim(models.MatchCandidateTypeLedgerEntry, 7) {
		t.Fatal("second claim of the same candidate must fail")
	}
	if !cache.IsClaimed(models.MatchCandidateTypeLedgerEntry, 7) {
		t.Fatal("claimed candidate must report claimed")
	}
}

func TestMatchCacheKeysByType(t *testing.T) {
	cache := NewMatchCache()
	cache.Claim(models.MatchCandidateTypeLedgerEntry, 7)

	// Same id, different record kind: still free.
	if cache.IsClaimed(models.MatchCandidateTypeInvoice, 7) {
		t.Fatal("invoice 7 must be independent of ledger entry 7")
	}
	if !cache.Claim(models.MatchCandidateTypeInvoice, 7) {
		t.Fatal("claiming invoice 7 must succeed")
	}
}

func TestMatchCacheIsPerRun(t *testing.T) {
	first := NewMatchCache()
	first.Claim(models.MatchCandidateTypeInvoice, 3)

	second := NewMatchCache()
	if second.IsClaimed(models.MatchCandidateTypeInvoice, 3) {
		t.Fatal("a new run must start with an empty cache")
	}
}

func TestResolveAutoThreshold(t *testing.T) {
	if got := resolveAutoThreshold(0.9); got != 0.9 {
		t.Fatalf("caller-supplied threshold must win, got %v", got)
	}
	// zero falls back to the configured default (0.8 unless overridden by env)
	if got := resolveAutoThreshold(0); got != 0.8 {
		t.Fatalf("expected the default threshold 0.8, got %v", got)
	}
}

func TestEntryAmountUsesNonZeroSide(t *testing.T) {
	debitLine := &models.JournalEntry{Debit: decimal.NewFromFloat(120.50)}
	if !entryAmount(debitLine).Equal(decimal.NewFromFloat(120.50)) {
		t.Fatalf("expected debit side, got %s", entryAmount(debitLine))
	}
	creditLine := &models.JournalEntry{Credit: decimal.NewFromFloat(99.99)}
	if !entryAmount(creditLine).Equal(decimal.NewFromFloat(99.99)) {
		t.Fatalf("expected credit side, got %s", entryAmount(creditLine))
	}
}

package models

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newJournalInput(entries ...NewJournalEntry) *NewJournal {
	return &NewJournal{
		PostingDate: time.Date(2026, 3, 5, 15, 30, 0, 0, time.UTC),
		Entries:     entries,
	}
}

func TestReceiveJournalEntriesTotalsBothSides(t *testing.T) {
	input := newJournalInput(
		NewJournalEntry{AccountId: 1, Debit: decimal.NewFromFloat(150.00)},
		NewJournalEntry{AccountId: 2, Credit: decimal.NewFromFloat(100.00)},
		NewJournalEntry{AccountId: 3, Credit: decimal.NewFromFloat(50.00)},
	)
	entries, totalDebit, totalCredit, err := ReceiveJournalEntries(input, "biz-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(entries))
	}
	if !totalDebit.Equal(decimal.NewFromFloat(150.00)) || !totalCredit.Equal(decimal.NewFromFloat(150.00)) {
		t.Fatalf("expected 150.00/150.00 totals, got %s/%s", totalDebit, totalCredit)
	}
	for _, e := range entries {
		if e.BusinessId != "biz-1" {
			t.Fatalf("line not stamped with tenant: %+v", e)
		}
		if !e.EntryDate.Equal(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("entry date must be the calendar date, got %s", e.EntryDate)
		}
	}
}

func TestReceiveJournalEntriesRejectsEmptyLine(t *testing.T) {
	input := newJournalInput(NewJournalEntry{AccountId: 1})
	if _, _, _, err := ReceiveJournalEntries(input, "biz-1"); err == nil {
		t.Fatal("a line with neither side must be rejected")
	}
}

func TestReceiveJournalEntriesRejectsBothSides(t *testing.T) {
	input := newJournalInput(NewJournalEntry{
		AccountId: 1,
		Debit:     decimal.NewFromFloat(10),
		Credit:    decimal.NewFromFloat(10),
	})
	if _, _, _, err := ReceiveJournalEntries(input, "biz-1"); err == nil {
		t.Fatal("a line carrying both sides must be rejected")
	}
}

func TestReceiveJournalEntriesRejectsNegativeAmounts(t *testing.T) {
	input := newJournalInput(NewJournalEntry{
		AccountId: 1,
		Debit:     decimal.NewFromFloat(-5),
	})
	if _, _, _, err := ReceiveJournalEntries(input, "biz-1"); err == nil {
		t.Fatal("negative amounts must be rejected")
	}
}

func TestJournalNumberIsUniquePerTenant(t *testing.T) {
	field, ok := reflect.TypeOf(Journal{}).FieldByName("JournalNumber")
	if !ok {
		t.Fatal("Journal must carry a JournalNumber field")
	}
	tag := field.Tag.Get("gorm")
	if !strings.Contains(tag, "uniq_jrn_biz_no") || !strings.Contains(tag, "unique") {
		t.Fatalf("JournalNumber must sit in the unique tenant index, tag: %q", tag)
	}
	biz, _ := reflect.TypeOf(Journal{}).FieldByName("BusinessId")
	if !strings.Contains(biz.Tag.Get("gorm"), "uniq_jrn_biz_no") {
		t.Fatalf("BusinessId must share the unique index, tag: %q", biz.Tag.Get("gorm"))
	}
}

func TestBalanceEpsilonTolerance(t *testing.T) {
	within := decimal.NewFromFloat(0.01)
	if within.GreaterThan(BalanceEpsilon) {
		t.Fatal("a 0.01 difference is inside the tolerance")
	}
	outside := decimal.NewFromFloat(0.02)
	if !outside.GreaterThan(BalanceEpsilon) {
		t.Fatal("a 0.02 difference is outside the tolerance")
	}
}

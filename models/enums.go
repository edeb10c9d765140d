package models

import "errors"

// AccountMainType is the closed set of account classes. All sign-convention
// logic dispatches on NormalBalanceSide(), never on raw strings.
type AccountMainType string

const (
	AccountMainTypeAsset     AccountMainType = "Asset"
	AccountMainTypeLiability AccountMainType = "Liability"
	AccountMainTypeEquity    AccountMainType = "Equity"
	AccountMainTypeRevenue   AccountMainType = "Revenue"
	AccountMainTypeExpense   AccountMainType = "Expense"
)

type BalanceSide string

const (
	BalanceSideDebit  BalanceSide = "DEBIT"
	BalanceSideCredit BalanceSide = "CREDIT"
)

// NormalBalanceSide reports which side increases the account's balance.
// Asset/Expense accounts increase with debit; Liability/Equity/Revenue with credit.
func (t AccountMainType) NormalBalanceSide() BalanceSide {
	switch t {
	case AccountMainTypeAsset, AccountMainTypeExpense:
		return BalanceSideDebit
	default:
		return BalanceSideCredit
	}
}

func (t AccountMainType) Valid() bool {
	switch t {
	case AccountMainTypeAsset, AccountMainTypeLiability, AccountMainTypeEquity,
		AccountMainTypeRevenue, AccountMainTypeExpense:
		return true
	}
	return false
}

type JournalStatus string

const (
	JournalStatusDraft     JournalStatus = "Draft"
	JournalStatusPosted    JournalStatus = "Posted"
	JournalStatusReversed  JournalStatus = "Reversed"
	JournalStatusCancelled JournalStatus = "Cancelled"
)

type CycleStatus string

const (
	CycleStatusPending           CycleStatus = "Pending"
	CycleStatusOpeningCaptured   CycleStatus = "OpeningCaptured"
	CycleStatusClosingCalculated CycleStatus = "ClosingCalculated"
	CycleStatusCompleted         CycleStatus = "Completed"
)

type AdjustmentType string

const (
	AdjustmentTypeCorrection       AdjustmentType = "Correction"
	AdjustmentTypeLateEntry        AdjustmentType = "LateEntry"
	AdjustmentTypeReversal         AdjustmentType = "Reversal"
	AdjustmentTypeReclassification AdjustmentType = "Reclassification"
)

type AdjustmentStatus string

const (
	AdjustmentStatusPending  AdjustmentStatus = "Pending"
	AdjustmentStatusApproved AdjustmentStatus = "Approved"
	AdjustmentStatusRejected AdjustmentStatus = "Rejected"
	AdjustmentStatusApplied  AdjustmentStatus = "Applied"
)

type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "Pending"
	SessionStatusInProgress SessionStatus = "InProgress"
	SessionStatusCompleted  SessionStatus = "Completed"
	SessionStatusDisputed   SessionStatus = "Disputed"
)

// MatchStatus tracks a bank transaction through auto-matching.
// Suggested carries candidate metadata but mutates no ledger state.
type MatchStatus string

const (
	MatchStatusUnmatched MatchStatus = "Unmatched"
	MatchStatusSuggested MatchStatus = "Suggested"
	MatchStatusMatched   MatchStatus = "Matched"
)

type MatchCandidateType string

const (
	MatchCandidateTypeLedgerEntry MatchCandidateType = "LedgerEntry"
	MatchCandidateTypeInvoice     MatchCandidateType = "Invoice"
)

func ParseMatchCandidateType(s string) (MatchCandidateType, error) {
	switch MatchCandidateType(s) {
	case MatchCandidateTypeLedgerEntry:
		return MatchCandidateTypeLedgerEntry, nil
	case MatchCandidateTypeInvoice:
		return MatchCandidateTypeInvoice, nil
	}
	return "", errors.New("invalid match candidate type")
}

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

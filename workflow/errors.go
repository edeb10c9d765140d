package workflow

import "errors"

// Posting / reconciliation / cycle error taxonomy. Callers branch with
// errors.Is; batch operations collect these per account instead of aborting.
var (
	// ErrImbalancedEntry: sum(debit) != sum(credit) beyond the 0.01 epsilon.
	ErrImbalancedEntry = errors.New("imbalanced entry: total debit and credit differ")

	// ErrUnknownAccount: a journal line references a missing or inactive account.
	ErrUnknownAccount = errors.New("unknown or inactive account")

	// ErrConflictingMatch: re-marking a reconciled entry with a different
	// bank transaction.
	ErrConflictingMatch = errors.New("entry already reconciled against a different transaction")

	// ErrMissingPriorClosing: the prior day's balance row exists but is not
	// completed, so its closing cannot seed this day's opening.
	ErrMissingPriorClosing = errors.New("prior day closing balance not completed")

	// ErrDayNotLocked: adjustments only apply to locked days; open days take
	// normal journal entries.
	ErrDayNotLocked = errors.New("target day is not locked")

	// ErrAlreadyMatched: manual confirm against a record matched elsewhere.
	ErrAlreadyMatched = errors.New("record is already matched")

	// ErrCascadeBlocked: a downstream locked day lacks cascade authorization.
	ErrCascadeBlocked = errors.New("cascade blocked by a locked downstream day without authorization")

	// ErrAdjustmentNotAuthorized: the grace period has ended and the
	// adjustment carries no approval.
	ErrAdjustmentNotAuthorized = errors.New("adjustment requires approval after the grace period")

	// ErrJournalNotPosted: reversal requested for a journal that is not in
	// Posted status.
	ErrJournalNotPosted = errors.New("journal is not posted")

	// ErrJournalNumberTaken: the unique (business, journal_number) index
	// rejected the insert; the caller may retry with a fresh sequence.
	ErrJournalNumberTaken = errors.New("journal number already taken, retry posting")
)

package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/models"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MatchCache tracks candidates claimed during one auto-match run so two bank
// transactions in the same run never grab the same ledger entry or invoice.
// One cache per run; nothing survives the run.
type MatchCache struct {
	claimed map[string]bool
}

func NewMatchCache() *MatchCache {
	return &MatchCache{claimed: map[string]bool{}}
}

func (c *MatchCache) key(candidateType models.MatchCandidateType, id int) string {
	return fmt.Sprintf("%s:%d", candidateType, id)
}

// Claim reserves a candidate for this run. Returns false if already taken.
func (c *MatchCache) Claim(candidateType models.MatchCandidateType, id int) bool {
	k := c.key(candidateType, id)
	if c.claimed[k] {
		return false
	}
	c.claimed[k] = true
	return true
}

func (c *MatchCache) IsClaimed(candidateType models.MatchCandidateType, id int) bool {
	return c.claimed[c.key(candidateType, id)]
}

// MatchRunError is one transaction's failure inside an auto-match run.
type MatchRunError struct {
	BankTransactionId int    `json:"bank_transaction_id"`
	Reason            string `json:"reason"`
}

// MatchDetail records the outcome for one transaction in a run.
type MatchDetail struct {
	BankTransactionId int                       `json:"bank_transaction_id"`
	Action            string                    `json:"action"`
	CandidateType     models.MatchCandidateType `json:"candidate_type,omitempty"`
	CandidateId       int                       `json:"candidate_id,omitempty"`
	Confidence        float64                   `json:"confidence,omitempty"`
}

// AutoMatchResult summarizes one run over a bank account's open transactions.
type AutoMatchResult struct {
	BankAccountId int             `json:"bank_account_id"`
	Processed     int             `json:"processed"`
	AutoMatched   int             `json:"auto_matched"`
	Suggested     int             `json:"suggested"`
	Unmatched     int             `json:"unmatched"`
	Details       []MatchDetail   `json:"details"`
	Errors        []MatchRunError `json:"errors"`
}

type scoredCandidate struct {
	candidateType models.MatchCandidateType
	candidateId   int
	score         MatchScore
}

// RunAutoMatch walks the account's open transactions oldest first, scores
// windowed candidates and applies matches at or above the threshold (zero
// falls back to the configured default). Scores in the suggest band are
// persisted as suggestions, never as matches. runId, when set, makes retried
// runs no-ops.
func RunAutoMatch(ctx context.Context, bankAccountId int, runId string, threshold float64) (*AutoMatchResult, error) {
	logger := config.GetLogger()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if threshold < 0 || threshold > 1 {
		return nil, errors.New("threshold must be between 0 and 1")
	}

	var idemKey *models.IdempotencyKey
	if runId != "" {
		var err error
		idemKey, err = BeginIdempotency(ctx, "auto-match", runId)
		if err != nil {
			return nil, err
		}
	}
	failRun := func(cause error) error {
		if err := MarkIdempotencyFailed(ctx, idemKey, cause); err != nil {
			config.LogError(logger, "workflow", "RunAutoMatch", "mark run failed", runId, err)
		}
		return cause
	}

	account, err := utils.FetchModel[models.Account](ctx, businessId, bankAccountId)
	if err != nil {
		return nil, failRun(fmt.Errorf("%w: account_id=%d", ErrUnknownAccount, bankAccountId))
	}
	if account.IsBankLinked == nil || !*account.IsBankLinked {
		return nil, failRun(errors.New("account is not bank linked"))
	}

	transactions, err := models.GetUnmatchedBankTransactions(ctx, bankAccountId)
	if err != nil {
		return nil, failRun(err)
	}

	cfg := DefaultScorerConfig()
	autoThreshold := resolveAutoThreshold(threshold)
	suggestThreshold := config.SuggestThreshold()
	cache := NewMatchCache()
	result := &AutoMatchResult{BankAccountId: bankAccountId}

	for _, txn := range transactions {
		// A cancelled run stops cleanly between items; applied matches stay.
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Processed++

		best, err := bestCandidate(ctx, cfg, txn, cache)
		if err != nil {
			config.LogError(logger, "workflow", "RunAutoMatch", "score candidates", txn.ID, err)
			result.Errors = append(result.Errors, MatchRunError{BankTransactionId: txn.ID, Reason: err.Error()})
			continue
		}

		switch {
		case best != nil && best.score.Confidence >= autoThreshold:
			if err := applyMatch(ctx, txn.ID, best.candidateType, best.candidateId); err != nil {
				result.Errors = append(result.Errors, MatchRunError{BankTransactionId: txn.ID, Reason: err.Error()})
				continue
			}
			cache.Claim(best.candidateType, best.candidateId)
			result.AutoMatched++
			result.Details = append(result.Details, MatchDetail{
				BankTransactionId: txn.ID,
				Action:            "matched",
				CandidateType:     best.candidateType,
				CandidateId:       best.candidateId,
				Confidence:        best.score.Confidence,
			})
		case best != nil && best.score.Confidence >= suggestThreshold:
			if err := saveSuggestion(ctx, txn, best); err != nil {
				result.Errors = append(result.Errors, MatchRunError{BankTransactionId: txn.ID, Reason: err.Error()})
				continue
			}
			cache.Claim(best.candidateType, best.candidateId)
			result.Suggested++
			result.Details = append(result.Details, MatchDetail{
				BankTransactionId: txn.ID,
				Action:            "suggested",
				CandidateType:     best.candidateType,
				CandidateId:       best.candidateId,
				Confidence:        best.score.Confidence,
			})
		default:
			if err := clearSuggestion(ctx, txn); err != nil {
				result.Errors = append(result.Errors, MatchRunError{BankTransactionId: txn.ID, Reason: err.Error()})
				continue
			}
			result.Unmatched++
			result.Details = append(result.Details, MatchDetail{BankTransactionId: txn.ID, Action: "unmatched"})
		}
	}

	if idemKey != nil {
		if err := MarkIdempotencySucceeded(ctx, idemKey); err != nil {
			return result, err
		}
	}
	return result, nil
}

// resolveAutoThreshold falls back to the configured default when the caller
// does not supply a threshold.
func resolveAutoThreshold(threshold float64) float64 {
	if threshold > 0 {
		return threshold
	}
	return config.AutoMatchThreshold()
}

// bestCandidate scores every windowed candidate not yet claimed this run and
// returns the highest-confidence one, or nil when the windows are empty.
func bestCandidate(ctx context.Context, cfg ScorerConfig, txn *models.BankTransaction, cache *MatchCache) (*scoredCandidate, error) {
	record := TransactionRecord{
		Amount:          txn.Amount,
		TransactionDate: txn.TransactionDate,
		ReferenceNumber: txn.ReferenceNumber,
		Description:     txn.Description,
	}

	tolerance := decimal.NewFromInt(int64(config.CandidateAmountTolerancePercent())).Div(decimal.NewFromInt(100))
	amount := txn.Amount.Abs()
	amountLow := amount.Mul(decimal.NewFromInt(1).Sub(tolerance))
	amountHigh := amount.Mul(decimal.NewFromInt(1).Add(tolerance))
	windowDays := config.CandidateDateWindowDays()
	dateFrom := txn.TransactionDate.AddDate(0, 0, -windowDays)
	dateTo := txn.TransactionDate.AddDate(0, 0, windowDays)

	var best *scoredCandidate
	consider := func(candidateType models.MatchCandidateType, id int, candidate CandidateRecord) {
		if cache.IsClaimed(candidateType, id) {
			return
		}
		score := ScoreMatch(cfg, record, candidate)
		if best == nil || score.Confidence > best.score.Confidence {
			best = &scoredCandidate{candidateType: candidateType, candidateId: id, score: score}
		}
	}

	entries, err := getCandidateLedgerEntries(ctx, txn, amountLow, amountHigh, dateFrom, dateTo)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		consider(models.MatchCandidateTypeLedgerEntry, e.ID, CandidateRecord{
			Amount:           entryAmount(e),
			RecordDate:       e.EntryDate,
			ReferenceNumber:  e.ReferenceNumber,
			CounterpartyName: e.Description,
		})
	}

	invoices, err := models.GetCandidateInvoices(ctx, amountLow, amountHigh, dateFrom, dateTo)
	if err != nil {
		return nil, err
	}
	inflow := txn.Amount.IsPositive()
	for _, inv := range invoices {
		// Inflows settle receivables, outflows settle payables.
		payable := inv.IsPayable != nil && *inv.IsPayable
		if inflow == payable {
			continue
		}
		consider(models.MatchCandidateTypeInvoice, inv.ID, CandidateRecord{
			Amount:           inv.TotalAmount,
			RecordDate:       inv.DueDate,
			ReferenceNumber:  inv.InvoiceNumber,
			CounterpartyName: inv.CounterpartyName,
		})
	}

	return best, nil
}

// getCandidateLedgerEntries windows unreconciled lines on the bank-linked GL
// account. Inflows look at debit lines, outflows at credit lines.
func getCandidateLedgerEntries(ctx context.Context, txn *models.BankTransaction, amountLow, amountHigh decimal.Decimal, dateFrom, dateTo time.Time) ([]*models.JournalEntry, error) {
	db := config.GetDB()
	amountColumn := "journal_entries.debit"
	if txn.Amount.IsNegative() {
		amountColumn = "journal_entries.credit"
	}

	var results []*models.JournalEntry
	err := db.WithContext(ctx).
		Joins("JOIN journals j ON j.id = journal_entries.journal_id").
		Where("journal_entries.business_id = ? AND journal_entries.account_id = ?", txn.BusinessId, txn.BankAccountId).
		Where("journal_entries.reconciled = ?", false).
		Where("j.status IN ?", []models.JournalStatus{models.JournalStatusPosted, models.JournalStatusReversed}).
		Where(amountColumn+" BETWEEN ? AND ?", amountLow, amountHigh).
		Where("journal_entries.entry_date BETWEEN ? AND ?", utils.DateOnly(dateFrom), utils.DateOnly(dateTo)).
		Order("journal_entries.entry_date ASC, journal_entries.id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func entryAmount(e *models.JournalEntry) decimal.Decimal {
	if !e.Debit.IsZero() {
		return e.Debit
	}
	return e.Credit
}

// applyMatch writes both sides of a match in one transaction: the bank line
// and the book record commit together or not at all.
func applyMatch(ctx context.Context, bankTransactionId int, candidateType models.MatchCandidateType, candidateId int) error {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return errors.New("business id is required")
	}

	db := config.GetDB()
	now := time.Now().UTC()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txn models.BankTransaction
		if err := tx.Where("business_id = ?", businessId).First(&txn, bankTransactionId).Error; err != nil {
			return err
		}
		if txn.IsMatched() {
			if txn.MatchedTransactionId == candidateId && txn.MatchedTransactionType == candidateType {
				return nil
			}
			return fmt.Errorf("%w: bank_transaction_id=%d", ErrAlreadyMatched, txn.ID)
		}

		switch candidateType {
		case models.MatchCandidateTypeLedgerEntry:
			var entry models.JournalEntry
			if err := tx.Where("business_id = ?", businessId).First(&entry, candidateId).Error; err != nil {
				return err
			}
			if entry.Reconciled != nil && *entry.Reconciled {
				if entry.MatchedTransactionId != txn.ID {
					return fmt.Errorf("%w: entry_id=%d", ErrConflictingMatch, entry.ID)
				}
			} else if err := tx.Model(&entry).Updates(map[string]interface{}{
				"Reconciled":           utils.NewTrue(),
				"MatchedTransactionId": txn.ID,
			}).Error; err != nil {
				return err
			}
		case models.MatchCandidateTypeInvoice:
			var invoice models.Invoice
			if err := tx.Where("business_id = ?", businessId).First(&invoice, candidateId).Error; err != nil {
				return err
			}
			if invoice.MatchedTransactionId != 0 && invoice.MatchedTransactionId != txn.ID {
				return fmt.Errorf("%w: invoice_id=%d", ErrAlreadyMatched, invoice.ID)
			}
			if err := tx.Model(&invoice).Update("MatchedTransactionId", txn.ID).Error; err != nil {
				return err
			}
		default:
			return errors.New("invalid match candidate type")
		}

		before := txn
		if err := tx.Model(&txn).Updates(map[string]interface{}{
			"MatchStatus":            models.MatchStatusMatched,
			"MatchedTransactionId":   candidateId,
			"MatchedTransactionType": candidateType,
			"MatchedAt":              now,
			"SuggestedCandidateId":   0,
			"SuggestedCandidateType": "",
			"SuggestedConfidence":    0,
		}).Error; err != nil {
			return err
		}

		after := txn
		after.MatchStatus = models.MatchStatusMatched
		after.MatchedTransactionId = candidateId
		after.MatchedTransactionType = candidateType
		return models.RecordAuditEvent(tx, "BankTransaction", txn.ID, "MATCHED", &before, &after)
	})
}

func saveSuggestion(ctx context.Context, txn *models.BankTransaction, candidate *scoredCandidate) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(txn).Updates(map[string]interface{}{
		"MatchStatus":            models.MatchStatusSuggested,
		"SuggestedCandidateId":   candidate.candidateId,
		"SuggestedCandidateType": candidate.candidateType,
		"SuggestedConfidence":    candidate.score.Confidence,
	}).Error
}

func clearSuggestion(ctx context.Context, txn *models.BankTransaction) error {
	if txn.MatchStatus == models.MatchStatusUnmatched && txn.SuggestedCandidateId == 0 {
		return nil
	}
	db := config.GetDB()
	return db.WithContext(ctx).Model(txn).Updates(map[string]interface{}{
		"MatchStatus":            models.MatchStatusUnmatched,
		"SuggestedCandidateId":   0,
		"SuggestedCandidateType": "",
		"SuggestedConfidence":    0,
	}).Error
}

// ConfirmMatch applies a reviewer-chosen match regardless of score.
// Confirming an already matched pair again is a no-op; a different pair is
// rejected.
func ConfirmMatch(ctx context.Context, bankTransactionId int, candidateType models.MatchCandidateType, candidateId int) (*models.BankTransaction, error) {
	if err := applyMatch(ctx, bankTransactionId, candidateType, candidateId); err != nil {
		return nil, err
	}
	return models.GetBankTransaction(ctx, bankTransactionId)
}

type NewReconciliationSession struct {
	BankAccountId    int             `json:"bank_account_id" binding:"required"`
	StatementDate    time.Time       `json:"statement_date" binding:"required"`
	StatementBalance decimal.Decimal `json:"statement_balance"`
}

// CreateSession opens a reconciliation session against one bank-linked GL
// account. The book balance is the signed ledger balance of that account as
// of the statement date.
func CreateSession(ctx context.Context, input *NewReconciliationSession) (*models.ReconciliationSession, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	account, err := utils.FetchModel[models.Account](ctx, businessId, input.BankAccountId)
	if err != nil {
		return nil, fmt.Errorf("%w: account_id=%d", ErrUnknownAccount, input.BankAccountId)
	}
	if account.IsBankLinked == nil || !*account.IsBankLinked {
		return nil, errors.New("account is not bank linked")
	}

	bookBalance, err := models.GetLedgerBalanceAsOf(ctx, input.BankAccountId, input.StatementDate)
	if err != nil {
		return nil, err
	}

	session := models.ReconciliationSession{
		BusinessId:       businessId,
		SessionNumber:    models.NewSessionNumber(),
		BankAccountId:    input.BankAccountId,
		StatementDate:    utils.DateOnly(input.StatementDate),
		StatementBalance: input.StatementBalance,
		BookBalance:      bookBalance,
		Difference:       input.StatementBalance.Sub(bookBalance),
		Status:           models.SessionStatusInProgress,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&session).Error; err != nil {
			return err
		}
		return models.RecordAuditEvent(tx, "ReconciliationSession", session.ID, "CREATED", nil, &session)
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CompleteSession closes a session. Open (unmatched) transactions up to the
// statement date block completion unless forced. The difference is recomputed
// at close; a nonzero difference marks the session Disputed, zero completes it.
func CompleteSession(ctx context.Context, sessionId int, force bool) (*models.ReconciliationSession, error) {
	session, err := models.GetReconciliationSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionStatusCompleted || session.Status == models.SessionStatusDisputed {
		return session, nil
	}

	openCount, err := models.CountOpenBankTransactions(ctx, session.BankAccountId, session.StatementDate)
	if err != nil {
		return nil, err
	}
	if openCount > 0 && !force {
		return nil, fmt.Errorf("session has %d unmatched transaction(s)", openCount)
	}

	bookBalance, err := models.GetLedgerBalanceAsOf(ctx, session.BankAccountId, session.StatementDate)
	if err != nil {
		return nil, err
	}
	difference := session.StatementBalance.Sub(bookBalance)

	status := models.SessionStatusCompleted
	if difference.Abs().GreaterThan(models.BalanceEpsilon) {
		status = models.SessionStatusDisputed
	}
	now := time.Now().UTC()

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before := *session
		if err := tx.Model(session).Updates(map[string]interface{}{
			"BookBalance": bookBalance,
			"Difference":  difference,
			"Status":      status,
			"CompletedAt": now,
		}).Error; err != nil {
			return err
		}
		return models.RecordAuditEvent(tx, "ReconciliationSession", session.ID, "COMPLETED", &before, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

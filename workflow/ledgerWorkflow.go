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

// PostJournal validates and posts one balanced journal: header, lines and
// per-account running balances are written in a single transaction, or not at
// all. Posting is serialized per business so running balances never interleave.
func PostJournal(ctx context.Context, input *models.NewJournal) (*models.Journal, error) {
	logger := config.GetLogger()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	entries, totalDebit, totalCredit, err := models.ReceiveJournalEntries(input, businessId)
	if err != nil {
		return nil, err
	}
	if len(entries) < 2 {
		return nil, errors.New("a journal requires at least two lines")
	}
	if totalDebit.Sub(totalCredit).Abs().GreaterThan(models.BalanceEpsilon) {
		return nil, fmt.Errorf("%w: debit=%s credit=%s", ErrImbalancedEntry, totalDebit, totalCredit)
	}

	accounts, err := resolveEntryAccounts(ctx, businessId, entries)
	if err != nil {
		return nil, err
	}

	seqNo, err := utils.GetSequence[models.Journal](ctx, businessId)
	if err != nil {
		return nil, err
	}

	lock, err := utils.ObtainTenantLock(ctx, businessId, "posting", 30*time.Second)
	if err != nil {
		return nil, err
	}
	if lock != nil {
		defer lock.Release(ctx)
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
		tx.Rollback()
		return nil, err
	}
	defer ReleaseBusinessPostingLock(tx, businessId)

	journal := models.Journal{
		BusinessId:      businessId,
		JournalNumber:   fmt.Sprintf("JRN-%06d", seqNo),
		SequenceNo:      decimal.NewFromInt(seqNo),
		ReferenceNumber: input.ReferenceNumber,
		PostingDate:     utils.DateOnly(input.PostingDate),
		FiscalPeriod:    utils.FiscalPeriod(input.PostingDate),
		Notes:           input.Notes,
		Status:          models.JournalStatusPosted,
		TotalDebit:      totalDebit,
		TotalCredit:     totalCredit,
	}
	if err := tx.Create(&journal).Error; err != nil {
		tx.Rollback()
		if isDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s", ErrJournalNumberTaken, journal.JournalNumber)
		}
		config.LogError(logger, "workflow", "PostJournal", "create journal", input, err)
		return nil, err
	}

	// Running balances are maintained per account within the posting lock.
	running := map[int]decimal.Decimal{}
	for i := range entries {
		entries[i].JournalId = journal.ID
		account := accounts[entries[i].AccountId]
		balance, seeded := running[account.ID]
		if !seeded {
			balance, err = models.LatestRunningBalance(tx, businessId, account.ID)
			if err != nil {
				tx.Rollback()
				return nil, err
			}
		}
		if account.MainType.NormalBalanceSide() == models.BalanceSideDebit {
			balance = balance.Add(entries[i].Debit).Sub(entries[i].Credit)
		} else {
			balance = balance.Add(entries[i].Credit).Sub(entries[i].Debit)
		}
		entries[i].ClosingBalance = balance
		running[account.ID] = balance
	}
	if err := tx.Create(&entries).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "workflow", "PostJournal", "create journal entries", input, err)
		return nil, err
	}
	journal.Entries = entries

	if err := models.RecordAuditEvent(tx, "Journal", journal.ID, "POSTED", nil, &journal); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &journal, nil
}

func resolveEntryAccounts(ctx context.Context, businessId string, entries []models.JournalEntry) (map[int]*models.Account, error) {
	accounts := map[int]*models.Account{}
	for _, e := range entries {
		if _, done := accounts[e.AccountId]; done {
			continue
		}
		account, err := utils.FetchModel[models.Account](ctx, businessId, e.AccountId)
		if err != nil {
			return nil, fmt.Errorf("%w: account_id=%d", ErrUnknownAccount, e.AccountId)
		}
		if account.IsActive == nil || !*account.IsActive {
			return nil, fmt.Errorf("%w: account_id=%d is inactive", ErrUnknownAccount, e.AccountId)
		}
		accounts[e.AccountId] = account
	}
	return accounts, nil
}

// GetUnreconciledEntries lists posted, unreconciled lines for one account,
// optionally bounded by an entry date range, oldest first.
func GetUnreconciledEntries(ctx context.Context, accountId int, from *time.Time, to *time.Time) ([]*models.JournalEntry, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Joins("JOIN journals j ON j.id = journal_entries.journal_id").
		Where("journal_entries.business_id = ? AND journal_entries.account_id = ?", businessId, accountId).
		Where("journal_entries.reconciled = ?", false).
		Where("j.status IN ?", []models.JournalStatus{models.JournalStatusPosted, models.JournalStatusReversed})
	if from != nil {
		dbCtx = dbCtx.Where("journal_entries.entry_date >= ?", utils.DateOnly(*from))
	}
	if to != nil {
		dbCtx = dbCtx.Where("journal_entries.entry_date <= ?", utils.DateOnly(*to))
	}

	var results []*models.JournalEntry
	err := dbCtx.Order("journal_entries.entry_date ASC, journal_entries.id ASC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// MarkReconciled stamps one ledger line as reconciled against a bank
// transaction. Re-marking with the same transaction is a no-op; a different
// transaction is a conflict.
func MarkReconciled(ctx context.Context, entryId int, bankTransactionId int) (*models.JournalEntry, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	entry, err := utils.FetchModel[models.JournalEntry](ctx, businessId, entryId)
	if err != nil {
		return nil, err
	}

	if entry.Reconciled != nil && *entry.Reconciled {
		if entry.MatchedTransactionId == bankTransactionId {
			return entry, nil
		}
		return nil, fmt.Errorf("%w: entry_id=%d matched_transaction_id=%d",
			ErrConflictingMatch, entry.ID, entry.MatchedTransactionId)
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(entry).Updates(map[string]interface{}{
		"Reconciled":           utils.NewTrue(),
		"MatchedTransactionId": bankTransactionId,
	}).Error
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ReverseJournal posts a compensating journal with debit and credit swapped,
// links the two and flips the original to Reversed. Idempotent: a journal that
// already has a reversal returns it unchanged.
func ReverseJournal(ctx context.Context, journalId int, reason string) (*models.Journal, error) {
	logger := config.GetLogger()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	original, err := utils.FetchModel[models.Journal](ctx, businessId, journalId, "Entries")
	if err != nil {
		return nil, err
	}

	if original.ReversedByJournalId != nil {
		return utils.FetchModel[models.Journal](ctx, businessId, *original.ReversedByJournalId, "Entries")
	}
	if original.Status != models.JournalStatusPosted {
		return nil, fmt.Errorf("%w: journal_id=%d status=%s", ErrJournalNotPosted, original.ID, original.Status)
	}

	seqNo, err := utils.GetSequence[models.Journal](ctx, businessId)
	if err != nil {
		return nil, err
	}

	lock, err := utils.ObtainTenantLock(ctx, businessId, "posting", 30*time.Second)
	if err != nil {
		return nil, err
	}
	if lock != nil {
		defer lock.Release(ctx)
	}

	db := config.GetDB()
	now := time.Now().UTC()
	var reversal models.Journal

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
			return err
		}
		defer ReleaseBusinessPostingLock(tx, businessId)

		// Re-check linkage under the lock; a concurrent reversal may have won.
		var current models.Journal
		if err := tx.First(&current, original.ID).Error; err != nil {
			return err
		}
		if current.ReversedByJournalId != nil {
			reversal.ID = *current.ReversedByJournalId
			return nil
		}

		reversal = models.Journal{
			BusinessId:        businessId,
			JournalNumber:     "REV-" + original.JournalNumber,
			SequenceNo:        decimal.NewFromInt(seqNo),
			ReferenceNumber:   original.JournalNumber,
			PostingDate:       utils.DateOnly(now),
			FiscalPeriod:      utils.FiscalPeriod(now),
			Notes:             reason,
			Status:            models.JournalStatusPosted,
			TotalDebit:        original.TotalCredit,
			TotalCredit:       original.TotalDebit,
			IsReversal:        true,
			ReversesJournalId: &original.ID,
		}
		if err := tx.Create(&reversal).Error; err != nil {
			if isDuplicateKeyError(err) {
				return fmt.Errorf("%w: %s", ErrJournalNumberTaken, reversal.JournalNumber)
			}
			return err
		}

		entries := make([]models.JournalEntry, 0, len(original.Entries))
		entryDate := utils.DateOnly(now)
		for _, e := range original.Entries {
			entries = append(entries, models.JournalEntry{
				BusinessId:      businessId,
				JournalId:       reversal.ID,
				AccountId:       e.AccountId,
				EntryDate:       entryDate,
				Description:     "Reversal of " + original.JournalNumber,
				ReferenceNumber: e.ReferenceNumber,
				Debit:           e.Credit,
				Credit:          e.Debit,
				Reconciled:      utils.NewFalse(),
			})
		}

		running := map[int]decimal.Decimal{}
		for i := range entries {
			balance, seeded := running[entries[i].AccountId]
			if !seeded {
				var err error
				balance, err = models.LatestRunningBalance(tx, businessId, entries[i].AccountId)
				if err != nil {
					return err
				}
			}
			account, err := utils.FetchModel[models.Account](ctx, businessId, entries[i].AccountId)
			if err != nil {
				return err
			}
			if account.MainType.NormalBalanceSide() == models.BalanceSideDebit {
				balance = balance.Add(entries[i].Debit).Sub(entries[i].Credit)
			} else {
				balance = balance.Add(entries[i].Credit).Sub(entries[i].Debit)
			}
			entries[i].ClosingBalance = balance
			running[entries[i].AccountId] = balance
		}
		if err := tx.Create(&entries).Error; err != nil {
			return err
		}
		reversal.Entries = entries

		if err := tx.Model(original).Updates(map[string]interface{}{
			"Status":              models.JournalStatusReversed,
			"ReversedByJournalId": reversal.ID,
			"ReversalReason":      reason,
			"ReversedAt":          now,
		}).Error; err != nil {
			return err
		}

		return models.RecordAuditEvent(tx, "Journal", original.ID, "REVERSED", original, &reversal)
	})
	if err != nil {
		config.LogError(logger, "workflow", "ReverseJournal", "reverse journal", journalId, err)
		return nil, err
	}

	if reversal.JournalNumber == "" {
		return utils.FetchModel[models.Journal](ctx, businessId, reversal.ID, "Entries")
	}
	return &reversal, nil
}

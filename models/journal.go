package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BalanceEpsilon is the tolerance for the double-entry balance law.
// sum(debit) and sum(credit) may differ by at most 0.01 currency units.
var BalanceEpsilon = decimal.NewFromFloat(0.01)

type Journal struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null;index:idx_jrn_biz_date,priority:1;index:uniq_jrn_biz_no,unique,priority:1" json:"business_id"`
	JournalNumber   string          `gorm:"size:255;not null;index:uniq_jrn_biz_no,unique,priority:2" json:"journal_number"`
	SequenceNo      decimal.Decimal `gorm:"type:decimal(15);not null" json:"sequence_no"`
	ReferenceNumber string          `gorm:"size:255" json:"reference_number"`
	PostingDate     time.Time       `gorm:"not null;index:idx_jrn_biz_date,priority:2" json:"posting_date" binding:"required"`
	FiscalPeriod    string          `gorm:"size:7;index;not null" json:"fiscal_period"`
	Notes           string          `gorm:"type:text" json:"notes"`
	Status          JournalStatus   `gorm:"type:enum('Draft','Posted','Reversed','Cancelled');default:'Draft';index;not null" json:"status"`
	TotalDebit      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_debit"`
	TotalCredit     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_credit"`
	// Posted journals are never deleted; changes are done by inserting a
	// reversal journal and linking it here.
	IsReversal          bool           `gorm:"not null;default:false;index" json:"is_reversal"`
	ReversesJournalId   *int           `gorm:"index" json:"reverses_journal_id"`
	ReversedByJournalId *int           `gorm:"index" json:"reversed_by_journal_id"`
	ReversalReason      *string        `gorm:"type:text" json:"reversal_reason"`
	ReversedAt          *time.Time     `gorm:"index" json:"reversed_at"`
	Entries             []JournalEntry `gorm:"foreignKey:JournalId" json:"entries"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// JournalEntry is one ledger line. Exactly one of Debit/Credit is non-zero.
type JournalEntry struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;index:idx_je_biz_acct_date,priority:1" json:"business_id"`
	JournalId       int             `gorm:"index;not null" json:"journal_id" binding:"required"`
	AccountId       int             `gorm:"index;not null;index:idx_je_biz_acct_date,priority:2" json:"account_id" binding:"required"`
	EntryDate       time.Time       `gorm:"index;not null;index:idx_je_biz_acct_date,priority:3" json:"entry_date"`
	Description     string          `gorm:"size:255" json:"description"`
	ReferenceNumber string          `gorm:"size:255;index" json:"reference_number"`
	Debit           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit"`
	Credit          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit"`
	// ClosingBalance is the account running balance after this line posted.
	ClosingBalance       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"closing_balance"`
	Reconciled           *bool           `gorm:"not null;default:false;index" json:"reconciled"`
	MatchedTransactionId int             `gorm:"index;default:0" json:"matched_transaction_id"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (j *Journal) GetId() int {
	return j.ID
}

func (e JournalEntry) GetId() int {
	return e.ID
}

// Ledger immutability guardrails:
// - journal_entries are append-only except for reconciliation linkage.
// - journals must never be deleted; limited updates are allowed only for
//   status and reversal linkage fields.

func (e *JournalEntry) BeforeUpdate(tx *gorm.DB) error {
	allowed := map[string]bool{
		"Reconciled":           true,
		"MatchedTransactionId": true,
		"UpdatedAt":            true,
	}
	if tx == nil || tx.Statement == nil || tx.Statement.Schema == nil {
		return nil
	}
	for _, f := range tx.Statement.Schema.Fields {
		if tx.Statement.Changed(f.Name) && !allowed[f.Name] {
			return errors.New("immutable ledger: only reconciliation fields may be updated on journal_entries")
		}
	}
	return nil
}

func (e *JournalEntry) BeforeDelete(tx *gorm.DB) error {
	return errors.New("immutable ledger: journal_entries cannot be deleted")
}

func (j *Journal) BeforeDelete(tx *gorm.DB) error {
	return errors.New("immutable ledger: journals cannot be deleted")
}

func (j *Journal) BeforeUpdate(tx *gorm.DB) error {
	// Allow only status + reversal linkage fields to be updated.
	allowed := map[string]bool{
		"Status":              true,
		"IsReversal":          true,
		"ReversesJournalId":   true,
		"ReversedByJournalId": true,
		"ReversalReason":      true,
		"ReversedAt":          true,
		"UpdatedAt":           true,
	}
	if tx == nil || tx.Statement == nil || tx.Statement.Schema == nil {
		return nil
	}
	for _, f := range tx.Statement.Schema.Fields {
		if tx.Statement.Changed(f.Name) && !allowed[f.Name] {
			return errors.New("immutable ledger: only status and reversal linkage fields may be updated on journals")
		}
	}
	return nil
}

type NewJournal struct {
	ReferenceNumber string            `json:"reference_number"`
	PostingDate     time.Time         `json:"posting_date" binding:"required"`
	Notes           string            `json:"notes"`
	Entries         []NewJournalEntry `json:"entries" binding:"required"`
}

type NewJournalEntry struct {
	AccountId       int             `json:"account_id" binding:"required"`
	Description     string          `json:"description"`
	ReferenceNumber string          `json:"reference_number"`
	Debit           decimal.Decimal `json:"debit"`
	Credit          decimal.Decimal `json:"credit"`
}

// ReceiveJournalEntries maps input lines to ledger lines and totals both
// sides. Each line must carry exactly one non-zero side.
func ReceiveJournalEntries(input *NewJournal, businessId string) ([]JournalEntry, decimal.Decimal, decimal.Decimal, error) {
	entries := make([]JournalEntry, 0, len(input.Entries))
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	entryDate := utils.DateOnly(input.PostingDate)
	for _, e := range input.Entries {
		if e.Debit.IsZero() && e.Credit.IsZero() {
			return nil, totalDebit, totalCredit, errors.New("either debit or credit must have value")
		}
		if !e.Debit.IsZero() && !e.Credit.IsZero() {
			return nil, totalDebit, totalCredit, errors.New("a line cannot carry both debit and credit")
		}
		if e.Debit.IsNegative() || e.Credit.IsNegative() {
			return nil, totalDebit, totalCredit, errors.New("debit and credit must not be negative")
		}
		totalDebit = totalDebit.Add(e.Debit)
		totalCredit = totalCredit.Add(e.Credit)
		entries = append(entries, JournalEntry{
			BusinessId:      businessId,
			AccountId:       e.AccountId,
			EntryDate:       entryDate,
			Description:     e.Description,
			ReferenceNumber: e.ReferenceNumber,
			Debit:           e.Debit,
			Credit:          e.Credit,
			Reconciled:      utils.NewFalse(),
		})
	}
	return entries, totalDebit, totalCredit, nil
}

func GetJournal(ctx context.Context, id int) (*Journal, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Journal](ctx, businessId, id, "Entries")
}

// GetPostedEntrySumsForDate aggregates posted lines per account for one
// calendar date. Read inside the caller's transaction so the daily cycle sees
// a consistent snapshot.
type EntryDailySum struct {
	AccountId   int             `json:"account_id"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
}

func GetPostedEntrySumsForDate(tx *gorm.DB, businessId string, date time.Time) (map[int]EntryDailySum, error) {
	var rows []EntryDailySum
	sql := `
		SELECT
			je.account_id,
			COALESCE(SUM(je.debit), 0)  AS total_debit,
			COALESCE(SUM(je.credit), 0) AS total_credit
		FROM journal_entries je
			JOIN journals j ON j.id = je.journal_id
		WHERE je.business_id = ?
			AND je.entry_date = ?
			AND j.status IN ('Posted', 'Reversed')
		GROUP BY je.account_id
	`
	if err := tx.Raw(sql, businessId, utils.DateOnly(date)).Scan(&rows).Error; err != nil {
		return nil, err
	}
	sums := make(map[int]EntryDailySum, len(rows))
	for _, r := range rows {
		sums[r.AccountId] = r
	}
	return sums, nil
}

// LatestRunningBalance returns the account running balance as of the last
// posted line, scanning within the caller's transaction.
func LatestRunningBalance(tx *gorm.DB, businessId string, accountId int) (decimal.Decimal, error) {
	var entry JournalEntry
	err := tx.Where("business_id = ? AND account_id = ?", businessId, accountId).
		Order("entry_date DESC, id DESC").First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return entry.ClosingBalance, nil
}

// GetLedgerBalanceAsOf computes the signed ledger balance of one account up
// to and including a date, from posted journals only.
func GetLedgerBalanceAsOf(ctx context.Context, accountId int, asOf time.Time) (decimal.Decimal, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return decimal.Zero, errors.New("business id is required")
	}

	account, err := utils.FetchModel[Account](ctx, businessId, accountId)
	if err != nil {
		return decimal.Zero, err
	}

	db := config.GetDB()
	type sums struct {
		TotalDebit  decimal.Decimal
		TotalCredit decimal.Decimal
	}
	var s sums
	sql := `
		SELECT
			COALESCE(SUM(je.debit), 0)  AS total_debit,
			COALESCE(SUM(je.credit), 0) AS total_credit
		FROM journal_entries je
			JOIN journals j ON j.id = je.journal_id
		WHERE je.business_id = ?
			AND je.account_id = ?
			AND je.entry_date <= ?
			AND j.status IN ('Posted', 'Reversed')
	`
	if err := db.WithContext(ctx).Raw(sql, businessId, accountId, utils.DateOnly(asOf)).Scan(&s).Error; err != nil {
		return decimal.Zero, err
	}
	if account.MainType.NormalBalanceSide() == BalanceSideDebit {
		return s.TotalDebit.Sub(s.TotalCredit), nil
	}
	return s.TotalCredit.Sub(s.TotalDebit), nil
}

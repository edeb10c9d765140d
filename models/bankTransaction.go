package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// BankTransaction is an imported bank statement line. Amount is signed:
// positive = inflow to the bank account.
type BankTransaction struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null;index:idx_bt_biz_acct_date,priority:1" json:"business_id"`
	BankAccountId   int             `gorm:"index;not null;index:idx_bt_biz_acct_date,priority:2" json:"bank_account_id" binding:"required"`
	TransactionDate time.Time       `gorm:"not null;index:idx_bt_biz_acct_date,priority:3" json:"transaction_date" binding:"required"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	ReferenceNumber string          `gorm:"size:255;default:null" json:"reference_number"`
	Description     string          `gorm:"type:text;default:null" json:"description"`

	MatchStatus            MatchStatus        `gorm:"type:enum('Unmatched','Suggested','Matched');default:'Unmatched';index;not null" json:"match_status"`
	MatchedTransactionId   int                `gorm:"index;default:0" json:"matched_transaction_id"`
	MatchedTransactionType MatchCandidateType `gorm:"size:20;default:null" json:"matched_transaction_type"`
	MatchedAt              *time.Time         `json:"matched_at"`
	// Suggestion metadata from the last auto-match run. Carries no ledger
	// mutation; cleared when the transaction is matched.
	SuggestedCandidateId   int                `gorm:"default:0" json:"suggested_candidate_id"`
	SuggestedCandidateType MatchCandidateType `gorm:"size:20;default:null" json:"suggested_candidate_type"`
	SuggestedConfidence    float64            `gorm:"default:0" json:"suggested_confidence"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b BankTransaction) GetId() int {
	return b.ID
}

func (b BankTransaction) IsMatched() bool {
	return b.MatchStatus == MatchStatusMatched
}

type NewBankTransaction struct {
	BankAccountId   int             `json:"bank_account_id" binding:"required"`
	TransactionDate time.Time       `json:"transaction_date" binding:"required"`
	Amount          decimal.Decimal `json:"amount"`
	ReferenceNumber string          `json:"reference_number"`
	Description     string          `json:"description"`
}

func (input NewBankTransaction) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateResourceId[Account](ctx, businessId, input.BankAccountId); err != nil {
		return errors.New("bank account not found")
	}
	return nil
}

// ImportBankTransactions loads statement lines for one bank account.
// Feed ingestion (CSV/bank API) happens upstream; this just persists rows.
func ImportBankTransactions(ctx context.Context, inputs []NewBankTransaction) ([]*BankTransaction, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	results := make([]*BankTransaction, 0, len(inputs))
	for _, input := range inputs {
		if err := input.validate(ctx, businessId); err != nil {
			return nil, err
		}
		results = append(results, &BankTransaction{
			BusinessId:      businessId,
			BankAccountId:   input.BankAccountId,
			TransactionDate: utils.DateOnly(input.TransactionDate),
			Amount:          input.Amount,
			ReferenceNumber: input.ReferenceNumber,
			Description:     input.Description,
			MatchStatus:     MatchStatusUnmatched,
		})
	}

	db := config.GetDB()
	if len(results) > 0 {
		if err := db.WithContext(ctx).Create(&results).Error; err != nil {
			return nil, err
		}
	}
	return results, nil
}

func GetBankTransaction(ctx context.Context, id int) (*BankTransaction, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[BankTransaction](ctx, businessId, id)
}

// GetUnmatchedBankTransactions returns lines an auto-match run should visit,
// oldest first. Suggested lines are included: a later run may promote or
// replace the suggestion.
func GetUnmatchedBankTransactions(ctx context.Context, bankAccountId int) ([]*BankTransaction, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*BankTransaction
	err := db.WithContext(ctx).
		Where("business_id = ? AND bank_account_id = ? AND match_status <> ?",
			businessId, bankAccountId, MatchStatusMatched).
		Order("transaction_date ASC, id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CountOpenBankTransactions counts lines in a date range that are neither
// matched nor suggested. Used by session completion.
func CountOpenBankTransactions(ctx context.Context, bankAccountId int, upTo time.Time) (int64, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return 0, errors.New("business id is required")
	}

	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&BankTransaction{}).
		Where("business_id = ? AND bank_account_id = ? AND transaction_date <= ? AND match_status = ?",
			businessId, bankAccountId, utils.DateOnly(upTo), MatchStatusUnmatched).
		Count(&count).Error
	return count, err
}

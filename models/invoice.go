package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// Invoice is the read-side AR/AP candidate record for matching. Invoice CRUD
// itself lives with the billing modules; reconciliation only reads these rows
// and stamps match linkage.
type Invoice struct {
	ID               int             `gorm:"primary_key" json:"id"`
	BusinessId       string          `gorm:"index;not null" json:"business_id"`
	InvoiceNumber    string          `gorm:"size:255;not null;index" json:"invoice_number"`
	CounterpartyName string          `gorm:"size:255" json:"counterparty_name"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	DueDate          time.Time       `gorm:"index;not null" json:"due_date"`
	// IsPayable: true for AP (outflow), false for AR (inflow).
	IsPayable            *bool     `gorm:"not null;default:false" json:"is_payable"`
	MatchedTransactionId int       `gorm:"index;default:0" json:"matched_transaction_id"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (i Invoice) GetId() int {
	return i.ID
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Invoice](ctx, businessId, id)
}

// GetCandidateInvoices returns unmatched invoices inside the amount and date
// tolerance windows around one bank transaction.
func GetCandidateInvoices(ctx context.Context, amountLow, amountHigh decimal.Decimal, dateFrom, dateTo time.Time) ([]*Invoice, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Invoice
	err := db.WithContext(ctx).
		Where("business_id = ? AND matched_transaction_id = 0", businessId).
		Where("total_amount BETWEEN ? AND ?", amountLow, amountHigh).
		Where("due_date BETWEEN ? AND ?", utils.DateOnly(dateFrom), utils.DateOnly(dateTo)).
		Order("due_date ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

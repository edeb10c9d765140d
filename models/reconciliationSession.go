package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReconciliationSession struct {
	ID               int             `gorm:"primary_key" json:"id"`
	BusinessId       string          `gorm:"index;not null" json:"business_id"`
	SessionNumber    string          `gorm:"size:64;not null;index" json:"session_number"`
	BankAccountId    int             `gorm:"index;not null" json:"bank_account_id" binding:"required"`
	StatementDate    time.Time       `gorm:"not null" json:"statement_date" binding:"required"`
	StatementBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"statement_balance"`
	BookBalance      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"book_balance"`
	Difference       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"difference"`
	Status           SessionStatus   `gorm:"type:enum('Pending','InProgress','Completed','Disputed');default:'Pending';index;not null" json:"status"`
	CompletedAt      *time.Time      `json:"completed_at"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s ReconciliationSession) GetId() int {
	return s.ID
}

func NewSessionNumber() string {
	return "RCN-" + uuid.NewString()[:8]
}

func GetReconciliationSession(ctx context.Context, id int) (*ReconciliationSession, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[ReconciliationSession](ctx, businessId, id)
}

func GetOpenSessions(ctx context.Context, bankAccountId int) ([]*ReconciliationSession, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*ReconciliationSession
	err := db.WithContext(ctx).
		Where("business_id = ? AND bank_account_id = ? AND status IN ?",
			businessId, bankAccountId, []SessionStatus{SessionStatusPending, SessionStatusInProgress}).
		Order("statement_date ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

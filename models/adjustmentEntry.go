package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentEntry amends a locked day. The locked DailyBalance row is never
// edited directly by callers: applying an approved adjustment recomputes the
// day's snapshot inside the cycle engine and cascades forward.
type AdjustmentEntry struct {
	ID           int            `gorm:"primary_key" json:"id"`
	BusinessId   string         `gorm:"size:64;index;not null" json:"business_id"`
	AccountId    int            `gorm:"index;not null" json:"account_id" binding:"required"`
	OriginalDate time.Time      `gorm:"index;not null" json:"original_date" binding:"required"`
	Type         AdjustmentType `gorm:"type:enum('Correction','LateEntry','Reversal','Reclassification');not null" json:"type" binding:"required"`

	OriginalDebit   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"original_debit"`
	OriginalCredit  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"original_credit"`
	OriginalBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"original_balance"`

	AdjustmentDebit  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"adjustment_debit"`
	AdjustmentCredit decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"adjustment_credit"`

	NewDebit   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"new_debit"`
	NewCredit  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"new_credit"`
	NewBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"new_balance"`

	Reason      string `gorm:"type:text" json:"reason"`
	RequestedBy string `gorm:"size:100;not null" json:"requested_by"`
	ApprovedBy  string `gorm:"size:100" json:"approved_by"`
	// AuthorizeCascade permits the forward cascade to recompute locked
	// downstream days. Without it, any locked day after OriginalDate blocks
	// the whole adjustment.
	AuthorizeCascade *bool `gorm:"not null;default:false" json:"authorize_cascade"`

	Status    AdjustmentStatus `gorm:"type:enum('Pending','Approved','Rejected','Applied');default:'Pending';index;not null" json:"status"`
	AppliedAt *time.Time       `json:"applied_at"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a AdjustmentEntry) GetId() int {
	return a.ID
}

func (a AdjustmentEntry) CascadeAuthorized() bool {
	return a.AuthorizeCascade != nil && *a.AuthorizeCascade
}

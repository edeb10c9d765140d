package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DailyBalance is one row per (account, calendar date), holding the current
// figures for that day. Created when the daily cycle captures the opening
// balance for the date; mutated through the day as closings are calculated.
// Once locked, changes go only through AdjustmentEntry, which preserves the
// pre-adjustment figures alongside an audit event carrying the before/after
// pair.
type DailyBalance struct {
	ID          int       `gorm:"primary_key" json:"id"`
	BusinessId  string    `gorm:"size:64;not null;index:uniq_db_acct_date,unique;index:idx_db_biz_date,priority:1" json:"business_id"`
	AccountId   int       `gorm:"not null;index:uniq_db_acct_date,unique" json:"account_id"`
	Account     *Account  `gorm:"foreignKey:AccountId" json:"account"`
	BalanceDate time.Time `gorm:"not null;index:uniq_db_acct_date,unique;index:idx_db_biz_date,priority:2" json:"balance_date"`

	OpeningDebit   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"opening_debit"`
	OpeningCredit  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"opening_credit"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"opening_balance"`

	DailyDebit       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"daily_debit"`
	DailyCredit      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"daily_credit"`
	DailyNetMovement decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"daily_net_movement"`

	ClosingDebit   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"closing_debit"`
	ClosingCredit  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"closing_credit"`
	ClosingBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"closing_balance"`

	CycleStatus CycleStatus `gorm:"type:enum('Pending','OpeningCaptured','ClosingCalculated','Completed');default:'Pending';index;not null" json:"cycle_status"`

	IsLocked          *bool      `gorm:"not null;default:false;index" json:"is_locked"`
	LockedAt          *time.Time `json:"locked_at"`
	LockedBy          string     `gorm:"size:100" json:"locked_by"`
	LockReason        string     `gorm:"type:text" json:"lock_reason"`
	GracePeriodEnds   *time.Time `json:"grace_period_ends"`
	AllowsAdjustments *bool      `gorm:"not null;default:false" json:"allows_adjustments"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (d DailyBalance) GetId() int {
	return d.ID
}

func (d DailyBalance) Locked() bool {
	return d.IsLocked != nil && *d.IsLocked
}

// InGracePeriod reports whether an adjustment still needs no escalated
// approval for this locked day.
func (d DailyBalance) InGracePeriod(now time.Time) bool {
	if !d.Locked() || d.GracePeriodEnds == nil {
		return false
	}
	if d.AllowsAdjustments == nil || !*d.AllowsAdjustments {
		return false
	}
	return now.Before(*d.GracePeriodEnds)
}

// CanTransitionTo enforces the cycle state machine:
// Pending -> OpeningCaptured -> ClosingCalculated -> Completed.
// Recapture of the same stage is allowed (re-runs are idempotent);
// ClosingCalculated may also be re-entered from Completed when a cascade
// recomputes a downstream day.
func (d DailyBalance) CanTransitionTo(next CycleStatus) bool {
	switch next {
	case CycleStatusOpeningCaptured:
		return d.CycleStatus == CycleStatusPending || d.CycleStatus == CycleStatusOpeningCaptured
	case CycleStatusClosingCalculated:
		return d.CycleStatus == CycleStatusOpeningCaptured ||
			d.CycleStatus == CycleStatusClosingCalculated ||
			d.CycleStatus == CycleStatusCompleted
	case CycleStatusCompleted:
		return d.CycleStatus == CycleStatusClosingCalculated || d.CycleStatus == CycleStatusCompleted
	}
	return false
}

var ErrInvalidCycleTransition = errors.New("invalid cycle status transition")

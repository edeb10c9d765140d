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

// CycleError is one account's failure inside a batch run. Batch steps keep
// going: one broken account must not stall the close for the rest.
type CycleError struct {
	AccountId int    `json:"account_id"`
	Reason    string `json:"reason"`
}

// CycleResult summarizes one daily-cycle step across all accounts.
type CycleResult struct {
	BalanceDate         time.Time       `json:"balance_date"`
	TotalAccounts       int             `json:"total_accounts"`
	AccountsProcessed   int             `json:"accounts_processed"`
	TotalOpeningBalance decimal.Decimal `json:"total_opening_balance"`
	TotalClosingBalance decimal.Decimal `json:"total_closing_balance"`
	TotalDailyMovement  decimal.Decimal `json:"total_daily_movement"`
	Errors              []CycleError    `json:"errors"`
}

// CaptureOpening creates (or refreshes) the day's balance row for every
// active account, seeding each opening from the prior day's closing. An
// account whose prior day exists but is not completed is skipped and reported;
// an account with no history starts from zero.
func CaptureOpening(ctx context.Context, date time.Time) (*CycleResult, error) {
	logger := config.GetLogger()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	accounts, err := models.GetActiveAccounts(ctx)
	if err != nil {
		return nil, err
	}

	balanceDate := utils.DateOnly(date)
	result := &CycleResult{BalanceDate: balanceDate, TotalAccounts: len(accounts)}

	db := config.GetDB()
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Seed from the most recent snapshot before the date, not just
		// date-1: a skipped close day must not reset the chain to zero.
		var prior *models.DailyBalance
		var priorRow models.DailyBalance
		err := db.WithContext(ctx).
			Where("business_id = ? AND account_id = ? AND balance_date < ?",
				businessId, account.ID, balanceDate).
			Order("balance_date DESC").
			First(&priorRow).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		} else {
			prior = &priorRow
		}

		opening := models.DailyBalance{
			BusinessId:  businessId,
			AccountId:   account.ID,
			BalanceDate: balanceDate,
			CycleStatus: models.CycleStatusOpeningCaptured,
		}
		if err := seedOpeningFromPrior(&opening, prior); err != nil {
			result.Errors = append(result.Errors, CycleError{AccountId: account.ID, Reason: err.Error()})
			continue
		}

		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var existing models.DailyBalance
			err := tx.Where("business_id = ? AND account_id = ? AND balance_date = ?",
				businessId, account.ID, balanceDate).
				First(&existing).Error
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				return tx.Create(&opening).Error
			}
			if existing.Locked() {
				return fmt.Errorf("day is locked")
			}
			if !existing.CanTransitionTo(models.CycleStatusOpeningCaptured) {
				return fmt.Errorf("%w: %s -> %s",
					models.ErrInvalidCycleTransition, existing.CycleStatus, models.CycleStatusOpeningCaptured)
			}
			return tx.Model(&existing).Updates(map[string]interface{}{
				"OpeningDebit":   opening.OpeningDebit,
				"OpeningCredit":  opening.OpeningCredit,
				"OpeningBalance": opening.OpeningBalance,
				"CycleStatus":    models.CycleStatusOpeningCaptured,
			}).Error
		})
		if err != nil {
			config.LogError(logger, "workflow", "CaptureOpening", "capture account opening", account.ID, err)
			result.Errors = append(result.Errors, CycleError{AccountId: account.ID, Reason: err.Error()})
			continue
		}

		result.AccountsProcessed++
		result.TotalOpeningBalance = result.TotalOpeningBalance.Add(opening.OpeningBalance)
	}

	return result, nil
}

// CalculateClosing sums the day's posted lines per account and computes each
// closing snapshot. Sums and snapshot writes happen inside one transaction per
// run so a journal posted mid-calculation cannot split the view.
func CalculateClosing(ctx context.Context, date time.Time) (*CycleResult, error) {
	logger := config.GetLogger()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	balanceDate := utils.DateOnly(date)
	result := &CycleResult{BalanceDate: balanceDate}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.DailyBalance
		if err := tx.Preload("Account").
			Where("business_id = ? AND balance_date = ?", businessId, balanceDate).
			Order("account_id ASC").
			Find(&rows).Error; err != nil {
			return err
		}
		result.TotalAccounts = len(rows)

		sums, err := models.GetPostedEntrySumsForDate(tx, businessId, balanceDate)
		if err != nil {
			return err
		}

		for i := range rows {
			row := &rows[i]
			if row.Locked() {
				result.Errors = append(result.Errors, CycleError{AccountId: row.AccountId, Reason: "day is locked"})
				continue
			}
			if !row.CanTransitionTo(models.CycleStatusClosingCalculated) {
				result.Errors = append(result.Errors, CycleError{
					AccountId: row.AccountId,
					Reason:    fmt.Sprintf("%s: %s", models.ErrInvalidCycleTransition, row.CycleStatus),
				})
				continue
			}
			if row.Account == nil {
				result.Errors = append(result.Errors, CycleError{AccountId: row.AccountId, Reason: ErrUnknownAccount.Error()})
				continue
			}

			daySum := sums[row.AccountId]
			side := row.Account.MainType.NormalBalanceSide()
			applyDaySums(row, side, daySum.TotalDebit, daySum.TotalCredit)
			row.CycleStatus = models.CycleStatusClosingCalculated

			if err := tx.Model(row).Updates(map[string]interface{}{
				"DailyDebit":       row.DailyDebit,
				"DailyCredit":      row.DailyCredit,
				"DailyNetMovement": row.DailyNetMovement,
				"ClosingDebit":     row.ClosingDebit,
				"ClosingCredit":    row.ClosingCredit,
				"ClosingBalance":   row.ClosingBalance,
				"CycleStatus":      models.CycleStatusClosingCalculated,
			}).Error; err != nil {
				return err
			}

			result.AccountsProcessed++
			result.TotalOpeningBalance = result.TotalOpeningBalance.Add(row.OpeningBalance)
			result.TotalClosingBalance = result.TotalClosingBalance.Add(row.ClosingBalance)
			result.TotalDailyMovement = result.TotalDailyMovement.Add(row.DailyNetMovement)
		}

		return refreshDailySummary(tx, businessId, balanceDate, rows)
	})
	if err != nil {
		config.LogError(logger, "workflow", "CalculateClosing", "calculate closings", balanceDate, err)
		return nil, err
	}

	return result, nil
}

// CompleteDay finalizes calculated snapshots for the date. Only rows in
// ClosingCalculated move; completed rows pass through untouched.
func CompleteDay(ctx context.Context, date time.Time) (*CycleResult, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	balanceDate := utils.DateOnly(date)
	result := &CycleResult{BalanceDate: balanceDate}

	db := config.GetDB()
	var rows []models.DailyBalance
	if err := db.WithContext(ctx).
		Where("business_id = ? AND balance_date = ?", businessId, balanceDate).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result.TotalAccounts = len(rows)

	for i := range rows {
		row := &rows[i]
		if row.CycleStatus == models.CycleStatusCompleted {
			result.AccountsProcessed++
			result.TotalClosingBalance = result.TotalClosingBalance.Add(row.ClosingBalance)
			continue
		}
		if !row.CanTransitionTo(models.CycleStatusCompleted) {
			result.Errors = append(result.Errors, CycleError{
				AccountId: row.AccountId,
				Reason:    fmt.Sprintf("%s: %s", models.ErrInvalidCycleTransition, row.CycleStatus),
			})
			continue
		}
		if err := db.WithContext(ctx).Model(row).
			Update("CycleStatus", models.CycleStatusCompleted).Error; err != nil {
			return nil, err
		}
		result.AccountsProcessed++
		result.TotalClosingBalance = result.TotalClosingBalance.Add(row.ClosingBalance)
	}

	return result, nil
}

// LockDay freezes the date's completed snapshots and opens the adjustment
// grace window. Locking is idempotent.
func LockDay(ctx context.Context, date time.Time, reason string) (*CycleResult, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	lockedBy, _ := utils.GetUserNameFromContext(ctx)

	balanceDate := utils.DateOnly(date)
	now := time.Now().UTC()
	graceEnds := now.Add(config.LockGracePeriod())
	result := &CycleResult{BalanceDate: balanceDate}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.DailyBalance
		if err := tx.Where("business_id = ? AND balance_date = ?", businessId, balanceDate).
			Find(&rows).Error; err != nil {
			return err
		}
		result.TotalAccounts = len(rows)

		for i := range rows {
			row := &rows[i]
			if row.Locked() {
				result.AccountsProcessed++
				continue
			}
			if row.CycleStatus != models.CycleStatusClosingCalculated &&
				row.CycleStatus != models.CycleStatusCompleted {
				result.Errors = append(result.Errors, CycleError{
					AccountId: row.AccountId,
					Reason:    fmt.Sprintf("cannot lock day in status %s", row.CycleStatus),
				})
				continue
			}
			if err := tx.Model(row).Updates(map[string]interface{}{
				"IsLocked":          utils.NewTrue(),
				"LockedAt":          now,
				"LockedBy":          lockedBy,
				"LockReason":        reason,
				"GracePeriodEnds":   graceEnds,
				"AllowsAdjustments": utils.NewTrue(),
			}).Error; err != nil {
				return err
			}
			if err := models.RecordAuditEvent(tx, "DailyBalance", row.ID, "LOCKED", nil, row); err != nil {
				return err
			}
			result.AccountsProcessed++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type NewAdjustment struct {
	AccountId        int                   `json:"account_id" binding:"required"`
	OriginalDate     time.Time             `json:"original_date" binding:"required"`
	Type             models.AdjustmentType `json:"type" binding:"required"`
	AdjustmentDebit  decimal.Decimal       `json:"adjustment_debit"`
	AdjustmentCredit decimal.Decimal       `json:"adjustment_credit"`
	Reason           string                `json:"reason" binding:"required"`
	ApprovedBy       string                `json:"approved_by"`
	AuthorizeCascade *bool                 `json:"authorize_cascade"`
}

// ApplyAdjustment amends one locked day and recomputes every later snapshot
// of the account in date order, all inside a single transaction. A locked
// downstream day blocks the whole adjustment unless the cascade is
// authorized; recomputed days keep their locks and land back in Completed.
// The advisory range lock is held through commit so no concurrent cascade
// reads a half-written chain.
func ApplyAdjustment(ctx context.Context, input *NewAdjustment) (*models.AdjustmentEntry, error) {
	logger := config.GetLogger()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	requestedBy, _ := utils.GetUserNameFromContext(ctx)

	account, err := utils.FetchModel[models.Account](ctx, businessId, input.AccountId)
	if err != nil {
		return nil, fmt.Errorf("%w: account_id=%d", ErrUnknownAccount, input.AccountId)
	}
	side := account.MainType.NormalBalanceSide()
	originalDate := utils.DateOnly(input.OriginalDate)
	now := time.Now().UTC()

	lock, err := utils.ObtainTenantLock(ctx, businessId,
		fmt.Sprintf("cycle-adjust:%d", input.AccountId), time.Minute)
	if err != nil {
		return nil, err
	}
	if lock != nil {
		defer lock.Release(ctx)
	}

	db := config.GetDB()
	var adjustment models.AdjustmentEntry

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

	if err := AcquireCycleRangeLock(tx, businessId, input.AccountId); err != nil {
		tx.Rollback()
		return nil, err
	}
	defer ReleaseCycleRangeLock(tx, businessId, input.AccountId)

	err = func() error {
		var target models.DailyBalance
		if err := tx.Where("business_id = ? AND account_id = ? AND balance_date = ?",
			businessId, input.AccountId, originalDate).
			First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("no balance snapshot for account_id=%d on %s",
					input.AccountId, originalDate.Format("2006-01-02"))
			}
			return err
		}
		if !target.Locked() {
			return fmt.Errorf("%w: %s", ErrDayNotLocked, originalDate.Format("2006-01-02"))
		}
		if !target.InGracePeriod(now) && input.ApprovedBy == "" {
			return fmt.Errorf("%w: grace period ended %v", ErrAdjustmentNotAuthorized, target.GracePeriodEnds)
		}

		var downstream []models.DailyBalance
		if err := tx.Where("business_id = ? AND account_id = ? AND balance_date > ?",
			businessId, input.AccountId, originalDate).
			Order("balance_date ASC").
			Find(&downstream).Error; err != nil {
			return err
		}

		cascadeAuthorized := input.AuthorizeCascade != nil && *input.AuthorizeCascade
		for _, day := range downstream {
			if day.Locked() && !cascadeAuthorized {
				return fmt.Errorf("%w: %s", ErrCascadeBlocked, day.BalanceDate.Format("2006-01-02"))
			}
		}

		adjustment = models.AdjustmentEntry{
			BusinessId:       businessId,
			AccountId:        input.AccountId,
			OriginalDate:     originalDate,
			Type:             input.Type,
			OriginalDebit:    target.DailyDebit,
			OriginalCredit:   target.DailyCredit,
			OriginalBalance:  target.ClosingBalance,
			AdjustmentDebit:  input.AdjustmentDebit,
			AdjustmentCredit: input.AdjustmentCredit,
			Reason:           input.Reason,
			RequestedBy:      requestedBy,
			ApprovedBy:       input.ApprovedBy,
			AuthorizeCascade: input.AuthorizeCascade,
			Status:           models.AdjustmentStatusApplied,
			AppliedAt:        &now,
		}
		adjustment.NewDebit = target.DailyDebit.Add(input.AdjustmentDebit)
		adjustment.NewCredit = target.DailyCredit.Add(input.AdjustmentCredit)

		before := target
		applyDaySums(&target, side, adjustment.NewDebit, adjustment.NewCredit)
		adjustment.NewBalance = target.ClosingBalance
		if err := tx.Model(&target).Updates(map[string]interface{}{
			"DailyDebit":       target.DailyDebit,
			"DailyCredit":      target.DailyCredit,
			"DailyNetMovement": target.DailyNetMovement,
			"ClosingDebit":     target.ClosingDebit,
			"ClosingCredit":    target.ClosingCredit,
			"ClosingBalance":   target.ClosingBalance,
		}).Error; err != nil {
			return err
		}
		if err := models.RecordAuditEvent(tx, "DailyBalance", target.ID, "ADJUSTED", &before, &target); err != nil {
			return err
		}

		// Forward cascade: each later day reopens from the recomputed closing
		// and is marked completed again; existing locks stay in place.
		recomputed := recalculateForward(side, target, downstream)
		for i := range recomputed {
			day := &recomputed[i]
			if err := tx.Model(day).Updates(map[string]interface{}{
				"OpeningDebit":     day.OpeningDebit,
				"OpeningCredit":    day.OpeningCredit,
				"OpeningBalance":   day.OpeningBalance,
				"DailyNetMovement": day.DailyNetMovement,
				"ClosingDebit":     day.ClosingDebit,
				"ClosingCredit":    day.ClosingCredit,
				"ClosingBalance":   day.ClosingBalance,
				"CycleStatus":      day.CycleStatus,
			}).Error; err != nil {
				return err
			}
			if err := models.RecordAuditEvent(tx, "DailyBalance", day.ID, "CASCADE_RECALCULATED",
				&downstream[i], day); err != nil {
				return err
			}
		}

		if err := tx.Create(&adjustment).Error; err != nil {
			return err
		}
		return models.RecordAuditEvent(tx, "AdjustmentEntry", adjustment.ID, "APPLIED", nil, &adjustment)
	}()
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "workflow", "ApplyAdjustment", "apply adjustment", input, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &adjustment, nil
}

// seedOpeningFromPrior copies the latest prior closing triple into the day's
// opening. No prior snapshot starts the account from zero; a prior snapshot
// that never completed blocks the account until that day is closed.
func seedOpeningFromPrior(opening *models.DailyBalance, prior *models.DailyBalance) error {
	if prior == nil {
		return nil
	}
	if prior.CycleStatus != models.CycleStatusCompleted {
		return fmt.Errorf("%w: %s", ErrMissingPriorClosing, prior.BalanceDate.Format("2006-01-02"))
	}
	opening.OpeningDebit = prior.ClosingDebit
	opening.OpeningCredit = prior.ClosingCredit
	opening.OpeningBalance = prior.ClosingBalance
	return nil
}

// applyDaySums sets the day's totals and closing triple from its opening
// triple plus the given per-day sums.
func applyDaySums(row *models.DailyBalance, side models.BalanceSide, dailyDebit, dailyCredit decimal.Decimal) {
	row.DailyDebit = dailyDebit
	row.DailyCredit = dailyCredit
	row.DailyNetMovement = netMovement(side, dailyDebit, dailyCredit)
	row.ClosingDebit = row.OpeningDebit.Add(dailyDebit)
	row.ClosingCredit = row.OpeningCredit.Add(dailyCredit)
	row.ClosingBalance = row.OpeningBalance.Add(row.DailyNetMovement)
}

// netMovement is the day's signed movement on the account's normal side.
func netMovement(side models.BalanceSide, dailyDebit, dailyCredit decimal.Decimal) decimal.Decimal {
	if side == models.BalanceSideDebit {
		return dailyDebit.Sub(dailyCredit)
	}
	return dailyCredit.Sub(dailyDebit)
}

// recalculateForward chains snapshots after an amended day: each day's opening
// is the previous day's closing, its own daily sums are kept, its closing is
// recomputed and the day lands back in Completed. Pure over its inputs; the
// caller persists the result.
func recalculateForward(side models.BalanceSide, amended models.DailyBalance, days []models.DailyBalance) []models.DailyBalance {
	recomputed := make([]models.DailyBalance, len(days))
	prev := amended
	for i, day := range days {
		day.OpeningDebit = prev.ClosingDebit
		day.OpeningCredit = prev.ClosingCredit
		day.OpeningBalance = prev.ClosingBalance
		applyDaySums(&day, side, day.DailyDebit, day.DailyCredit)
		day.CycleStatus = models.CycleStatusCompleted
		recomputed[i] = day
		prev = day
	}
	return recomputed
}

// refreshDailySummary rebuilds the (business, date) income/expense aggregate
// from the day's calculated rows.
func refreshDailySummary(tx *gorm.DB, businessId string, date time.Time, rows []models.DailyBalance) error {
	totalIncome := decimal.Zero
	totalExpense := decimal.Zero
	for _, row := range rows {
		if row.Account == nil {
			continue
		}
		switch row.Account.MainType {
		case models.AccountMainTypeRevenue:
			totalIncome = totalIncome.Add(row.DailyNetMovement)
		case models.AccountMainTypeExpense:
			totalExpense = totalExpense.Add(row.DailyNetMovement)
		}
	}

	summary := models.DailySummary{
		BusinessId:      businessId,
		TransactionDate: date,
		TotalIncome:     totalIncome,
		TotalExpense:    totalExpense,
	}
	var existing models.DailySummary
	err := tx.Where("business_id = ? AND transaction_date = ?", businessId, date).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&summary).Error
		}
		return err
	}
	return tx.Model(&existing).Updates(map[string]interface{}{
		"TotalIncome":  totalIncome,
		"TotalExpense": totalExpense,
	}).Error
}

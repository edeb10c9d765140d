package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireBusinessPostingLock serializes posting per business across instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same *gorm.DB that will do the posting transaction.
func AcquireBusinessPostingLock(tx *gorm.DB, businessId string) error {
	lockName := fmt.Sprintf("posting:%s", businessId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock for business_id=%s", businessId)
	}
	return nil
}

func ReleaseBusinessPostingLock(tx *gorm.DB, businessId string) {
	lockName := fmt.Sprintf("posting:%s", businessId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}

// AcquireCycleRangeLock serializes daily-cycle cascades per (business,
// account). The cascade reads-then-writes a run of DailyBalance rows, so
// overlapping cascades for the same account must not interleave.
func AcquireCycleRangeLock(tx *gorm.DB, businessId string, accountId int) error {
	lockName := fmt.Sprintf("cycle:%s:%d", businessId, accountId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire cycle lock for business_id=%s account_id=%d", businessId, accountId)
	}
	return nil
}

func ReleaseCycleRangeLock(tx *gorm.DB, businessId string, accountId int) {
	lockName := fmt.Sprintf("cycle:%s:%d", businessId, accountId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}

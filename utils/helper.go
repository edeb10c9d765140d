package utils

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"github.com/bsm/redislock"
)

var seqMutex sync.Mutex

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

// get type name of struct
func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

// DateOnly strips the time component, keeping the calendar date in UTC.
// All cycle/posting dates are stored this way.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FiscalPeriod formats a date as the accounting month bucket (YYYY-MM).
func FiscalPeriod(t time.Time) string {
	return t.Format("2006-01")
}

// GetSequence returns the next per-tenant sequence number for a model type.
// Seeded from max(sequence_no) in the table on first use; redis keeps the
// counter hot afterwards.
func GetSequence[T any](ctx context.Context, businessId string) (int64, error) {
	var model T
	seqMutex.Lock()
	defer seqMutex.Unlock()

	cacheKey := businessId + "-" + strings.ToLower(GetTypeName[T]()) + "_seq"
	db := config.GetDB()

	seqNo, err := config.GetRedisCounter(ctx, cacheKey)
	if err != nil {
		return 0, err
	}
	// first counter hit (or no redis): seed from the table
	if seqNo <= 1 {
		var dbSeq *int64
		if err := db.WithContext(ctx).Model(&model).Select("max(sequence_no)").
			Where("business_id = ?", businessId).
			Scan(&dbSeq).Error; err != nil {
			return 0, err
		}
		if dbSeq == nil {
			seqNo = 0
		} else {
			seqNo = *dbSeq
		}
		seqNo++
		if err := config.SetRedisObject(cacheKey, &seqNo, 0); err != nil {
			return 0, err
		}
	}
	return seqNo, nil
}

// ObtainTenantLock serializes work across instances using redislock.
// Caller must Release the returned lock. Returns nil lock (no error) when
// redis is not configured; single-instance deployments then rely on the MySQL
// advisory posting lock alone.
func ObtainTenantLock(ctx context.Context, businessId string, lockType string, ttl time.Duration) (*redislock.Lock, error) {
	locker := config.GetRedisLock()
	if locker == nil {
		return nil, nil
	}
	lockKey := fmt.Sprintf("%s:%s", lockType, businessId)
	lock, err := locker.Obtain(ctx, lockKey, ttl, nil)
	if err == redislock.ErrNotObtained {
		return nil, errors.New("could not obtain lock: " + lockKey)
	} else if err != nil {
		return nil, err
	}
	return lock, nil
}

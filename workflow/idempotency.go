package workflow

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/models"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"github.com/go-sql-driver/mysql"
)

// ErrDuplicateTrigger is returned when a handler has already succeeded for
// the same message id. Retried triggers then become no-ops.
var ErrDuplicateTrigger = errors.New("duplicate trigger: already processed")

func isDuplicateKeyError(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// BeginIdempotency claims (business, handler, message). First caller inserts
// a STARTED row and proceeds; a SUCCEEDED duplicate returns ErrDuplicateTrigger;
// a STARTED or FAILED duplicate is a retry and may proceed.
func BeginIdempotency(ctx context.Context, handlerName string, messageId string) (*models.IdempotencyKey, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	key := models.IdempotencyKey{
		BusinessId:  businessId,
		HandlerName: handlerName,
		MessageId:   messageId,
		Status:      models.IdempotencyStatusStarted,
	}
	err := db.WithContext(ctx).Create(&key).Error
	if err == nil {
		return &key, nil
	}
	if !isDuplicateKeyError(err) {
		return nil, err
	}

	var existing models.IdempotencyKey
	if err := db.WithContext(ctx).
		Where("business_id = ? AND handler_name = ? AND message_id = ?",
			businessId, handlerName, messageId).
		First(&existing).Error; err != nil {
		return nil, err
	}
	if existing.Status == models.IdempotencyStatusSucceeded {
		return nil, ErrDuplicateTrigger
	}
	return &existing, nil
}

func MarkIdempotencySucceeded(ctx context.Context, key *models.IdempotencyKey) error {
	if key == nil {
		return nil
	}
	db := config.GetDB()
	return db.WithContext(ctx).Model(key).Updates(map[string]interface{}{
		"Status":    models.IdempotencyStatusSucceeded,
		"LastError": nil,
	}).Error
}

func MarkIdempotencyFailed(ctx context.Context, key *models.IdempotencyKey, cause error) error {
	if key == nil || cause == nil {
		return nil
	}
	db := config.GetDB()
	msg := cause.Error()
	return db.WithContext(ctx).Model(key).Updates(map[string]interface{}{
		"Status":    models.IdempotencyStatusFailed,
		"LastError": &msg,
	}).Error
}

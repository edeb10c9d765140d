package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

// AuditEvent is the append-only audit trail. Entity/action/actor are typed
// columns; before/after snapshots are serialized per event, not free text.
type AuditEvent struct {
	ID            int       `gorm:"primary_key" json:"id"`
	BusinessId    string    `gorm:"index;not null" json:"business_id"`
	EntityType    string    `gorm:"size:50;index;not null" json:"entity_type"`
	EntityId      int       `gorm:"index;not null" json:"entity_id"`
	Action        string    `gorm:"size:30;index;not null" json:"action"`
	Before        []byte    `gorm:"type:blob" json:"before"`
	After         []byte    `gorm:"type:blob" json:"after"`
	ActorId       int       `gorm:"index" json:"actor_id"`
	ActorName     string    `gorm:"size:100" json:"actor_name"`
	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (e AuditEvent) GetId() int {
	return e.ID
}

// Audit rows are immutable once written.

func (e *AuditEvent) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("audit log is append-only: audit_events cannot be updated")
}

func (e *AuditEvent) BeforeDelete(tx *gorm.DB) error {
	return errors.New("audit log is append-only: audit_events cannot be deleted")
}

// RecordAuditEvent writes one audit row inside the caller's transaction, so
// the event commits (or rolls back) with the change it describes.
func RecordAuditEvent(tx *gorm.DB, entityType string, entityId int, action string, before interface{}, after interface{}) error {
	ctx := tx.Statement.Context

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return errors.New("business id is required")
	}
	actorId, _ := utils.GetUserIdFromContext(ctx)
	actorName, _ := utils.GetUserNameFromContext(ctx)
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	var b, a []byte
	if before != nil {
		b, _ = json.Marshal(before)
	}
	if after != nil {
		a, _ = json.Marshal(after)
	}

	event := AuditEvent{
		BusinessId:    businessId,
		EntityType:    entityType,
		EntityId:      entityId,
		Action:        action,
		Before:        b,
		After:         a,
		ActorId:       actorId,
		ActorName:     actorName,
		CorrelationId: correlationId,
	}
	return tx.Create(&event).Error
}

func GetAuditEvents(ctx context.Context, entityType *string, entityId *int) ([]*AuditEvent, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if entityType != nil && *entityType != "" {
		dbCtx = dbCtx.Where("entity_type = ?", *entityType)
	}
	if entityId != nil && *entityId > 0 {
		dbCtx = dbCtx.Where("entity_id = ?", *entityId)
	}
	var results []*AuditEvent
	err := dbCtx.Order("created_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

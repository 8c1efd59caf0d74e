package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"dinein-backend/internal/models"
	"dinein-backend/internal/store"

	"gorm.io/gorm"
)

// Actor is the terminal user behind a request.
type Actor struct {
	Role models.Role
	Name string
}

// Customer is the actor of unauthenticated table-side requests.
var Customer = Actor{Role: models.RoleCustomer}

type Entry struct {
	Actor       Actor
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Write stores e through tx, so the log row commits or rolls back together
// with the change it describes.
func Write(tx *gorm.DB, e Entry) error {
	// jsonb columns reject the empty string, store JSON null instead
	beforeStr := "null"
	afterStr := "null"

	if e.Before != nil {
		if b, err := json.Marshal(e.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if e.After != nil {
		if b, err := json.Marshal(e.After); err == nil {
			afterStr = string(b)
		}
	}

	log := models.AuditLog{
		ActorRole:   e.Actor.Role,
		ActorName:   e.Actor.Name,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Action:      e.Action,
		Description: e.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := tx.Create(&log).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

type Filter struct {
	EntityType string
	EntityID   uint
	Action     models.AuditAction
	Limit      int
}

// List returns matching logs, newest first.
func List(ctx context.Context, db *gorm.DB, f Filter) ([]models.AuditLog, error) {
	q := db.WithContext(ctx).Model(&models.AuditLog{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var logs []models.AuditLog
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, store.Classify(err)
	}
	return logs, nil
}

package models

import "time"

type AuditAction string

const (
	AuditActionOpen    AuditAction = "open"
	AuditActionConfirm AuditAction = "confirm"
	AuditActionRefund  AuditAction = "refund"
	AuditActionSettle  AuditAction = "settle"
	AuditActionCleanup AuditAction = "cleanup"
	AuditActionCreate  AuditAction = "create"
	AuditActionUpdate  AuditAction = "update"
	AuditActionDelete  AuditAction = "delete"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// Who? Customers have no name, only the role.
	ActorRole Role   `gorm:"size:20" json:"actor_role"`
	ActorName string `gorm:"size:100" json:"actor_name"`

	// Which entity? ("table", "bill", "order", "order_item", "dish")
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	// State before and after (JSON)
	BeforeData string `gorm:"type:jsonb" json:"before_data"`
	AfterData  string `gorm:"type:jsonb" json:"after_data"`
}

package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditAction is the kind of mutation an audit entry records
type AuditAction string

const (
	AuditCreate AuditAction = "CREATE"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"

	// AuditTerminate is recorded as an update; the changes payload carries
	// status TERMINATED.
	AuditTerminate = AuditUpdate
)

// AuditLog is an append-only record of a mutation
type AuditLog struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	EntityID   uint           `json:"entity_id" gorm:"index:idx_audit_entity;not null"`
	EntityType string         `json:"entity_type" gorm:"type:varchar(50);index:idx_audit_entity;not null"`
	Action     AuditAction    `json:"action" gorm:"type:varchar(20);not null"`
	UserID     uint           `json:"user_id" gorm:"index;not null"`
	Changes    datatypes.JSON `json:"changes"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index"`
}

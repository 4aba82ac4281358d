package model

import (
	"time"
)

// NotificationPriority orders notifications in the inbox
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "LOW"
	PriorityMedium NotificationPriority = "MEDIUM"
	PriorityHigh   NotificationPriority = "HIGH"
	PriorityUrgent NotificationPriority = "URGENT"
)

// NotificationTypeLease tags notifications produced by lease mutations
const NotificationTypeLease = "LEASE"

// Notification is a per-recipient inbox message
type Notification struct {
	ID         uint                 `json:"id" gorm:"primaryKey"`
	UserID     uint                 `json:"user_id" gorm:"index;not null"`
	Title      string               `json:"title" gorm:"type:varchar(200);not null"`
	Message    string               `json:"message" gorm:"type:text;not null"`
	Type       string               `json:"type" gorm:"type:varchar(30);index;not null"`
	EntityType string               `json:"entity_type,omitempty" gorm:"type:varchar(50)"`
	EntityID   *uint                `json:"entity_id,omitempty"`
	ActionURL  string               `json:"action_url,omitempty" gorm:"type:varchar(255)"`
	Priority   NotificationPriority `json:"priority" gorm:"type:varchar(20);not null;default:'MEDIUM'"`
	IsRead     bool                 `json:"is_read" gorm:"index;default:false"`
	ReadAt     *time.Time           `json:"read_at,omitempty"`
	CreatedAt  time.Time            `json:"created_at" gorm:"index"`
}

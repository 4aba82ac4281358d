package model

import (
	"time"

	"gorm.io/datatypes"
)

// OutboxMessage is a side-effect intent written in the same transaction as
// the state change that produced it
type OutboxMessage struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Kind        string         `json:"kind" gorm:"type:varchar(50);index;not null"`
	Payload     datatypes.JSON `json:"payload"`
	Attempts    int            `json:"attempts" gorm:"not null;default:0"`
	LastError   string         `json:"last_error,omitempty" gorm:"type:text"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty" gorm:"index"`
	CreatedAt   time.Time      `json:"created_at" gorm:"index"`
}

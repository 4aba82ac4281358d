package model

import (
	"time"
)

// Property is a building or lot that contains leasable units
type Property struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"type:varchar(150);index;not null"`
	Address      string    `json:"address" gorm:"type:text"`
	City         string    `json:"city" gorm:"type:varchar(100)"`
	PropertyType string    `json:"property_type" gorm:"type:varchar(50)"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Units []Unit `json:"units,omitempty" gorm:"foreignKey:PropertyID"`
}

package model

import (
	"time"
)

// UnitStatus is the occupancy state of a unit
type UnitStatus string

const (
	UnitVacant      UnitStatus = "VACANT"
	UnitOccupied    UnitStatus = "OCCUPIED"
	UnitMaintenance UnitStatus = "MAINTENANCE"
	UnitReserved    UnitStatus = "RESERVED"
)

// Valid reports whether s is a known unit status
func (s UnitStatus) Valid() bool {
	switch s {
	case UnitVacant, UnitOccupied, UnitMaintenance, UnitReserved:
		return true
	}
	return false
}

// Unit is a leasable space inside a property.
// Status is a projection of lease state and is written by the lease
// lifecycle; Version guards those writes.
type Unit struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	PropertyID      uint       `json:"property_id" gorm:"index;not null"`
	UnitNumber      string     `json:"unit_number" gorm:"type:varchar(50);not null"`
	TotalArea       float64    `json:"total_area" gorm:"type:numeric(12,2)"`
	TotalRent       float64    `json:"total_rent" gorm:"type:numeric(12,2)"`
	Status          UnitStatus `json:"status" gorm:"type:varchar(20);index;not null;default:'VACANT'"`
	PropertyTitleID *uint      `json:"property_title_id,omitempty"`
	Version         uint       `json:"version" gorm:"not null;default:0"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Property Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
}

// Label renders the unit the way it appears in notifications: "Property – Unit"
func (u Unit) Label() string {
	if u.Property.Name == "" {
		return u.UnitNumber
	}
	return u.Property.Name + " – " + u.UnitNumber
}

package model

import (
	"time"
)

// LeaseStatus is the lifecycle state of a lease
type LeaseStatus string

const (
	LeasePending    LeaseStatus = "PENDING"
	LeaseActive     LeaseStatus = "ACTIVE"
	LeaseTerminated LeaseStatus = "TERMINATED"
	LeaseExpired    LeaseStatus = "EXPIRED"
)

// Valid reports whether s is a known lease status
func (s LeaseStatus) Valid() bool {
	switch s {
	case LeasePending, LeaseActive, LeaseTerminated, LeaseExpired:
		return true
	}
	return false
}

// Closed reports whether s has ended the lease. Update never changes a
// closed status.
func (s LeaseStatus) Closed() bool {
	return s == LeaseTerminated || s == LeaseExpired
}

// Lease is a tenancy contract covering one or more units
type Lease struct {
	ID                uint        `json:"id" gorm:"primaryKey"`
	TenantID          uint        `json:"tenant_id" gorm:"index;not null"`
	StartDate         time.Time   `json:"start_date" gorm:"not null"`
	EndDate           time.Time   `json:"end_date" gorm:"not null"`
	TotalRentAmount   float64     `json:"total_rent_amount" gorm:"type:numeric(12,2);not null"`
	SecurityDeposit   float64     `json:"security_deposit" gorm:"type:numeric(12,2);not null;default:0"`
	Status            LeaseStatus `json:"status" gorm:"type:varchar(20);index;not null;default:'PENDING'"`
	TerminationDate   *time.Time  `json:"termination_date,omitempty"`
	TerminationReason string      `json:"termination_reason,omitempty" gorm:"type:text"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`

	Tenant     Tenant      `json:"tenant,omitempty" gorm:"foreignKey:TenantID;constraint:OnDelete:RESTRICT"`
	LeaseUnits []LeaseUnit `json:"lease_units,omitempty" gorm:"foreignKey:LeaseID;constraint:OnDelete:CASCADE"`
}

// UnitRentSum adds up the rent contributions of the attached units
func (l Lease) UnitRentSum() float64 {
	var sum float64
	for _, lu := range l.LeaseUnits {
		sum += lu.RentAmount
	}
	return sum
}

// UnitLabels lists "Property – Unit" for every attached unit
func (l Lease) UnitLabels() []string {
	labels := make([]string, 0, len(l.LeaseUnits))
	for _, lu := range l.LeaseUnits {
		labels = append(labels, lu.Unit.Label())
	}
	return labels
}

// LeaseUnit joins a lease to one unit with that unit's rent contribution
type LeaseUnit struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	LeaseID    uint      `json:"lease_id" gorm:"index;not null;uniqueIndex:idx_lease_unit"`
	UnitID     uint      `json:"unit_id" gorm:"index;not null;uniqueIndex:idx_lease_unit"`
	RentAmount float64   `json:"rent_amount" gorm:"type:numeric(12,2);not null"`
	CreatedAt  time.Time `json:"created_at"`

	Unit Unit `json:"unit,omitempty" gorm:"foreignKey:UnitID;constraint:OnDelete:RESTRICT"`
}

package model

import (
	"time"
)

// Roles a user can hold in the back office
const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleStaff   = "STAFF"
)

// User is a back-office account. Users are the recipients of lease
// notifications; credentials live with the token issuer.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"type:varchar(150)"`
	Role      string    `json:"role" gorm:"type:varchar(20);index;not null;default:'STAFF'"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// internal/models/employee.go
package models

import "time"

type EmployeeRole string
type EmployeeStatus string

const (
	RoleOwner    EmployeeRole = "OWNER"
	RoleAdmin    EmployeeRole = "ADMIN"
	RoleEmployee EmployeeRole = "EMPLOYEE"

	StatusActive   EmployeeStatus = "ACTIVE"
	StatusInactive EmployeeStatus = "INACTIVE"
)

// Employee is the slice of the HR record the punch clock reads. It is
// maintained by employee administration; this service only authenticates
// against it and walks ManagerID to decide who may issue manual codes.
type Employee struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ManagerID    *uint          `gorm:"index" json:"manager_id,omitempty"`
	Role         EmployeeRole   `gorm:"type:varchar(20);not null" json:"role"`
	Status       EmployeeStatus `gorm:"type:varchar(20);not null" json:"status"`
	FullName     string         `gorm:"not null" json:"full_name"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`

	TOTPSecret  string `json:"-"`
	TOTPEnabled bool   `gorm:"not null;default:false" json:"totp_enabled"`

	CreatedAt time.Time `json:"created_at"`
}

// IsTopAdmin reports whether the role bypasses the direct-report check.
func (e Employee) IsTopAdmin() bool {
	return e.Role == RoleOwner || e.Role == RoleAdmin
}

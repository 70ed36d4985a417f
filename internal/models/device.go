// internal/models/device.go
package models

import "time"

type DeviceKind string

const (
	DevicePhysical DeviceKind = "PHYSICAL"
	DeviceVirtual  DeviceKind = "VIRTUAL"
)

// Device is a registry entry for a scanner display or a manager's virtual
// device. Secret is the HMAC key for punch payloads and never leaves the
// server.
type Device struct {
	ID        string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Kind      DeviceKind `gorm:"type:varchar(20);not null" json:"kind"`
	Label     string     `json:"label"`
	Secret    string     `gorm:"not null" json:"-"`
	IsActive  bool       `gorm:"not null;default:true" json:"is_active"`
	OwnerID   *uint      `gorm:"uniqueIndex" json:"owner_id,omitempty"` // set for virtual devices only
	CreatedAt time.Time  `json:"created_at"`
}

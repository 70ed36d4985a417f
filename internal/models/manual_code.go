// internal/models/manual_code.go
package models

import "time"

// ManualCode maps an 8-digit code to the signed payload it unlocks. The code
// itself is the capability, so the row is deleted as soon as it is redeemed.
type ManualCode struct {
	Code      string    `gorm:"primaryKey;type:char(8)" json:"-"`
	DeviceID  string    `gorm:"type:varchar(64);not null;index" json:"device_id"`
	Payload   string    `gorm:"type:text;not null" json:"-"`
	IssuedBy  uint      `gorm:"index;not null" json:"issued_by"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *ManualCode) IsExpired(now time.Time) bool {
	return now.After(m.ExpiresAt)
}

// internal/models/punch_event.go
package models

import "time"

type PunchType string
type EntryMethod string

const (
	PunchIn  PunchType = "IN"
	PunchOut PunchType = "OUT"

	EntryScanned EntryMethod = "SCANNED"
	EntryManual  EntryMethod = "MANUAL"
)

// PunchEvent is one link of a device's hash chain. Rows are written once
// and never updated.
//
// (device_id, nonce) is the single-use constraint for signed payloads.
// (device_id, prev_hash) keeps the chain linear: two links cannot claim the
// same predecessor. The first link of a chain stores an empty prev_hash.
type PunchEvent struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	EmployeeID  uint        `gorm:"index:idx_punch_employee_received,priority:1;not null" json:"employee_id"`
	DeviceID    string      `gorm:"type:varchar(64);not null;uniqueIndex:idx_punch_device_nonce,priority:1;uniqueIndex:idx_punch_device_prev,priority:1;index:idx_punch_device_received,priority:1" json:"device_id"`
	Type        PunchType   `gorm:"type:varchar(8);not null" json:"type"`
	EntryMethod EntryMethod `gorm:"type:varchar(16);not null" json:"entry_method"`
	DeviceTime  time.Time   `gorm:"not null" json:"device_time"`
	ReceivedAt  time.Time   `gorm:"not null;index:idx_punch_employee_received,priority:2;index:idx_punch_device_received,priority:2" json:"received_at"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`

	Nonce     string `gorm:"type:varchar(128);not null;uniqueIndex:idx_punch_device_nonce,priority:2" json:"nonce"`
	ClientIP  string `gorm:"type:varchar(64)" json:"-"`
	UserAgent string `gorm:"type:text" json:"-"`
	Payload   string `gorm:"type:text" json:"-"`

	Hash     string `gorm:"type:char(64);not null" json:"hash"`
	PrevHash string `gorm:"type:varchar(64);not null;uniqueIndex:idx_punch_device_prev,priority:2" json:"-"`
}

// PrevHashOrNil returns nil for the first link of a chain.
func (e PunchEvent) PrevHashOrNil() *string {
	if e.PrevHash == "" {
		return nil
	}
	h := e.PrevHash
	return &h
}

package punch

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"gorm.io/gorm"

	"punchclock_backend/internal/models"
)

const (
	DefaultManualCodeTTL = 30 * time.Second
	ManualCodeDigits     = 8

	maxIssueAttempts = 5
)

var codeSpace = big.NewInt(100_000_000)

// VirtualDevices resolves the per-manager device that hosts manual codes.
type VirtualDevices interface {
	EnsureVirtual(ctx context.Context, managerID uint) (*models.Device, error)
}

type IssuedCode struct {
	Code        string    `json:"code"`
	DisplayCode string    `json:"display_code"`
	Payload     string    `json:"payload"`
	DeviceID    string    `json:"device_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Broker issues short-lived numeric codes that stand in for a scanned
// payload. Whether the caller may issue is decided before Issue is called.
type Broker struct {
	DB      *gorm.DB
	Devices VirtualDevices
	TTL     time.Duration
}

func NewBroker(db *gorm.DB, devices VirtualDevices, ttl time.Duration) *Broker {
	if ttl <= 0 {
		ttl = DefaultManualCodeTTL
	}
	return &Broker{DB: db, Devices: devices, TTL: ttl}
}

// Issue signs a payload for the manager's virtual device and maps a fresh
// 8-digit code to it.
func (b *Broker) Issue(ctx context.Context, managerID uint, now time.Time) (IssuedCode, error) {
	dev, err := b.Devices.EnsureVirtual(ctx, managerID)
	if err != nil {
		return IssuedCode{}, fmt.Errorf("%w: virtual device: %w", ErrPersistence, err)
	}
	payload, err := EncodePayload(dev.ID, dev.Secret, now)
	if err != nil {
		return IssuedCode{}, err
	}

	db := b.DB.WithContext(ctx)
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return IssuedCode{}, err
		}
		// a stale mapping may still hold this value until the sweeper runs
		if err := db.Where("code = ? AND expires_at < ?", code, now.UTC()).Delete(&models.ManualCode{}).Error; err != nil {
			return IssuedCode{}, fmt.Errorf("%w: clear stale code: %w", ErrPersistence, err)
		}

		row := models.ManualCode{
			Code:      code,
			DeviceID:  dev.ID,
			Payload:   payload,
			IssuedBy:  managerID,
			ExpiresAt: now.Add(b.TTL).UTC(),
		}
		err = db.Create(&row).Error
		if err == nil {
			return IssuedCode{
				Code:        code,
				DisplayCode: FormatCode(code),
				Payload:     payload,
				DeviceID:    dev.ID,
				ExpiresAt:   row.ExpiresAt,
			}, nil
		}
		if !isUniqueViolation(err) {
			return IssuedCode{}, fmt.Errorf("%w: store code: %w", ErrPersistence, err)
		}
	}
	return IssuedCode{}, fmt.Errorf("%w: no free manual code", ErrPersistence)
}

// Redeem consumes a code and returns the payload it unlocks. An expired
// mapping is reported as ErrExpired and left for the sweeper. The delete is
// conditional on the payload read, so two concurrent redemptions cannot both
// succeed.
func (b *Broker) Redeem(ctx context.Context, code string, now time.Time) (string, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return "", err
	}

	db := b.DB.WithContext(ctx)
	var row models.ManualCode
	err = db.Where("code = ?", code).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrCodeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: load code: %w", ErrPersistence, err)
	}
	if row.IsExpired(now) {
		return "", fmt.Errorf("%w: manual code", ErrExpired)
	}

	res := db.Where("code = ? AND payload = ?", row.Code, row.Payload).Delete(&models.ManualCode{})
	if res.Error != nil {
		return "", fmt.Errorf("%w: consume code: %w", ErrPersistence, res.Error)
	}
	if res.RowsAffected != 1 {
		return "", ErrCodeNotFound
	}
	return row.Payload, nil
}

// Sweep deletes mappings that expired before now.
func (b *Broker) Sweep(ctx context.Context, now time.Time) (int64, error) {
	res := b.DB.WithContext(ctx).Where("expires_at < ?", now.UTC()).Delete(&models.ManualCode{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: sweep codes: %w", ErrPersistence, res.Error)
	}
	return res.RowsAffected, nil
}

// NormalizeCode strips display separators and checks for exactly 8 digits.
func NormalizeCode(code string) (string, error) {
	code = strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(code))
	if len(code) != ManualCodeDigits {
		return "", fmt.Errorf("%w: code must be %d digits", ErrMalformedPayload, ManualCodeDigits)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: code must be %d digits", ErrMalformedPayload, ManualCodeDigits)
		}
	}
	return code, nil
}

// FormatCode renders 12345678 as 1234-5678.
func FormatCode(code string) string {
	if len(code) != ManualCodeDigits {
		return code
	}
	return code[:4] + "-" + code[4:]
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("punch: manual code: %w", err)
	}
	return fmt.Sprintf("%0*d", ManualCodeDigits, n.Int64()), nil
}

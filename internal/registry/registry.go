// Package registry is the device registry as seen by the punch clock: a
// read path for secrets and the lazy creation of per-manager virtual
// devices. Physical devices are provisioned elsewhere.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"punchclock_backend/internal/models"
	"punchclock_backend/internal/utils"
)

var (
	ErrDeviceNotFound      = errors.New("device not found")
	ErrDeviceAlreadyExists = errors.New("device already exists")
)

const virtualPrefix = "virtual-"

type Registry struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Registry { return &Registry{DB: db} }

// Lookup returns the device row including its secret.
func (r *Registry) Lookup(ctx context.Context, deviceID string) (*models.Device, error) {
	var dev models.Device
	err := r.DB.WithContext(ctx).Where("id = ?", deviceID).First(&dev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("registry: lookup %s: %w", deviceID, err)
	}
	return &dev, nil
}

// Register stores a physical device with a fresh secret. It backs the seed
// command; provisioning workflows live outside this service.
func (r *Registry) Register(ctx context.Context, deviceID, label string) (*models.Device, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, errors.New("registry: device id required")
	}
	secret, err := utils.GenerateDeviceSecret()
	if err != nil {
		return nil, fmt.Errorf("registry: secret: %w", err)
	}
	dev := models.Device{
		ID:       deviceID,
		Kind:     models.DevicePhysical,
		Label:    strings.TrimSpace(label),
		Secret:   secret,
		IsActive: true,
	}
	if err := r.DB.WithContext(ctx).Create(&dev).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDeviceAlreadyExists
		}
		return nil, fmt.Errorf("registry: register %s: %w", deviceID, err)
	}
	return &dev, nil
}

// EnsureVirtual returns the manager's virtual device, creating it on first
// use. owner_id is unique, so a concurrent first issuance that loses the
// insert race falls back to reading the winner's row.
func (r *Registry) EnsureVirtual(ctx context.Context, managerID uint) (*models.Device, error) {
	db := r.DB.WithContext(ctx)

	var dev models.Device
	err := db.Where("owner_id = ? AND kind = ?", managerID, models.DeviceVirtual).First(&dev).Error
	if err == nil {
		return &dev, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("registry: find virtual device: %w", err)
	}

	secret, err := utils.GenerateDeviceSecret()
	if err != nil {
		return nil, fmt.Errorf("registry: secret: %w", err)
	}
	owner := managerID
	dev = models.Device{
		ID:       virtualPrefix + uuid.NewString(),
		Kind:     models.DeviceVirtual,
		Label:    fmt.Sprintf("manual entry (manager %d)", managerID),
		Secret:   secret,
		IsActive: true,
		OwnerID:  &owner,
	}
	if err := db.Create(&dev).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("registry: create virtual device: %w", err)
		}
		var existing models.Device
		if err := db.Where("owner_id = ?", managerID).First(&existing).Error; err != nil {
			return nil, fmt.Errorf("registry: reload virtual device: %w", err)
		}
		return &existing, nil
	}
	return &dev, nil
}

// SetActive toggles a device. Disabled devices fail verification.
func (r *Registry) SetActive(ctx context.Context, deviceID string, active bool) error {
	res := r.DB.WithContext(ctx).Model(&models.Device{}).Where("id = ?", deviceID).Update("is_active", active)
	if res.Error != nil {
		return fmt.Errorf("registry: set active %s: %w", deviceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

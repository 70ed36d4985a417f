// Package directory reads employee identity for authentication and the
// manager check in front of manual-code issuance.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"punchclock_backend/internal/models"
)

var ErrEmployeeNotFound = errors.New("employee not found")

type Directory struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Directory { return &Directory{DB: db} }

func (d *Directory) FindByEmail(ctx context.Context, email string) (*models.Employee, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var e models.Employee
	err := d.DB.WithContext(ctx).Where("email = ?", email).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("directory: find %s: %w", email, err)
	}
	return &e, nil
}

func (d *Directory) Get(ctx context.Context, id uint) (*models.Employee, error) {
	var e models.Employee
	err := d.DB.WithContext(ctx).First(&e, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("directory: get %d: %w", id, err)
	}
	return &e, nil
}

// IsManager is true for the top administrative roles and for anyone with at
// least one active direct report.
func (d *Directory) IsManager(ctx context.Context, id uint) (bool, error) {
	e, err := d.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if e.Status != models.StatusActive {
		return false, nil
	}
	if e.IsTopAdmin() {
		return true, nil
	}

	var reports int64
	if err := d.DB.WithContext(ctx).Model(&models.Employee{}).
		Where("manager_id = ? AND status = ?", id, models.StatusActive).
		Count(&reports).Error; err != nil {
		return false, fmt.Errorf("directory: count reports %d: %w", id, err)
	}
	return reports > 0, nil
}

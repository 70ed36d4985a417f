package punch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"punchclock_backend/internal/models"
)

// Resolver derives IN/OUT from the employee's events of the current UTC
// day. The ledger is the only state; nothing records "clocked in".
type Resolver struct {
	DB *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver { return &Resolver{DB: db} }

// Resolve returns IN when the employee has no punch today or the latest one
// was OUT, and OUT otherwise. An anomalous OUT-first day keeps alternating
// from that starting point.
func (r *Resolver) Resolve(ctx context.Context, employeeID uint, now time.Time) (models.PunchType, error) {
	start, end := utcDay(now)

	var last models.PunchEvent
	err := r.DB.WithContext(ctx).
		Where("employee_id = ? AND received_at >= ? AND received_at < ?", employeeID, start, end).
		Order("received_at desc, id desc").
		Take(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nextType(nil), nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: resolve type: %w", ErrPersistence, err)
	}
	return nextType(&last.Type), nil
}

// Today lists the employee's punches of the current UTC day, oldest first.
func (r *Resolver) Today(ctx context.Context, employeeID uint, now time.Time) ([]models.PunchEvent, error) {
	start, end := utcDay(now)

	var rows []models.PunchEvent
	if err := r.DB.WithContext(ctx).
		Where("employee_id = ? AND received_at >= ? AND received_at < ?", employeeID, start, end).
		Order("received_at asc, id asc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: list today: %w", ErrPersistence, err)
	}
	return rows, nil
}

func nextType(last *models.PunchType) models.PunchType {
	if last == nil || *last == models.PunchOut {
		return models.PunchIn
	}
	return models.PunchOut
}

func utcDay(now time.Time) (time.Time, time.Time) {
	n := now.UTC()
	start := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

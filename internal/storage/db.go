// internal/storage/db.go
package storage

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"punchclock_backend/internal/config"
	"punchclock_backend/internal/models"
)

// Open connects using the configured driver and migrates the schema.
func Open(cfg config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, gormConfig(logger.Warn))
	if err != nil {
		return nil, fmt.Errorf("storage: connect %s: %w", cfg.DBDriver, err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens a sqlite database at dsn. Tests pass a shared-cache
// in-memory DSN; the pool is pinned to one connection so every statement
// sees the same database.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(logger.Silent))
	if err != nil {
		return nil, fmt.Errorf("storage: connect sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("storage: sqlite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Employee{},
		&models.Device{},
		&models.PunchEvent{},
		&models.ManualCode{},
	); err != nil {
		return fmt.Errorf("storage: migrate: %w", err)
	}
	return nil
}

func gormConfig(level logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

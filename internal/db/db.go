package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BruksfildServices01/medease/internal/models"
)

// Open connects to Postgres with the pool settings used in every
// environment. It does not migrate.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	return db, nil
}

// Migrate creates the selfhosted schema. The partial unique index backs the
// one-Pending-appointment-per-slot rule.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.AuthUser{},
		&models.RefreshToken{},
		&models.Profile{},
		&models.Appointment{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := db.Exec(`
        CREATE UNIQUE INDEX IF NOT EXISTS appointments_pending_slot_uniq
        ON appointments (user_id, doctor_name, date, time)
        WHERE status = 'Pending'
    `).Error; err != nil {
		return fmt.Errorf("create pending slot index: %w", err)
	}

	return nil
}

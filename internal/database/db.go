package database

import (
	"fmt"
	"log"
	"time"

	"assetdesk/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const maxAttempts = 10

// NewConnection opens the postgres pool, retrying while the server comes up,
// and migrates the schema.
func NewConnection(dsn string) (*gorm.DB, error) {
	var db *gorm.DB
	var err error
	for i := 1; i <= maxAttempts; i++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			break
		}
		log.Printf("failed to connect to DB (attempt %d/%d): %v", i, maxAttempts, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect after %d attempts: %w", maxAttempts, err)
	}

	// Order follows foreign keys: assets reference users, requests reference both.
	if err := db.AutoMigrate(
		&model.User{},
		&model.Asset{},
		&model.Request{},
		&model.AuditLog{},
	); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	return db, nil
}

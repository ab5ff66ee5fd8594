package db

import (
	"tokenwatch/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.TokenCheck{},
		&models.Alert{},
		&models.LedgerEntry{},
		&models.ScanStat{},
	)
}

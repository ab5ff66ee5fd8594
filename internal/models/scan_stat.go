package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScanStat summarizes one discovery cycle.
type ScanStat struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	StartedAt  time.Time `gorm:"type:timestamptz;not null;index"`
	DurationMS int64     `gorm:"not null;default:0"`

	Fetched     int `gorm:"not null;default:0"`
	Malformed   int `gorm:"not null;default:0"`
	Prefiltered int `gorm:"not null;default:0"`
	Duplicates  int `gorm:"not null;default:0"`
	Rejected    int `gorm:"not null;default:0"`
	Queued      int `gorm:"not null;default:0"`
	Alerted     int `gorm:"not null;default:0"`

	Chains datatypes.JSON `gorm:"type:jsonb"`
	Errors datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (ScanStat) TableName() string {
	return "scan_stats"
}

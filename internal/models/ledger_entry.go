package models

import "time"

// LedgerEntry is the durable record behind the dedup ledger. One row per
// token ever alerted; LastAlertedAt moves forward on repeat alerts.
type LedgerEntry struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Chain          string `gorm:"type:varchar(20);not null;uniqueIndex:idx_ledger_chain_address"`
	Address        string `gorm:"type:varchar(100);not null;uniqueIndex:idx_ledger_chain_address"`
	NormalizedName string `gorm:"type:varchar(200);not null;index"`

	LastAlertedAt time.Time `gorm:"type:timestamptz;not null;index"`
	CreatedAt     time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (LedgerEntry) TableName() string {
	return "alert_ledger"
}

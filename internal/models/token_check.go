package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Check outcome statuses.
const (
	CheckStatusPassed    = "passed"
	CheckStatusRejected  = "rejected"
	CheckStatusDuplicate = "duplicate"
)

// TokenCheck records the evaluation outcome for one candidate in one cycle.
type TokenCheck struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Chain   string `gorm:"type:varchar(20);not null;index"`
	Address string `gorm:"type:varchar(100);not null;index"`
	Name    string `gorm:"type:varchar(200);not null"`
	Symbol  string `gorm:"type:varchar(50)"`

	// Money-like values stored as numeric to avoid float drift; nil = source
	// reported no data.
	PriceUSD     *decimal.Decimal `gorm:"type:numeric(30,12)"`
	Volume24hUSD *decimal.Decimal `gorm:"type:numeric(30,2)"`
	LiquidityUSD *decimal.Decimal `gorm:"type:numeric(30,2)"`
	MarketCapUSD *decimal.Decimal `gorm:"type:numeric(30,2)"`

	Status        string  `gorm:"type:varchar(20);not null;index"`
	Tier          *string `gorm:"type:varchar(20);index"`
	RiskScore     float64 `gorm:"not null;default:0"`
	TaxPercentage float64 `gorm:"not null;default:0"`
	Honeypot      bool    `gorm:"not null;default:false"`

	RejectReasons datatypes.JSON `gorm:"type:jsonb"`
	Flags         datatypes.JSON `gorm:"type:jsonb"`

	AlertSent bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (TokenCheck) TableName() string {
	return "token_checks"
}

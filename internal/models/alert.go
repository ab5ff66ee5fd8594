package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Alert is one admitted notification. A row is written the moment the pacer
// admits a send, before the transport attempt, so the table doubles as the
// send history used to rebuild the pacer budget on restart.
type Alert struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Chain   string `gorm:"type:varchar(20);not null;index"`
	Address string `gorm:"type:varchar(100);not null;index"`
	Name    string `gorm:"type:varchar(200);not null"`
	Symbol  string `gorm:"type:varchar(50)"`
	Tier    string `gorm:"type:varchar(20);not null;index"`

	PriceUSD     *decimal.Decimal `gorm:"type:numeric(30,12)"`
	Volume24hUSD *decimal.Decimal `gorm:"type:numeric(30,2)"`
	LiquidityUSD *decimal.Decimal `gorm:"type:numeric(30,2)"`
	MarketCapUSD *decimal.Decimal `gorm:"type:numeric(30,2)"`

	RiskScore     float64 `gorm:"not null;default:0"`
	TaxPercentage float64 `gorm:"not null;default:0"`

	Labels  datatypes.JSON `gorm:"type:jsonb"`
	Payload datatypes.JSON `gorm:"type:jsonb"`

	SentAt time.Time `gorm:"type:timestamptz;not null;index"`
}

func (Alert) TableName() string {
	return "alerts"
}

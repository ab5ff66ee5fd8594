package repository

import (
	"context"
	"time"

	"tokenwatch/internal/models"
)

// Repository is the persistence surface used by the pipeline and the HTTP API.
type Repository interface {
	// Checks
	InsertTokenCheck(ctx context.Context, item *models.TokenCheck) error
	MarkTokenCheckAlerted(ctx context.Context, id uint64) error
	ListTokenChecks(ctx context.Context, params ListTokenChecksParams) ([]models.TokenCheck, error)
	CountTokenChecks(ctx context.Context, params ListTokenChecksParams) (int64, error)

	// Alerts
	InsertAlert(ctx context.Context, item *models.Alert) error
	ListAlerts(ctx context.Context, params ListAlertsParams) ([]models.Alert, error)
	CountAlerts(ctx context.Context, params ListAlertsParams) (int64, error)
	CountAlertsSince(ctx context.Context, since time.Time) (int64, error)

	// Dedup ledger
	UpsertLedgerEntry(ctx context.Context, item *models.LedgerEntry) error
	ListLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error)
	DeleteLedgerEntriesBefore(ctx context.Context, before time.Time) (int64, error)

	// Scan stats
	InsertScanStat(ctx context.Context, item *models.ScanStat) error
	ListScanStats(ctx context.Context, params ListScanStatsParams) ([]models.ScanStat, error)
	StatsSummary(ctx context.Context, since *time.Time) (StatsSummary, error)
	AlertTierBreakdown(ctx context.Context, since *time.Time) ([]TierCount, error)
}

type ListTokenChecksParams struct {
	Limit   int
	Offset  int
	Chain   *string
	Status  *string
	Tier    *string
	Address *string
	Since   *time.Time
	OrderBy string
	Asc     *bool
}

type ListAlertsParams struct {
	Limit   int
	Offset  int
	Chain   *string
	Tier    *string
	Address *string
	Since   *time.Time
	Until   *time.Time
	OrderBy string
	Asc     *bool
}

type ListScanStatsParams struct {
	Limit  int
	Offset int
	Since  *time.Time
}

type StatsSummary struct {
	TotalChecks     int64      `json:"total_checks"`
	TotalPassed     int64      `json:"total_passed"`
	TotalRejected   int64      `json:"total_rejected"`
	TotalDuplicates int64      `json:"total_duplicates"`
	TotalAlerts     int64      `json:"total_alerts"`
	LastCheckAt     *time.Time `json:"last_check_at,omitempty"`
	LastAlertAt     *time.Time `json:"last_alert_at,omitempty"`
}

type TierCount struct {
	Tier  string `json:"tier"`
	Count int64  `json:"count"`
}

package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tokenwatch/internal/models"
	"tokenwatch/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Checks -----------------------------------------------------------------

func (s *Store) InsertTokenCheck(ctx context.Context, item *models.TokenCheck) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return &repository.PersistenceError{Op: "insert token_check", Err: err}
	}
	return nil
}

func (s *Store) MarkTokenCheckAlerted(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Model(&models.TokenCheck{}).
		Where("id = ?", id).
		Update("alert_sent", true).
		Error
	if err != nil {
		return &repository.PersistenceError{Op: "mark token_check alerted", Err: err}
	}
	return nil
}

func (s *Store) ListTokenChecks(ctx context.Context, params repository.ListTokenChecksParams) ([]models.TokenCheck, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyCheckFilters(s.db.WithContext(ctx).Model(&models.TokenCheck{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.TokenCheck
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTokenChecks(ctx context.Context, params repository.ListTokenChecksParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyCheckFilters(s.db.WithContext(ctx).Model(&models.TokenCheck{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyCheckFilters(query *gorm.DB, params repository.ListTokenChecksParams) *gorm.DB {
	if params.Chain != nil && strings.TrimSpace(*params.Chain) != "" {
		query = query.Where("chain = ?", strings.TrimSpace(*params.Chain))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Tier != nil && strings.TrimSpace(*params.Tier) != "" {
		query = query.Where("tier = ?", strings.TrimSpace(*params.Tier))
	}
	if params.Address != nil && strings.TrimSpace(*params.Address) != "" {
		query = query.Where("address = ?", strings.TrimSpace(*params.Address))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	return query
}

// --- Alerts -----------------------------------------------------------------

func (s *Store) InsertAlert(ctx context.Context, item *models.Alert) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return &repository.PersistenceError{Op: "insert alert", Err: err}
	}
	return nil
}

func (s *Store) ListAlerts(ctx context.Context, params repository.ListAlertsParams) ([]models.Alert, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyAlertFilters(s.db.WithContext(ctx).Model(&models.Alert{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "sent_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Alert
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountAlerts(ctx context.Context, params repository.ListAlertsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyAlertFilters(s.db.WithContext(ctx).Model(&models.Alert{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) CountAlertsSince(ctx context.Context, since time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("sent_at >= ?", since).
		Count(&total).
		Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func applyAlertFilters(query *gorm.DB, params repository.ListAlertsParams) *gorm.DB {
	if params.Chain != nil && strings.TrimSpace(*params.Chain) != "" {
		query = query.Where("chain = ?", strings.TrimSpace(*params.Chain))
	}
	if params.Tier != nil && strings.TrimSpace(*params.Tier) != "" {
		query = query.Where("tier = ?", strings.TrimSpace(*params.Tier))
	}
	if params.Address != nil && strings.TrimSpace(*params.Address) != "" {
		query = query.Where("address = ?", strings.TrimSpace(*params.Address))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("sent_at >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("sent_at < ?", *params.Until)
	}
	return query
}

// --- Dedup ledger -----------------------------------------------------------

func (s *Store) UpsertLedgerEntry(ctx context.Context, item *models.LedgerEntry) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chain"}, {Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"normalized_name",
			"last_alerted_at",
			"updated_at",
		}),
	}).Create(item).Error
	if err != nil {
		return &repository.PersistenceError{Op: "upsert ledger entry", Err: err}
	}
	return nil
}

func (s *Store) ListLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.LedgerEntry
	if err := s.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Order("last_alerted_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteLedgerEntriesBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("last_alerted_at < ?", before).
		Delete(&models.LedgerEntry{})
	if res.Error != nil {
		return 0, &repository.PersistenceError{Op: "purge ledger", Err: res.Error}
	}
	return res.RowsAffected, nil
}

// --- Scan stats -------------------------------------------------------------

func (s *Store) InsertScanStat(ctx context.Context, item *models.ScanStat) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return &repository.PersistenceError{Op: "insert scan_stat", Err: err}
	}
	return nil
}

func (s *Store) ListScanStats(ctx context.Context, params repository.ListScanStatsParams) ([]models.ScanStat, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.ScanStat{})
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("started_at >= ?", *params.Since)
	}
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.ScanStat
	if err := query.Order("started_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) StatsSummary(ctx context.Context, since *time.Time) (repository.StatsSummary, error) {
	var out repository.StatsSummary
	if s == nil || s.db == nil {
		return out, nil
	}
	checkQuery := s.db.WithContext(ctx).Model(&models.TokenCheck{})
	alertQuery := s.db.WithContext(ctx).Model(&models.Alert{})
	if since != nil && !since.IsZero() {
		checkQuery = checkQuery.Where("created_at >= ?", *since)
		alertQuery = alertQuery.Where("sent_at >= ?", *since)
	}

	type statusRow struct {
		Status string
		Total  int64
	}
	var rows []statusRow
	if err := checkQuery.Session(&gorm.Session{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return out, err
	}
	for _, row := range rows {
		out.TotalChecks += row.Total
		switch row.Status {
		case models.CheckStatusPassed:
			out.TotalPassed = row.Total
		case models.CheckStatusRejected:
			out.TotalRejected = row.Total
		case models.CheckStatusDuplicate:
			out.TotalDuplicates = row.Total
		}
	}

	if err := alertQuery.Session(&gorm.Session{}).Count(&out.TotalAlerts).Error; err != nil {
		return out, err
	}

	var lastCheck models.TokenCheck
	err := s.db.WithContext(ctx).Model(&models.TokenCheck{}).Order("created_at desc").First(&lastCheck).Error
	if err == nil {
		out.LastCheckAt = &lastCheck.CreatedAt
	} else if err != gorm.ErrRecordNotFound {
		return out, err
	}

	var lastAlert models.Alert
	err = s.db.WithContext(ctx).Model(&models.Alert{}).Order("sent_at desc").First(&lastAlert).Error
	if err == nil {
		out.LastAlertAt = &lastAlert.SentAt
	} else if err != gorm.ErrRecordNotFound {
		return out, err
	}
	return out, nil
}

func (s *Store) AlertTierBreakdown(ctx context.Context, since *time.Time) ([]repository.TierCount, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Alert{})
	if since != nil && !since.IsZero() {
		query = query.Where("sent_at >= ?", *since)
	}
	var rows []repository.TierCount
	if err := query.
		Select("tier, COUNT(*) AS count").
		Group("tier").
		Order("count desc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

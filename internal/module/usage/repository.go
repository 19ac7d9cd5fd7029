package usage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/echoverse/server/internal/module/quota"
	"github.com/echoverse/server/internal/utils/metrics"
)

// Repository defines the interface for ledger data access. It satisfies
// quota.Ledger.
type Repository interface {
	Append(ctx context.Context, userID string, feature quota.Feature, premium bool) (int64, error)
	CountToday(ctx context.Context, userID string, feature quota.Feature, now time.Time) (int, error)
	DailyStats(ctx context.Context, userID string, day time.Time) (map[quota.Feature]int, error)
}

type repository struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

// NewRepository creates a new ledger repository.
func NewRepository(db *gorm.DB, m *metrics.Metrics) Repository {
	return &repository{db: db, metrics: m}
}

func (r *repository) Append(ctx context.Context, userID string, feature quota.Feature, premium bool) (int64, error) {
	event := &Event{
		UserID:    userID,
		Feature:   feature,
		IsPremium: premium,
		Timestamp: time.Now().UTC(),
	}

	start := time.Now()
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return 0, err
	}
	if r.metrics != nil {
		r.metrics.RecordDBQuery("insert", time.Since(start))
		r.metrics.RecordLedgerAppend(feature.String(), premium)
	}
	return event.ID, nil
}

// CountToday counts events for user+feature on the UTC calendar day
// containing now. The day boundary is fixed to UTC so counts do not shift
// with the server's local zone or DST.
func (r *repository) CountToday(ctx context.Context, userID string, feature quota.Feature, now time.Time) (int, error) {
	dayStart, dayEnd := utcDayBounds(now)

	var count int64
	start := time.Now()
	err := r.db.WithContext(ctx).
		Model(&Event{}).
		Where("user_id = ? AND feature = ? AND timestamp >= ? AND timestamp < ?",
			userID, feature, dayStart, dayEnd).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	if r.metrics != nil {
		r.metrics.RecordDBQuery("select", time.Since(start))
	}
	return int(count), nil
}

// DailyStats returns per-feature event counts for the user on the UTC
// calendar day containing day.
func (r *repository) DailyStats(ctx context.Context, userID string, day time.Time) (map[quota.Feature]int, error) {
	dayStart, dayEnd := utcDayBounds(day)

	var rows []struct {
		Feature quota.Feature
		Total   int
	}
	err := r.db.WithContext(ctx).
		Model(&Event{}).
		Select("feature, COUNT(*) as total").
		Where("user_id = ? AND timestamp >= ? AND timestamp < ?", userID, dayStart, dayEnd).
		Group("feature").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make(map[quota.Feature]int, len(rows))
	for _, row := range rows {
		stats[row.Feature] = row.Total
	}
	return stats, nil
}

func utcDayBounds(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// Compile-time check
var _ quota.Ledger = (Repository)(nil)

package usage

import (
	"time"

	"github.com/echoverse/server/internal/module/quota"
)

// Event is one row of the append-only usage ledger. Rows are immutable and
// never deleted; they are retained for audit and analytics.
type Event struct {
	ID      int64         `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID  string        `json:"user_id" gorm:"column:user_id;size:64;not null;index:idx_usage_user_feature_ts,priority:1"`
	Feature quota.Feature `json:"feature" gorm:"column:feature;size:32;not null;index:idx_usage_user_feature_ts,priority:2"`

	// IsPremium is the account's premium status at the time the event was
	// recorded. It is a historical snapshot, never re-derived.
	IsPremium bool `json:"is_premium" gorm:"column:is_premium;not null"`

	// Timestamp is assigned by the ledger at insertion, in UTC.
	Timestamp time.Time `json:"timestamp" gorm:"column:timestamp;not null;index:idx_usage_user_feature_ts,priority:3"`
}

// TableName returns the database table name.
func (Event) TableName() string {
	return "usage"
}

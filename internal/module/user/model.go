package user

import (
	"time"

	"github.com/lib/pq"
)

// Profile is a registered account. The identifier is an opaque string chosen
// by the client; there are no credentials attached.
type Profile struct {
	UserID    string    `json:"user_id" gorm:"column:user_id;primaryKey;size:64"`
	IsPremium bool      `json:"is_premium" gorm:"column:is_premium;not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// TableName returns the database table name.
func (Profile) TableName() string {
	return "users"
}

// Plan is a display-only subscription tier shown to clients. Billing is not
// part of this service; the premium flag is set administratively.
type Plan struct {
	ID           string         `json:"id" gorm:"primaryKey"`
	Name         string         `json:"name" gorm:"not null"`
	Description  string         `json:"description"`
	Features     pq.StringArray `json:"features" gorm:"type:text[]"`
	Active       bool           `json:"active" gorm:"default:true"`
	DisplayOrder int            `json:"display_order" gorm:"default:0"`
}

// TableName returns the database table name.
func (Plan) TableName() string {
	return "plans"
}

// DefaultPlans returns the stock plan catalog, seeded at startup.
func DefaultPlans() []*Plan {
	return []*Plan{
		{
			ID:          "free",
			Name:        "Free",
			Description: "Daily limited text, file, image and voice processing",
			Features: pq.StringArray{
				"5 text inputs per day",
				"3 file uploads per day",
				"3 image uploads per day",
				"2 voice uploads per day",
			},
			Active:       true,
			DisplayOrder: 0,
		},
		{
			ID:          "pro",
			Name:        "Pro",
			Description: "Unlimited processing for individuals",
			Features: pq.StringArray{
				"Unlimited text inputs",
				"Unlimited uploads",
				"Priority extraction",
			},
			Active:       true,
			DisplayOrder: 1,
		},
		{
			ID:          "premium",
			Name:        "Premium",
			Description: "Unlimited processing plus audit history",
			Features: pq.StringArray{
				"Everything in Pro",
				"Full usage history",
			},
			Active:       true,
			DisplayOrder: 2,
		},
	}
}

package model

import "time"

type MediaPage struct {
	ID             int64      `json:"id"`
	Code           string     `json:"code"`
	LinkToken      string     `json:"link_token"`
	Title          string     `json:"title"`
	PurchaserName  string     `json:"purchaser_name"`
	PurchaserEmail string     `json:"purchaser_email"`
	PurchaserPhone string     `json:"purchaser_phone"`
	DBSizeLimit    int64      `json:"db_size_limit"`
	DBUsage        int64      `json:"db_usage"`
	UsageDuration  int        `json:"usage_duration"`
	RemainingDays  int        `json:"remaining_days"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

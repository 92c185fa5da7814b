package dto

import "time"

type CreatePageRequest struct {
	Title          string `json:"title" validate:"max=200"`
	PurchaserName  string `json:"purchaser_name" validate:"required,max=200"`
	PurchaserEmail string `json:"purchaser_email" validate:"omitempty,email,max=320"`
	PurchaserPhone string `json:"purchaser_phone" validate:"omitempty,max=32"`
	SizeLimitMB    int64  `json:"size_limit_mb" validate:"omitempty,min=1,max=1048576"`
	DurationDays   int    `json:"duration_days" validate:"omitempty,min=1,max=3650"`
}

type RenewPageRequest struct {
	ExtraDays int `json:"extra_days" validate:"required,min=1,max=3650"`
}

// PageResponse is the admin view of a page.
type PageResponse struct {
	ID             int64      `json:"id"`
	Code           string     `json:"code"`
	LinkToken      string     `json:"link_token"`
	ShareURL       string     `json:"share_url"`
	Title          string     `json:"title"`
	PurchaserName  string     `json:"purchaser_name"`
	PurchaserEmail string     `json:"purchaser_email,omitempty"`
	PurchaserPhone string     `json:"purchaser_phone,omitempty"`
	SizeLimitBytes int64      `json:"size_limit_bytes"`
	UsageBytes     int64      `json:"usage_bytes"`
	UsagePercent   float64    `json:"usage_percent"`
	UsageDuration  int        `json:"usage_duration_days"`
	RemainingDays  int        `json:"remaining_days"`
	Status         string     `json:"status"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`
}

type PagesListResponse struct {
	Items []PageResponse `json:"items"`
}

type PageStatusResponse struct {
	Page      PageResponse `json:"page"`
	Persisted bool         `json:"persisted"`
}

// PublicPageResponse is what guests see behind a share link.
type PublicPageResponse struct {
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	IsActive       bool      `json:"is_active"`
	RemainingDays  int       `json:"remaining_days"`
	SizeLimitBytes int64     `json:"size_limit_bytes"`
	UsageBytes     int64     `json:"usage_bytes"`
	UsagePercent   float64   `json:"usage_percent"`
	ExpiresAt      time.Time `json:"expires_at"`
	Banner         string    `json:"banner,omitempty"`
}

type ReconcileResponse struct {
	PageID        int64 `json:"page_id"`
	PreviousBytes int64 `json:"previous_bytes"`
	ActualBytes   int64 `json:"actual_bytes"`
	DriftBytes    int64 `json:"drift_bytes"`
}

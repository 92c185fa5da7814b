package rules

import (
	"time"

	"github.com/ivankudzin/mediapages/internal/domain/enums"
	"github.com/ivankudzin/mediapages/internal/domain/model"
)

const (
	BytesPerMB = int64(1 << 20)
	Day        = 24 * time.Hour
)

// RemainingDays is ceil((expiresAt - now) / 1 day), floored at zero.
func RemainingDays(expiresAt, now time.Time) int {
	left := expiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	days := int(left / Day)
	if left%Day != 0 {
		days++
	}
	return days
}

func ExpiresAt(from time.Time, days int) time.Time {
	if days < 0 {
		days = 0
	}
	return from.UTC().Add(time.Duration(days) * Day)
}

// Status derives the display status. A page with zero remaining days is expired.
func Status(page model.MediaPage, now time.Time) enums.PageStatus {
	if page.ArchivedAt != nil {
		return enums.PageStatusArchived
	}
	if RemainingDays(page.ExpiresAt, now) > 0 && page.DBUsage <= page.DBSizeLimit {
		return enums.PageStatusActive
	}
	return enums.PageStatusExpired
}

func MBToBytes(mb int64) int64 {
	if mb <= 0 {
		return 0
	}
	return mb * BytesPerMB
}

func BytesToMB(bytes int64) float64 {
	if bytes <= 0 {
		return 0
	}
	return float64(bytes) / float64(BytesPerMB)
}

func UsagePercent(used, limit int64) float64 {
	if limit <= 0 {
		return 0
	}
	pct := float64(used) / float64(limit) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

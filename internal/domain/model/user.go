package model

import (
	"time"

	"github.com/ivankudzin/mediapages/internal/domain/enums"
)

type User struct {
	ID          int64      `json:"id"`
	PageID      int64      `json:"page_id"`
	DisplayName string     `json:"display_name"`
	Role        enums.Role `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
}

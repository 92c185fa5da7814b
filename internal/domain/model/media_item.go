package model

import (
	"time"

	"github.com/ivankudzin/mediapages/internal/domain/enums"
)

type MediaItem struct {
	ID           string          `json:"id"`
	PageID       int64           `json:"page_id"`
	UploaderID   int64           `json:"uploader_id"`
	Type         enums.MediaType `json:"type"`
	Size         int64           `json:"size"`
	MIMEType     string          `json:"mime_type"`
	ObjectKey    string          `json:"object_key"`
	ThumbnailKey string          `json:"thumbnail_key,omitempty"`
	Width        *int            `json:"width,omitempty"`
	Height       *int            `json:"height,omitempty"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

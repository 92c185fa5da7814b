package dto

import "time"

type ItemResponse struct {
	ID           string    `json:"id"`
	UploaderID   int64     `json:"uploader_id"`
	Type         string    `json:"type"`
	MIMEType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	Width        *int      `json:"width,omitempty"`
	Height       *int      `json:"height,omitempty"`
	URL          string    `json:"url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type ItemsListResponse struct {
	Items []ItemResponse `json:"items"`
}

type UploadResponse struct {
	Item       ItemResponse `json:"item"`
	UsageBytes int64        `json:"usage_bytes"`
	LimitBytes int64        `json:"limit_bytes"`
}

type PostMessageRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=text media"`
	Body        string `json:"body" validate:"required_if=Kind text,max=4000"`
	MediaItemID string `json:"media_item_id" validate:"required_if=Kind media,omitempty,uuid"`
}

type MessageResponse struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	Kind        string    `json:"kind"`
	Body        string    `json:"body,omitempty"`
	MediaItemID string    `json:"media_item_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type MessagesListResponse struct {
	Items []MessageResponse `json:"items"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

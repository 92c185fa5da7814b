package model

import (
	"time"

	"github.com/ivankudzin/mediapages/internal/domain/enums"
)

// ChatMessage is a tagged variant: Body is set for text messages,
// MediaItemID for media messages.
type ChatMessage struct {
	ID          string            `json:"id"`
	PageID      int64             `json:"page_id"`
	UserID      int64             `json:"user_id"`
	Kind        enums.MessageKind `json:"kind"`
	Body        string            `json:"body,omitempty"`
	MediaItemID string            `json:"media_item_id,omitempty"`
	IsActive    bool              `json:"is_active"`
	CreatedAt   time.Time         `json:"created_at"`
}

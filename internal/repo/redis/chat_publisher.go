package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ivankudzin/mediapages/internal/domain/model"
)

const EventMessageCreated = "message.created"

type ChatEvent struct {
	Type    string            `json:"type"`
	Message model.ChatMessage `json:"message"`
}

// ChatPublisher fans chat messages out to page:{id}:chat subscribers.
type ChatPublisher struct {
	client *goredis.Client
}

func NewChatPublisher(client *goredis.Client) *ChatPublisher {
	return &ChatPublisher{client: client}
}

func (p *ChatPublisher) PublishMessage(ctx context.Context, msg model.ChatMessage) error {
	if p.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	payload, err := json.Marshal(ChatEvent{Type: EventMessageCreated, Message: msg})
	if err != nil {
		return fmt.Errorf("marshal chat event: %w", err)
	}
	if err := p.client.Publish(ctx, ChatChannel(msg.PageID), payload).Err(); err != nil {
		return fmt.Errorf("publish chat event: %w", err)
	}
	return nil
}

// Subscribe is used by realtime consumers; the caller closes the subscription.
func (p *ChatPublisher) Subscribe(ctx context.Context, pageID int64) *goredis.PubSub {
	return p.client.Subscribe(ctx, ChatChannel(pageID))
}

func ChatChannel(pageID int64) string {
	return "page:" + strconv.FormatInt(pageID, 10) + ":chat"
}

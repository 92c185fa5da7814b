package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ivankudzin/mediapages/internal/domain/enums"
	"github.com/ivankudzin/mediapages/internal/domain/model"
	"github.com/ivankudzin/mediapages/internal/infra/metrics"
	"github.com/ivankudzin/mediapages/internal/services/admission"
)

type Message struct {
	UserID      int64
	Kind        enums.MessageKind
	Body        string
	MediaItemID string
}

type MessageOutcome struct {
	Verdict admission.Verdict
	Message model.ChatMessage
}

// AcceptMessage admits a chat message on the page's time and activity rules
// only; messages never move the ledger.
func (r *Registrar) AcceptMessage(ctx context.Context, page model.MediaPage, in Message) (MessageOutcome, error) {
	if err := validateMessage(&in); err != nil {
		return MessageOutcome{}, err
	}
	if page.ID <= 0 {
		return MessageOutcome{}, ErrValidation
	}
	if err := r.configured(); err != nil {
		return MessageOutcome{}, err
	}

	state := admission.PageState{
		RemainingDays: r.ledger.RemainingDays(page),
		IsActive:      page.IsActive,
	}
	verdict := r.policy.Evaluate(state, admission.Action{Kind: admission.ActionMessage})
	metrics.RecordVerdict(string(admission.ActionMessage), string(verdict.Reason))
	if !verdict.Allowed {
		return MessageOutcome{Verdict: verdict}, nil
	}

	if in.Kind == enums.MessageKindMedia {
		item, err := r.store.GetItem(ctx, in.MediaItemID)
		if err != nil {
			return MessageOutcome{}, r.mapItemErr("get referenced item", err)
		}
		if item.PageID != page.ID || !item.IsActive {
			return MessageOutcome{}, ErrValidation
		}
	}

	msg, err := r.store.CreateMessage(ctx, model.ChatMessage{
		ID:          r.newID(),
		PageID:      page.ID,
		UserID:      in.UserID,
		Kind:        in.Kind,
		Body:        in.Body,
		MediaItemID: in.MediaItemID,
		IsActive:    true,
		CreatedAt:   r.now().UTC(),
	})
	if err != nil {
		return MessageOutcome{}, fmt.Errorf("create message: %w", err)
	}

	if r.publisher != nil {
		if err := r.publisher.PublishMessage(ctx, msg); err != nil {
			r.logger.Warn("publish chat message failed",
				zap.Int64("page_id", msg.PageID),
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}

	return MessageOutcome{Verdict: admission.Allow(), Message: msg}, nil
}

func (r *Registrar) ListMessages(ctx context.Context, pageID int64, before time.Time, limit int) ([]model.ChatMessage, error) {
	if pageID <= 0 {
		return nil, ErrValidation
	}
	if r.store == nil {
		return nil, model.ErrStoreUnavailable
	}
	if before.IsZero() {
		before = r.now().UTC().Add(time.Second)
	}

	messages, err := r.store.ListMessages(ctx, pageID, before, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// RemoveMessage soft-deletes a message; repeating it is a no-op.
func (r *Registrar) RemoveMessage(ctx context.Context, messageID string) error {
	id, ok := parseID(messageID)
	if !ok {
		return ErrMessageNotFound
	}
	if r.store == nil {
		return model.ErrStoreUnavailable
	}

	changed, err := r.store.DeactivateMessage(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("deactivate message: %w", err)
	}
	if changed {
		r.logger.Info("chat message removed", zap.String("message_id", id))
	}
	return nil
}

func validateMessage(in *Message) error {
	if in.UserID <= 0 || !in.Kind.Valid() {
		return ErrValidation
	}

	in.Body = strings.TrimSpace(in.Body)
	in.MediaItemID = strings.TrimSpace(in.MediaItemID)
	switch in.Kind {
	case enums.MessageKindText:
		if in.Body == "" || utf8.RuneCountInString(in.Body) > maxMessageRunes || in.MediaItemID != "" {
			return ErrValidation
		}
	case enums.MessageKindMedia:
		id, ok := parseID(in.MediaItemID)
		if !ok || utf8.RuneCountInString(in.Body) > maxMessageRunes {
			return ErrValidation
		}
		in.MediaItemID = id
	}
	return nil
}

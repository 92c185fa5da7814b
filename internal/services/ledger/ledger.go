package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ivankudzin/mediapages/internal/domain/model"
	"github.com/ivankudzin/mediapages/internal/domain/rules"
	"github.com/ivankudzin/mediapages/internal/services/admission"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// Store applies usage changes as single conditional statements keyed by page id.
// Debit must return ErrQuotaExceeded when usage+bytes would pass the limit.
type Store interface {
	GetUsage(ctx context.Context, pageID int64) (int64, error)
	Debit(ctx context.Context, pageID, bytes int64) (int64, error)
	Credit(ctx context.Context, pageID, bytes int64) (int64, error)
}

type Ledger struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Ledger {
	return &Ledger{
		store: store,
		now:   time.Now,
	}
}

func (l *Ledger) CurrentUsage(ctx context.Context, pageID int64) (int64, error) {
	if pageID <= 0 {
		return 0, ErrValidation
	}
	if l.store == nil {
		return 0, model.ErrStoreUnavailable
	}

	used, err := l.store.GetUsage(ctx, pageID)
	if err != nil {
		return 0, fmt.Errorf("read page usage: %w", err)
	}
	return used, nil
}

// RemainingDays is recomputed on every call.
func (l *Ledger) RemainingDays(page model.MediaPage) int {
	return rules.RemainingDays(page.ExpiresAt, l.now())
}

func (l *Ledger) Debit(ctx context.Context, pageID, bytes int64) (int64, error) {
	if pageID <= 0 || bytes <= 0 {
		return 0, ErrValidation
	}
	if l.store == nil {
		return 0, model.ErrStoreUnavailable
	}

	used, err := l.store.Debit(ctx, pageID, bytes)
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			return 0, ErrQuotaExceeded
		}
		return 0, fmt.Errorf("debit page usage: %w", err)
	}
	return used, nil
}

func (l *Ledger) Credit(ctx context.Context, pageID, bytes int64) (int64, error) {
	if pageID <= 0 || bytes <= 0 {
		return 0, ErrValidation
	}
	if l.store == nil {
		return 0, model.ErrStoreUnavailable
	}

	used, err := l.store.Credit(ctx, pageID, bytes)
	if err != nil {
		return 0, fmt.Errorf("credit page usage: %w", err)
	}
	return used, nil
}

// State builds the admission snapshot from fresh usage and the page's stored limits.
func (l *Ledger) State(ctx context.Context, page model.MediaPage) (admission.PageState, error) {
	used, err := l.CurrentUsage(ctx, page.ID)
	if err != nil {
		return admission.PageState{}, err
	}

	return admission.PageState{
		RemainingDays: l.RemainingDays(page),
		IsActive:      page.IsActive,
		Usage:         used,
		Limit:         page.DBSizeLimit,
	}, nil
}

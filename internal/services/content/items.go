package content

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ivankudzin/mediapages/internal/domain/model"
)

type ItemView struct {
	Item         model.MediaItem
	URL          string
	ThumbnailURL string
}

type ReconcileReport struct {
	PageID   int64
	Previous int64
	Actual   int64
	Drift    int64
}

// RemoveItem soft-deletes an item and returns its bytes to the page.
// Removing an already inactive item changes nothing.
func (r *Registrar) RemoveItem(ctx context.Context, itemID string) (model.MediaItem, error) {
	id, ok := parseID(itemID)
	if !ok {
		return model.MediaItem{}, ErrItemNotFound
	}
	if err := r.configured(); err != nil {
		return model.MediaItem{}, err
	}

	item, changed, err := r.store.RemoveItem(ctx, id)
	if err != nil {
		return model.MediaItem{}, r.mapItemErr("remove item", err)
	}
	if !changed {
		return item, nil
	}

	r.logger.Info("media item removed",
		zap.Int64("page_id", item.PageID),
		zap.String("item_id", item.ID),
		zap.Int64("size", item.Size),
	)
	return item, nil
}

// RemoveItemBy lets a user remove only their own uploads.
func (r *Registrar) RemoveItemBy(ctx context.Context, itemID string, userID int64) (model.MediaItem, error) {
	if userID <= 0 {
		return model.MediaItem{}, ErrValidation
	}
	id, ok := parseID(itemID)
	if !ok {
		return model.MediaItem{}, ErrItemNotFound
	}
	if err := r.configured(); err != nil {
		return model.MediaItem{}, err
	}

	item, err := r.store.GetItem(ctx, id)
	if err != nil {
		return model.MediaItem{}, r.mapItemErr("get item", err)
	}
	if item.UploaderID != userID {
		return model.MediaItem{}, ErrForbidden
	}
	return r.RemoveItem(ctx, item.ID)
}

func (r *Registrar) ListItems(ctx context.Context, pageID int64, limit, offset int) ([]ItemView, error) {
	if pageID <= 0 {
		return nil, ErrValidation
	}
	if err := r.configured(); err != nil {
		return nil, err
	}

	items, err := r.store.ListItems(ctx, pageID, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		view := ItemView{Item: item}
		view.URL, err = r.objects.PresignGet(ctx, item.ObjectKey, 0)
		if err != nil {
			return nil, fmt.Errorf("presign item url: %w", err)
		}
		if item.ThumbnailKey != "" {
			view.ThumbnailURL, err = r.objects.PresignGet(ctx, item.ThumbnailKey, 0)
			if err != nil {
				return nil, fmt.Errorf("presign thumbnail url: %w", err)
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// Reconcile recomputes a page's usage from its active items. It is a repair
// tool for drift left behind by failed compensations.
func (r *Registrar) Reconcile(ctx context.Context, pageID int64) (ReconcileReport, error) {
	if pageID <= 0 {
		return ReconcileReport{}, ErrValidation
	}
	if r.store == nil {
		return ReconcileReport{}, model.ErrStoreUnavailable
	}

	previous, actual, err := r.store.ReconcileUsage(ctx, pageID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return ReconcileReport{}, err
		}
		return ReconcileReport{}, fmt.Errorf("reconcile usage: %w", err)
	}

	report := ReconcileReport{
		PageID:   pageID,
		Previous: previous,
		Actual:   actual,
		Drift:    previous - actual,
	}
	if report.Drift != 0 {
		r.logger.Warn("page usage drift repaired",
			zap.Int64("page_id", pageID),
			zap.Int64("previous", previous),
			zap.Int64("actual", actual),
		)
	}
	return report, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}

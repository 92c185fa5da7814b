package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ivankudzin/mediapages/internal/domain/enums"
	"github.com/ivankudzin/mediapages/internal/domain/model"
	"github.com/ivankudzin/mediapages/internal/infra/metrics"
	"github.com/ivankudzin/mediapages/internal/services/admission"
	"github.com/ivankudzin/mediapages/internal/services/ledger"
	"github.com/ivankudzin/mediapages/internal/services/media"
)

type Upload struct {
	UploaderID int64
	FileName   string
	MIMEType   string
	Size       int64
	Body       io.Reader
}

// UploadOutcome carries either a denial or the committed item. Page reflects
// the usage after the debit when the upload was committed.
type UploadOutcome struct {
	Verdict admission.Verdict
	Item    model.MediaItem
	Page    model.MediaPage
}

func (r *Registrar) AcceptUpload(ctx context.Context, page model.MediaPage, up Upload) (UploadOutcome, error) {
	if page.ID <= 0 || up.UploaderID <= 0 || up.Body == nil || up.Size <= 0 {
		return UploadOutcome{}, ErrValidation
	}
	if err := r.configured(); err != nil {
		return UploadOutcome{}, err
	}

	mimeType := admission.NormalizeMIME(up.MIMEType)
	state, err := r.ledger.State(ctx, page)
	if err != nil {
		return UploadOutcome{}, err
	}
	page.DBUsage = state.Usage

	verdict := r.policy.Evaluate(state, admission.Action{
		Kind:     admission.ActionUpload,
		Size:     up.Size,
		MIMEType: mimeType,
	})
	metrics.RecordVerdict(string(admission.ActionUpload), string(verdict.Reason))
	if !verdict.Allowed {
		return UploadOutcome{Verdict: verdict, Page: page}, nil
	}

	mediaType, _ := admission.MediaTypeOf(mimeType)
	itemID := r.newID()
	item := model.MediaItem{
		ID:         itemID,
		PageID:     page.ID,
		UploaderID: up.UploaderID,
		Type:       mediaType,
		Size:       up.Size,
		MIMEType:   mimeType,
		ObjectKey:  media.ItemObjectKey(page.ID, itemID, up.FileName),
		IsActive:   true,
		CreatedAt:  r.now().UTC(),
	}

	if err := r.putObject(ctx, &item, up); err != nil {
		r.discardObjects(ctx, item)
		return UploadOutcome{}, err
	}

	// Nothing is debited for an upload the client abandoned.
	if err := ctx.Err(); err != nil {
		r.discardObjects(ctx, item)
		return UploadOutcome{}, err
	}

	usage, err := r.ledger.Debit(ctx, page.ID, up.Size)
	if err != nil {
		r.discardObjects(ctx, item)
		if errors.Is(err, ledger.ErrQuotaExceeded) {
			metrics.RecordVerdict(string(admission.ActionUpload), string(admission.ReasonQuotaExceeded))
			return UploadOutcome{Verdict: admission.Deny(admission.ReasonQuotaExceeded), Page: page}, nil
		}
		return UploadOutcome{}, err
	}

	saved, err := r.store.CreateItem(ctx, item)
	if err != nil {
		r.compensate(ctx, item, err)
		r.discardObjects(ctx, item)
		return UploadOutcome{}, fmt.Errorf("%w: %w", ErrPersistenceFailedAfterDebit, err)
	}

	metrics.UploadedBytes.Add(float64(up.Size))
	page.DBUsage = usage
	r.logger.Info("media item committed",
		zap.Int64("page_id", page.ID),
		zap.String("item_id", saved.ID),
		zap.Int64("size", saved.Size),
		zap.Int64("db_usage", usage),
	)

	return UploadOutcome{Verdict: admission.Allow(), Item: saved, Page: page}, nil
}

// putObject stores exactly up.Size bytes. Images are buffered so a thumbnail
// and dimensions can be derived; any other type is streamed.
func (r *Registrar) putObject(ctx context.Context, item *model.MediaItem, up Upload) error {
	if item.Type == enums.MediaTypeImage {
		data, err := io.ReadAll(io.LimitReader(up.Body, up.Size+1))
		if err != nil {
			return fmt.Errorf("read upload: %w", err)
		}
		if int64(len(data)) != up.Size {
			return ErrIncompleteUpload
		}
		if err := r.objects.Put(ctx, item.ObjectKey, bytes.NewReader(data), up.Size, item.MIMEType); err != nil {
			return fmt.Errorf("put object: %w", err)
		}
		r.attachThumbnail(ctx, item, data)
		return nil
	}

	body := &countingReader{r: io.LimitReader(up.Body, up.Size+1)}
	if err := r.objects.Put(ctx, item.ObjectKey, body, up.Size, item.MIMEType); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if body.n < up.Size {
			return ErrIncompleteUpload
		}
		return fmt.Errorf("put object: %w", err)
	}

	// A body longer than declared leaves at least one unread byte.
	if _, err := io.Copy(io.Discard, body); err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if body.n != up.Size {
		return ErrIncompleteUpload
	}
	return nil
}

func (r *Registrar) attachThumbnail(ctx context.Context, item *model.MediaItem, data []byte) {
	thumb, err := media.MakeThumbnail(data)
	if err != nil {
		r.logger.Debug("thumbnail skipped", zap.String("item_id", item.ID), zap.Error(err))
		return
	}

	key := media.ThumbnailObjectKey(item.PageID, item.ID)
	if err := r.objects.Put(ctx, key, bytes.NewReader(thumb.Data), int64(len(thumb.Data)), "image/jpeg"); err != nil {
		r.logger.Warn("thumbnail upload failed", zap.String("item_id", item.ID), zap.Error(err))
		return
	}

	item.ThumbnailKey = key
	item.Width = &thumb.Width
	item.Height = &thumb.Height
}

func (r *Registrar) compensate(ctx context.Context, item model.MediaItem, cause error) {
	if _, err := r.ledger.Credit(context.WithoutCancel(ctx), item.PageID, item.Size); err != nil {
		metrics.LedgerCompensations.WithLabelValues("failed").Inc()
		r.logger.Error("ledger compensation failed",
			zap.Int64("page_id", item.PageID),
			zap.String("item_id", item.ID),
			zap.Int64("delta", item.Size),
			zap.NamedError("persist_error", cause),
			zap.NamedError("credit_error", err),
		)
		return
	}
	metrics.LedgerCompensations.WithLabelValues("ok").Inc()
	r.logger.Warn("item persistence failed, debit compensated",
		zap.Int64("page_id", item.PageID),
		zap.String("item_id", item.ID),
		zap.Int64("delta", item.Size),
		zap.Error(cause),
	)
}

func (r *Registrar) discardObjects(ctx context.Context, item model.MediaItem) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range []string{item.ObjectKey, item.ThumbnailKey} {
		if key == "" {
			continue
		}
		if err := r.objects.Delete(ctx, key); err != nil {
			r.logger.Warn("discard object failed", zap.String("object_key", key), zap.Error(err))
		}
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/mediapages/internal/domain/model"
)

const itemColumns = `
	id::text,
	page_id,
	uploader_id,
	type,
	size,
	mime_type,
	object_key,
	thumbnail_key,
	width,
	height,
	is_active,
	created_at`

const messageColumns = `
	id::text,
	page_id,
	user_id,
	kind,
	body,
	COALESCE(media_item_id::text, ''),
	is_active,
	created_at`

type ContentRepo struct {
	pool *pgxpool.Pool
}

func NewContentRepo(pool *pgxpool.Pool) *ContentRepo {
	return &ContentRepo{pool: pool}
}

func (r *ContentRepo) CreateItem(ctx context.Context, item model.MediaItem) (model.MediaItem, error) {
	if r.pool == nil {
		return model.MediaItem{}, model.ErrStoreUnavailable
	}

	saved, err := scanItem(r.pool.QueryRow(ctx, `
INSERT INTO media_items (
	id,
	page_id,
	uploader_id,
	type,
	size,
	mime_type,
	object_key,
	thumbnail_key,
	width,
	height,
	is_active,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11)
RETURNING`+itemColumns,
		item.ID, item.PageID, item.UploaderID, string(item.Type), item.Size, item.MIMEType,
		item.ObjectKey, item.ThumbnailKey, item.Width, item.Height, item.CreatedAt,
	))
	if err != nil {
		return model.MediaItem{}, classify("insert media item", err)
	}
	return saved, nil
}

func (r *ContentRepo) GetItem(ctx context.Context, itemID string) (model.MediaItem, error) {
	if r.pool == nil {
		return model.MediaItem{}, model.ErrStoreUnavailable
	}

	item, err := scanItem(r.pool.QueryRow(ctx, `SELECT`+itemColumns+` FROM media_items WHERE id = $1`, itemID))
	if err != nil {
		return model.MediaItem{}, classify("get media item", err)
	}
	return item, nil
}

// RemoveItem soft-deletes an active item and credits its size back to the
// page in one transaction. changed is false when the item was already inactive.
func (r *ContentRepo) RemoveItem(ctx context.Context, itemID string) (model.MediaItem, bool, error) {
	var (
		item    model.MediaItem
		changed bool
	)
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		item, err = scanItem(tx.QueryRow(ctx, `
UPDATE media_items
SET is_active = FALSE, deactivated_at = NOW()
WHERE id = $1 AND is_active = TRUE
RETURNING`+itemColumns, itemID))
		if err != nil {
			classified := classify("deactivate media item", err)
			if !errors.Is(classified, model.ErrNotFound) {
				return classified
			}
			item, err = scanItem(tx.QueryRow(ctx, `SELECT`+itemColumns+` FROM media_items WHERE id = $1`, itemID))
			if err != nil {
				return classify("get media item", err)
			}
			return nil
		}

		if _, err := tx.Exec(ctx, `
UPDATE media_pages
SET db_usage = GREATEST(db_usage - $2, 0), updated_at = NOW()
WHERE id = $1
`, item.PageID, item.Size); err != nil {
			return classify("credit page usage", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return model.MediaItem{}, false, err
	}
	return item, changed, nil
}

func (r *ContentRepo) ListItems(ctx context.Context, pageID int64, limit, offset int) ([]model.MediaItem, error) {
	if r.pool == nil {
		return nil, model.ErrStoreUnavailable
	}

	rows, err := r.pool.Query(ctx, `
SELECT`+itemColumns+`
FROM media_items
WHERE page_id = $1 AND is_active = TRUE
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3
`, pageID, limit, offset)
	if err != nil {
		return nil, classify("list media items", err)
	}
	defer rows.Close()

	items := make([]model.MediaItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, classify("scan media item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate media items", err)
	}
	return items, nil
}

func (r *ContentRepo) CreateMessage(ctx context.Context, msg model.ChatMessage) (model.ChatMessage, error) {
	if r.pool == nil {
		return model.ChatMessage{}, model.ErrStoreUnavailable
	}

	var mediaItemID *string
	if msg.MediaItemID != "" {
		mediaItemID = &msg.MediaItemID
	}

	saved, err := scanMessage(r.pool.QueryRow(ctx, `
INSERT INTO chat_messages (
	id,
	page_id,
	user_id,
	kind,
	body,
	media_item_id,
	is_active,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
RETURNING`+messageColumns,
		msg.ID, msg.PageID, msg.UserID, string(msg.Kind), msg.Body, mediaItemID, msg.CreatedAt,
	))
	if err != nil {
		return model.ChatMessage{}, classify("insert chat message", err)
	}
	return saved, nil
}

// ListMessages returns the newest active messages created before the cursor.
func (r *ContentRepo) ListMessages(ctx context.Context, pageID int64, before time.Time, limit int) ([]model.ChatMessage, error) {
	if r.pool == nil {
		return nil, model.ErrStoreUnavailable
	}

	rows, err := r.pool.Query(ctx, `
SELECT`+messageColumns+`
FROM chat_messages
WHERE page_id = $1 AND is_active = TRUE AND created_at < $2
ORDER BY created_at DESC
LIMIT $3
`, pageID, before, limit)
	if err != nil {
		return nil, classify("list chat messages", err)
	}
	defer rows.Close()

	messages := make([]model.ChatMessage, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, classify("scan chat message", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate chat messages", err)
	}
	return messages, nil
}

func (r *ContentRepo) DeactivateMessage(ctx context.Context, messageID string) (bool, error) {
	if r.pool == nil {
		return false, model.ErrStoreUnavailable
	}

	var wasActive bool
	err := r.pool.QueryRow(ctx, `
WITH target AS (
	SELECT id, is_active FROM chat_messages WHERE id = $1 FOR UPDATE
), updated AS (
	UPDATE chat_messages m
	SET is_active = FALSE
	FROM target
	WHERE m.id = target.id AND target.is_active
	RETURNING m.id
)
SELECT target.is_active FROM target
`, messageID).Scan(&wasActive)
	if err != nil {
		return false, classify("deactivate chat message", err)
	}
	return wasActive, nil
}

func (r *ContentRepo) ReconcileUsage(ctx context.Context, pageID int64) (int64, int64, error) {
	var previous, actual int64
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT db_usage FROM media_pages WHERE id = $1 FOR UPDATE`, pageID).Scan(&previous); err != nil {
			return classify("lock media page", err)
		}
		if err := tx.QueryRow(ctx, `
SELECT COALESCE(SUM(size), 0)::bigint
FROM media_items
WHERE page_id = $1 AND is_active = TRUE
`, pageID).Scan(&actual); err != nil {
			return classify("sum active item sizes", err)
		}
		if previous == actual {
			return nil
		}
		if _, err := tx.Exec(ctx, `UPDATE media_pages SET db_usage = $2, updated_at = NOW() WHERE id = $1`, pageID, actual); err != nil {
			return classify("rewrite page usage", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return previous, actual, nil
}

func scanItem(row pgx.Row) (model.MediaItem, error) {
	var item model.MediaItem
	err := row.Scan(
		&item.ID,
		&item.PageID,
		&item.UploaderID,
		&item.Type,
		&item.Size,
		&item.MIMEType,
		&item.ObjectKey,
		&item.ThumbnailKey,
		&item.Width,
		&item.Height,
		&item.IsActive,
		&item.CreatedAt,
	)
	return item, err
}

func scanMessage(row pgx.Row) (model.ChatMessage, error) {
	var msg model.ChatMessage
	err := row.Scan(
		&msg.ID,
		&msg.PageID,
		&msg.UserID,
		&msg.Kind,
		&msg.Body,
		&msg.MediaItemID,
		&msg.IsActive,
		&msg.CreatedAt,
	)
	return msg, err
}

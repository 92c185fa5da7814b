package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/mediapages/internal/domain/model"
	pagesvc "github.com/ivankudzin/mediapages/internal/services/pages"
)

const pageColumns = `
	id,
	code,
	link_token,
	title,
	purchaser_name,
	purchaser_email,
	purchaser_phone,
	db_size_limit,
	db_usage,
	usage_duration,
	remaining_days,
	is_active,
	created_at,
	expires_at,
	archived_at,
	updated_at`

type PageRepo struct {
	pool *pgxpool.Pool
}

func NewPageRepo(pool *pgxpool.Pool) *PageRepo {
	return &PageRepo{pool: pool}
}

func (r *PageRepo) Create(ctx context.Context, in pagesvc.NewPage) (model.MediaPage, error) {
	if r.pool == nil {
		return model.MediaPage{}, model.ErrStoreUnavailable
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO media_pages (
	code,
	link_token,
	title,
	purchaser_name,
	purchaser_email,
	purchaser_phone,
	db_size_limit,
	db_usage,
	usage_duration,
	remaining_days,
	is_active,
	created_at,
	expires_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, TRUE, $10, $11, $10)
RETURNING`+pageColumns,
		in.Code, in.LinkToken, in.Title, in.PurchaserName, in.PurchaserEmail, in.PurchaserPhone,
		in.DBSizeLimit, in.UsageDuration, in.RemainingDays, in.CreatedAt, in.ExpiresAt,
	)

	page, err := scanPage(row)
	if err != nil {
		if isUniqueViolation(err) {
			return model.MediaPage{}, pagesvc.ErrCodeTaken
		}
		return model.MediaPage{}, classify("insert media page", err)
	}
	return page, nil
}

func (r *PageRepo) GetByID(ctx context.Context, id int64) (model.MediaPage, error) {
	if r.pool == nil {
		return model.MediaPage{}, model.ErrStoreUnavailable
	}

	page, err := scanPage(r.pool.QueryRow(ctx, `SELECT`+pageColumns+` FROM media_pages WHERE id = $1`, id))
	if err != nil {
		return model.MediaPage{}, classify("get media page", err)
	}
	return page, nil
}

func (r *PageRepo) GetByLinkToken(ctx context.Context, token string) (model.MediaPage, error) {
	if r.pool == nil {
		return model.MediaPage{}, model.ErrStoreUnavailable
	}

	page, err := scanPage(r.pool.QueryRow(ctx, `SELECT`+pageColumns+` FROM media_pages WHERE link_token = $1`, token))
	if err != nil {
		return model.MediaPage{}, classify("get media page by link", err)
	}
	return page, nil
}

func (r *PageRepo) List(ctx context.Context, filter pagesvc.ListFilter) ([]model.MediaPage, error) {
	if r.pool == nil {
		return nil, model.ErrStoreUnavailable
	}

	rows, err := r.pool.Query(ctx, `
SELECT`+pageColumns+`
FROM media_pages
WHERE ($1 = FALSE OR is_active = TRUE)
ORDER BY id DESC
LIMIT $2 OFFSET $3
`, filter.OnlyActive, filter.Limit, filter.Offset)
	if err != nil {
		return nil, classify("list media pages", err)
	}
	return collectPages(rows)
}

// Extend pushes expiry forward and takes the page out of the archive.
func (r *PageRepo) Extend(ctx context.Context, id int64, extraDays int) (model.MediaPage, error) {
	if r.pool == nil {
		return model.MediaPage{}, model.ErrStoreUnavailable
	}

	page, err := scanPage(r.pool.QueryRow(ctx, `
UPDATE media_pages
SET
	expires_at = expires_at + make_interval(days => $2),
	usage_duration = usage_duration + $2,
	archived_at = NULL,
	updated_at = NOW()
WHERE id = $1
RETURNING`+pageColumns, id, extraDays))
	if err != nil {
		return model.MediaPage{}, classify("extend media page", err)
	}
	return page, nil
}

func (r *PageRepo) SetActive(ctx context.Context, id int64, active bool) (model.MediaPage, error) {
	if r.pool == nil {
		return model.MediaPage{}, model.ErrStoreUnavailable
	}

	page, err := scanPage(r.pool.QueryRow(ctx, `
UPDATE media_pages
SET is_active = $2, updated_at = NOW()
WHERE id = $1
RETURNING`+pageColumns, id, active))
	if err != nil {
		return model.MediaPage{}, classify("set media page active", err)
	}
	return page, nil
}

func (r *PageRepo) SaveRemainingDays(ctx context.Context, id int64, days int) error {
	if r.pool == nil {
		return model.ErrStoreUnavailable
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE media_pages
SET remaining_days = $2, updated_at = NOW()
WHERE id = $1
`, id, days)
	if err != nil {
		return classify("save remaining days", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ListUnarchived pages through pages that have not been archived, ordered by id.
func (r *PageRepo) ListUnarchived(ctx context.Context, afterID int64, limit int) ([]model.MediaPage, error) {
	if r.pool == nil {
		return nil, model.ErrStoreUnavailable
	}

	rows, err := r.pool.Query(ctx, `
SELECT`+pageColumns+`
FROM media_pages
WHERE archived_at IS NULL AND id > $1
ORDER BY id
LIMIT $2
`, afterID, limit)
	if err != nil {
		return nil, classify("list unarchived media pages", err)
	}
	return collectPages(rows)
}

// Archive reports false when the page was already archived or its expiry no
// longer falls at or before expiredBefore, as after a concurrent renewal.
func (r *PageRepo) Archive(ctx context.Context, id int64, at, expiredBefore time.Time) (bool, error) {
	if r.pool == nil {
		return false, model.ErrStoreUnavailable
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE media_pages
SET archived_at = $2, is_active = FALSE, remaining_days = 0, updated_at = NOW()
WHERE id = $1 AND archived_at IS NULL AND expires_at <= $3
`, id, at, expiredBefore)
	if err != nil {
		return false, classify("archive media page", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanPage(row pgx.Row) (model.MediaPage, error) {
	var page model.MediaPage
	err := row.Scan(
		&page.ID,
		&page.Code,
		&page.LinkToken,
		&page.Title,
		&page.PurchaserName,
		&page.PurchaserEmail,
		&page.PurchaserPhone,
		&page.DBSizeLimit,
		&page.DBUsage,
		&page.UsageDuration,
		&page.RemainingDays,
		&page.IsActive,
		&page.CreatedAt,
		&page.ExpiresAt,
		&page.ArchivedAt,
		&page.UpdatedAt,
	)
	return page, err
}

func collectPages(rows pgx.Rows) ([]model.MediaPage, error) {
	defer rows.Close()

	pages := make([]model.MediaPage, 0)
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, classify("scan media page", err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate media pages", err)
	}
	return pages, nil
}

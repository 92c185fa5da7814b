package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/mediapages/internal/domain/model"
	"github.com/ivankudzin/mediapages/internal/services/ledger"
)

// LedgerRepo moves db_usage with single conditional statements so the row
// lock serializes concurrent writers of the same page.
type LedgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

func (r *LedgerRepo) GetUsage(ctx context.Context, pageID int64) (int64, error) {
	if r.pool == nil {
		return 0, model.ErrStoreUnavailable
	}

	var used int64
	if err := r.pool.QueryRow(ctx, `SELECT db_usage FROM media_pages WHERE id = $1`, pageID).Scan(&used); err != nil {
		return 0, classify("get page usage", err)
	}
	return used, nil
}

func (r *LedgerRepo) Debit(ctx context.Context, pageID, bytes int64) (int64, error) {
	if r.pool == nil {
		return 0, model.ErrStoreUnavailable
	}

	var used int64
	err := r.pool.QueryRow(ctx, `
UPDATE media_pages
SET db_usage = db_usage + $2, updated_at = NOW()
WHERE id = $1 AND db_usage + $2 <= db_size_limit
RETURNING db_usage
`, pageID, bytes).Scan(&used)
	if err == nil {
		return used, nil
	}

	classified := classify("debit page usage", err)
	if !errors.Is(classified, model.ErrNotFound) {
		return 0, classified
	}

	// No row matched: either the page is gone or the debit would overflow.
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM media_pages WHERE id = $1)`, pageID).Scan(&exists); err != nil {
		return 0, classify("check page exists", err)
	}
	if !exists {
		return 0, model.ErrNotFound
	}
	return 0, ledger.ErrQuotaExceeded
}

func (r *LedgerRepo) Credit(ctx context.Context, pageID, bytes int64) (int64, error) {
	if r.pool == nil {
		return 0, model.ErrStoreUnavailable
	}

	var used int64
	err := r.pool.QueryRow(ctx, `
UPDATE media_pages
SET db_usage = GREATEST(db_usage - $2, 0), updated_at = NOW()
WHERE id = $1
RETURNING db_usage
`, pageID, bytes).Scan(&used)
	if err != nil {
		return 0, classify("credit page usage", err)
	}
	return used, nil
}

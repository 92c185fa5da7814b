package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/mediapages/internal/domain/model"
	"github.com/ivankudzin/mediapages/internal/domain/rules"
	"github.com/ivankudzin/mediapages/internal/infra/metrics"
	redrepo "github.com/ivankudzin/mediapages/internal/repo/redis"
)

const lockName = "mp:lock:lifecycle"

type PageStore interface {
	ListUnarchived(ctx context.Context, afterID int64, limit int) ([]model.MediaPage, error)
	SaveRemainingDays(ctx context.Context, id int64, days int) error
	// Archive must re-check expiredBefore against the stored expiry.
	Archive(ctx context.Context, id int64, at, expiredBefore time.Time) (bool, error)
}

type Locker interface {
	TryRun(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) error
}

type Config struct {
	ArchiveAfter time.Duration
	LockTTL      time.Duration
	BatchSize    int
}

type Result struct {
	Scanned   int
	Refreshed int
	Archived  int
	Skipped   bool
}

// Job refreshes cached remaining days and archives pages that stayed expired
// longer than ArchiveAfter.
type Job struct {
	pages  PageStore
	locker Locker
	cfg    Config
	now    func() time.Time
	logger *zap.Logger
}

func New(pages PageStore, locker Locker, cfg Config, logger *zap.Logger) *Job {
	if cfg.ArchiveAfter <= 0 {
		cfg.ArchiveAfter = 30 * rules.Day
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		pages:  pages,
		locker: locker,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

// Run sweeps all unarchived pages once. Another instance holding the lock
// turns the run into a no-op.
func (j *Job) Run(ctx context.Context) (Result, error) {
	if j.pages == nil {
		return Result{}, nil
	}
	if j.locker == nil {
		return j.sweep(ctx)
	}

	var res Result
	err := j.locker.TryRun(ctx, lockName, j.cfg.LockTTL, func(ctx context.Context) error {
		var sweepErr error
		res, sweepErr = j.sweep(ctx)
		return sweepErr
	})
	if errors.Is(err, redrepo.ErrLockHeld) {
		j.logger.Debug("lifecycle sweep skipped, lock held elsewhere")
		return Result{Skipped: true}, nil
	}
	return res, err
}

func (j *Job) sweep(ctx context.Context) (Result, error) {
	var res Result
	now := j.now()
	afterID := int64(0)

	for {
		batch, err := j.pages.ListUnarchived(ctx, afterID, j.cfg.BatchSize)
		if err != nil {
			return res, fmt.Errorf("list unarchived pages: %w", err)
		}
		for _, page := range batch {
			afterID = page.ID
			res.Scanned++
			if err := j.process(ctx, page, now, &res); err != nil {
				j.logger.Warn("lifecycle page failed", zap.Int64("page_id", page.ID), zap.Error(err))
			}
		}
		if len(batch) < j.cfg.BatchSize {
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}

	if res.Refreshed > 0 || res.Archived > 0 {
		j.logger.Info("lifecycle sweep completed",
			zap.Int("scanned", res.Scanned),
			zap.Int("refreshed", res.Refreshed),
			zap.Int("archived", res.Archived),
		)
	}
	return res, nil
}

func (j *Job) process(ctx context.Context, page model.MediaPage, now time.Time, res *Result) error {
	remaining := rules.RemainingDays(page.ExpiresAt, now)
	if remaining == 0 && now.Sub(page.ExpiresAt) >= j.cfg.ArchiveAfter {
		archived, err := j.pages.Archive(ctx, page.ID, now.UTC(), now.Add(-j.cfg.ArchiveAfter).UTC())
		if err != nil {
			return fmt.Errorf("archive page: %w", err)
		}
		if archived {
			res.Archived++
			metrics.PagesArchived.Inc()
		}
		return nil
	}

	if remaining != page.RemainingDays {
		if err := j.pages.SaveRemainingDays(ctx, page.ID, remaining); err != nil {
			return fmt.Errorf("save remaining days: %w", err)
		}
		res.Refreshed++
	}
	return nil
}

package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/ivankudzin/mediapages/internal/domain/model"
	"github.com/ivankudzin/mediapages/internal/domain/rules"
	redrepo "github.com/ivankudzin/mediapages/internal/repo/redis"
)

type fakePages struct {
	pages    []model.MediaPage
	archived map[int64]time.Time
	saved    map[int64]int

	beforeArchive func(id int64)
}

func (f *fakePages) ListUnarchived(_ context.Context, afterID int64, limit int) ([]model.MediaPage, error) {
	out := make([]model.MediaPage, 0, limit)
	for _, page := range f.pages {
		if page.ID <= afterID {
			continue
		}
		if _, ok := f.archived[page.ID]; ok {
			continue
		}
		out = append(out, page)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakePages) SaveRemainingDays(_ context.Context, id int64, days int) error {
	f.saved[id] = days
	return nil
}

func (f *fakePages) Archive(_ context.Context, id int64, at, expiredBefore time.Time) (bool, error) {
	if f.beforeArchive != nil {
		f.beforeArchive(id)
	}
	if _, ok := f.archived[id]; ok {
		return false, nil
	}
	for _, page := range f.pages {
		if page.ID == id && page.ExpiresAt.After(expiredBefore) {
			return false, nil
		}
	}
	f.archived[id] = at
	return true, nil
}

type heldLocker struct{}

func (heldLocker) TryRun(context.Context, string, time.Duration, func(context.Context) error) error {
	return redrepo.ErrLockHeld
}

func TestRunRefreshesAndArchives(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakePages{
		pages: []model.MediaPage{
			{ID: 1, RemainingDays: 10, ExpiresAt: now.Add(5 * rules.Day)},
			{ID: 2, RemainingDays: 3, ExpiresAt: now.Add(3 * rules.Day)},
			{ID: 3, RemainingDays: 1, ExpiresAt: now.Add(-2 * rules.Day)},
			{ID: 4, RemainingDays: 0, ExpiresAt: now.Add(-40 * rules.Day)},
		},
		archived: map[int64]time.Time{},
		saved:    map[int64]int{},
	}

	job := New(store, nil, Config{ArchiveAfter: 30 * rules.Day, BatchSize: 2}, nil)
	job.now = func() time.Time { return now }

	res, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run lifecycle job: %v", err)
	}

	if res.Scanned != 4 || res.Refreshed != 2 || res.Archived != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if store.saved[1] != 5 || store.saved[3] != 0 {
		t.Fatalf("unexpected refreshed values: %v", store.saved)
	}
	if _, ok := store.saved[2]; ok {
		t.Fatalf("up-to-date page must not be rewritten")
	}
	if at, ok := store.archived[4]; !ok || !at.Equal(now) {
		t.Fatalf("expected page 4 archived at %s, got %v", now, store.archived)
	}
	if _, ok := store.archived[3]; ok {
		t.Fatalf("recently expired page must not be archived")
	}
}

func TestRunSkipsWhenLockHeld(t *testing.T) {
	store := &fakePages{
		pages:    []model.MediaPage{{ID: 1, RemainingDays: 10, ExpiresAt: time.Now().Add(-40 * rules.Day)}},
		archived: map[int64]time.Time{},
		saved:    map[int64]int{},
	}

	job := New(store, heldLocker{}, Config{}, nil)
	res, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run lifecycle job: %v", err)
	}
	if !res.Skipped || len(store.archived) != 0 {
		t.Fatalf("expected skipped run without side effects, got %+v", res)
	}
}

func TestRunDoesNotArchiveRenewedPage(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakePages{
		pages: []model.MediaPage{
			{ID: 7, RemainingDays: 0, ExpiresAt: now.Add(-45 * rules.Day)},
		},
		archived: map[int64]time.Time{},
		saved:    map[int64]int{},
	}
	// An admin renewal lands between the listing and the archive update.
	store.beforeArchive = func(int64) {
		store.pages[0].ExpiresAt = now.Add(10 * rules.Day)
	}

	job := New(store, nil, Config{ArchiveAfter: 30 * rules.Day}, nil)
	job.now = func() time.Time { return now }

	res, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run lifecycle job: %v", err)
	}
	if res.Archived != 0 {
		t.Fatalf("renewed page must not be archived, got %+v", res)
	}
	if _, ok := store.archived[7]; ok {
		t.Fatalf("renewed page was archived")
	}
}

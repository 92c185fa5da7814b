package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ivankudzin/mediapages/internal/domain/model"
	"github.com/ivankudzin/mediapages/internal/domain/rules"
)

type fakeStore struct {
	mu     sync.Mutex
	limits map[int64]int64
	usage  map[int64]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		limits: map[int64]int64{},
		usage:  map[int64]int64{},
	}
}

func (f *fakeStore) GetUsage(_ context.Context, pageID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.limits[pageID]; !ok {
		return 0, model.ErrNotFound
	}
	return f.usage[pageID], nil
}

func (f *fakeStore) Debit(_ context.Context, pageID, bytes int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	limit, ok := f.limits[pageID]
	if !ok {
		return 0, model.ErrNotFound
	}
	if f.usage[pageID]+bytes > limit {
		return 0, ErrQuotaExceeded
	}
	f.usage[pageID] += bytes
	return f.usage[pageID], nil
}

func (f *fakeStore) Credit(_ context.Context, pageID, bytes int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.limits[pageID]; !ok {
		return 0, model.ErrNotFound
	}
	next := f.usage[pageID] - bytes
	if next < 0 {
		next = 0
	}
	f.usage[pageID] = next
	return next, nil
}

func TestDebitRejectsOverLimit(t *testing.T) {
	store := newFakeStore()
	store.limits[1] = 100
	l := New(store)

	used, err := l.Debit(context.Background(), 1, 60)
	if err != nil {
		t.Fatalf("debit 60: %v", err)
	}
	if used != 60 {
		t.Fatalf("unexpected usage: got %d want 60", used)
	}

	if _, err := l.Debit(context.Background(), 1, 41); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	current, err := l.CurrentUsage(context.Background(), 1)
	if err != nil {
		t.Fatalf("current usage: %v", err)
	}
	if current != 60 {
		t.Fatalf("rejected debit must not change usage, got %d", current)
	}
}

func TestCreditClampsAtZero(t *testing.T) {
	store := newFakeStore()
	store.limits[1] = 100
	store.usage[1] = 10
	l := New(store)

	used, err := l.Credit(context.Background(), 1, 25)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if used != 0 {
		t.Fatalf("expected clamp at zero, got %d", used)
	}
}

func TestDebitValidatesInput(t *testing.T) {
	l := New(newFakeStore())

	if _, err := l.Debit(context.Background(), 1, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for zero bytes, got %v", err)
	}
	if _, err := l.Credit(context.Background(), 0, 10); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for zero page id, got %v", err)
	}
}

func TestNilStoreIsUnavailable(t *testing.T) {
	l := New(nil)

	if _, err := l.Debit(context.Background(), 1, 1); !errors.Is(err, model.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestRemainingDaysFollowsClock(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	l := New(newFakeStore())
	l.now = func() time.Time { return now }

	page := model.MediaPage{ExpiresAt: rules.ExpiresAt(now, 30)}
	if got := l.RemainingDays(page); got != 30 {
		t.Fatalf("unexpected remaining days: got %d want 30", got)
	}

	now = now.Add(31 * rules.Day)
	if got := l.RemainingDays(page); got != 0 {
		t.Fatalf("expected expired page after 31 days, got %d", got)
	}
}

func TestStateUsesFreshUsage(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.limits[7] = 500
	store.usage[7] = 120
	l := New(store)
	l.now = func() time.Time { return now }

	page := model.MediaPage{ID: 7, DBSizeLimit: 500, DBUsage: 0, IsActive: true, ExpiresAt: now.Add(36 * time.Hour)}
	state, err := l.State(context.Background(), page)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Usage != 120 || state.Limit != 500 || state.RemainingDays != 2 || !state.IsActive {
		t.Fatalf("unexpected state: %+v", state)
	}
}

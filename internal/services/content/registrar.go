package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/mediapages/internal/domain/model"
	"github.com/ivankudzin/mediapages/internal/services/admission"
)

var (
	ErrValidation                  = errors.New("validation error")
	ErrItemNotFound                = errors.New("media item not found")
	ErrMessageNotFound             = errors.New("chat message not found")
	ErrForbidden                   = errors.New("forbidden")
	ErrIncompleteUpload            = errors.New("upload body does not match declared size")
	ErrPersistenceFailedAfterDebit = errors.New("item persistence failed after quota debit")
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	maxMessageRunes  = 4000
)

// Ledger is the quota accounting the registrar debits and credits.
type Ledger interface {
	State(ctx context.Context, page model.MediaPage) (admission.PageState, error)
	RemainingDays(page model.MediaPage) int
	Debit(ctx context.Context, pageID, bytes int64) (int64, error)
	Credit(ctx context.Context, pageID, bytes int64) (int64, error)
}

type Store interface {
	CreateItem(ctx context.Context, item model.MediaItem) (model.MediaItem, error)
	GetItem(ctx context.Context, itemID string) (model.MediaItem, error)
	// RemoveItem deactivates the item and credits its size in one durable
	// step; changed=false when the item was already inactive.
	RemoveItem(ctx context.Context, itemID string) (model.MediaItem, bool, error)
	ListItems(ctx context.Context, pageID int64, limit, offset int) ([]model.MediaItem, error)

	CreateMessage(ctx context.Context, msg model.ChatMessage) (model.ChatMessage, error)
	ListMessages(ctx context.Context, pageID int64, before time.Time, limit int) ([]model.ChatMessage, error)
	DeactivateMessage(ctx context.Context, messageID string) (bool, error)

	// ReconcileUsage rewrites the page's usage to the sum of its active item
	// sizes in one transaction and returns the usage before and after.
	ReconcileUsage(ctx context.Context, pageID int64) (previous, actual int64, err error)
}

type ObjectStorage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Publisher interface {
	PublishMessage(ctx context.Context, msg model.ChatMessage) error
}

type Registrar struct {
	ledger    Ledger
	policy    *admission.Policy
	store     Store
	objects   ObjectStorage
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

func NewRegistrar(ledger Ledger, policy *admission.Policy, store Store, objects ObjectStorage, logger *zap.Logger) *Registrar {
	if policy == nil {
		policy = admission.NewPolicy(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Registrar{
		ledger:  ledger,
		policy:  policy,
		store:   store,
		objects: objects,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (r *Registrar) AttachPublisher(publisher Publisher) {
	r.publisher = publisher
}

func (r *Registrar) configured() error {
	if r.ledger == nil || r.store == nil || r.objects == nil {
		return model.ErrStoreUnavailable
	}
	return nil
}

// parseID accepts only canonical UUIDs so malformed ids never reach the store.
func parseID(raw string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func (r *Registrar) mapItemErr(op string, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return ErrItemNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/mediapages/internal/domain/enums"
	"github.com/ivankudzin/mediapages/internal/domain/model"
	"github.com/ivankudzin/mediapages/internal/domain/rules"
	"github.com/ivankudzin/mediapages/internal/infra/metrics"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrPageNotFound        = errors.New("page not found")
	ErrCodeTaken           = errors.New("page code or link token already taken")
	ErrGenerationExhausted = errors.New("unique page code generation exhausted")
)

const (
	defaultSizeLimitMB     = 100
	defaultDurationDays    = 30
	defaultMaxCodeAttempts = 5
	maxListLimit           = 200
)

type NewPage struct {
	Code           string
	LinkToken      string
	Title          string
	PurchaserName  string
	PurchaserEmail string
	PurchaserPhone string
	DBSizeLimit    int64
	UsageDuration  int
	RemainingDays  int
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

type ListFilter struct {
	Limit      int
	Offset     int
	OnlyActive bool
}

// Store must report ErrCodeTaken when the code or link token violates uniqueness.
type Store interface {
	Create(ctx context.Context, page NewPage) (model.MediaPage, error)
	GetByID(ctx context.Context, id int64) (model.MediaPage, error)
	GetByLinkToken(ctx context.Context, token string) (model.MediaPage, error)
	List(ctx context.Context, filter ListFilter) ([]model.MediaPage, error)
	Extend(ctx context.Context, id int64, extraDays int) (model.MediaPage, error)
	SetActive(ctx context.Context, id int64, active bool) (model.MediaPage, error)
	SaveRemainingDays(ctx context.Context, id int64, days int) error
}

type Config struct {
	PublicBaseURL       string
	DefaultSizeLimitMB  int64
	DefaultDurationDays int
	MaxCodeAttempts     int
}

type CreateConfig struct {
	Title             string
	PurchaserName     string
	PurchaserEmail    string
	PurchaserPhone    string
	DBSizeLimitMB     int64
	UsageDurationDays int
}

type StatusReport struct {
	Page          model.MediaPage
	Status        enums.PageStatus
	RemainingDays int
	Persisted     bool
}

type Manager struct {
	store  Store
	codes  CodeGenerator
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func NewManager(store Store, codes CodeGenerator, cfg Config, logger *zap.Logger) *Manager {
	if cfg.DefaultSizeLimitMB <= 0 {
		cfg.DefaultSizeLimitMB = defaultSizeLimitMB
	}
	if cfg.DefaultDurationDays <= 0 {
		cfg.DefaultDurationDays = defaultDurationDays
	}
	if cfg.MaxCodeAttempts <= 0 {
		cfg.MaxCodeAttempts = defaultMaxCodeAttempts
	}
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if codes == nil {
		codes = NewRandomGenerator(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		store:  store,
		codes:  codes,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (m *Manager) CreatePage(ctx context.Context, in CreateConfig) (model.MediaPage, error) {
	if m.store == nil {
		return model.MediaPage{}, model.ErrStoreUnavailable
	}
	if strings.TrimSpace(in.PurchaserName) == "" {
		return model.MediaPage{}, ErrValidation
	}

	limitMB := in.DBSizeLimitMB
	if limitMB <= 0 {
		limitMB = m.cfg.DefaultSizeLimitMB
	}
	days := in.UsageDurationDays
	if days <= 0 {
		days = m.cfg.DefaultDurationDays
	}

	now := m.now().UTC()
	draft := NewPage{
		Title:          strings.TrimSpace(in.Title),
		PurchaserName:  strings.TrimSpace(in.PurchaserName),
		PurchaserEmail: strings.TrimSpace(in.PurchaserEmail),
		PurchaserPhone: strings.TrimSpace(in.PurchaserPhone),
		DBSizeLimit:    rules.MBToBytes(limitMB),
		UsageDuration:  days,
		RemainingDays:  days,
		CreatedAt:      now,
		ExpiresAt:      rules.ExpiresAt(now, days),
	}

	for attempt := 1; attempt <= m.cfg.MaxCodeAttempts; attempt++ {
		code, err := m.codes.Code()
		if err != nil {
			return model.MediaPage{}, fmt.Errorf("generate page code: %w", err)
		}
		token, err := m.codes.LinkToken()
		if err != nil {
			return model.MediaPage{}, fmt.Errorf("generate link token: %w", err)
		}
		draft.Code = code
		draft.LinkToken = token

		page, err := m.store.Create(ctx, draft)
		if err == nil {
			metrics.PagesCreated.Inc()
			m.logger.Info("page created",
				zap.Int64("page_id", page.ID),
				zap.String("code", page.Code),
				zap.Int64("db_size_limit", page.DBSizeLimit),
				zap.Int("usage_duration", page.UsageDuration),
				zap.Int("attempt", attempt),
			)
			return page, nil
		}
		if !errors.Is(err, ErrCodeTaken) {
			return model.MediaPage{}, fmt.Errorf("create page: %w", err)
		}
		m.logger.Debug("page code collision", zap.String("code", code), zap.Int("attempt", attempt))
	}

	return model.MediaPage{}, ErrGenerationExhausted
}

func (m *Manager) RenewPage(ctx context.Context, pageID int64, extraDays int) (model.MediaPage, error) {
	if pageID <= 0 || extraDays <= 0 {
		return model.MediaPage{}, ErrValidation
	}
	if m.store == nil {
		return model.MediaPage{}, model.ErrStoreUnavailable
	}

	page, err := m.store.Extend(ctx, pageID, extraDays)
	if err != nil {
		return model.MediaPage{}, m.mapErr("extend page", err)
	}

	remaining := rules.RemainingDays(page.ExpiresAt, m.now())
	if err := m.store.SaveRemainingDays(ctx, pageID, remaining); err != nil {
		return model.MediaPage{}, m.mapErr("save remaining days", err)
	}
	page.RemainingDays = remaining

	m.logger.Info("page renewed",
		zap.Int64("page_id", pageID),
		zap.Int("extra_days", extraDays),
		zap.Time("expires_at", page.ExpiresAt),
	)
	return page, nil
}

func (m *Manager) DeactivatePage(ctx context.Context, pageID int64) (model.MediaPage, error) {
	return m.setActive(ctx, pageID, false)
}

func (m *Manager) ActivatePage(ctx context.Context, pageID int64) (model.MediaPage, error) {
	return m.setActive(ctx, pageID, true)
}

func (m *Manager) setActive(ctx context.Context, pageID int64, active bool) (model.MediaPage, error) {
	if pageID <= 0 {
		return model.MediaPage{}, ErrValidation
	}
	if m.store == nil {
		return model.MediaPage{}, model.ErrStoreUnavailable
	}

	page, err := m.store.SetActive(ctx, pageID, active)
	if err != nil {
		return model.MediaPage{}, m.mapErr("set page active", err)
	}
	m.logger.Info("page activity changed", zap.Int64("page_id", pageID), zap.Bool("is_active", active))
	return page, nil
}

// RefreshStatus recomputes remaining days; the cached display value is written only when persist is set.
func (m *Manager) RefreshStatus(ctx context.Context, pageID int64, persist bool) (StatusReport, error) {
	page, err := m.Get(ctx, pageID)
	if err != nil {
		return StatusReport{}, err
	}

	report := m.Evaluate(page)
	if persist && page.RemainingDays != report.RemainingDays {
		if err := m.store.SaveRemainingDays(ctx, pageID, report.RemainingDays); err != nil {
			return StatusReport{}, m.mapErr("save remaining days", err)
		}
		report.Page.RemainingDays = report.RemainingDays
		report.Persisted = true
	}
	return report, nil
}

// Evaluate derives status for an already loaded page without touching the store.
func (m *Manager) Evaluate(page model.MediaPage) StatusReport {
	now := m.now()
	return StatusReport{
		Page:          page,
		Status:        rules.Status(page, now),
		RemainingDays: rules.RemainingDays(page.ExpiresAt, now),
	}
}

func (m *Manager) Get(ctx context.Context, pageID int64) (model.MediaPage, error) {
	if pageID <= 0 {
		return model.MediaPage{}, ErrValidation
	}
	if m.store == nil {
		return model.MediaPage{}, model.ErrStoreUnavailable
	}

	page, err := m.store.GetByID(ctx, pageID)
	if err != nil {
		return model.MediaPage{}, m.mapErr("get page", err)
	}
	return page, nil
}

func (m *Manager) GetByLink(ctx context.Context, token string) (model.MediaPage, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.MediaPage{}, ErrValidation
	}
	if m.store == nil {
		return model.MediaPage{}, model.ErrStoreUnavailable
	}

	page, err := m.store.GetByLinkToken(ctx, token)
	if err != nil {
		return model.MediaPage{}, m.mapErr("get page by link", err)
	}
	return page, nil
}

func (m *Manager) List(ctx context.Context, filter ListFilter) ([]model.MediaPage, error) {
	if m.store == nil {
		return nil, model.ErrStoreUnavailable
	}
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	pages, err := m.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return pages, nil
}

func (m *Manager) ShareURL(page model.MediaPage) string {
	return m.cfg.PublicBaseURL + "/p/" + page.LinkToken
}

func (m *Manager) mapErr(op string, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return ErrPageNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

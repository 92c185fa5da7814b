package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ivankudzin/mediapages/internal/domain/enums"
	"github.com/ivankudzin/mediapages/internal/domain/model"
	authsvc "github.com/ivankudzin/mediapages/internal/services/auth"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrPageArchived = errors.New("page is archived")
)

const maxDisplayNameRunes = 64

// PageFinder reports pages.ErrPageNotFound for unknown links.
type PageFinder interface {
	GetByLink(ctx context.Context, token string) (model.MediaPage, error)
}

type Store interface {
	Create(ctx context.Context, pageID int64, displayName string, role enums.Role) (model.User, error)
}

type Issuer interface {
	IssueForUser(ctx context.Context, userID, pageID int64, role string) (authsvc.AuthResult, error)
}

type JoinResult struct {
	User model.User
	Page model.MediaPage
	Auth authsvc.AuthResult
}

type Service struct {
	pages  PageFinder
	store  Store
	issuer Issuer
	logger *zap.Logger
}

func NewService(pages PageFinder, store Store, issuer Issuer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		pages:  pages,
		store:  store,
		issuer: issuer,
		logger: logger,
	}
}

// Join registers a guest on the page behind the share link and opens a session.
// Expired and disabled pages stay joinable for viewing.
func (s *Service) Join(ctx context.Context, linkToken, displayName string) (JoinResult, error) {
	displayName = strings.TrimSpace(displayName)
	if strings.TrimSpace(linkToken) == "" || displayName == "" || utf8.RuneCountInString(displayName) > maxDisplayNameRunes {
		return JoinResult{}, ErrValidation
	}
	if s.pages == nil || s.store == nil || s.issuer == nil {
		return JoinResult{}, model.ErrStoreUnavailable
	}

	page, err := s.pages.GetByLink(ctx, linkToken)
	if err != nil {
		return JoinResult{}, err
	}
	if page.ArchivedAt != nil {
		return JoinResult{}, ErrPageArchived
	}

	user, err := s.store.Create(ctx, page.ID, displayName, enums.RoleUser)
	if err != nil {
		return JoinResult{}, fmt.Errorf("create user: %w", err)
	}

	res, err := s.issuer.IssueForUser(ctx, user.ID, page.ID, string(user.Role))
	if err != nil {
		return JoinResult{}, fmt.Errorf("issue tokens: %w", err)
	}

	s.logger.Info("user joined page", zap.Int64("user_id", user.ID), zap.Int64("page_id", page.ID))
	return JoinResult{User: user, Page: page, Auth: res}, nil
}

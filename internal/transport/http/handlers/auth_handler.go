package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ivankudzin/mediapages/internal/domain/model"
	authsvc "github.com/ivankudzin/mediapages/internal/services/auth"
	pagesvc "github.com/ivankudzin/mediapages/internal/services/pages"
	userssvc "github.com/ivankudzin/mediapages/internal/services/users"
	"github.com/ivankudzin/mediapages/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/mediapages/internal/transport/http/errors"
)

type UserReader interface {
	GetByID(ctx context.Context, id int64) (model.User, error)
}

type AuthHandler struct {
	service *authsvc.Service
	users   *userssvc.Service
	reader  UserReader
}

func NewAuthHandler(service *authsvc.Service, users *userssvc.Service) *AuthHandler {
	return &AuthHandler{service: service, users: users}
}

// AttachUserReader enables display names on /me.
func (h *AuthHandler) AttachUserReader(reader UserReader) {
	h.reader = reader
}

func (h *AuthHandler) Join(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	var req dto.JoinRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.users.Join(r.Context(), req.LinkToken, req.DisplayName)
	if err != nil {
		handleJoinError(w, err)
		return
	}

	resp := tokensResponse(res.Auth)
	resp.Me.DisplayName = res.User.DisplayName
	httperrors.Write(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	var req dto.RefreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleAuthError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, tokensResponse(res))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	if err := h.service.Logout(r.Context(), identity.SID); err != nil {
		handleAuthError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.LogoutResponse{OK: true})
}

// LogoutAll revokes every session of the caller, on any device.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	if err := h.service.LogoutAll(r.Context(), identity.UserID); err != nil {
		handleAuthError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.LogoutResponse{OK: true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	me := dto.AuthMeResponse{
		ID:     identity.UserID,
		PageID: identity.PageID,
		Role:   identity.Role,
	}
	if h.reader != nil {
		user, err := h.reader.GetByID(r.Context(), identity.UserID)
		switch {
		case err == nil:
			me.DisplayName = user.DisplayName
		case errors.Is(err, model.ErrStoreUnavailable):
			writeRetryLater(w)
			return
		case !errors.Is(err, model.ErrNotFound):
			writeInternal(w, "INTERNAL_ERROR", "internal server error")
			return
		}
	}

	httperrors.Write(w, http.StatusOK, me)
}

func tokensResponse(res authsvc.AuthResult) dto.AuthTokensResponse {
	return dto.AuthTokensResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresInSec: maxInt64(0, int64(time.Until(res.AccessExpires).Seconds())),
		Me: dto.AuthMeResponse{
			ID:     res.Me.ID,
			PageID: res.Me.PageID,
			Role:   res.Me.Role,
		},
	}
}

func handleJoinError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, userssvc.ErrValidation), errors.Is(err, pagesvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "link token and display name are required")
	case errors.Is(err, userssvc.ErrPageArchived):
		httperrors.Write(w, http.StatusGone, httperrors.APIError{Code: "PAGE_ARCHIVED", Message: "page is archived"})
	case handleOperationalError(w, err):
	default:
		handleAuthError(w, err)
	}
}

func handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authsvc.ErrInvalidInput):
		writeBadRequest(w, "INVALID_REQUEST", "request validation failed")
	case errors.Is(err, authsvc.ErrUnauthorized):
		writeUnauthorized(w, "UNAUTHORIZED", "authentication failed")
	case errors.Is(err, model.ErrStoreUnavailable):
		writeRetryLater(w)
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

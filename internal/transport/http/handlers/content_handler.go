package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/mediapages/internal/domain/enums"
	"github.com/ivankudzin/mediapages/internal/domain/model"
	"github.com/ivankudzin/mediapages/internal/domain/rules"
	authsvc "github.com/ivankudzin/mediapages/internal/services/auth"
	contentsvc "github.com/ivankudzin/mediapages/internal/services/content"
	pagesvc "github.com/ivankudzin/mediapages/internal/services/pages"
	ratesvc "github.com/ivankudzin/mediapages/internal/services/rate"
	"github.com/ivankudzin/mediapages/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/mediapages/internal/transport/http/errors"
)

const (
	defaultMaxUploadBytes = 200 << 20 // 200 MiB
	multipartMemory       = 8 << 20
	multipartOverhead     = 1 << 20
)

type ContentHandler struct {
	pages          *pagesvc.Manager
	registrar      *contentsvc.Registrar
	limiter        *ratesvc.Limiter
	logger         *zap.Logger
	maxUploadBytes int64
}

func NewContentHandler(pages *pagesvc.Manager, registrar *contentsvc.Registrar, limiter *ratesvc.Limiter, maxUploadBytes int64, logger *zap.Logger) *ContentHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentHandler{
		pages:          pages,
		registrar:      registrar,
		limiter:        limiter,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *ContentHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	page, _, ok := h.memberPage(w, r)
	if !ok {
		return
	}

	views, err := h.registrar.ListItems(r.Context(), page.ID, queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	if err != nil {
		writeContentError(w, h.logger, err)
		return
	}

	items := make([]dto.ItemResponse, 0, len(views))
	for _, v := range views {
		items = append(items, itemResponse(v.Item, v.URL, v.ThumbnailURL))
	}
	httperrors.Write(w, http.StatusOK, dto.ItemsListResponse{Items: items})
}

func (h *ContentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	page, identity, ok := h.memberPage(w, r)
	if !ok {
		return
	}
	if !h.allow(w, r, ratesvc.ActionUpload, identity.UserID) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeFileTooLarge(w)
			return
		}
		writeBadRequest(w, "VALIDATION_ERROR", "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "file is required")
		return
	}
	defer file.Close()

	if header == nil || header.Size <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "file is empty")
		return
	}
	if header.Size > h.maxUploadBytes {
		h.writeFileTooLarge(w)
		return
	}

	outcome, err := h.registrar.AcceptUpload(r.Context(), page, contentsvc.Upload{
		UploaderID: identity.UserID,
		FileName:   header.Filename,
		MIMEType:   header.Header.Get("Content-Type"),
		Size:       header.Size,
		Body:       file,
	})
	if err != nil {
		writeContentError(w, h.logger, err)
		return
	}
	if !outcome.Verdict.Allowed {
		writeDenied(w, outcome.Verdict.Reason)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.UploadResponse{
		Item:       itemResponse(outcome.Item, "", ""),
		UsageBytes: outcome.Page.DBUsage,
		LimitBytes: outcome.Page.DBSizeLimit,
	})
}

// writeFileTooLarge reports the per-request cap, which is unrelated to the
// page quota.
func (h *ContentHandler) writeFileTooLarge(w http.ResponseWriter) {
	httperrors.Write(w, http.StatusRequestEntityTooLarge, httperrors.APIError{
		Code:    "FILE_TOO_LARGE",
		Message: "file exceeds the upload size limit",
		Details: map[string]string{"max_bytes": strconv.FormatInt(h.maxUploadBytes, 10)},
	})
}

func (h *ContentHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.registrar == nil {
		writeInternal(w, "CONTENT_SERVICE_UNAVAILABLE", "content service is unavailable")
		return
	}

	if _, err := h.registrar.RemoveItemBy(r.Context(), chi.URLParam(r, "id"), identity.UserID); err != nil {
		writeContentError(w, h.logger, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *ContentHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	page, _, ok := h.memberPage(w, r)
	if !ok {
		return
	}

	var before time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("before")); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "before must be an RFC3339 timestamp")
			return
		}
		before = parsed
	}

	msgs, err := h.registrar.ListMessages(r.Context(), page.ID, before, queryInt(r, "limit", 0))
	if err != nil {
		writeContentError(w, h.logger, err)
		return
	}

	items := make([]dto.MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, messageResponse(m))
	}
	httperrors.Write(w, http.StatusOK, dto.MessagesListResponse{Items: items})
}

func (h *ContentHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	page, identity, ok := h.memberPage(w, r)
	if !ok {
		return
	}

	var req dto.PostMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !h.allow(w, r, ratesvc.ActionMessage, identity.UserID) {
		return
	}

	outcome, err := h.registrar.AcceptMessage(r.Context(), page, contentsvc.Message{
		UserID:      identity.UserID,
		Kind:        enums.MessageKind(req.Kind),
		Body:        req.Body,
		MediaItemID: req.MediaItemID,
	})
	if err != nil {
		writeContentError(w, h.logger, err)
		return
	}
	if !outcome.Verdict.Allowed {
		writeDenied(w, outcome.Verdict.Reason)
		return
	}

	httperrors.Write(w, http.StatusCreated, messageResponse(outcome.Message))
}

// memberPage resolves the page behind the link and checks the caller joined it.
func (h *ContentHandler) memberPage(w http.ResponseWriter, r *http.Request) (model.MediaPage, authsvc.Identity, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return model.MediaPage{}, authsvc.Identity{}, false
	}
	if h.pages == nil || h.registrar == nil {
		writeInternal(w, "CONTENT_SERVICE_UNAVAILABLE", "content service is unavailable")
		return model.MediaPage{}, authsvc.Identity{}, false
	}

	page, err := h.pages.GetByLink(r.Context(), chi.URLParam(r, "link"))
	if err != nil {
		writeContentError(w, h.logger, err)
		return model.MediaPage{}, authsvc.Identity{}, false
	}
	if page.ID != identity.PageID {
		writeForbidden(w, "FORBIDDEN", "session does not belong to this page")
		return model.MediaPage{}, authsvc.Identity{}, false
	}
	return page, identity, true
}

func (h *ContentHandler) allow(w http.ResponseWriter, r *http.Request, action ratesvc.Action, userID int64) bool {
	if h.limiter == nil {
		return true
	}
	retryAfter, allowed, err := h.limiter.Allow(r.Context(), action, userID)
	if err != nil {
		// Fail open.
		h.logger.Warn("rate limiter unavailable", zap.String("action", string(action)), zap.Error(err))
		return true
	}
	if !allowed {
		writeRateLimited(w, retryAfter)
		return false
	}
	return true
}

func writeContentError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case handleOperationalError(w, err):
	case errors.Is(err, contentsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid content request")
	case errors.Is(err, contentsvc.ErrIncompleteUpload):
		writeBadRequest(w, "INCOMPLETE_UPLOAD", "upload body does not match its declared size")
	case errors.Is(err, contentsvc.ErrItemNotFound):
		writeNotFound(w, "ITEM_NOT_FOUND", "media item not found")
	case errors.Is(err, contentsvc.ErrMessageNotFound):
		writeNotFound(w, "MESSAGE_NOT_FOUND", "message not found")
	case errors.Is(err, contentsvc.ErrForbidden):
		writeForbidden(w, "FORBIDDEN", "not allowed")
	default:
		log.Error("content operation failed", zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "content operation failed")
	}
}

func itemResponse(item model.MediaItem, url, thumbURL string) dto.ItemResponse {
	return dto.ItemResponse{
		ID:           item.ID,
		UploaderID:   item.UploaderID,
		Type:         string(item.Type),
		MIMEType:     item.MIMEType,
		Size:         item.Size,
		Width:        item.Width,
		Height:       item.Height,
		URL:          url,
		ThumbnailURL: thumbURL,
		CreatedAt:    item.CreatedAt,
	}
}

func messageResponse(m model.ChatMessage) dto.MessageResponse {
	return dto.MessageResponse{
		ID:          m.ID,
		UserID:      m.UserID,
		Kind:        string(m.Kind),
		Body:        m.Body,
		MediaItemID: m.MediaItemID,
		CreatedAt:   m.CreatedAt,
	}
}

func usagePercent(page model.MediaPage) float64 {
	return rules.UsagePercent(page.DBUsage, page.DBSizeLimit)
}

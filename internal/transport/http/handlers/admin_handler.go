package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/mediapages/internal/domain/model"
	contentsvc "github.com/ivankudzin/mediapages/internal/services/content"
	pagesvc "github.com/ivankudzin/mediapages/internal/services/pages"
	"github.com/ivankudzin/mediapages/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/mediapages/internal/transport/http/errors"
)

const maxQRSize = 1024

type AdminHandler struct {
	pages     *pagesvc.Manager
	registrar *contentsvc.Registrar
	logger    *zap.Logger
}

func NewAdminHandler(pages *pagesvc.Manager, registrar *contentsvc.Registrar, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{pages: pages, registrar: registrar, logger: logger}
}

func (h *AdminHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	if !h.pagesReady(w) {
		return
	}

	var req dto.CreatePageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	page, err := h.pages.CreatePage(r.Context(), pagesvc.CreateConfig{
		Title:             req.Title,
		PurchaserName:     req.PurchaserName,
		PurchaserEmail:    req.PurchaserEmail,
		PurchaserPhone:    req.PurchaserPhone,
		DBSizeLimitMB:     req.SizeLimitMB,
		UsageDurationDays: req.DurationDays,
	})
	if err != nil {
		h.handleAdminError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, h.pageResponse(page))
}

func (h *AdminHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	if !h.pagesReady(w) {
		return
	}

	onlyActive, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	pages, err := h.pages.List(r.Context(), pagesvc.ListFilter{
		Limit:      queryInt(r, "limit", 0),
		Offset:     queryInt(r, "offset", 0),
		OnlyActive: onlyActive,
	})
	if err != nil {
		h.handleAdminError(w, err)
		return
	}

	items := make([]dto.PageResponse, 0, len(pages))
	for _, p := range pages {
		items = append(items, h.pageResponse(p))
	}
	httperrors.Write(w, http.StatusOK, dto.PagesListResponse{Items: items})
}

func (h *AdminHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	pageID, ok := h.pageID(w, r)
	if !ok {
		return
	}

	page, err := h.pages.Get(r.Context(), pageID)
	if err != nil {
		h.handleAdminError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, h.pageResponse(page))
}

func (h *AdminHandler) RenewPage(w http.ResponseWriter, r *http.Request) {
	pageID, ok := h.pageID(w, r)
	if !ok {
		return
	}

	var req dto.RenewPageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	page, err := h.pages.RenewPage(r.Context(), pageID, req.ExtraDays)
	if err != nil {
		h.handleAdminError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, h.pageResponse(page))
}

func (h *AdminHandler) DeactivatePage(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *AdminHandler) ActivatePage(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *AdminHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	pageID, ok := h.pageID(w, r)
	if !ok {
		return
	}

	var (
		page model.MediaPage
		err  error
	)
	if active {
		page, err = h.pages.ActivatePage(r.Context(), pageID)
	} else {
		page, err = h.pages.DeactivatePage(r.Context(), pageID)
	}
	if err != nil {
		h.handleAdminError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, h.pageResponse(page))
}

func (h *AdminHandler) RefreshStatus(w http.ResponseWriter, r *http.Request) {
	pageID, ok := h.pageID(w, r)
	if !ok {
		return
	}

	persist, _ := strconv.ParseBool(r.URL.Query().Get("persist"))
	report, err := h.pages.RefreshStatus(r.Context(), pageID, persist)
	if err != nil {
		h.handleAdminError(w, err)
		return
	}

	resp := h.pageResponse(report.Page)
	resp.RemainingDays = report.RemainingDays
	resp.Status = string(report.Status)
	httperrors.Write(w, http.StatusOK, dto.PageStatusResponse{Page: resp, Persisted: report.Persisted})
}

func (h *AdminHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	pageID, ok := h.pageID(w, r)
	if !ok {
		return
	}

	page, err := h.pages.Get(r.Context(), pageID)
	if err != nil {
		h.handleAdminError(w, err)
		return
	}

	size := min(queryInt(r, "size", 0), maxQRSize)
	png, err := h.pages.QRCode(page, size)
	if err != nil {
		h.handleAdminError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	pageID, ok := h.pageID(w, r)
	if !ok || !h.registrarReady(w) {
		return
	}

	report, err := h.registrar.Reconcile(r.Context(), pageID)
	if err != nil {
		h.handleAdminError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.ReconcileResponse{
		PageID:        report.PageID,
		PreviousBytes: report.Previous,
		ActualBytes:   report.Actual,
		DriftBytes:    report.Drift,
	})
}

func (h *AdminHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if !h.registrarReady(w) {
		return
	}
	if _, err := h.registrar.RemoveItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleAdminError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *AdminHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	if !h.registrarReady(w) {
		return
	}
	if err := h.registrar.RemoveMessage(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleAdminError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *AdminHandler) pageID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if !h.pagesReady(w) {
		return 0, false
	}
	id, ok := int64Param(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid page id")
		return 0, false
	}
	return id, true
}

func (h *AdminHandler) pagesReady(w http.ResponseWriter) bool {
	if h.pages == nil {
		writeInternal(w, "PAGES_SERVICE_UNAVAILABLE", "pages service is unavailable")
		return false
	}
	return true
}

func (h *AdminHandler) registrarReady(w http.ResponseWriter) bool {
	if h.registrar == nil {
		writeInternal(w, "CONTENT_SERVICE_UNAVAILABLE", "content service is unavailable")
		return false
	}
	return true
}

func (h *AdminHandler) pageResponse(page model.MediaPage) dto.PageResponse {
	report := h.pages.Evaluate(page)
	return dto.PageResponse{
		ID:             page.ID,
		Code:           page.Code,
		LinkToken:      page.LinkToken,
		ShareURL:       h.pages.ShareURL(page),
		Title:          page.Title,
		PurchaserName:  page.PurchaserName,
		PurchaserEmail: page.PurchaserEmail,
		PurchaserPhone: page.PurchaserPhone,
		SizeLimitBytes: page.DBSizeLimit,
		UsageBytes:     page.DBUsage,
		UsagePercent:   usagePercent(page),
		UsageDuration:  page.UsageDuration,
		RemainingDays:  page.RemainingDays,
		Status:         string(report.Status),
		IsActive:       page.IsActive,
		CreatedAt:      page.CreatedAt,
		ExpiresAt:      page.ExpiresAt,
		ArchivedAt:     page.ArchivedAt,
	}
}

func (h *AdminHandler) handleAdminError(w http.ResponseWriter, err error) {
	writeContentError(w, h.logger, err)
}

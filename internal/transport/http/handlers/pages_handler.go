package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ivankudzin/mediapages/internal/domain/enums"
	pagesvc "github.com/ivankudzin/mediapages/internal/services/pages"
	"github.com/ivankudzin/mediapages/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/mediapages/internal/transport/http/errors"
)

const lowDaysBanner = 3

type PagesHandler struct {
	pages *pagesvc.Manager
}

func NewPagesHandler(pages *pagesvc.Manager) *PagesHandler {
	return &PagesHandler{pages: pages}
}

// View is the public snapshot behind a share link.
func (h *PagesHandler) View(w http.ResponseWriter, r *http.Request) {
	if h.pages == nil {
		writeInternal(w, "PAGES_SERVICE_UNAVAILABLE", "pages service is unavailable")
		return
	}

	page, err := h.pages.GetByLink(r.Context(), chi.URLParam(r, "link"))
	if err != nil {
		if !handleOperationalError(w, err) {
			writeInternal(w, "INTERNAL_ERROR", "failed to load page")
		}
		return
	}

	report := h.pages.Evaluate(page)
	httperrors.Write(w, http.StatusOK, dto.PublicPageResponse{
		Title:          page.Title,
		Status:         string(report.Status),
		IsActive:       page.IsActive,
		RemainingDays:  report.RemainingDays,
		SizeLimitBytes: page.DBSizeLimit,
		UsageBytes:     page.DBUsage,
		UsagePercent:   usagePercent(page),
		ExpiresAt:      page.ExpiresAt,
		Banner:         banner(report),
	})
}

func banner(report pagesvc.StatusReport) string {
	switch {
	case report.Status == enums.PageStatusArchived:
		return "This page has been archived."
	case report.Status == enums.PageStatusExpired:
		return "This page has expired. Uploads and messages are closed."
	case !report.Page.IsActive:
		return "This page is currently disabled."
	case report.RemainingDays <= lowDaysBanner:
		return fmt.Sprintf("%d day(s) left on this page.", report.RemainingDays)
	default:
		return ""
	}
}

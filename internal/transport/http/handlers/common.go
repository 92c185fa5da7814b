package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ivankudzin/mediapages/internal/domain/model"
	"github.com/ivankudzin/mediapages/internal/services/admission"
	pagesvc "github.com/ivankudzin/mediapages/internal/services/pages"
	httperrors "github.com/ivankudzin/mediapages/internal/transport/http/errors"
)

const retryAfterSec = 5

var validate = newValidator()

// newValidator reports fields under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

// decodeAndValidate writes the 400 response itself and reports whether the handler may proceed.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeJSON(r, target); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return false
	}
	if err := validate.Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
			return false
		}
		details := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
		httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{
			Code:    "VALIDATION_ERROR",
			Message: "request validation failed",
			Details: details,
		})
		return false
	}
	return true
}

func int64Param(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeForbidden(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusForbidden, httperrors.APIError{Code: code, Message: message})
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusNotFound, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

func writeRetryLater(w http.ResponseWriter) {
	httperrors.WriteRetryAfter(w, http.StatusServiceUnavailable, retryAfterSec, httperrors.APIError{
		Code:    "RETRY_LATER",
		Message: "service is temporarily unavailable, retry later",
	})
}

func writeRateLimited(w http.ResponseWriter, retryAfter int64) {
	httperrors.WriteRetryAfter(w, http.StatusTooManyRequests, retryAfter, httperrors.RateLimitError{
		Code:          "RATE_LIMITED",
		Message:       "too many requests, slow down",
		RetryAfterSec: max(retryAfter, 1),
	})
}

// writeDenied renders an admission denial.
func writeDenied(w http.ResponseWriter, reason admission.Reason) {
	httperrors.Write(w, denialStatus(reason), httperrors.APIError{
		Code:    string(reason),
		Message: reason.Message(),
	})
}

func denialStatus(reason admission.Reason) int {
	switch reason {
	case admission.ReasonPageExpired:
		return http.StatusGone
	case admission.ReasonPageDisabled:
		return http.StatusForbidden
	case admission.ReasonQuotaExceeded:
		return http.StatusRequestEntityTooLarge
	case admission.ReasonUnsupportedType:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusBadRequest
	}
}

// handleOperationalError covers failures shared by every handler. It reports
// false when err is not one of them.
func handleOperationalError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, model.ErrStoreUnavailable), errors.Is(err, pagesvc.ErrGenerationExhausted):
		writeRetryLater(w)
	case errors.Is(err, pagesvc.ErrPageNotFound):
		writeNotFound(w, "PAGE_NOT_FOUND", "page not found")
	case errors.Is(err, pagesvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid page request")
	default:
		return false
	}
	return true
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

package admission

import (
	"mime"
	"strings"

	"github.com/ivankudzin/mediapages/internal/domain/enums"
)

type ActionKind string

const (
	ActionUpload  ActionKind = "upload"
	ActionMessage ActionKind = "message"
)

type Reason string

const (
	ReasonNone            Reason = ""
	ReasonPageExpired     Reason = "PAGE_EXPIRED"
	ReasonPageDisabled    Reason = "PAGE_DISABLED"
	ReasonQuotaExceeded   Reason = "QUOTA_EXCEEDED"
	ReasonUnsupportedType Reason = "UNSUPPORTED_TYPE"
)

func (r Reason) Message() string {
	switch r {
	case ReasonPageExpired:
		return "page has expired"
	case ReasonPageDisabled:
		return "page is disabled"
	case ReasonQuotaExceeded:
		return "page storage limit exceeded"
	case ReasonUnsupportedType:
		return "file type is not supported"
	default:
		return ""
	}
}

var DefaultAllowedMIMETypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/heic",
	"video/mp4",
	"video/quicktime",
	"video/webm",
	"audio/mpeg",
	"audio/mp4",
	"audio/wav",
	"audio/ogg",
	"audio/webm",
}

// PageState is the caller-supplied snapshot the policy decides on.
type PageState struct {
	RemainingDays int
	IsActive      bool
	Usage         int64
	Limit         int64
}

type Action struct {
	Kind     ActionKind
	Size     int64
	MIMEType string
}

type Verdict struct {
	Allowed bool
	Reason  Reason
}

func Allow() Verdict {
	return Verdict{Allowed: true}
}

func Deny(reason Reason) Verdict {
	return Verdict{Reason: reason}
}

type Policy struct {
	allowed map[string]struct{}
}

func NewPolicy(allowedMIMETypes []string) *Policy {
	if len(allowedMIMETypes) == 0 {
		allowedMIMETypes = DefaultAllowedMIMETypes
	}
	allowed := make(map[string]struct{}, len(allowedMIMETypes))
	for _, v := range allowedMIMETypes {
		if norm := NormalizeMIME(v); norm != "" {
			allowed[norm] = struct{}{}
		}
	}
	return &Policy{allowed: allowed}
}

// Evaluate applies the rules in order; the first failing rule wins.
func (p *Policy) Evaluate(state PageState, action Action) Verdict {
	if state.RemainingDays <= 0 {
		return Deny(ReasonPageExpired)
	}
	if !state.IsActive {
		return Deny(ReasonPageDisabled)
	}
	if action.Kind != ActionUpload {
		return Allow()
	}
	if state.Usage+action.Size > state.Limit {
		return Deny(ReasonQuotaExceeded)
	}
	if !p.Supports(action.MIMEType) {
		return Deny(ReasonUnsupportedType)
	}
	return Allow()
}

func (p *Policy) Supports(mimeType string) bool {
	_, ok := p.allowed[NormalizeMIME(mimeType)]
	return ok
}

func NormalizeMIME(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		if idx := strings.IndexByte(value, ';'); idx >= 0 {
			value = value[:idx]
		}
		return strings.ToLower(strings.TrimSpace(value))
	}
	return strings.ToLower(mediaType)
}

func MediaTypeOf(mimeType string) (enums.MediaType, bool) {
	norm := NormalizeMIME(mimeType)
	switch {
	case strings.HasPrefix(norm, "image/"):
		return enums.MediaTypeImage, true
	case strings.HasPrefix(norm, "video/"):
		return enums.MediaTypeVideo, true
	case strings.HasPrefix(norm, "audio/"):
		return enums.MediaTypeAudio, true
	default:
		return "", false
	}
}

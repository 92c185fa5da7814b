package apiapp

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ivankudzin/mediapages/internal/config"
	"github.com/ivankudzin/mediapages/internal/infra/metrics"
	authsvc "github.com/ivankudzin/mediapages/internal/services/auth"
	httperrors "github.com/ivankudzin/mediapages/internal/transport/http/errors"
)

const (
	adminTokenHeader     = "X-Admin-Token"
	adminRequestIDHeader = "X-Admin-Request-Id"
	defaultTimeout       = 60 * time.Second
)

func ApplyMiddlewares(r chiRouter, log *zap.Logger, timeout time.Duration) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(timeout))
	r.Use(requestLogger(log))
}

func AuthMiddleware(authService *authsvc.Service, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authService == nil {
				httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
					Code:    "AUTH_SERVICE_UNAVAILABLE",
					Message: "auth service is unavailable",
				})
				return
			}

			accessToken, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "missing bearer token",
				})
				return
			}

			claims, err := authService.ValidateAccessToken(r.Context(), accessToken)
			if err != nil {
				if log != nil {
					log.Debug("auth middleware validation failed", zap.Error(err))
				}
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "invalid access token",
				})
				return
			}

			ctx := authsvc.WithIdentity(r.Context(), authsvc.Identity{
				UserID: claims.UserID,
				PageID: claims.PageID,
				SID:    claims.SID,
				Role:   claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminTokenMiddleware guards the admin console with a static shared token.
// An empty configured token disables the console.
func AdminTokenMiddleware(cfg config.AdminConfig, log *zap.Logger) func(http.Handler) http.Handler {
	expected := []byte(strings.TrimSpace(cfg.Token))
	role := strings.TrimSpace(cfg.Role)
	if role == "" {
		role = "admin"
	}
	if log == nil {
		log = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				httperrors.Write(w, http.StatusServiceUnavailable, httperrors.APIError{
					Code:    "ADMIN_DISABLED",
					Message: "admin console is not configured",
				})
				return
			}

			got := []byte(strings.TrimSpace(r.Header.Get(adminTokenHeader)))
			if subtle.ConstantTimeCompare(got, expected) != 1 {
				log.Warn("admin token rejected", zap.String("path", r.URL.Path), zap.String("ip", clientIP(r)))
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "invalid admin token",
				})
				return
			}

			requestID := uuid.NewString()
			w.Header().Set(adminRequestIDHeader, requestID)
			log.Info("admin_request",
				zap.String("admin_request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)

			ctx := authsvc.WithIdentity(r.Context(), authsvc.Identity{
				SID:  requestID,
				Role: role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPRateLimiter throttles unauthenticated endpoints per client address.
type IPRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idleAfter time.Duration
	lastSweep time.Time
	log       *zap.Logger
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIPRateLimiter(perMinute int, log *zap.Logger) *IPRateLimiter {
	if perMinute <= 0 {
		perMinute = 20
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &IPRateLimiter{
		visitors:  make(map[string]*visitor),
		limit:     rate.Limit(float64(perMinute) / 60.0),
		burst:     max(perMinute/4, 1),
		idleAfter: 5 * time.Minute,
		log:       log,
		now:       time.Now,
	}
}

func (l *IPRateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= time.Minute {
		cutoff := now.Add(-l.idleAfter)
		for key, v := range l.visitors {
			if v.lastSeen.Before(cutoff) {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		limiter := l.limiterFor(ip)
		if !limiter.AllowN(l.now(), 1) {
			l.log.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", r.URL.Path))
			retryAfter := int64(1)
			if l.limit > 0 {
				retryAfter = max(int64(1/float64(l.limit)), 1)
			}
			httperrors.WriteRetryAfter(w, http.StatusTooManyRequests, retryAfter, httperrors.RateLimitError{
				Code:          "RATE_LIMITED",
				Message:       "too many requests, slow down",
				RetryAfterSec: retryAfter,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if ip == "" {
		return "unknown"
	}
	return ip
}

func extractBearerToken(value string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			metrics.RecordRequest(r.Method, route, status, time.Since(start))
			if log != nil {
				log.Info("http_request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("route", route),
					zap.Int("status", status),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", chimiddleware.GetReqID(r.Context())),
				)
			}
		})
	}
}

// routePattern keeps metric label cardinality bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

type chiRouter interface {
	Use(middlewares ...func(http.Handler) http.Handler)
}

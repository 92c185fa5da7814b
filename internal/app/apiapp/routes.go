package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/mediapages/internal/config"
	"github.com/ivankudzin/mediapages/internal/infra/metrics"
	authsvc "github.com/ivankudzin/mediapages/internal/services/auth"
	contentsvc "github.com/ivankudzin/mediapages/internal/services/content"
	pagesvc "github.com/ivankudzin/mediapages/internal/services/pages"
	ratesvc "github.com/ivankudzin/mediapages/internal/services/rate"
	userssvc "github.com/ivankudzin/mediapages/internal/services/users"
	"github.com/ivankudzin/mediapages/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService  *authsvc.Service
	UserService  *userssvc.Service
	UserReader   handlers.UserReader
	PageManager  *pagesvc.Manager
	Registrar    *contentsvc.Registrar
	RateLimiter  *ratesvc.Limiter
	HealthChecks map[string]handlers.Check
	Logger       *zap.Logger
	Config       config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.AuthService, deps.UserService)
	if deps.UserReader != nil {
		authHandler.AttachUserReader(deps.UserReader)
	}
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)
	pagesHandler := handlers.NewPagesHandler(deps.PageManager)
	contentHandler := handlers.NewContentHandler(
		deps.PageManager,
		deps.Registrar,
		deps.RateLimiter,
		deps.Config.HTTP.MaxUploadMB<<20,
		deps.Logger,
	)
	adminHandler := handlers.NewAdminHandler(deps.PageManager, deps.Registrar, deps.Logger)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	adminMW := AdminTokenMiddleware(deps.Config.Admin, deps.Logger)
	joinLimiter := NewIPRateLimiter(deps.Config.Rate.JoinPerMinutePerIP, deps.Logger)

	r.Get("/healthz", healthHandler.Get)
	r.Get("/readyz", healthHandler.Ready)
	if deps.Config.Metrics.Enabled {
		path := deps.Config.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, metrics.Handler())
	}

	r.Route("/v1/auth", func(r chi.Router) {
		r.With(joinLimiter.Middleware).Post("/join", authHandler.Join)
		r.Post("/refresh", authHandler.Refresh)
		r.With(authMW).Post("/logout", authHandler.Logout)
		r.With(authMW).Post("/logout-all", authHandler.LogoutAll)
	})

	r.Route("/v1", func(r chi.Router) {
		r.With(authMW).Get("/me", authHandler.Me)
		r.Get("/pages/{link}", pagesHandler.View)
		r.With(authMW).Get("/pages/{link}/items", contentHandler.ListItems)
		r.With(authMW).Post("/pages/{link}/items", contentHandler.Upload)
		r.With(authMW).Delete("/items/{id}", contentHandler.DeleteItem)
		r.With(authMW).Get("/pages/{link}/messages", contentHandler.ListMessages)
		r.With(authMW).Post("/pages/{link}/messages", contentHandler.PostMessage)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(adminMW)
		r.Post("/pages", adminHandler.CreatePage)
		r.Get("/pages", adminHandler.ListPages)
		r.Get("/pages/{id}", adminHandler.GetPage)
		r.Post("/pages/{id}/renew", adminHandler.RenewPage)
		r.Post("/pages/{id}/deactivate", adminHandler.DeactivatePage)
		r.Post("/pages/{id}/activate", adminHandler.ActivatePage)
		r.Post("/pages/{id}/refresh", adminHandler.RefreshStatus)
		r.Get("/pages/{id}/qr.png", adminHandler.QRCode)
		r.Post("/pages/{id}/reconcile", adminHandler.Reconcile)
		r.Delete("/items/{id}", adminHandler.DeleteItem)
		r.Delete("/messages/{id}", adminHandler.DeleteMessage)
	})
}

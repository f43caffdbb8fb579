// Package http собирает REST-роутер сервиса: chi + middleware + хендлеры.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sentinel-iam/auth-service/internal/service"
	"github.com/sentinel-iam/auth-service/internal/transport/http/handlers"
	"github.com/sentinel-iam/auth-service/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.

	// RefreshTTL — срок жизни refresh-cookie (равен TTL refresh-токена).
	RefreshTTL time.Duration
	// SecureCookie выключается только в local-окружении.
	SecureCookie bool
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(),            // счётчики/гистограммы по route-шаблону
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	// Зависимости хендлеров.
	h := handlers.New(svc, handlers.Options{
		RefreshTTL:   opts.RefreshTTL,
		SecureCookie: opts.SecureCookie,
	})

	// Регистрация маршрутов.
	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, svc)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, svc)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, svc *service.Service) {
	// Публичные эндпойнты.
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/forgot-password", h.ForgotPassword)
	r.Post("/auth/reset-password", h.ResetPassword)

	// Эндпойнты под Bearer-токеном.
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAuth(svc))

		pr.Post("/auth/logout", h.Logout)
		pr.Post("/auth/change-password", h.ChangePassword)
		pr.Get("/auth/me", h.Me)
		pr.Patch("/auth/me", h.UpdateMe)
	})
}

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"school-admin/internal/config"
	"school-admin/internal/database"
	"school-admin/internal/handler"
	"school-admin/internal/middleware"
)

type Handlers struct {
	Auth  *handler.AuthHandler
	Audit *handler.AuditHandler
	Users *handler.UsersHandler
	Pages *handler.PagesHandler
}

func New(
	cfg *config.Config,
	gate *middleware.Gate,
	handlers Handlers,
	db *database.DB,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Get(cfg.LoginPath, handlers.Pages.Login)
	r.Get(cfg.ForbiddenPath, handlers.Pages.Forbidden)

	// Dashboard pages sit behind the gate; which sections a role can see
	// is decided by the policy tables, not per-route middleware.
	r.Route("/dashboard", func(dash chi.Router) {
		dash.Use(gate.Protect)
		dash.Get("/", handlers.Pages.Dashboard)
		dash.Get("/{section}", handlers.Pages.Dashboard)
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))
		api.Use(gate.Protect)

		// The gate bypasses /api/v1/auth; these endpoints are how a
		// client becomes authenticated in the first place.
		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", handlers.Auth.Login)
			auth.Post("/refresh", handlers.Auth.Refresh)
			auth.Post("/logout", handlers.Auth.Logout)
			auth.Post("/request-reset", handlers.Auth.RequestPasswordReset)
			auth.Post("/reset-password", handlers.Auth.ResetPassword)
		})

		// Account routes carry no policy rule: any authenticated user
		// may manage their own account.
		api.Route("/account", func(account chi.Router) {
			account.Get("/me", handlers.Auth.Me)
			account.Put("/password", handlers.Auth.ChangePassword)
			account.Post("/logout", handlers.Auth.Logout)
		})

		api.Get("/users", handlers.Users.List)
		api.Get("/audit/logins", handlers.Audit.ListLogins)
	})

	return r
}

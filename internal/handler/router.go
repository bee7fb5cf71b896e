package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pluginverse/pluginverse/internal/auth"
	"github.com/pluginverse/pluginverse/internal/metrics"
)

// RouterConfig contains the handlers and middleware for the API router.
type RouterConfig struct {
	Auth     *AuthHandler
	Plugins  *PluginHandler
	Deposits *DepositHandler
	Files    *FileHandler
	Admin    *AdminHandler

	Tokens    *auth.TokenManager
	UserStore auth.UserStore

	CORSOrigins []string

	MetricsEnabled bool
	MetricsPath    string

	Logger zerolog.Logger
}

// NewRouter assembles the chi router for the whole API surface.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(corsMiddleware(cfg.CORSOrigins))
	}
	if cfg.MetricsEnabled {
		r.Use(metrics.Middleware)
	}

	r.Get("/health", handleHealth)
	if cfg.MetricsEnabled {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		// Public endpoints
		cfg.Auth.RegisterPublicRoutes(api)
		cfg.Plugins.RegisterPublicRoutes(api)
		cfg.Deposits.RegisterPublicRoutes(api)
		cfg.Files.RegisterRoutes(api)

		// Authenticated endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(auth.RequireAuth(cfg.Tokens, cfg.UserStore))

			cfg.Auth.RegisterProtectedRoutes(protected)
			cfg.Plugins.RegisterProtectedRoutes(protected)
			cfg.Deposits.RegisterProtectedRoutes(protected)

			// Admin endpoints
			protected.Route("/admin", func(admin chi.Router) {
				admin.Use(auth.RequireAdmin)
				cfg.Admin.RegisterRoutes(admin)
			})
		})
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// requestLogger logs each request with its matched route, status and timing.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Str("request_id", middleware.GetReqID(r.Context())).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

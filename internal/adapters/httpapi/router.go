package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type RouterOptions struct {
	// AuthMiddleware guards the bearer-protected routes. Nil leaves them unreachable (401).
	AuthMiddleware func(http.Handler) http.Handler
	Logger         *slog.Logger
}

// NewRouter constructs the API HTTP router.
func NewRouter(api *Server, opts RouterOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	authMW := opts.AuthMiddleware
	if authMW == nil {
		authMW = func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication is not configured", nil)
			})
		}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewAccessLogMiddleware(log))
	r.Use(middleware.Recoverer)

	// Health endpoint is unauthenticated (used for infra checks).
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, "ok")
	})

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/login", api.Login)
		r.Post("/register", api.Register)

		r.Group(func(r chi.Router) {
			r.Use(authMW)
			r.Get("/me", api.Me)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r
}

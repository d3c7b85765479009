// internal/app/features/users/routes.go
package users

import (
	"github.com/dalemusser/climatehub/internal/app/system/auth"
	"github.com/dalemusser/climatehub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes wires the users feature (mounted at /api/users). Registration is
// public and passes through limiter when it is non-nil.
func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		if limiter != nil {
			pr.Use(limiter.Middleware)
		}
		pr.Post("/register", h.HandleRegister)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/{id}/stats", h.ServeStats)
	})

	return r
}

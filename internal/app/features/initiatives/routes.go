// internal/app/features/initiatives/routes.go
package initiatives

import (
	"github.com/dalemusser/climatehub/internal/app/system/auth"
	"github.com/dalemusser/climatehub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// MountRoutes mounts the initiative routes on r. Listing and detail are
// public. Join and leave pass through limiter when it is non-nil.
func (h *Handler) MountRoutes(r chi.Router, limiter *ratelimit.Limiter) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Show)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/user/my-initiatives", h.Mine)
		pr.Post("/", h.Create)
		pr.Put("/{id}", h.Update)
		pr.Delete("/{id}", h.Delete)
		pr.Post("/{id}/complete", h.Complete)

		pr.Group(func(lr chi.Router) {
			if limiter != nil {
				lr.Use(limiter.Middleware)
			}
			lr.Post("/{id}/join", h.Join)
			lr.Post("/{id}/leave", h.Leave)
		})
	})
}

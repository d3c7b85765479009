// internal/app/features/articles/routes.go
package articles

import (
	"github.com/dalemusser/climatehub/internal/app/system/auth"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes wires the articles feature (mounted at /api/articles). Reads are
// public; writes require an admin.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{id}", h.Show)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(models.RoleAdmin))
		pr.Post("/", h.Create)
		pr.Put("/{id}", h.Update)
		pr.Delete("/{id}", h.Delete)
	})
	return r
}

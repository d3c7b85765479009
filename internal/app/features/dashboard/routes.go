// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/climatehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes wires the dashboard feature under whatever mount point
// the top-level router chooses (e.g., "/api/dashboard").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// Everything here is about the signed-in user.
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.ServeDashboard)
		pr.Get("/profile", h.ServeProfile)
		pr.Put("/profile", h.HandleProfileUpdate)
		pr.Get("/stats", h.ServeStats)
	})

	return r
}

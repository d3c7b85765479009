// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/climatehub/internal/app/system/auth"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all audit log routes under the path where this
// router is mounted (typically "/api/admin/audit" from bootstrap).
//
// Access is restricted to admins.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(models.RoleAdmin))

		pr.Get("/", h.ServeList)
	})

	return r
}

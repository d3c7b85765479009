// internal/app/features/systemusers/routes.go
package systemusers

import (
	"github.com/dalemusser/climatehub/internal/app/system/auth"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts account management (at /api/admin/users). Admins only.
//
//	h := systemusers.NewHandler(db, coord, audit, errLog, logger)
//	api.Mount("/admin/users", systemusers.Routes(h))
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole(models.RoleAdmin))

	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeView)
	r.Put("/{id}", h.HandleEdit)
	r.Delete("/{id}", h.HandleDelete)
	return r
}

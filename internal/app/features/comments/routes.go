// internal/app/features/comments/routes.go
package comments

import (
	"github.com/dalemusser/climatehub/internal/app/system/auth"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// MemberRoutes serves the caller's own comments (mounted at
// /api/users/comments).
func MemberRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ListMine)
	r.Post("/", h.Create)
	r.Delete("/{commentId}", h.DeleteMine)
	return r
}

// MountArticleRoutes adds the comment endpoints to the articles router.
// Reading published comments is public; posting requires sign-in.
func MountArticleRoutes(r chi.Router, h *Handler) {
	r.Get("/{id}/comments", h.ListForArticle)
	r.With(auth.RequireSignedIn).Post("/{id}/comment", h.CreateForArticle)
}

// AdminRoutes serves moderation (mounted at /api/admin/comments).
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole(models.RoleAdmin))
	r.Get("/", h.ServeModeration)
	r.Put("/{commentId}", h.Moderate)
	r.Delete("/{commentId}", h.Remove)
	return r
}

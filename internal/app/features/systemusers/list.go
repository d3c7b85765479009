// internal/app/features/systemusers/list.go
package systemusers

import (
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/app/system/paging"
	"github.com/dalemusser/climatehub/internal/app/system/timeouts"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeList handles GET /api/admin/users. Filters: role, search (name
// prefix), plus page and limit. Accounts are sorted by name.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	role := strings.ToLower(strings.TrimSpace(q.Get("role")))
	if role != "" && role != models.RoleUser && role != models.RoleAdmin {
		h.ErrLog.Write(w, r, "list users", apperr.Validation(`role must be "user" or "admin"`))
		return
	}
	p := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list users")
	defer cancel()

	users, total, err := h.Users.List(ctx, userstore.ListFilter{
		Role:   role,
		Search: strings.TrimSpace(q.Get("search")),
		Skip:   p.Skip(),
		Limit:  p.Limit64(),
	})
	if err != nil {
		h.ErrLog.Write(w, r, "list users", err)
		return
	}
	paging.SetTotal(w, total)
	uierrors.JSON(w, http.StatusOK, users)
}

// ServeView handles GET /api/admin/users/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.ErrLog.Write(w, r, "get user", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get user")
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, "get user", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, u)
}

func parseID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, userstore.ErrNotFound
	}
	return id, nil
}

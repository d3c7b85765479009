// internal/app/features/users/stats.go
package users

import (
	"net/http"

	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	"github.com/dalemusser/climatehub/internal/app/features/shared/views"
	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/app/system/authz"
	"github.com/dalemusser/climatehub/internal/app/system/timeouts"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// ServeStats returns a user's stats document. Callers may read their own;
// admins may read anyone's.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "user stats", userstore.ErrNotFound)
		return
	}
	if !authz.CanViewUser(r, id) {
		h.ErrLog.Write(w, r, "user stats", apperr.Forbidden("Access denied"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "user stats")
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, "user stats", err)
		return
	}

	var joined, organized []models.Initiative
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		joined, err = h.Initiatives.FindByParticipant(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		organized, err = h.Initiatives.FindByOrganizer(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		h.ErrLog.Write(w, r, "user stats", err)
		return
	}

	uierrors.JSON(w, http.StatusOK, views.BuildStats(u, joined, organized))
}

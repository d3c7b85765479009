// internal/app/features/dashboard/stats.go
package dashboard

import (
	"net/http"

	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	"github.com/dalemusser/climatehub/internal/app/features/shared/views"
	"github.com/dalemusser/climatehub/internal/app/system/authz"
	"github.com/dalemusser/climatehub/internal/app/system/timeouts"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"golang.org/x/sync/errgroup"
)

// ServeStats returns the caller's stats document.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "get stats", errNoUser)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "get stats")
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.ErrLog.Write(w, r, "get stats", err)
		return
	}

	var joined, organized []models.Initiative
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		joined, err = h.Initiatives.FindByParticipant(gctx, uid)
		return err
	})
	g.Go(func() (err error) {
		organized, err = h.Initiatives.FindByOrganizer(gctx, uid)
		return err
	})
	if err := g.Wait(); err != nil {
		h.ErrLog.Write(w, r, "get stats", err)
		return
	}

	uierrors.JSON(w, http.StatusOK, views.BuildStats(u, joined, organized))
}

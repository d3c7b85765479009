// internal/app/features/initiatives/mine.go
package initiatives

import (
	"net/http"

	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	"github.com/dalemusser/climatehub/internal/app/features/shared/views"
	"github.com/dalemusser/climatehub/internal/app/system/authz"
	"github.com/dalemusser/climatehub/internal/app/system/timeouts"
	"github.com/dalemusser/climatehub/internal/domain/models"
)

type mineResponse struct {
	Joined    []views.Joined      `json:"joined"`
	Organized []models.Initiative `json:"organized"`
	Stats     models.UserStats    `json:"stats"`
}

// Mine serves the caller's joined and organized initiatives with their
// stats.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	uid, err := caller(r, authz.CapParticipate)
	if err != nil {
		h.ErrLog.Write(w, r, "my initiatives", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "my initiatives")
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.ErrLog.Write(w, r, "my initiatives", err)
		return
	}
	joined, err := h.Initiatives.FindByIDs(ctx, u.JoinedIDs())
	if err != nil {
		h.ErrLog.Write(w, r, "my initiatives", err)
		return
	}
	organized, err := h.Initiatives.FindByIDs(ctx, u.Initiatives.Organized)
	if err != nil {
		h.ErrLog.Write(w, r, "my initiatives", err)
		return
	}

	uierrors.JSON(w, http.StatusOK, mineResponse{
		Joined:    views.PopulateJoined(u.Initiatives.Joined, joined),
		Organized: views.Ordered(u.Initiatives.Organized, organized),
		Stats:     u.Stats,
	})
}

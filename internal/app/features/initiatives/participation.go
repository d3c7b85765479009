// internal/app/features/initiatives/participation.go
package initiatives

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	"github.com/dalemusser/climatehub/internal/app/features/shared/views"
	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/app/system/authz"
	"github.com/dalemusser/climatehub/internal/app/system/impact"
	"github.com/dalemusser/climatehub/internal/app/system/inputval"
	"github.com/dalemusser/climatehub/internal/app/system/timeouts"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// withRoster resolves participant names for the response. A lookup failure
// leaves the names empty.
func (h *Handler) withRoster(ctx context.Context, in *models.Initiative) views.WithRoster {
	names, err := h.Users.NamesByIDs(ctx, views.ParticipantIDs(in))
	if err != nil {
		h.Log.Warn("resolve participant names", zap.String("initiative", in.ID.Hex()), zap.Error(err))
	}
	return views.WithRoster{Initiative: in, Names: names}
}

var (
	errNoUser = apperr.Unauthorized("Token is not valid")
	errDenied = apperr.Forbidden("Access denied")
)

// caller returns the signed-in user id, requiring need.
func caller(r *http.Request, need authz.Capability) (primitive.ObjectID, error) {
	role, uid, ok := authz.UserCtx(r)
	if !ok {
		return primitive.NilObjectID, errNoUser
	}
	if !role.Can(need) {
		return primitive.NilObjectID, errDenied
	}
	return uid, nil
}

// Join adds the caller to the initiative roster.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	uid, err := caller(r, authz.CapParticipate)
	if err != nil {
		h.ErrLog.Write(w, r, "join initiative", err)
		return
	}
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "join initiative", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "join initiative")
	defer cancel()

	res, err := h.Coord.Join(ctx, id, uid)
	if err != nil {
		h.ErrLog.Write(w, r, "join initiative", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, map[string]any{
		"message":          "Successfully joined initiative",
		"initiative":       h.withRoster(ctx, res.Initiative),
		"participantCount": res.ParticipantCount,
	})
}

// Leave removes the caller from the initiative roster. Leaving an
// initiative the caller is not on succeeds.
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	uid, err := caller(r, authz.CapParticipate)
	if err != nil {
		h.ErrLog.Write(w, r, "leave initiative", err)
		return
	}
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "leave initiative", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "leave initiative")
	defer cancel()

	res, err := h.Coord.Leave(ctx, id, uid)
	if err != nil {
		h.ErrLog.Write(w, r, "leave initiative", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, map[string]any{
		"message":          "Successfully left initiative",
		"participantCount": res.ParticipantCount,
	})
}

type completeInput struct {
	UserID         string  `json:"userId" validate:"omitempty,objectid" label:"User"`
	CO2Reduced     float64 `json:"co2Reduced" validate:"gte=0" label:"CO2 reduced"`
	TreesPlanted   float64 `json:"treesPlanted" validate:"gte=0" label:"Trees planted"`
	WasteCollected float64 `json:"wasteCollected" validate:"gte=0" label:"Waste collected"`
}

// Complete marks a participant as completed and credits the measured
// impact. Only the organizer or an admin may do this. userId defaults to
// the caller.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	actor, err := caller(r, authz.CapParticipate)
	if err != nil {
		h.ErrLog.Write(w, r, "complete initiative", err)
		return
	}
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "complete initiative", err)
		return
	}

	var in completeInput
	if err := uierrors.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "complete initiative", err)
		return
	}
	if v := inputval.Validate(in); v.HasErrors() {
		uierrors.WriteMessage(w, http.StatusBadRequest, v.First())
		return
	}
	target := actor
	if in.UserID != "" {
		target, _ = primitive.ObjectIDFromHex(in.UserID)
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "complete initiative")
	defer cancel()

	cur, err := h.Initiatives.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, "complete initiative", err)
		return
	}
	if !authz.CanManageInitiative(r, cur.Organizer) {
		h.ErrLog.Write(w, r, "complete initiative", errDenied)
		return
	}

	res, err := h.Coord.Complete(ctx, id, target, actor, impact.Delta{
		CO2Reduced:     in.CO2Reduced,
		TreesPlanted:   in.TreesPlanted,
		WasteCollected: in.WasteCollected,
	})
	if err != nil {
		h.ErrLog.Write(w, r, "complete initiative", err)
		return
	}
	msg := "Initiative marked as completed"
	if !res.Applied {
		msg = "Initiative already completed"
	}
	uierrors.JSON(w, http.StatusOK, map[string]any{
		"message": msg,
		"stats":   res.Stats,
	})
}

// internal/app/features/dashboard/profile.go
package dashboard

import (
	"net/http"
	"time"

	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	"github.com/dalemusser/climatehub/internal/app/features/shared/views"
	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/app/system/authz"
	"github.com/dalemusser/climatehub/internal/app/system/inputval"
	"github.com/dalemusser/climatehub/internal/app/system/normalize"
	"github.com/dalemusser/climatehub/internal/app/system/timeouts"
)

// ServeProfile returns the caller's profile.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "get profile", errNoUser)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get profile")
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.ErrLog.Write(w, r, "get profile", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, views.ProfileOf(u))
}

// profileInput lists the only self-editable fields. Anything else in the
// body (password, role, stats, initiatives) is ignored by decoding.
type profileInput struct {
	Name   *string    `json:"name" validate:"omitnil,min=1,max=100" label:"Name"`
	Phone  *string    `json:"phone" validate:"omitnil,max=30" label:"Phone"`
	Gender *string    `json:"gender" validate:"omitnil,gender" label:"Gender"`
	DOB    *time.Time `json:"dob"`
}

// HandleProfileUpdate applies the caller's profile edits.
func (h *Handler) HandleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "update profile", errNoUser)
		return
	}

	var in profileInput
	if err := uierrors.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "update profile", err)
		return
	}
	if in.Name != nil {
		n := normalize.Name(*in.Name)
		in.Name = &n
	}
	if in.Phone != nil {
		p := normalize.QueryParam(*in.Phone)
		in.Phone = &p
	}
	if in.Gender != nil {
		g := normalize.Gender(*in.Gender)
		in.Gender = &g
	}
	if v := inputval.Validate(in); v.HasErrors() {
		uierrors.WriteMessage(w, http.StatusBadRequest, v.First())
		return
	}
	if in.DOB != nil && in.DOB.After(time.Now()) {
		uierrors.WriteMessage(w, http.StatusBadRequest, "Date of birth cannot be in the future")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update profile")
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, uid, userstore.ProfileUpdate{
		Name:   in.Name,
		Phone:  in.Phone,
		Gender: in.Gender,
		DOB:    in.DOB,
	})
	if err != nil {
		h.ErrLog.Write(w, r, "update profile", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, views.ProfileOf(u))
}

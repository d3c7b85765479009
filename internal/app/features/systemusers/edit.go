// internal/app/features/systemusers/edit.go
package systemusers

import (
	"net/http"

	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/app/system/authz"
	"github.com/dalemusser/climatehub/internal/app/system/inputval"
	"github.com/dalemusser/climatehub/internal/app/system/normalize"
	"github.com/dalemusser/climatehub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// editInput defines validation rules for an admin account edit. Absent
// fields are left unchanged.
type editInput struct {
	Name  *string `json:"name" validate:"omitnil,min=1,max=200" label:"Name"`
	Email *string `json:"email" validate:"omitnil,email,max=254" label:"Email"`
	Role  *string `json:"role" validate:"omitnil,oneof=user admin" label:"Role"`
}

var errOwnRole = apperr.Validation("You can't change your own role. Ask another admin to make that change.")

// HandleEdit handles PUT /api/admin/users/{id}.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	_, actor, _ := authz.UserCtx(r)
	id, err := parseID(r)
	if err != nil {
		h.ErrLog.Write(w, r, "update user", err)
		return
	}

	var in editInput
	if err := uierrors.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "update user", err)
		return
	}
	var fields []string
	if in.Name != nil {
		v := normalize.Name(*in.Name)
		in.Name = &v
		fields = append(fields, "name")
	}
	if in.Email != nil {
		v := normalize.Email(*in.Email)
		in.Email = &v
		fields = append(fields, "email")
	}
	if in.Role != nil {
		v := normalize.Role(*in.Role)
		in.Role = &v
		fields = append(fields, "role")
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.WriteMessage(w, http.StatusBadRequest, res.First())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update user")
	defer cancel()

	cur, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, "update user", err)
		return
	}
	// An admin cannot demote themself.
	if id == actor && in.Role != nil && *in.Role != cur.Role {
		h.ErrLog.Write(w, r, "update user", errOwnRole)
		return
	}

	u, err := h.Users.UpdateAccount(ctx, id, userstore.AccountUpdate{Name: in.Name, Email: in.Email, Role: in.Role})
	if err != nil {
		h.ErrLog.Write(w, r, "update user", err)
		return
	}

	if len(fields) > 0 {
		h.Audit.UserUpdated(ctx, actor, id, fields)
	}
	h.Log.Info("user updated", zap.String("user_id", id.Hex()), zap.Strings("fields", fields))
	uierrors.JSON(w, http.StatusOK, u)
}

// HandleDelete handles DELETE /api/admin/users/{id}. The account is pulled
// from every roster, its organized initiatives pass to the acting admin,
// and its comments are removed.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_, actor, _ := authz.UserCtx(r)
	id, err := parseID(r)
	if err != nil {
		h.ErrLog.Write(w, r, "delete user", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete user")
	defer cancel()

	res, err := h.Coord.RemoveUser(ctx, id, actor)
	if err != nil {
		h.ErrLog.Write(w, r, "delete user", err)
		return
	}

	removed, err := h.Comments.DeleteByUser(ctx, id)
	if err != nil {
		h.Log.Warn("comments left behind by deleted user", zap.String("user_id", id.Hex()), zap.Error(err))
	}

	h.Log.Info("user deleted",
		zap.String("user_id", id.Hex()),
		zap.Int("rosters", res.Rosters),
		zap.Int("reassigned", res.Reassigned),
		zap.Int64("comments", removed),
	)
	uierrors.JSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

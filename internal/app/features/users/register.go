// internal/app/features/users/register.go
package users

import (
	"errors"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/app/system/inputval"
	"github.com/dalemusser/climatehub/internal/app/system/normalize"
	"github.com/dalemusser/climatehub/internal/app/system/timeouts"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type registerInput struct {
	Name     string    `json:"name" validate:"required,max=100" label:"Name"`
	Phone    string    `json:"phone" validate:"required,max=30" label:"Phone"`
	Email    string    `json:"email" validate:"required,email" label:"Email"`
	Password string    `json:"password" validate:"required,min=6,max=72" label:"Password"`
	Gender   string    `json:"gender" validate:"required,gender" label:"Gender"`
	DOB      time.Time `json:"dob" validate:"required" label:"Date of birth"`
}

type registeredUser struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Role  string             `json:"role"`
}

// HandleRegister creates a user account. Accounts created here always
// hold the user role; tokens are issued elsewhere.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := uierrors.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "register", err)
		return
	}
	in.Name = normalize.Name(in.Name)
	in.Phone = normalize.QueryParam(in.Phone)
	in.Email = normalize.Email(in.Email)
	in.Gender = normalize.Gender(in.Gender)
	if v := inputval.Validate(in); v.HasErrors() {
		uierrors.WriteMessage(w, http.StatusBadRequest, v.First())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "register")
	defer cancel()

	dob := in.DOB.UTC()
	u, err := h.Users.Create(ctx, models.User{
		Name:   in.Name,
		Email:  in.Email,
		Phone:  in.Phone,
		Gender: in.Gender,
		DOB:    &dob,
		Role:   models.RoleUser,
	}, in.Password)
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			uierrors.WriteMessage(w, http.StatusBadRequest, "Email already registered")
			return
		}
		h.ErrLog.Write(w, r, "register", err)
		return
	}

	h.Audit.UserRegistered(ctx, u.ID, u.Role)
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()))

	uierrors.JSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful",
		"user": registeredUser{
			ID:    u.ID,
			Name:  u.Name,
			Email: u.Email,
			Role:  u.Role,
		},
	})
}

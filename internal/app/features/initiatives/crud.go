// internal/app/features/initiatives/crud.go
package initiatives

import (
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	initiativestore "github.com/dalemusser/climatehub/internal/app/store/initiatives"
	"github.com/dalemusser/climatehub/internal/app/system/authz"
	"github.com/dalemusser/climatehub/internal/app/system/inputval"
	"github.com/dalemusser/climatehub/internal/app/system/normalize"
	"github.com/dalemusser/climatehub/internal/app/system/paging"
	"github.com/dalemusser/climatehub/internal/app/system/timeouts"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// List serves active initiatives, featured first then soonest. The total
// match count is sent in the X-Total-Count header.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := paging.Parse(r)
	f := initiativestore.ListFilter{
		Category: normalize.Category(q.Get("category")),
		Status:   normalize.Status(q.Get("status")),
		City:     normalize.QueryParam(q.Get("city")),
		Skip:     p.Skip(),
		Limit:    p.Limit64(),
	}
	if f.Status == "all" {
		f.Status = ""
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list initiatives")
	defer cancel()

	items, total, err := h.Initiatives.List(ctx, f)
	if err != nil {
		h.ErrLog.Write(w, r, "list initiatives", err)
		return
	}
	paging.SetTotal(w, total)
	uierrors.JSON(w, http.StatusOK, items)
}

// Show serves one initiative.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "get initiative", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get initiative")
	defer cancel()

	in, err := h.Initiatives.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, "get initiative", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, h.withRoster(ctx, in))
}

type createInput struct {
	Title           string             `json:"title" validate:"required,max=200" label:"Title"`
	Description     string             `json:"description" validate:"required,max=5000" label:"Description"`
	Category        string             `json:"category" validate:"omitempty,category" label:"Category"`
	Status          string             `json:"status" validate:"omitempty,initstatus" label:"Status"`
	Date            time.Time          `json:"date" validate:"required" label:"Date"`
	Time            string             `json:"time" validate:"max=50" label:"Time"`
	Location        models.Location    `json:"location"`
	MaxParticipants int                `json:"maxParticipants" validate:"gte=0,lte=100000" label:"Max participants"`
	Requirements    []string           `json:"requirements"`
	Materials       []string           `json:"materials"`
	Impact          models.Impact      `json:"impact"`
	Images          []string           `json:"images"`
	ContactInfo     models.ContactInfo `json:"contactInfo"`
	Featured        bool               `json:"featured"`
}

// Create organizes a new initiative with the caller as organizer.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	uid, err := caller(r, authz.CapCreateInitiative)
	if err != nil {
		h.ErrLog.Write(w, r, "create initiative", err)
		return
	}

	var in createInput
	if err := uierrors.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "create initiative", err)
		return
	}
	in.Title = normalize.Name(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = normalize.Category(in.Category)
	in.Status = normalize.Status(in.Status)
	if v := inputval.Validate(in); v.HasErrors() {
		uierrors.WriteMessage(w, http.StatusBadRequest, v.First())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "create initiative")
	defer cancel()

	created, err := h.Coord.Organize(ctx, models.Initiative{
		Title:           in.Title,
		Description:     in.Description,
		Category:        in.Category,
		Status:          in.Status,
		Date:            in.Date.UTC(),
		Time:            in.Time,
		Location:        in.Location,
		MaxParticipants: in.MaxParticipants,
		Requirements:    in.Requirements,
		Materials:       in.Materials,
		Impact:          in.Impact,
		Images:          in.Images,
		ContactInfo:     in.ContactInfo,
		Featured:        in.Featured && authz.IsAdmin(r),
	}, uid)
	if err != nil {
		h.ErrLog.Write(w, r, "create initiative", err)
		return
	}
	uierrors.JSON(w, http.StatusCreated, created)
}

type updateInput struct {
	Title           *string             `json:"title" validate:"omitnil,min=1,max=200" label:"Title"`
	Description     *string             `json:"description" validate:"omitnil,min=1,max=5000" label:"Description"`
	Category        *string             `json:"category" validate:"omitnil,category" label:"Category"`
	Status          *string             `json:"status" validate:"omitnil,initstatus" label:"Status"`
	Date            *time.Time          `json:"date"`
	Time            *string             `json:"time" validate:"omitnil,max=50" label:"Time"`
	Location        *models.Location    `json:"location"`
	MaxParticipants *int                `json:"maxParticipants" validate:"omitnil,gte=1,lte=100000" label:"Max participants"`
	Requirements    *[]string           `json:"requirements"`
	Materials       *[]string           `json:"materials"`
	Impact          *models.Impact      `json:"impact"`
	Images          *[]string           `json:"images"`
	ContactInfo     *models.ContactInfo `json:"contactInfo"`
	IsActive        *bool               `json:"isActive"`
	Featured        *bool               `json:"featured"`
}

func (u *updateInput) normalize() {
	if u.Title != nil {
		t := normalize.Name(*u.Title)
		u.Title = &t
	}
	if u.Description != nil {
		d := strings.TrimSpace(*u.Description)
		u.Description = &d
	}
	if u.Category != nil {
		c := normalize.Category(*u.Category)
		u.Category = &c
	}
	if u.Status != nil {
		s := normalize.Status(*u.Status)
		u.Status = &s
	}
	if u.Date != nil {
		d := u.Date.UTC()
		u.Date = &d
	}
}

// Update edits an initiative. Only its organizer or an admin may do this;
// the roster and organizer cannot be changed here.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if _, err := caller(r, authz.CapParticipate); err != nil {
		h.ErrLog.Write(w, r, "update initiative", err)
		return
	}
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "update initiative", err)
		return
	}

	var in updateInput
	if err := uierrors.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "update initiative", err)
		return
	}
	in.normalize()
	if v := inputval.Validate(in); v.HasErrors() {
		uierrors.WriteMessage(w, http.StatusBadRequest, v.First())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update initiative")
	defer cancel()

	cur, err := h.Initiatives.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, "update initiative", err)
		return
	}
	if !authz.CanManageInitiative(r, cur.Organizer) {
		h.ErrLog.Write(w, r, "update initiative", errDenied)
		return
	}
	if in.Featured != nil && !authz.IsAdmin(r) {
		in.Featured = nil
	}

	updated, err := h.Initiatives.Update(ctx, id, initiativestore.Update{
		Title:           in.Title,
		Description:     in.Description,
		Category:        in.Category,
		Status:          in.Status,
		Date:            in.Date,
		Time:            in.Time,
		Location:        in.Location,
		MaxParticipants: in.MaxParticipants,
		Requirements:    in.Requirements,
		Materials:       in.Materials,
		Impact:          in.Impact,
		Images:          in.Images,
		ContactInfo:     in.ContactInfo,
		IsActive:        in.IsActive,
		Featured:        in.Featured,
	})
	if err != nil {
		h.ErrLog.Write(w, r, "update initiative", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, updated)
}

// Delete retires an initiative. Only its organizer or an admin may do this.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := caller(r, authz.CapParticipate)
	if err != nil {
		h.ErrLog.Write(w, r, "delete initiative", err)
		return
	}
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "delete initiative", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete initiative")
	defer cancel()

	cur, err := h.Initiatives.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, "delete initiative", err)
		return
	}
	if !authz.CanManageInitiative(r, cur.Organizer) {
		h.ErrLog.Write(w, r, "delete initiative", errDenied)
		return
	}

	if err := h.Coord.Retire(ctx, id, actor); err != nil {
		h.ErrLog.Write(w, r, "delete initiative", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, map[string]string{"message": "Initiative deleted successfully"})
}

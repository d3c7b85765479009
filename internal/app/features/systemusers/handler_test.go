package systemusers_test

import (
	"net/http"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	"github.com/dalemusser/climatehub/internal/app/features/systemusers"
	commentstore "github.com/dalemusser/climatehub/internal/app/store/comments"
	initiativestore "github.com/dalemusser/climatehub/internal/app/store/initiatives"
	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/app/system/paging"
	"github.com/dalemusser/climatehub/internal/app/system/participation"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/dalemusser/climatehub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type env struct {
	r     chi.Router
	h     *systemusers.Handler
	fx    *testutil.Fixtures
	admin models.User
	as    testutil.TestUser
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	coord := participation.New(initiativestore.New(db), userstore.New(db), nil, nil, logger)
	h := systemusers.NewHandler(db, coord, nil, uierrors.NewErrorLogger(logger), logger)
	fx := testutil.NewFixtures(t, db)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	admin := fx.CreateAdmin(ctx, "Root Admin", "root@example.com")
	return env{r: systemusers.Routes(h), h: h, fx: fx, admin: admin, as: testutil.AsTestUser(admin.ID, models.RoleAdmin)}
}

func (e env) serve(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.r.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_AdminOnly(t *testing.T) {
	e := newEnv(t)

	e.serve(testutil.NewRequest("GET", "/")).AssertStatus(t, http.StatusUnauthorized)
	e.serve(testutil.WithUser(testutil.NewRequest("GET", "/"), testutil.RegularUser())).AssertStatus(t, http.StatusForbidden)
}

func TestServeList(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e.fx.CreateUser(ctx, "Maya", "maya@example.com", models.RoleUser)
	e.fx.CreateUser(ctx, "Mateo", "mateo@example.com", models.RoleUser)

	rec := e.serve(testutil.WithUser(testutil.NewRequest("GET", "/?search=ma&limit=1"), e.as))
	rec.AssertStatus(t, http.StatusOK)
	var page []models.User
	rec.DecodeJSON(t, &page)
	if len(page) != 1 || page[0].Name != "Mateo" {
		t.Errorf("page = %+v", page)
	}
	if got := rec.Header().Get(paging.TotalHeader); got != "2" {
		t.Errorf("total = %q, want 2", got)
	}
	if body := rec.Body.String(); strings.Contains(body, "password") {
		t.Errorf("password leaked: %s", body)
	}

	rec = e.serve(testutil.WithUser(testutil.NewRequest("GET", "/?role=admin"), e.as))
	rec.AssertStatus(t, http.StatusOK)
	var admins []models.User
	rec.DecodeJSON(t, &admins)
	if len(admins) != 1 || admins[0].ID != e.admin.ID {
		t.Errorf("admins = %+v", admins)
	}

	e.serve(testutil.WithUser(testutil.NewRequest("GET", "/?role=owner"), e.as)).AssertStatus(t, http.StatusBadRequest)
}

func TestServeView(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUser(ctx, "Ivo", "ivo@example.com", models.RoleUser)

	rec := e.serve(testutil.WithUser(testutil.NewRequest("GET", "/"+u.ID.Hex()), e.as))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "ivo@example.com")

	e.serve(testutil.WithUser(testutil.NewRequest("GET", "/507f1f77bcf86cd799439011"), e.as)).AssertStatus(t, http.StatusNotFound)
	e.serve(testutil.WithUser(testutil.NewRequest("GET", "/not-an-id"), e.as)).AssertStatus(t, http.StatusNotFound)
}

func TestHandleEdit(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUser(ctx, "Ivo", "ivo@example.com", models.RoleUser)

	rec := e.serve(testutil.WithUser(testutil.NewJSONRequest(t, "PUT", "/"+u.ID.Hex(), map[string]any{
		"name": " Ivo Petrov ",
		"role": "ADMIN",
	}), e.as))
	rec.AssertStatus(t, http.StatusOK)
	got := e.fx.GetUser(ctx, u.ID)
	if got.Name != "Ivo Petrov" || got.Role != models.RoleAdmin || got.Email != "ivo@example.com" {
		t.Errorf("user = %+v", got)
	}

	rec = e.serve(testutil.WithUser(testutil.NewJSONRequest(t, "PUT", "/"+u.ID.Hex(), map[string]any{"email": "nope"}), e.as))
	rec.AssertStatus(t, http.StatusBadRequest)
	if msg := rec.ErrorMessage(t); msg != "A valid email address is required." {
		t.Errorf("message = %q", msg)
	}

	rec = e.serve(testutil.WithUser(testutil.NewJSONRequest(t, "PUT", "/"+e.admin.ID.Hex(), map[string]any{"role": "user"}), e.as))
	rec.AssertStatus(t, http.StatusBadRequest)
	if e.fx.GetUser(ctx, e.admin.ID).Role != models.RoleAdmin {
		t.Error("admin demoted themself")
	}

	// Renaming yourself is fine.
	rec = e.serve(testutil.WithUser(testutil.NewJSONRequest(t, "PUT", "/"+e.admin.ID.Hex(), map[string]any{"name": "Head Admin", "role": "admin"}), e.as))
	rec.AssertStatus(t, http.StatusOK)
}

func TestHandleDelete_CleansUp(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	member := e.fx.CreateUser(ctx, "Lena", "lena@example.com", models.RoleUser)
	other := e.fx.CreateUser(ctx, "Omar", "omar@example.com", models.RoleUser)
	host := e.fx.CreateUser(ctx, "Host", "host@example.com", models.RoleUser)

	joined := e.fx.CreateInitiative(ctx, "Wetland Survey", host.ID, 5)
	if _, err := e.h.Coord.Join(ctx, joined.ID, member.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.h.Coord.Join(ctx, joined.ID, other.ID); err != nil {
		t.Fatal(err)
	}
	owned, err := e.h.Coord.Organize(ctx, models.Initiative{Title: "Bike Repair Day", MaxParticipants: 8}, member.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.h.Comments.Create(ctx, models.Comment{UserID: member.ID, Text: "bye", Author: "Lena"}); err != nil {
		t.Fatal(err)
	}

	rec := e.serve(testutil.WithUser(testutil.NewRequest("DELETE", "/"+member.ID.Hex()), e.as))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "User deleted successfully")

	if _, err := e.h.Users.GetByID(ctx, member.ID); err == nil {
		t.Error("user still present")
	}
	in := e.fx.GetInitiative(ctx, joined.ID)
	if _, ok := in.Participant(member.ID); ok {
		t.Error("deleted user still on roster")
	}
	if in.ParticipantCount() != 1 {
		t.Errorf("participants = %d, want 1", in.ParticipantCount())
	}
	if o := e.fx.GetInitiative(ctx, owned.ID); o.Organizer != e.admin.ID {
		t.Errorf("organizer = %s, want acting admin", o.Organizer.Hex())
	}
	if a := e.fx.GetUser(ctx, e.admin.ID); a.Stats.InitiativesOrganized != 1 {
		t.Errorf("admin organized = %d, want 1", a.Stats.InitiativesOrganized)
	}
	left, total, err := e.h.Comments.List(ctx, commentstore.ListFilter{UserID: &member.ID})
	if err != nil || total != 0 || len(left) != 0 {
		t.Errorf("comments left = %d, %v", total, err)
	}

	e.serve(testutil.WithUser(testutil.NewRequest("DELETE", "/"+member.ID.Hex()), e.as)).AssertStatus(t, http.StatusNotFound)
}

func TestHandleDelete_Self(t *testing.T) {
	e := newEnv(t)
	rec := e.serve(testutil.WithUser(testutil.NewRequest("DELETE", "/"+e.admin.ID.Hex()), e.as))
	rec.AssertStatus(t, http.StatusBadRequest)
	if msg := rec.ErrorMessage(t); msg != participation.ErrRemoveSelf.Message {
		t.Errorf("message = %q", msg)
	}
}

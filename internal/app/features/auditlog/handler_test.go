package auditlog_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/climatehub/internal/app/features/auditlog"
	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	"github.com/dalemusser/climatehub/internal/app/store/audit"
	"github.com/dalemusser/climatehub/internal/app/system/paging"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/dalemusser/climatehub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type listBody struct {
	Events []struct {
		EventType    string `json:"eventType"`
		UserID       string `json:"userId"`
		UserName     string `json:"userName"`
		ActorName    string `json:"actorName"`
		InitiativeID string `json:"initiativeId"`
	} `json:"events"`
	Pagination paging.Meta `json:"pagination"`
}

func setup(t *testing.T) (chi.Router, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	h := auditlog.NewHandler(db, uierrors.NewErrorLogger(logger), logger)
	return auditlog.Routes(h), db
}

func seed(t *testing.T, ctx context.Context, db *mongo.Database, e audit.Event) {
	t.Helper()
	if err := audit.New(db).Log(ctx, e); err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

func get(r chi.Router, target string, user *testutil.TestUser) *testutil.ResponseRecorder {
	req := testutil.NewRequest(http.MethodGet, target)
	if user != nil {
		req = testutil.WithUser(req, *user)
	}
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestServeList_RequiresAdmin(t *testing.T) {
	r, _ := setup(t)

	get(r, "/", nil).AssertStatus(t, http.StatusUnauthorized)

	regular := testutil.RegularUser()
	get(r, "/", &regular).AssertStatus(t, http.StatusForbidden)
}

func TestServeList_FiltersAndNames(t *testing.T) {
	r, db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	member := fx.CreateUser(ctx, "Marta", "marta@test.com", models.RoleUser)
	initID := primitive.NewObjectID()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seed(t, ctx, db, audit.Event{
		Timestamp: base, Category: audit.CategoryParticipation, EventType: audit.EventJoined,
		UserID: &member.ID, InitiativeID: &initID, Success: true,
	})
	seed(t, ctx, db, audit.Event{
		Timestamp: base.Add(time.Hour), Category: audit.CategoryParticipation, EventType: audit.EventLeft,
		UserID: &member.ID, InitiativeID: &initID, Success: true,
	})
	seed(t, ctx, db, audit.Event{
		Timestamp: base.AddDate(0, 0, 5), Category: audit.CategoryAdmin, EventType: audit.EventUserRegistered,
		UserID: &member.ID, Success: true,
	})

	admin := testutil.AdminUser()

	rec := get(r, "/", &admin)
	rec.AssertStatus(t, http.StatusOK)
	var all listBody
	rec.DecodeJSON(t, &all)
	if len(all.Events) != 3 || all.Pagination.Total != 3 {
		t.Fatalf("expected 3 events, got %d (total %d)", len(all.Events), all.Pagination.Total)
	}
	if all.Events[0].EventType != audit.EventUserRegistered {
		t.Errorf("expected newest first, got %s", all.Events[0].EventType)
	}
	if all.Events[0].UserName != "Marta" {
		t.Errorf("user name = %q", all.Events[0].UserName)
	}
	if got := rec.Header().Get(paging.TotalHeader); got != "3" {
		t.Errorf("total header = %q", got)
	}

	rec = get(r, "/?category=participation&initiativeId="+initID.Hex(), &admin)
	rec.AssertStatus(t, http.StatusOK)
	var part listBody
	rec.DecodeJSON(t, &part)
	if len(part.Events) != 2 {
		t.Errorf("participation filter: got %d events", len(part.Events))
	}

	rec = get(r, "/?startDate=2026-03-10&endDate=2026-03-10", &admin)
	var day listBody
	rec.DecodeJSON(t, &day)
	if len(day.Events) != 2 {
		t.Errorf("date filter: got %d events", len(day.Events))
	}

	rec = get(r, "/?limit=1&page=2", &admin)
	var page listBody
	rec.DecodeJSON(t, &page)
	if len(page.Events) != 1 || page.Pagination.Pages != 3 {
		t.Errorf("paging: %d events, %d pages", len(page.Events), page.Pagination.Pages)
	}
}

func TestServeList_BadFilters(t *testing.T) {
	r, _ := setup(t)
	admin := testutil.AdminUser()

	tests := []struct {
		name  string
		query string
	}{
		{"unknown category", "?category=auth"},
		{"event outside category", "?category=admin&eventType=initiative_joined"},
		{"bad user id", "?userId=nope"},
		{"bad date", "?startDate=03/10/2026"},
		{"inverted range", "?startDate=2026-03-10&endDate=2026-03-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			get(r, "/"+tt.query, &admin).AssertStatus(t, http.StatusBadRequest)
		})
	}
}

package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data. Documents are
// written directly, bypassing stores and the participation coordinator.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user with empty stats and initiative lists.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:       primitive.NewObjectID(),
		Name:     name,
		NameCI:   text.Fold(name),
		Email:    email,
		Password: "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3ZwHqRkHBLk1dR7gSGkzZe.", // "password"
		Role:     role,
		Initiatives: models.UserInitiatives{
			Joined:    []models.JoinedInitiative{},
			Organized: []primitive.ObjectID{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("CreateUser: %v", err)
	}
	return u
}

// CreateAdmin inserts an admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleAdmin)
}

// CreateInitiative inserts an upcoming, active initiative one week out.
func (f *Fixtures) CreateInitiative(ctx context.Context, title string, organizer primitive.ObjectID, maxParticipants int) models.Initiative {
	f.t.Helper()
	return f.CreateInitiativeFrom(ctx, models.Initiative{
		Title:           title,
		Organizer:       organizer,
		MaxParticipants: maxParticipants,
	})
}

// CreateInitiativeFrom inserts in after filling unset fields with test
// defaults.
func (f *Fixtures) CreateInitiativeFrom(ctx context.Context, in models.Initiative) models.Initiative {
	f.t.Helper()

	now := time.Now().UTC()
	if in.ID.IsZero() {
		in.ID = primitive.NewObjectID()
	}
	if in.Title == "" {
		in.Title = "Test Initiative"
	}
	in.TitleCI = text.Fold(in.Title)
	if in.Description == "" {
		in.Description = "A test initiative"
	}
	if in.Category == "" {
		in.Category = models.CategoryCleanup
	}
	if in.Status == "" {
		in.Status = models.InitiativeUpcoming
	}
	if in.Date.IsZero() {
		in.Date = now.Add(7 * 24 * time.Hour).Truncate(time.Millisecond)
	}
	if in.MaxParticipants == 0 {
		in.MaxParticipants = models.DefaultMaxParticipants
	}
	if in.Participants == nil {
		in.Participants = []models.Participant{}
	}
	if in.Location.City == "" {
		in.Location.City = "Springfield"
	}
	in.IsActive = true
	in.CreatedAt = now
	in.UpdatedAt = now

	if _, err := f.db.Collection("initiatives").InsertOne(ctx, in); err != nil {
		f.t.Fatalf("CreateInitiative: %v", err)
	}
	return in
}

// SeedParticipant pushes a roster entry without touching the user
// document. Used to simulate drift between the two sides.
func (f *Fixtures) SeedParticipant(ctx context.Context, initiativeID, userID primitive.ObjectID, joinedAt time.Time) {
	f.t.Helper()
	_, err := f.db.Collection("initiatives").UpdateByID(ctx, initiativeID, bson.M{
		"$push": bson.M{"participants": models.Participant{
			User:     userID,
			JoinedAt: joinedAt,
			Status:   models.ParticipationJoined,
		}},
	})
	if err != nil {
		f.t.Fatalf("SeedParticipant: %v", err)
	}
}

// SeedJoined pushes a joined entry and bumps the counter on the user
// without touching the roster.
func (f *Fixtures) SeedJoined(ctx context.Context, userID, initiativeID primitive.ObjectID) {
	f.t.Helper()
	_, err := f.db.Collection("users").UpdateByID(ctx, userID, bson.M{
		"$push": bson.M{"initiatives.joined": models.JoinedInitiative{
			Initiative: initiativeID,
			JoinedAt:   time.Now().UTC(),
			Status:     models.ParticipationJoined,
		}},
		"$inc": bson.M{"stats.initiatives_joined": 1},
	})
	if err != nil {
		f.t.Fatalf("SeedJoined: %v", err)
	}
}

// SetStats overwrites a user's stats.
func (f *Fixtures) SetStats(ctx context.Context, userID primitive.ObjectID, stats models.UserStats) {
	f.t.Helper()
	if _, err := f.db.Collection("users").UpdateByID(ctx, userID, bson.M{"$set": bson.M{"stats": stats}}); err != nil {
		f.t.Fatalf("SetStats: %v", err)
	}
}

// GetUser reloads a user.
func (f *Fixtures) GetUser(ctx context.Context, id primitive.ObjectID) models.User {
	f.t.Helper()
	var u models.User
	if err := f.db.Collection("users").FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		f.t.Fatalf("GetUser: %v", err)
	}
	return u
}

// GetInitiative reloads an initiative.
func (f *Fixtures) GetInitiative(ctx context.Context, id primitive.ObjectID) models.Initiative {
	f.t.Helper()
	var in models.Initiative
	if err := f.db.Collection("initiatives").FindOne(ctx, bson.M{"_id": id}).Decode(&in); err != nil {
		f.t.Fatalf("GetInitiative: %v", err)
	}
	return in
}

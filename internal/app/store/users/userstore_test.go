package userstore_test

import (
	"errors"
	"testing"
	"time"

	userstore "github.com/dalemusser/climatehub/internal/app/store/users"
	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/dalemusser/climatehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ensureEmailIndex(t *testing.T, db *mongo.Database) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
}

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Name:  "  Greta Nilsson ",
		Email: "Greta@Example.COM",
	}, "secret123")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Name != "Greta Nilsson" || created.NameCI == "" {
		t.Errorf("name = %q, name_ci = %q", created.Name, created.NameCI)
	}
	if created.Email != "greta@example.com" {
		t.Errorf("email = %q, want lowercased", created.Email)
	}
	if created.Role != models.RoleUser {
		t.Errorf("role = %q, want default user", created.Role)
	}
	if created.Password == "secret123" || !userstore.CheckPassword(&created, "secret123") {
		t.Error("password should be stored as a bcrypt hash")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := store.GetByEmail(ctx, "GRETA@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != created.ID {
		t.Error("GetByEmail returned a different user")
	}
	if got.Initiatives.Joined == nil || got.Stats.InitiativesJoined != 0 {
		t.Errorf("expected empty joined list and zero stats, got %+v", got)
	}
}

func TestStore_Create_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{Name: "A", Email: "a@example.com"}, "123"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("short password: err = %v, want validation", err)
	}
	if _, err := store.Create(ctx, models.User{Name: "A", Email: "a@example.com", Role: "owner"}, "secret123"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("bad role: err = %v, want validation", err)
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ensureEmailIndex(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{Name: "One", Email: "dup@example.com"}, "secret123"); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.User{Name: "Two", Email: "DUP@example.com"}, "secret123")
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_FirstAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.FirstAdmin(ctx); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("no admins: err = %v, want ErrNotFound", err)
	}

	fixtures.CreateUser(ctx, "Plain", "plain@example.com", models.RoleUser)
	first := fixtures.CreateAdmin(ctx, "First Admin", "first@example.com")
	time.Sleep(5 * time.Millisecond)
	fixtures.CreateAdmin(ctx, "Second Admin", "second@example.com")

	got, err := store.FirstAdmin(ctx)
	if err != nil {
		t.Fatalf("FirstAdmin failed: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("FirstAdmin = %s, want %s", got.Name, first.Name)
	}
}

func TestStore_UpdateProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Old Name", "p@example.com", models.RoleUser)
	fixtures.SetStats(ctx, u.ID, models.UserStats{TreesPlanted: 4})

	name := "New Name"
	gender := "Prefer-Not-To-Say"
	got, err := store.UpdateProfile(ctx, u.ID, userstore.ProfileUpdate{Name: &name, Gender: &gender})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if got.Name != "New Name" || got.Gender != "prefer not to say" {
		t.Errorf("got name %q gender %q", got.Name, got.Gender)
	}
	if got.Stats.TreesPlanted != 4 || got.Role != models.RoleUser || got.Password != u.Password {
		t.Error("profile update must not touch stats, role or password")
	}

	if _, err := store.UpdateProfile(ctx, primitive.NewObjectID(), userstore.ProfileUpdate{Name: &name}); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("missing user: err = %v, want ErrNotFound", err)
	}
}

func TestStore_SetRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Ann", "ann@example.com", models.RoleUser)
	if err := store.SetRole(ctx, u.ID, "Admin"); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}
	if got := fixtures.GetUser(ctx, u.ID); got.Role != models.RoleAdmin {
		t.Errorf("role = %q, want admin", got.Role)
	}
	if err := store.SetRole(ctx, u.ID, "owner"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("bad role: err = %v", err)
	}
	if err := store.SetRole(ctx, primitive.NewObjectID(), models.RoleAdmin); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("missing user: err = %v", err)
	}
}

func TestStore_ForEach(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateUser(ctx, "A", "a@example.com", models.RoleUser)
	fixtures.CreateUser(ctx, "B", "b@example.com", models.RoleUser)

	var seen int
	err := store.ForEach(ctx, func(u models.User) error {
		seen++
		if u.Password != "" {
			t.Error("password must be projected out")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach failed: %v", err)
	}
	if seen != 2 {
		t.Errorf("seen = %d, want 2", seen)
	}
}

func TestStore_NamesByIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, err := store.Create(ctx, models.User{Name: "Ada", Email: "ada@example.com"}, "secret123")
	if err != nil {
		t.Fatal(err)
	}
	b, err := store.Create(ctx, models.User{Name: "Bo", Email: "bo@example.com"}, "secret123")
	if err != nil {
		t.Fatal(err)
	}

	names, err := store.NamesByIDs(ctx, []primitive.ObjectID{a.ID, b.ID, primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("NamesByIDs: %v", err)
	}
	if len(names) != 2 || names[a.ID] != "Ada" || names[b.ID] != "Bo" {
		t.Errorf("names = %v", names)
	}

	empty, err := store.NamesByIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty ids = %v, %v", empty, err)
	}
}

func TestStore_ListAndUpdateAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ensureEmailIndex(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, u := range []models.User{
		{Name: "Zoe", Email: "zoe@example.com"},
		{Name: "Ängel", Email: "angel@example.com"},
		{Name: "Anders", Email: "anders@example.com", Role: models.RoleAdmin},
	} {
		if _, err := store.Create(ctx, u, "secret123"); err != nil {
			t.Fatal(err)
		}
	}

	all, total, err := store.List(ctx, userstore.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(all) != 3 || all[0].Name != "Anders" || all[2].Name != "Zoe" {
		t.Errorf("list = %d/%d, first %q", len(all), total, all[0].Name)
	}
	for _, u := range all {
		if u.Password != "" {
			t.Errorf("%s: password hash returned", u.Email)
		}
	}

	found, total, err := store.List(ctx, userstore.ListFilter{Search: "ang"})
	if err != nil || total != 1 || found[0].Email != "angel@example.com" {
		t.Errorf("search = %v (%d), %v", found, total, err)
	}
	admins, total, err := store.List(ctx, userstore.ListFilter{Role: "ADMIN"})
	if err != nil || total != 1 || admins[0].Name != "Anders" {
		t.Errorf("role filter = %v (%d), %v", admins, total, err)
	}

	zoe := all[2]
	name, email, role := " Zoe Park ", "ZPark@Example.com", models.RoleAdmin
	got, err := store.UpdateAccount(ctx, zoe.ID, userstore.AccountUpdate{Name: &name, Email: &email, Role: &role})
	if err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	if got.Name != "Zoe Park" || got.Email != "zpark@example.com" || got.Role != models.RoleAdmin {
		t.Errorf("updated = %+v", got)
	}

	taken := "anders@example.com"
	if _, err := store.UpdateAccount(ctx, zoe.ID, userstore.AccountUpdate{Email: &taken}); !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("duplicate email err = %v", err)
	}
	bad := "owner"
	if _, err := store.UpdateAccount(ctx, zoe.ID, userstore.AccountUpdate{Role: &bad}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("bad role err = %v", err)
	}
	if _, err := store.UpdateAccount(ctx, primitive.NewObjectID(), userstore.AccountUpdate{Name: &name}); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("missing user err = %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{Name: "Temp", Email: "temp@example.com"}, "secret123")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetByID(ctx, u.ID); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("after delete err = %v", err)
	}
	if err := store.Delete(ctx, u.ID); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

package userstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/app/system/normalize"
	"github.com/dalemusser/climatehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is enforced by Create.
const MinPasswordLength = 6

var (
	// ErrNotFound is returned when the user does not exist.
	ErrNotFound = apperr.NotFound("User not found")
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = apperr.Validation("User already exists")
	errBadRole        = apperr.Validation(`role must be "user" or "admin"`)
	errShortPassword  = apperr.Validation("Password must be at least 6 characters")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// FirstAdmin returns the oldest admin account, or ErrNotFound.
func (s *Store) FirstAdmin(ctx context.Context) (*models.User, error) {
	var u models.User
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if err := s.c.FindOne(ctx, bson.M{"role": models.RoleAdmin}, opts).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// Create inserts a new user after normalizing fields and hashing the
// password. Stats and initiative lists start empty.
func (s *Store) Create(ctx context.Context, u models.User, password string) (models.User, error) {
	if len(password) < MinPasswordLength {
		return models.User{}, errShortPassword
	}
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.NameCI = text.Fold(u.Name)
	u.Email = normalize.Email(u.Email)
	u.Role = normalize.Role(u.Role)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.Role != models.RoleUser && u.Role != models.RoleAdmin {
		return models.User{}, errBadRole
	}
	u.Gender = normalize.Gender(u.Gender)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	u.Password = string(hash)

	u.Initiatives = models.UserInitiatives{
		Joined:    []models.JoinedInitiative{},
		Organized: []primitive.ObjectID{},
	}
	u.Stats = models.UserStats{}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(u *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// SetRole changes a user's role.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	role = normalize.Role(role)
	if role != models.RoleUser && role != models.RoleAdmin {
		return errBadRole
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"role":       role,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ProfileUpdate holds the self-service profile fields. Nil pointers are
// left unchanged.
type ProfileUpdate struct {
	Name   *string
	Phone  *string
	Gender *string
	DOB    *time.Time
}

// UpdateProfile applies upd and returns the updated user. Password, role,
// stats and initiative lists are never touched here.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		name := normalize.Name(*upd.Name)
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if upd.Phone != nil {
		set["phone"] = *upd.Phone
	}
	if upd.Gender != nil {
		set["gender"] = normalize.Gender(*upd.Gender)
	}
	if upd.DOB != nil {
		set["dob"] = *upd.DOB
	}

	var u models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// ForEach streams every user to fn in _id order. Iteration stops at the
// first error fn returns.
func (s *Store) ForEach(ctx context.Context, fn func(models.User) error) error {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetProjection(bson.M{"password": 0})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return err
		}
		if err := fn(u); err != nil {
			return err
		}
	}
	return cur.Err()
}

// NamesByIDs returns the display name of each existing user in ids.
// Unknown ids are absent from the map.
func (s *Store) NamesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{"name": 1})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var u struct {
			ID   primitive.ObjectID `bson:"_id"`
			Name string             `bson:"name"`
		}
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u.Name
	}
	return out, cur.Err()
}

// ListFilter narrows List. Zero fields match everything.
type ListFilter struct {
	Role   string
	Search string // prefix of the folded name
	Skip   int64
	Limit  int64
}

// List returns accounts by name without password hashes, plus the total
// matching count.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.User, int64, error) {
	q := bson.M{}
	if f.Role != "" {
		q["role"] = normalize.Role(f.Role)
	}
	if f.Search != "" {
		q["name_ci"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(text.Fold(f.Search))}
	}
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"password": 0}).
		SetSkip(f.Skip)
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// AccountUpdate holds the admin-editable account fields. Nil pointers are
// left unchanged.
type AccountUpdate struct {
	Name  *string
	Email *string
	Role  *string
}

// UpdateAccount applies an admin edit and returns the updated user.
func (s *Store) UpdateAccount(ctx context.Context, id primitive.ObjectID, upd AccountUpdate) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		name := normalize.Name(*upd.Name)
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if upd.Email != nil {
		set["email"] = normalize.Email(*upd.Email)
	}
	if upd.Role != nil {
		role := normalize.Role(*upd.Role)
		if role != models.RoleUser && role != models.RoleAdmin {
			return nil, errBadRole
		}
		set["role"] = role
	}

	var u models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	if wafflemongo.IsDup(err) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// Delete removes the account document. Roster and comment cleanup is the
// caller's job.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

package initiativestore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/app/system/normalize"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when the initiative does not exist.
	ErrNotFound = apperr.NotFound("Initiative not found")
	// ErrFull is returned by AddParticipant when no spots remain.
	ErrFull = apperr.Conflict("Initiative is full")
	// ErrAlreadyJoined is returned by AddParticipant when the user already
	// holds an active roster entry.
	ErrAlreadyJoined = apperr.Conflict("Already joined this initiative")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("initiatives")}
}

// Create inserts an initiative, filling defaults (category conservation,
// status upcoming, capacity 100, active). The roster always starts empty.
func (s *Store) Create(ctx context.Context, in models.Initiative) (models.Initiative, error) {
	in.ID = primitive.NewObjectID()
	in.Title = normalize.Name(in.Title)
	in.TitleCI = text.Fold(in.Title)
	in.Category = normalize.Category(in.Category)
	if in.Category == "" {
		in.Category = models.CategoryConservation
	}
	in.Status = normalize.Status(in.Status)
	if in.Status == "" {
		in.Status = models.InitiativeUpcoming
	}
	if in.MaxParticipants <= 0 {
		in.MaxParticipants = models.DefaultMaxParticipants
	}
	in.Participants = []models.Participant{}
	in.IsActive = true

	now := time.Now().UTC()
	in.CreatedAt = now
	in.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, in); err != nil {
		return models.Initiative{}, err
	}
	return in, nil
}

// GetByID loads an initiative.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Initiative, error) {
	var in models.Initiative
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&in); err != nil {
		return nil, notFound(err)
	}
	return &in, nil
}

// ListFilter narrows List. Empty fields are ignored.
type ListFilter struct {
	Category string
	Status   string
	City     string // case-insensitive substring
	Skip     int64
	Limit    int64
}

// List returns active initiatives matching f, featured first then by date,
// plus the total number of matches.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Initiative, int64, error) {
	q := bson.M{"is_active": true}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.City != "" {
		q["location.city"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.City), Options: "i"}
	}

	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "featured", Value: -1}, {Key: "date", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(f.Skip)
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	out, err := s.find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update holds the editable fields. Nil pointers are left unchanged. The
// roster and organizer are not editable here.
type Update struct {
	Title           *string
	Description     *string
	Category        *string
	Status          *string
	Date            *time.Time
	Time            *string
	Location        *models.Location
	MaxParticipants *int
	Requirements    *[]string
	Materials       *[]string
	Impact          *models.Impact
	Images          *[]string
	ContactInfo     *models.ContactInfo
	IsActive        *bool
	Featured        *bool
}

// Update applies upd and returns the updated initiative. Lowering
// max_participants below the current roster size is rejected.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Initiative, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		t := normalize.Name(*upd.Title)
		set["title"] = t
		set["title_ci"] = text.Fold(t)
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Category != nil {
		set["category"] = normalize.Category(*upd.Category)
	}
	if upd.Status != nil {
		set["status"] = normalize.Status(*upd.Status)
	}
	if upd.Date != nil {
		set["date"] = *upd.Date
	}
	if upd.Time != nil {
		set["time"] = *upd.Time
	}
	if upd.Location != nil {
		set["location"] = *upd.Location
	}
	if upd.Requirements != nil {
		set["requirements"] = *upd.Requirements
	}
	if upd.Materials != nil {
		set["materials"] = *upd.Materials
	}
	if upd.Impact != nil {
		set["impact"] = *upd.Impact
	}
	if upd.Images != nil {
		set["images"] = *upd.Images
	}
	if upd.ContactInfo != nil {
		set["contact_info"] = *upd.ContactInfo
	}
	if upd.IsActive != nil {
		set["is_active"] = *upd.IsActive
	}
	if upd.Featured != nil {
		set["featured"] = *upd.Featured
	}

	filter := bson.M{"_id": id}
	if upd.MaxParticipants != nil {
		set["max_participants"] = *upd.MaxParticipants
		filter["$expr"] = bson.M{"$lte": bson.A{
			bson.M{"$size": bson.M{"$ifNull": bson.A{"$participants", bson.A{}}}},
			*upd.MaxParticipants,
		}}
	}

	var in models.Initiative
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&in)
	if errors.Is(err, mongo.ErrNoDocuments) && upd.MaxParticipants != nil {
		if _, gerr := s.GetByID(ctx, id); gerr != nil {
			return nil, gerr
		}
		return nil, apperr.Validation("Max participants cannot be lower than the current participant count")
	}
	if err != nil {
		return nil, notFound(err)
	}
	return &in, nil
}

// Delete removes the initiative and returns it as it was.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (*models.Initiative, error) {
	var in models.Initiative
	if err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&in); err != nil {
		return nil, notFound(err)
	}
	return &in, nil
}

// SetOrganizer hands the initiative to userID.
func (s *Store) SetOrganizer(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"organizer":  userID,
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

// FindByIDs loads the given initiatives, in no particular order.
func (s *Store) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Initiative, error) {
	if len(ids) == 0 {
		return []models.Initiative{}, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

// FindByOrganizer returns the initiatives organized by userID, newest
// first.
func (s *Store) FindByOrganizer(ctx context.Context, userID primitive.ObjectID) ([]models.Initiative, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return s.find(ctx, bson.M{"organizer": userID}, opts)
}

// FindByParticipant returns every initiative whose roster mentions userID.
func (s *Store) FindByParticipant(ctx context.Context, userID primitive.ObjectID) ([]models.Initiative, error) {
	return s.find(ctx, bson.M{"participants.user": userID}, options.Find())
}

// Recommended returns up to limit active, upcoming initiatives dated at or
// after now that are not in exclude, featured first then soonest.
func (s *Store) Recommended(ctx context.Context, exclude []primitive.ObjectID, now time.Time, limit int64) ([]models.Initiative, error) {
	q := bson.M{
		"status":    models.InitiativeUpcoming,
		"date":      bson.M{"$gte": now},
		"is_active": true,
	}
	if len(exclude) > 0 {
		q["_id"] = bson.M{"$nin": exclude}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "featured", Value: -1}, {Key: "date", Value: 1}}).
		SetLimit(limit)
	return s.find(ctx, q, opts)
}

func (s *Store) find(ctx context.Context, q bson.M, opts *options.FindOptions) ([]models.Initiative, error) {
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Initiative{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

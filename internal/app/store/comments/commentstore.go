package commentstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when the comment does not exist or is not the
// caller's.
var ErrNotFound = apperr.NotFound("Comment not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("comments")}
}

// Create inserts a comment. Category defaults to general, tags are trimmed
// and blanks dropped, and likes start at zero.
func (s *Store) Create(ctx context.Context, cm models.Comment) (models.Comment, error) {
	cm.ID = primitive.NewObjectID()
	cm.Text = strings.TrimSpace(cm.Text)
	if cm.Category == "" {
		cm.Category = models.CommentGeneral
	}
	cm.Tags = cleanTags(cm.Tags)
	cm.Likes = 0
	now := time.Now().UTC()
	cm.CreatedAt = now
	cm.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, cm); err != nil {
		return models.Comment{}, err
	}
	return cm, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// GetByID loads a comment.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var cm models.Comment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&cm); err != nil {
		return nil, notFound(err)
	}
	return &cm, nil
}

// ListFilter narrows List. Nil and zero fields match everything.
type ListFilter struct {
	UserID    *primitive.ObjectID
	ArticleID *primitive.ObjectID
	Public    *bool
	Skip      int64
	Limit     int64
}

func (f ListFilter) query() bson.M {
	q := bson.M{}
	if f.UserID != nil {
		q["user_id"] = *f.UserID
	}
	if f.ArticleID != nil {
		q["article_id"] = *f.ArticleID
	}
	if f.Public != nil {
		q["is_public"] = *f.Public
	}
	return q
}

// List returns matching comments newest first, plus the total count.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Comment, int64, error) {
	q := f.query()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(f.Skip)
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.Comment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SetPublic publishes or hides a comment and returns it.
func (s *Store) SetPublic(ctx context.Context, id primitive.ObjectID, public bool) (*models.Comment, error) {
	var cm models.Comment
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"is_public": public, "updated_at": time.Now().UTC()}}
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&cm); err != nil {
		return nil, notFound(err)
	}
	return &cm, nil
}

// Delete removes a comment and returns it as it was.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var cm models.Comment
	if err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&cm); err != nil {
		return nil, notFound(err)
	}
	return &cm, nil
}

// DeleteOwned removes a comment only when userID wrote it.
func (s *Store) DeleteOwned(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByUser removes every comment userID wrote.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

package initiativestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/climatehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Roster methods are the only writers of the participants array.

// addAttempts bounds re-classification when a conditional push matches
// nothing but a re-read shows the join should have been possible (a
// concurrent leave between the two reads).
const addAttempts = 3

// AddParticipant appends {user, joinedAt, joined} in one conditional update
// that requires the user to hold no active entry and the roster to be below
// capacity. When the update matches nothing the document is re-read to
// report ErrNotFound, ErrFull or ErrAlreadyJoined.
func (s *Store) AddParticipant(ctx context.Context, id, userID primitive.ObjectID, joinedAt time.Time) (*models.Initiative, error) {
	filter := bson.M{
		"_id": id,
		"participants": bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"user":   userID,
			"status": bson.M{"$ne": models.ParticipationCancelled},
		}}},
		"$expr": bson.M{"$lt": bson.A{
			bson.M{"$size": bson.M{"$ifNull": bson.A{"$participants", bson.A{}}}},
			"$max_participants",
		}},
	}
	update := bson.M{
		"$push": bson.M{"participants": models.Participant{
			User:     userID,
			JoinedAt: joinedAt,
			Status:   models.ParticipationJoined,
		}},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	for attempt := 0; attempt < addAttempts; attempt++ {
		var in models.Initiative
		err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&in)
		if err == nil {
			return &in, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}

		cur, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if cur.IsFull() {
			return nil, ErrFull
		}
		if cur.HasActiveParticipant(userID) {
			return nil, ErrAlreadyJoined
		}
	}
	return nil, ErrFull
}

// RemoveParticipant pulls every roster entry for userID and returns the
// updated initiative. removed reports whether an entry was present.
func (s *Store) RemoveParticipant(ctx context.Context, id, userID primitive.ObjectID) (in *models.Initiative, removed bool, err error) {
	update := bson.M{
		"$pull": bson.M{"participants": bson.M{"user": userID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before models.Initiative
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&before); err != nil {
		return nil, false, notFound(err)
	}

	_, removed = before.Participant(userID)
	after := before
	after.Participants = make([]models.Participant, 0, len(before.Participants))
	for _, p := range before.Participants {
		if p.User != userID {
			after.Participants = append(after.Participants, p)
		}
	}
	return &after, removed, nil
}

// SetParticipantStatus sets the status of the user's active roster entry.
// It returns false when no such entry exists.
func (s *Store) SetParticipantStatus(ctx context.Context, id, userID primitive.ObjectID, status string) (bool, error) {
	filter := bson.M{
		"_id": id,
		"participants": bson.M{"$elemMatch": bson.M{
			"user":   userID,
			"status": bson.M{"$ne": models.ParticipationCancelled},
		}},
	}
	update := bson.M{"$set": bson.M{
		"participants.$.status": status,
		"updated_at":            time.Now().UTC(),
	}}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

package userstore

import (
	"context"
	"time"

	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ledger methods are the only writers of initiatives.joined,
// initiatives.organized and stats.*. Each is a single guarded update so a
// retried or repeated call never double counts.

// ErrNotJoined is returned by RecordCompletion when the user holds no
// joined entry for the initiative.
var ErrNotJoined = apperr.NotFound("User has not joined this initiative")

// RecordJoin appends a joined entry and increments stats.initiatives_joined.
// applied is false when an entry for the initiative already existed.
func (s *Store) RecordJoin(ctx context.Context, userID, initiativeID primitive.ObjectID, joinedAt time.Time) (applied bool, err error) {
	filter := bson.M{
		"_id":                           userID,
		"initiatives.joined.initiative": bson.M{"$ne": initiativeID},
	}
	update := bson.M{
		"$push": bson.M{"initiatives.joined": models.JoinedInitiative{
			Initiative: initiativeID,
			JoinedAt:   joinedAt,
			Status:     models.ParticipationJoined,
		}},
		"$inc": bson.M{"stats.initiatives_joined": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	return false, s.mustExist(ctx, userID)
}

// RecordLeave pulls every joined entry for the initiative and decrements
// stats.initiatives_joined only when an entry was present. removed reports
// whether anything changed.
func (s *Store) RecordLeave(ctx context.Context, userID, initiativeID primitive.ObjectID) (removed bool, err error) {
	filter := bson.M{
		"_id":                           userID,
		"initiatives.joined.initiative": initiativeID,
	}
	update := bson.M{
		"$pull": bson.M{"initiatives.joined": bson.M{"initiative": initiativeID}},
		"$inc":  bson.M{"stats.initiatives_joined": -1},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// Completion is the impact credited when a joined entry is completed.
type Completion struct {
	CO2Reduced     float64
	TreesPlanted   float64
	WasteCollected float64
}

// RecordCompletion marks the user's joined entry completed, increments
// stats.initiatives_completed and adds the impact amounts. An entry that
// is already completed is left alone (applied=false). ErrNotJoined when the
// user holds no active entry for the initiative.
func (s *Store) RecordCompletion(ctx context.Context, userID, initiativeID primitive.ObjectID, c Completion) (applied bool, err error) {
	if c.CO2Reduced < 0 || c.TreesPlanted < 0 || c.WasteCollected < 0 {
		return false, apperr.Validation("Impact values cannot be negative")
	}
	filter := bson.M{
		"_id": userID,
		"initiatives.joined": bson.M{"$elemMatch": bson.M{
			"initiative": initiativeID,
			"status":     bson.M{"$nin": bson.A{models.ParticipationCompleted, models.ParticipationCancelled}},
		}},
	}
	update := bson.M{
		"$set": bson.M{
			"initiatives.joined.$.status": models.ParticipationCompleted,
			"updated_at":                  time.Now().UTC(),
		},
		"$inc": bson.M{
			"stats.initiatives_completed": 1,
			"stats.co2_reduced":           c.CO2Reduced,
			"stats.trees_planted":         c.TreesPlanted,
			"stats.waste_collected":       c.WasteCollected,
		},
	}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, j := range u.Initiatives.Joined {
		if j.Initiative == initiativeID && j.Status == models.ParticipationCompleted {
			return false, nil
		}
	}
	return false, ErrNotJoined
}

// RecordOrganized adds the initiative to initiatives.organized and
// increments stats.initiatives_organized once.
func (s *Store) RecordOrganized(ctx context.Context, userID, initiativeID primitive.ObjectID) (applied bool, err error) {
	filter := bson.M{
		"_id":                   userID,
		"initiatives.organized": bson.M{"$ne": initiativeID},
	}
	update := bson.M{
		"$push": bson.M{"initiatives.organized": initiativeID},
		"$inc":  bson.M{"stats.initiatives_organized": 1},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	return false, s.mustExist(ctx, userID)
}

// RecordUnorganized removes the initiative from initiatives.organized and
// decrements the counter only when it was present.
func (s *Store) RecordUnorganized(ctx context.Context, userID, initiativeID primitive.ObjectID) (removed bool, err error) {
	filter := bson.M{"_id": userID, "initiatives.organized": initiativeID}
	update := bson.M{
		"$pull": bson.M{"initiatives.organized": initiativeID},
		"$inc":  bson.M{"stats.initiatives_organized": -1},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// ReplaceJoined overwrites the joined list and sets
// stats.initiatives_joined to its length. Used only by reconciliation. The
// write is conditioned on the list still matching expect so a concurrent
// join or leave is not clobbered; applied is false in that case.
func (s *Store) ReplaceJoined(ctx context.Context, userID primitive.ObjectID, expect, joined []models.JoinedInitiative) (applied bool, err error) {
	if expect == nil {
		expect = []models.JoinedInitiative{}
	}
	if joined == nil {
		joined = []models.JoinedInitiative{}
	}
	filter := bson.M{"_id": userID, "initiatives.joined": expect}
	if len(expect) == 0 {
		// Missing, null and empty all count as an empty list.
		filter = bson.M{"_id": userID, "$or": bson.A{
			bson.M{"initiatives.joined": bson.M{"$exists": false}},
			bson.M{"initiatives.joined": nil},
			bson.M{"initiatives.joined": bson.M{"$size": 0}},
		}}
	}
	update := bson.M{"$set": bson.M{
		"initiatives.joined":       joined,
		"stats.initiatives_joined": len(joined),
		"updated_at":               time.Now().UTC(),
	}}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (s *Store) mustExist(ctx context.Context, userID primitive.ObjectID) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": userID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryParticipation = "participation"
	CategoryAdmin         = "admin"
	CategoryMaintenance   = "maintenance"
)

// Participation event types
const (
	EventJoined              = "initiative_joined"
	EventLeft                = "initiative_left"
	EventCompleted           = "initiative_completed"
	EventJoinCompensated     = "join_compensated"
	EventCompensationFailed  = "join_compensation_failed"
	EventInitiativeOrganized = "initiative_organized"
	EventInitiativeRetired   = "initiative_retired"
)

// Admin event types
const (
	EventUserRegistered = "user_registered"
	EventArticleCreated = "article_created"
	EventArticleUpdated = "article_updated"
	EventArticleDeleted = "article_deleted"
	EventUserUpdated    = "user_updated"
	EventUserRemoved    = "user_removed"
	EventCommentUpdated = "comment_updated"
	EventCommentDeleted = "comment_deleted"
)

// Maintenance event types
const (
	EventReconcileRepaired = "reconcile_repaired"
)

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`

	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	UserID       *primitive.ObjectID `bson:"user_id,omitempty"`  // affected user
	ActorID      *primitive.ObjectID `bson:"actor_id,omitempty"` // who performed the action, when different
	InitiativeID *primitive.ObjectID `bson:"initiative_id,omitempty"`

	// OperationID ties together the steps of one join/leave flow.
	OperationID string `bson:"op_id,omitempty"`

	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	UserID       *primitive.ObjectID
	InitiativeID *primitive.ObjectID
	Category     string
	EventType    string
	StartTime    *time.Time
	EndTime      *time.Time
	Limit        int64
	Offset       int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

func (f QueryFilter) query() bson.M {
	q := bson.M{}
	if f.UserID != nil {
		q["user_id"] = f.UserID
	}
	if f.InitiativeID != nil {
		q["initiative_id"] = f.InitiativeID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	if f.StartTime != nil || f.EndTime != nil {
		tq := bson.M{}
		if f.StartTime != nil {
			tq["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			tq["$lte"] = *f.EndTime
		}
		q["timestamp"] = tq
	}
	return q
}

// Query retrieves audit events matching the given filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cur, err := s.c.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.query())
}

// GetByUser retrieves recent audit events for a specific user.
func (s *Store) GetByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{UserID: &userID, Limit: limit})
}

// GetByInitiative retrieves recent audit events for an initiative.
func (s *Store) GetByInitiative(ctx context.Context, initiativeID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{InitiativeID: &initiativeID, Limit: limit})
}

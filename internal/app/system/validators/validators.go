// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/climatehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("initiatives", initiativesSchema())
	ensure("articles", articlesSchema())
	ensure("comments", commentsSchema())

	// Audit events are written only by the audit store; no validator.
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	counter  = bson.M{"bsonType": bson.A{"int", "long", "double"}, "minimum": 0}
	objectID = bson.M{"bsonType": "objectId"}
)

func toArray(vals []string) bson.A {
	out := make(bson.A, 0, len(vals))
	for _, v := range vals {
		out = append(out, v)
	}
	return out
}

var participationStatuses = bson.A{
	models.ParticipationJoined,
	models.ParticipationAttended,
	models.ParticipationCompleted,
	models.ParticipationCancelled,
}

// usersSchema rejects negative counters, so a ledger decrement that would
// drive stats below zero fails at the server.
func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "email", "password", "role"},
			"properties": bson.M{
				"name":     nonBlank,
				"email":    nonBlank,
				"password": nonBlank,
				"role":     bson.M{"enum": bson.A{models.RoleUser, models.RoleAdmin}},
				"gender":   bson.M{"enum": bson.A{"male", "female", "other", "prefer not to say"}},
				"initiatives": bson.M{
					"bsonType": "object",
					"properties": bson.M{
						"joined": bson.M{
							"bsonType": "array",
							"items": bson.M{
								"bsonType": "object",
								"required": bson.A{"initiative", "status"},
								"properties": bson.M{
									"initiative": objectID,
									"status":     bson.M{"enum": participationStatuses},
								},
							},
						},
						"organized": bson.M{"bsonType": "array", "items": objectID},
					},
				},
				"stats": bson.M{
					"bsonType": "object",
					"properties": bson.M{
						"initiatives_joined":    counter,
						"initiatives_completed": counter,
						"initiatives_organized": counter,
						"co2_reduced":           counter,
						"trees_planted":         counter,
						"waste_collected":       counter,
					},
				},
			},
		},
	}
}

func initiativesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "category", "status", "organizer", "participants", "max_participants"},
			"properties": bson.M{
				"title":            nonBlank,
				"category":         bson.M{"enum": toArray(models.Categories)},
				"status":           bson.M{"enum": toArray(models.InitiativeStatuses)},
				"organizer":        objectID,
				"max_participants": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
				"participants": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"user", "status"},
						"properties": bson.M{
							"user":   objectID,
							"status": bson.M{"enum": participationStatuses},
						},
					},
				},
			},
		},
	}
}

func articlesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "content"},
			"properties": bson.M{
				"title":   nonBlank,
				"content": bson.M{"bsonType": "string"},
			},
		},
	}
}

func commentsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "text", "author", "category", "is_public"},
			"properties": bson.M{
				"user_id":    objectID,
				"article_id": objectID,
				"text":       bson.M{"bsonType": "string", "minLength": 1, "maxLength": models.MaxCommentLength, "pattern": ".*\\S.*"},
				"author":     nonBlank,
				"category":   bson.M{"enum": toArray(models.CommentCategories)},
				"likes":      counter,
				"is_public":  bson.M{"bsonType": "bool"},
			},
		},
	}
}

package metricsstore

import (
	"context"

	"github.com/dalemusser/climatehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of community totals shown on the public stats page.
type Counts struct {
	Users                int64 `json:"users"`
	Articles             int64 `json:"articles"`
	Initiatives          int64 `json:"initiatives"`
	ActiveInitiatives    int64 `json:"activeInitiatives"`
	CompletedInitiatives int64 `json:"completedInitiatives"`
}

// FetchCommunityCounts returns the high-level counts for the public stats
// page. Intentionally tolerant: on error it returns 0 for that counter.
func FetchCommunityCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts

	if n, err := db.Collection("users").CountDocuments(ctx, bson.M{}); err == nil {
		out.Users = n
	}

	if n, err := db.Collection("articles").CountDocuments(ctx, bson.M{}); err == nil {
		out.Articles = n
	}

	initiatives := db.Collection("initiatives")
	if n, err := initiatives.CountDocuments(ctx, bson.M{}); err == nil {
		out.Initiatives = n
	}

	// active: listed and not yet finished
	activeFilter := bson.M{
		"is_active": true,
		"status":    bson.M{"$in": bson.A{models.InitiativeUpcoming, models.InitiativeOngoing}},
	}
	if n, err := initiatives.CountDocuments(ctx, activeFilter); err == nil {
		out.ActiveInitiatives = n
	}

	if n, err := initiatives.CountDocuments(ctx, bson.M{"status": models.InitiativeCompleted}); err == nil {
		out.CompletedInitiatives = n
	}

	return out
}

// Impact is the measured outcome summed over every user.
type Impact struct {
	CO2Reduced     float64 `bson:"co2_reduced" json:"co2Reduced"`
	TreesPlanted   float64 `bson:"trees_planted" json:"treesPlanted"`
	WasteCollected float64 `bson:"waste_collected" json:"wasteCollected"`
	Completions    int64   `bson:"completions" json:"completions"`
}

// FetchCommunityImpact sums user stats. Like FetchCommunityCounts it
// returns zeros when the aggregation fails.
func FetchCommunityImpact(ctx context.Context, db *mongo.Database) Impact {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":             nil,
			"co2_reduced":     bson.M{"$sum": "$stats.co2_reduced"},
			"trees_planted":   bson.M{"$sum": "$stats.trees_planted"},
			"waste_collected": bson.M{"$sum": "$stats.waste_collected"},
			"completions":     bson.M{"$sum": "$stats.initiatives_completed"},
		}}},
	}

	var out Impact
	cur, err := db.Collection("users").Aggregate(ctx, pipeline)
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	if cur.Next(ctx) {
		_ = cur.Decode(&out)
	}
	return out
}

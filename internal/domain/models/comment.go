// internal/domain/models/comment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment categories.
const (
	CommentObservation = "observation"
	CommentExperience  = "experience"
	CommentTip         = "tip"
	CommentQuestion    = "question"
	CommentGeneral     = "general"
)

// CommentCategories lists every valid comment category.
var CommentCategories = []string{
	CommentObservation,
	CommentExperience,
	CommentTip,
	CommentQuestion,
	CommentGeneral,
}

// MaxCommentLength bounds Comment.Text.
const MaxCommentLength = 1000

// Comment is a member's note, either free-standing on their dashboard or
// attached to an article. Comments stay private until an admin publishes
// them.
type Comment struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID  `bson:"user_id" json:"userId"`
	ArticleID *primitive.ObjectID `bson:"article_id,omitempty" json:"articleId,omitempty"`
	Text      string              `bson:"text" json:"text"`
	Author    string              `bson:"author" json:"author"`
	Category  string              `bson:"category" json:"category"`
	Tags      []string            `bson:"tags" json:"tags"`
	Likes     int                 `bson:"likes" json:"likes"`
	IsPublic  bool                `bson:"is_public" json:"isPublic"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsValidCommentCategory reports whether c is a known comment category.
func IsValidCommentCategory(c string) bool {
	for _, v := range CommentCategories {
		if v == c {
			return true
		}
	}
	return false
}

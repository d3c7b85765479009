// internal/app/features/comments/types.go
package comments

import (
	"github.com/dalemusser/climatehub/internal/app/features/shared/views"
	"github.com/dalemusser/climatehub/internal/domain/models"
)

type createInput struct {
	Text     string   `json:"text" validate:"required,max=1000" label:"Text"`
	Category string   `json:"category" validate:"omitempty,commentcategory" label:"Category"`
	Tags     []string `json:"tags" validate:"max=10,dive,max=40" label:"Tags"`
}

type moderateInput struct {
	IsPublic *bool `json:"isPublic" validate:"required" label:"isPublic"`
}

// moderationItem is a comment with its author's account resolved.
type moderationItem struct {
	models.Comment
	User views.UserRef `json:"user"`
}

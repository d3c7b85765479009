// internal/app/features/comments/moderation.go
package comments

import (
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	"github.com/dalemusser/climatehub/internal/app/features/shared/views"
	"github.com/dalemusser/climatehub/internal/app/store/audit"
	commentstore "github.com/dalemusser/climatehub/internal/app/store/comments"
	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/app/system/authz"
	"github.com/dalemusser/climatehub/internal/app/system/inputval"
	"github.com/dalemusser/climatehub/internal/app/system/paging"
	"github.com/dalemusser/climatehub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServeModeration handles GET /api/admin/comments. Filters: public
// (true/false), userId, articleId, plus page and limit.
func (h *Handler) ServeModeration(w http.ResponseWriter, r *http.Request) {
	f, err := parseModerationFilter(r)
	if err != nil {
		h.ErrLog.Write(w, r, "list comments", err)
		return
	}
	p := paging.Parse(r)
	f.Skip, f.Limit = p.Skip(), p.Limit64()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list comments")
	defer cancel()

	list, total, err := h.Comments.List(ctx, f)
	if err != nil {
		h.ErrLog.Write(w, r, "list comments", err)
		return
	}

	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	for _, c := range list {
		if _, ok := seen[c.UserID]; !ok {
			seen[c.UserID] = struct{}{}
			ids = append(ids, c.UserID)
		}
	}
	names, err := h.Users.NamesByIDs(ctx, ids)
	if err != nil {
		h.Log.Warn("failed to fetch user names for comments", zap.Error(err))
	}

	items := make([]moderationItem, 0, len(list))
	for _, c := range list {
		items = append(items, moderationItem{Comment: c, User: views.UserRef{ID: c.UserID, Name: names[c.UserID]}})
	}
	paging.SetTotal(w, total)
	uierrors.JSON(w, http.StatusOK, items)
}

func parseModerationFilter(r *http.Request) (commentstore.ListFilter, error) {
	q := r.URL.Query()
	var f commentstore.ListFilter
	if s := q.Get("public"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return f, apperr.Validation("public must be true or false")
		}
		f.Public = &b
	}
	for key, dst := range map[string]**primitive.ObjectID{"userId": &f.UserID, "articleId": &f.ArticleID} {
		s := q.Get(key)
		if s == "" {
			continue
		}
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return f, apperr.Validation(key + " is not a valid id")
		}
		*dst = &id
	}
	return f, nil
}

// Moderate publishes or hides a comment.
func (h *Handler) Moderate(w http.ResponseWriter, r *http.Request) {
	_, actor, _ := authz.UserCtx(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "commentId"))
	if err != nil {
		h.ErrLog.Write(w, r, "moderate comment", commentstore.ErrNotFound)
		return
	}

	var in moderateInput
	if err := uierrors.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "moderate comment", err)
		return
	}
	if v := inputval.Validate(in); v.HasErrors() {
		uierrors.WriteMessage(w, http.StatusBadRequest, v.First())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "moderate comment")
	defer cancel()

	c, err := h.Comments.SetPublic(ctx, id, *in.IsPublic)
	if err != nil {
		h.ErrLog.Write(w, r, "moderate comment", err)
		return
	}

	h.Audit.CommentModerated(ctx, audit.EventCommentUpdated, actor, c.UserID, c.ID)
	names, err := h.Users.NamesByIDs(ctx, []primitive.ObjectID{c.UserID})
	if err != nil {
		h.Log.Warn("failed to fetch comment author name", zap.Error(err))
	}
	uierrors.JSON(w, http.StatusOK, moderationItem{Comment: *c, User: views.UserRef{ID: c.UserID, Name: names[c.UserID]}})
}

// Remove deletes any comment.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	_, actor, _ := authz.UserCtx(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "commentId"))
	if err != nil {
		h.ErrLog.Write(w, r, "delete comment", commentstore.ErrNotFound)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete comment")
	defer cancel()

	c, err := h.Comments.Delete(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, "delete comment", err)
		return
	}

	h.Audit.CommentModerated(ctx, audit.EventCommentDeleted, actor, c.UserID, c.ID)
	uierrors.JSON(w, http.StatusOK, map[string]string{"message": "Comment deleted successfully"})
}

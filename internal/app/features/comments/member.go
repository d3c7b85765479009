// internal/app/features/comments/member.go
package comments

import (
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	commentstore "github.com/dalemusser/climatehub/internal/app/store/comments"
	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/app/system/authz"
	"github.com/dalemusser/climatehub/internal/app/system/inputval"
	"github.com/dalemusser/climatehub/internal/app/system/paging"
	"github.com/dalemusser/climatehub/internal/app/system/timeouts"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var errNoUser = apperr.Unauthorized("Token is not valid")

func caller(r *http.Request) (primitive.ObjectID, error) {
	_, uid, ok := authz.UserCtx(r)
	if !ok {
		return primitive.NilObjectID, errNoUser
	}
	return uid, nil
}

// ListMine serves the caller's comments newest first.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	uid, err := caller(r)
	if err != nil {
		h.ErrLog.Write(w, r, "list own comments", err)
		return
	}
	p := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list own comments")
	defer cancel()

	items, total, err := h.Comments.List(ctx, commentstore.ListFilter{UserID: &uid, Skip: p.Skip(), Limit: p.Limit64()})
	if err != nil {
		h.ErrLog.Write(w, r, "list own comments", err)
		return
	}
	paging.SetTotal(w, total)
	uierrors.JSON(w, http.StatusOK, items)
}

// Create adds a dashboard comment for the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, nil, "add comment")
}

// CreateForArticle adds a comment on the article named in the path.
func (h *Handler) CreateForArticle(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "comment on article", apperr.NotFound("Article not found"))
		return
	}
	h.create(w, r, &id, "comment on article")
}

// create stores a new private comment. Publishing is a moderation step.
func (h *Handler) create(w http.ResponseWriter, r *http.Request, articleID *primitive.ObjectID, op string) {
	uid, err := caller(r)
	if err != nil {
		h.ErrLog.Write(w, r, op, err)
		return
	}

	var in createInput
	if err := uierrors.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, op, err)
		return
	}
	in.Text = strings.TrimSpace(in.Text)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	if v := inputval.Validate(in); v.HasErrors() {
		uierrors.WriteMessage(w, http.StatusBadRequest, v.First())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()

	if articleID != nil {
		if _, err := h.Articles.GetByID(ctx, *articleID); err != nil {
			h.ErrLog.Write(w, r, op, err)
			return
		}
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.ErrLog.Write(w, r, op, err)
		return
	}

	created, err := h.Comments.Create(ctx, models.Comment{
		UserID:    uid,
		ArticleID: articleID,
		Text:      in.Text,
		Author:    authorName(u),
		Category:  in.Category,
		Tags:      in.Tags,
	})
	if err != nil {
		h.ErrLog.Write(w, r, op, err)
		return
	}

	h.Log.Info("comment added", zap.String("comment_id", created.ID.Hex()), zap.String("user_id", uid.Hex()))
	uierrors.JSON(w, http.StatusCreated, created)
}

// authorName is the display name stored on a comment: the account name,
// else the local part of the email.
func authorName(u *models.User) string {
	if u.Name != "" {
		return u.Name
	}
	if local, _, ok := strings.Cut(u.Email, "@"); ok && local != "" {
		return local
	}
	return "User"
}

// DeleteMine removes one of the caller's comments. Another member's
// comment answers 404.
func (h *Handler) DeleteMine(w http.ResponseWriter, r *http.Request) {
	uid, err := caller(r)
	if err != nil {
		h.ErrLog.Write(w, r, "delete own comment", err)
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "commentId"))
	if err != nil {
		h.ErrLog.Write(w, r, "delete own comment", commentstore.ErrNotFound)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete own comment")
	defer cancel()

	if err := h.Comments.DeleteOwned(ctx, id, uid); err != nil {
		h.ErrLog.Write(w, r, "delete own comment", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, map[string]string{"message": "Comment deleted successfully"})
}

// ListForArticle serves the published comments on an article.
func (h *Handler) ListForArticle(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "list article comments", apperr.NotFound("Article not found"))
		return
	}
	p := paging.Parse(r)
	public := true

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list article comments")
	defer cancel()

	items, total, err := h.Comments.List(ctx, commentstore.ListFilter{ArticleID: &id, Public: &public, Skip: p.Skip(), Limit: p.Limit64()})
	if err != nil {
		h.ErrLog.Write(w, r, "list article comments", err)
		return
	}
	paging.SetTotal(w, total)
	uierrors.JSON(w, http.StatusOK, items)
}

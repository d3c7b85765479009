// internal/app/features/articles/articles.go
package articles

import (
	"net/http"

	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	articlestore "github.com/dalemusser/climatehub/internal/app/store/articles"
	"github.com/dalemusser/climatehub/internal/app/store/audit"
	"github.com/dalemusser/climatehub/internal/app/system/authz"
	"github.com/dalemusser/climatehub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/climatehub/internal/app/system/inputval"
	"github.com/dalemusser/climatehub/internal/app/system/normalize"
	"github.com/dalemusser/climatehub/internal/app/system/paging"
	"github.com/dalemusser/climatehub/internal/app/system/timeouts"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// List serves articles newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list articles")
	defer cancel()

	items, total, err := h.Store.List(ctx, p.Skip(), p.Limit64())
	if err != nil {
		h.ErrLog.Write(w, r, "list articles", err)
		return
	}
	paging.SetTotal(w, total)
	uierrors.JSON(w, http.StatusOK, items)
}

// Show serves one article.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "get article", articlestore.ErrNotFound)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get article")
	defer cancel()

	a, err := h.Store.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, "get article", err)
		return
	}
	uierrors.JSON(w, http.StatusOK, a)
}

type createInput struct {
	Title   string `json:"title" validate:"required,max=300" label:"Title"`
	Content string `json:"content" validate:"required,max=200000" label:"Content"`
}

// Create publishes an article. Content is sanitized before storage.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	_, actor, _ := authz.UserCtx(r)

	var in createInput
	if err := uierrors.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "create article", err)
		return
	}
	in.Title = normalize.Name(in.Title)
	in.Content = htmlsanitize.PrepareForStorage(in.Content)
	if v := inputval.Validate(in); v.HasErrors() {
		uierrors.WriteMessage(w, http.StatusBadRequest, v.First())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create article")
	defer cancel()

	a := models.Article{Title: in.Title, Content: in.Content}
	if !actor.IsZero() {
		a.CreatedByID = &actor
	}
	created, err := h.Store.Create(ctx, a)
	if err != nil {
		h.ErrLog.Write(w, r, "create article", err)
		return
	}

	h.Audit.ArticleChanged(ctx, audit.EventArticleCreated, actor, created.ID)
	h.Log.Info("article created", zap.String("article_id", created.ID.Hex()))
	uierrors.JSON(w, http.StatusCreated, created)
}

type updateInput struct {
	Title   *string `json:"title" validate:"omitnil,min=1,max=300" label:"Title"`
	Content *string `json:"content" validate:"omitnil,min=1,max=200000" label:"Content"`
}

// Update edits an article's title or content.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	_, actor, _ := authz.UserCtx(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "update article", articlestore.ErrNotFound)
		return
	}

	var in updateInput
	if err := uierrors.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "update article", err)
		return
	}
	if in.Title != nil {
		t := normalize.Name(*in.Title)
		in.Title = &t
	}
	if in.Content != nil {
		c := htmlsanitize.PrepareForStorage(*in.Content)
		in.Content = &c
	}
	if v := inputval.Validate(in); v.HasErrors() {
		uierrors.WriteMessage(w, http.StatusBadRequest, v.First())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update article")
	defer cancel()

	a, err := h.Store.Update(ctx, id, in.Title, in.Content)
	if err != nil {
		h.ErrLog.Write(w, r, "update article", err)
		return
	}

	h.Audit.ArticleChanged(ctx, audit.EventArticleUpdated, actor, id)
	uierrors.JSON(w, http.StatusOK, a)
}

// Delete removes an article.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	_, actor, _ := authz.UserCtx(r)
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "delete article", articlestore.ErrNotFound)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete article")
	defer cancel()

	if err := h.Store.Delete(ctx, id); err != nil {
		h.ErrLog.Write(w, r, "delete article", err)
		return
	}

	h.Audit.ArticleChanged(ctx, audit.EventArticleDeleted, actor, id)
	uierrors.JSON(w, http.StatusOK, map[string]string{"message": "Article deleted successfully"})
}

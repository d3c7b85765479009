// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultLimit is the page size when the request gives none.
const DefaultLimit = 50

// MaxLimit caps the limit query parameter.
const MaxLimit = 100

// TotalHeader carries the unpaged result count on list responses.
const TotalHeader = "X-Total-Count"

// Params is a 1-based page and a page size.
type Params struct {
	Page  int
	Limit int
}

// Parse reads "page" and "limit" from the query string. Missing or invalid
// values fall back to page 1 and DefaultLimit; limit is clamped to
// MaxLimit.
func Parse(r *http.Request) Params {
	return Params{
		Page:  positive(query.Get(r, "page"), 1),
		Limit: min(positive(query.Get(r, "limit"), DefaultLimit), MaxLimit),
	}
}

func positive(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Skip is the number of documents before the page, for Find().SetSkip.
func (p Params) Skip() int64 {
	return int64(p.Page-1) * int64(p.Limit)
}

// Limit64 is the page size for Find().SetLimit.
func (p Params) Limit64() int64 { return int64(p.Limit) }

// Meta describes a page within a total.
type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// Meta computes page metadata for total results.
func (p Params) Meta(total int64) Meta {
	pages := int64(0)
	if p.Limit > 0 {
		pages = (total + int64(p.Limit) - 1) / int64(p.Limit)
	}
	return Meta{Page: p.Page, Limit: p.Limit, Total: total, Pages: pages}
}

// SetTotal writes the unpaged count header.
func SetTotal(w http.ResponseWriter, total int64) {
	w.Header().Set(TotalHeader, strconv.FormatInt(total, 10))
}

package errors_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/climatehub/internal/app/features/errors"
	initiativestore "github.com/dalemusser/climatehub/internal/app/store/initiatives"
	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", initiativestore.ErrNotFound, http.StatusNotFound},
		{"full", initiativestore.ErrFull, http.StatusBadRequest},
		{"already joined", initiativestore.ErrAlreadyJoined, http.StatusBadRequest},
		{"validation", apperr.Validation("bad"), http.StatusBadRequest},
		{"unauthorized", apperr.Unauthorized("who"), http.StatusUnauthorized},
		{"forbidden", apperr.Forbidden("no"), http.StatusForbidden},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"wrapped deadline", errors.Join(errors.New("find"), context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uierrors.Status(tt.err); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrite_PublicMessage(t *testing.T) {
	el := uierrors.NewErrorLogger(zap.NewNop())
	req := httptest.NewRequest("POST", "/api/initiatives/x/join", nil)
	rec := testutil.NewRecorder()

	el.Write(rec, req, "join", initiativestore.ErrFull)

	rec.AssertStatus(t, http.StatusBadRequest)
	if got := rec.ErrorMessage(t); got != "Initiative is full" {
		t.Errorf("error = %q", got)
	}
}

func TestWrite_InternalCauseIsLoggedNotEchoed(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	el := uierrors.NewErrorLogger(zap.New(core))
	req := httptest.NewRequest("GET", "/api/dashboard", nil)
	rec := httptest.NewRecorder()

	el.Write(rec, req, "load dashboard", errors.New("secret connection string leaked"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Errorf("body leaks cause: %s", rec.Body.String())
	}
	if logs.Len() != 1 {
		t.Fatalf("expected 1 error log, got %d", logs.Len())
	}
	if op := logs.All()[0].ContextMap()["op"]; op != "load dashboard" {
		t.Errorf("op field = %v", op)
	}
}

func TestWrite_UnavailableSetsRetryAfter(t *testing.T) {
	el := uierrors.NewErrorLogger(zap.NewNop())
	req := httptest.NewRequest("POST", "/api/initiatives/x/join", nil)
	rec := httptest.NewRecorder()

	el.Write(rec, req, "join", context.DeadlineExceeded)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != uierrors.RetryAfterSeconds {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}

func TestDecode(t *testing.T) {
	var v struct {
		Title string `json:"title"`
	}
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"title":"x","extra":1}`))
	if err := uierrors.Decode(httptest.NewRecorder(), req, &v); err != nil || v.Title != "x" {
		t.Fatalf("Decode = %v, %+v", err, v)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{not json`))
	err := uierrors.Decode(httptest.NewRecorder(), req, &v)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestFallbackHandlers(t *testing.T) {
	rec := httptest.NewRecorder()
	uierrors.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Route not found") {
		t.Errorf("NotFound = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	uierrors.MethodNotAllowed(rec, httptest.NewRequest(http.MethodPatch, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("MethodNotAllowed = %d", rec.Code)
	}
}

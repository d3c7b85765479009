// Package auth verifies bearer tokens and carries the authenticated user
// through the request context. Tokens are minted elsewhere; this package
// only checks them.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// MinSecretLength is the shortest HS256 secret ValidateConfig accepts.
const MinSecretLength = 32

// Claims is the token payload.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenUser is what the middleware injects into r.Context().
type TokenUser struct {
	ID    string
	Email string
	Role  string
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*TokenUser, bool) {
	return FromContext(r.Context())
}

// FromContext is CurrentUser for code that only holds a context.
func FromContext(ctx context.Context) (*TokenUser, bool) {
	u, ok := ctx.Value(currentUserKey).(*TokenUser)
	return u, ok && u != nil
}

// WithUser returns a copy of ctx carrying u. Handler tests use it to skip
// token verification.
func WithUser(ctx context.Context, u *TokenUser) context.Context {
	return context.WithValue(ctx, currentUserKey, u)
}

// Token verification failures.
var (
	ErrNoToken      = errors.New("no token, authorization denied or malformed token")
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

// UserFetcher reloads the account behind a token so role changes and
// deleted accounts take effect before the token expires. It returns nil
// when the account no longer exists.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *TokenUser
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret  []byte
	log     *zap.Logger
	now     func() time.Time
	fetcher UserFetcher
}

// WithFetcher makes LoadBearerUser refresh the user from f after the token
// verifies.
func (v *Verifier) WithFetcher(f UserFetcher) *Verifier {
	v.fetcher = f
	return v
}

// NewVerifier returns a Verifier. The secret must be at least
// MinSecretLength bytes.
func NewVerifier(secret string, log *zap.Logger) (*Verifier, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", MinSecretLength)
	}
	return &Verifier{secret: []byte(secret), log: log, now: time.Now}, nil
}

// Parse verifies tokenStr and returns its claims.
func (v *Verifier) Parse(tokenStr string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || c.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return c, nil
}

// LoadBearerUser injects the token's user into the context when an
// Authorization header is present. A present but bad token is rejected
// with 401; a missing header passes through so public routes still work.
func (v *Verifier) LoadBearerUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if h == "" {
			next.ServeHTTP(w, r)
			return
		}
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			writeError(w, http.StatusUnauthorized, "No token, authorization denied or malformed token")
			return
		}
		c, err := v.Parse(strings.TrimSpace(raw))
		if err != nil {
			if v.log != nil {
				v.log.Debug("bearer token rejected", zap.Error(err))
			}
			msg := "Token is invalid"
			if errors.Is(err, ErrTokenExpired) {
				msg = "Token has expired"
			}
			writeError(w, http.StatusUnauthorized, msg)
			return
		}
		u := &TokenUser{ID: c.UserID, Email: c.Email, Role: strings.ToLower(c.Role)}
		if v.fetcher != nil {
			fresh := v.fetcher.FetchUser(r.Context(), c.UserID)
			if fresh == nil {
				writeError(w, http.StatusUnauthorized, "Token is invalid")
				return
			}
			u = fresh
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// RequireSignedIn rejects requests without a user in context (set by
// LoadBearerUser) with a JSON 401.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			writeError(w, http.StatusUnauthorized, "No token, authorization denied or malformed token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole is RequireSignedIn plus a role check (403 on mismatch).
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "No token, authorization denied or malformed token")
				return
			}
			if _, has := set[u.Role]; !has {
				writeError(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/climatehub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is an account role.
type Role string

const (
	RoleVisitor Role = "visitor"
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
)

// ParseRole maps a stored or token role onto a Role. Unknown values are
// reported with ok=false.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return RoleVisitor, false
}

// Capability is something a role may be allowed to do.
type Capability int

const (
	// CapParticipate covers join, leave, dashboard and profile.
	CapParticipate Capability = iota
	// CapCreateInitiative lets the caller organize a new initiative.
	CapCreateInitiative
	// CapManageAnyInitiative allows edit/delete/complete on initiatives the
	// caller does not organize.
	CapManageAnyInitiative
	// CapManageArticles allows article writes.
	CapManageArticles
	// CapViewAnyStats allows reading another user's stats.
	CapViewAnyStats
)

var grants = map[Role]map[Capability]bool{
	RoleUser: {
		CapParticipate:      true,
		CapCreateInitiative: true,
	},
	RoleAdmin: {
		CapParticipate:         true,
		CapCreateInitiative:    true,
		CapManageAnyInitiative: true,
		CapManageArticles:      true,
		CapViewAnyStats:        true,
	},
}

// Can reports whether the role holds the capability.
func (r Role) Can(c Capability) bool {
	return grants[r][c]
}

// UserCtx returns the caller's role, id and a found flag. A missing user or
// a malformed id yields RoleVisitor, NilObjectID, false.
func UserCtx(r *http.Request) (role Role, userID primitive.ObjectID, ok bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return RoleVisitor, primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return RoleVisitor, primitive.NilObjectID, false
	}
	role, known := ParseRole(u.Role)
	if !known {
		return RoleVisitor, primitive.NilObjectID, false
	}
	return role, userID, true
}

// Can reports whether the caller holds the capability.
func Can(r *http.Request, c Capability) bool {
	role, _, ok := UserCtx(r)
	return ok && role.Can(c)
}

// IsAdmin reports whether the caller is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, ok := UserCtx(r)
	return ok && role == RoleAdmin
}

// CanManageInitiative reports whether the caller organizes the initiative
// or may manage any initiative.
func CanManageInitiative(r *http.Request, organizer primitive.ObjectID) bool {
	role, uid, ok := UserCtx(r)
	if !ok {
		return false
	}
	return role.Can(CapManageAnyInitiative) || (!organizer.IsZero() && organizer == uid)
}

// CanViewUser reports whether the caller may read the target user's data.
func CanViewUser(r *http.Request, target primitive.ObjectID) bool {
	role, uid, ok := UserCtx(r)
	if !ok {
		return false
	}
	return uid == target || role.Can(CapViewAnyStats)
}

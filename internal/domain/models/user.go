// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a user account can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Participation statuses shared by User.Initiatives.Joined entries and
// Initiative.Participants entries.
const (
	ParticipationJoined    = "joined"
	ParticipationAttended  = "attended"
	ParticipationCompleted = "completed"
	ParticipationCancelled = "cancelled"
)

// IsActiveParticipation reports whether a participation status still counts
// toward membership (everything except cancelled).
func IsActiveParticipation(status string) bool {
	return status != ParticipationCancelled
}

// User is a portal account.
//
// NOTE:
//   - Initiatives.Joined mirrors Initiative.Participants. The two are kept in
//     sync by the participation coordinator, never by handlers directly.
//   - Stats counters are only changed through the user store's ledger
//     methods (RecordJoin, RecordLeave, RecordCompletion, RecordOrganized).
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	NameCI   string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Email    string             `bson:"email" json:"email"`
	Password string             `bson:"password" json:"-"` // bcrypt hash
	Role     string             `bson:"role" json:"role"`  // user | admin

	Phone  string     `bson:"phone,omitempty" json:"phone,omitempty"`
	Gender string     `bson:"gender,omitempty" json:"gender,omitempty"`
	DOB    *time.Time `bson:"dob,omitempty" json:"dob,omitempty"`

	Initiatives UserInitiatives `bson:"initiatives" json:"initiatives"`
	Stats       UserStats       `bson:"stats" json:"stats"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// UserInitiatives holds the user-side view of initiative relationships.
type UserInitiatives struct {
	Joined    []JoinedInitiative   `bson:"joined" json:"joined"`
	Organized []primitive.ObjectID `bson:"organized" json:"organized"`
}

// JoinedInitiative is one entry of a user's joined list.
type JoinedInitiative struct {
	Initiative primitive.ObjectID `bson:"initiative" json:"initiative"`
	JoinedAt   time.Time          `bson:"joined_at" json:"joinedAt"`
	Status     string             `bson:"status" json:"status"`
}

// UserStats are the aggregate counters shown on dashboards and used for
// impact scoring.
type UserStats struct {
	InitiativesJoined    int     `bson:"initiatives_joined" json:"initiativesJoined"`
	InitiativesCompleted int     `bson:"initiatives_completed" json:"initiativesCompleted"`
	InitiativesOrganized int     `bson:"initiatives_organized" json:"initiativesOrganized"`
	CO2Reduced           float64 `bson:"co2_reduced" json:"co2Reduced"`
	TreesPlanted         float64 `bson:"trees_planted" json:"treesPlanted"`
	WasteCollected       float64 `bson:"waste_collected" json:"wasteCollected"`
}

// HasJoined reports whether the user's joined list already holds an active
// entry for the initiative.
func (u *User) HasJoined(initiativeID primitive.ObjectID) bool {
	for _, j := range u.Initiatives.Joined {
		if j.Initiative == initiativeID && IsActiveParticipation(j.Status) {
			return true
		}
	}
	return false
}

// JoinedIDs returns the initiative ids of every joined entry.
func (u *User) JoinedIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(u.Initiatives.Joined))
	for _, j := range u.Initiatives.Joined {
		ids = append(ids, j.Initiative)
	}
	return ids
}

// IsAdmin reports whether the account holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

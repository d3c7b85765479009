// internal/app/features/shared/views/views.go
package views

import (
	"time"

	"github.com/dalemusser/climatehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Joined is a joined-list entry with its initiative loaded. Initiative is
// nil when the initiative no longer exists.
type Joined struct {
	Initiative *models.Initiative `json:"initiative"`
	JoinedAt   time.Time          `json:"joinedAt"`
	Status     string             `json:"status"`
}

// PopulateJoined pairs each entry with its initiative from found, keeping
// entry order.
func PopulateJoined(entries []models.JoinedInitiative, found []models.Initiative) []Joined {
	byID := Index(found)
	out := make([]Joined, 0, len(entries))
	for _, e := range entries {
		j := Joined{JoinedAt: e.JoinedAt, Status: e.Status}
		if in, ok := byID[e.Initiative]; ok {
			j.Initiative = in
		}
		out = append(out, j)
	}
	return out
}

// Ordered returns the initiatives of found in ids order, skipping ids that
// were not found.
func Ordered(ids []primitive.ObjectID, found []models.Initiative) []models.Initiative {
	byID := Index(found)
	out := make([]models.Initiative, 0, len(ids))
	for _, id := range ids {
		if in, ok := byID[id]; ok {
			out = append(out, *in)
		}
	}
	return out
}

// Index maps initiatives by id.
func Index(found []models.Initiative) map[primitive.ObjectID]*models.Initiative {
	m := make(map[primitive.ObjectID]*models.Initiative, len(found))
	for i := range found {
		m[found[i].ID] = &found[i]
	}
	return m
}

// Profile is the public shape of a user account.
type Profile struct {
	ID        primitive.ObjectID `json:"id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Role      string             `json:"role"`
	Phone     string             `json:"phone,omitempty"`
	Gender    string             `json:"gender,omitempty"`
	DOB       *time.Time         `json:"dob,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

// ProfileOf builds a Profile from u.
func ProfileOf(u *models.User) Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Phone:     u.Phone,
		Gender:    u.Gender,
		DOB:       u.DOB,
		CreatedAt: u.CreatedAt,
	}
}

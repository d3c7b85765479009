// internal/app/features/shared/views/roster.go
package views

import (
	"encoding/json"
	"time"

	"github.com/dalemusser/climatehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRef is a user id with its display name.
type UserRef struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

// RosterEntry is a participant with the user's name filled in.
type RosterEntry struct {
	User     UserRef   `json:"user"`
	JoinedAt time.Time `json:"joinedAt"`
	Status   string    `json:"status"`
}

// WithRoster is an initiative whose participants carry names. It renders
// like the initiative itself with "participants" replaced.
type WithRoster struct {
	Initiative *models.Initiative
	Names      map[primitive.ObjectID]string
}

// ParticipantIDs returns the user id of every roster entry.
func ParticipantIDs(in *models.Initiative) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(in.Participants))
	for _, p := range in.Participants {
		ids = append(ids, p.User)
	}
	return ids
}

// Roster builds the named roster. Users missing from Names get an empty name.
func (w WithRoster) Roster() []RosterEntry {
	out := make([]RosterEntry, 0, len(w.Initiative.Participants))
	for _, p := range w.Initiative.Participants {
		out = append(out, RosterEntry{
			User:     UserRef{ID: p.User, Name: w.Names[p.User]},
			JoinedAt: p.JoinedAt,
			Status:   p.Status,
		})
	}
	return out
}

func (w WithRoster) MarshalJSON() ([]byte, error) {
	if w.Initiative == nil {
		return []byte("null"), nil
	}
	raw, err := json.Marshal(w.Initiative)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	roster, err := json.Marshal(w.Roster())
	if err != nil {
		return nil, err
	}
	fields["participants"] = roster
	return json.Marshal(fields)
}

// internal/domain/models/initiative.go
package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultMaxParticipants is used when an initiative is created without a
// capacity.
const DefaultMaxParticipants = 100

// Initiative categories.
const (
	CategoryReforestation = "reforestation"
	CategoryCleanup       = "cleanup"
	CategoryEducation     = "education"
	CategoryRenewable     = "renewable"
	CategoryConservation  = "conservation"
	CategoryRecycling     = "recycling"
)

// Initiative statuses.
const (
	InitiativeUpcoming  = "upcoming"
	InitiativeOngoing   = "ongoing"
	InitiativeCompleted = "completed"
	InitiativeCancelled = "cancelled"
)

// Categories lists every valid initiative category.
var Categories = []string{
	CategoryReforestation,
	CategoryCleanup,
	CategoryEducation,
	CategoryRenewable,
	CategoryConservation,
	CategoryRecycling,
}

// InitiativeStatuses lists every valid initiative status.
var InitiativeStatuses = []string{
	InitiativeUpcoming,
	InitiativeOngoing,
	InitiativeCompleted,
	InitiativeCancelled,
}

// Initiative is a scheduled community event with a capacity-bounded roster.
//
// Participants is the authoritative membership roster. The participant
// count, available spots and the full flag are derived and never stored.
type Initiative struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	TitleCI     string             `bson:"title_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"`
	Status      string             `bson:"status" json:"status"`
	Date        time.Time          `bson:"date" json:"date"`
	Time        string             `bson:"time" json:"time"`
	Location    Location           `bson:"location" json:"location"`
	Organizer   primitive.ObjectID `bson:"organizer" json:"organizer"`

	Participants    []Participant `bson:"participants" json:"participants"`
	MaxParticipants int           `bson:"max_participants" json:"maxParticipants"`

	Requirements []string    `bson:"requirements,omitempty" json:"requirements"`
	Materials    []string    `bson:"materials,omitempty" json:"materials"`
	Impact       Impact      `bson:"impact" json:"impact"`
	Images       []string    `bson:"images,omitempty" json:"images"`
	ContactInfo  ContactInfo `bson:"contact_info" json:"contactInfo"`

	IsActive bool `bson:"is_active" json:"isActive"`
	Featured bool `bson:"featured" json:"featured"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Participant is one roster entry.
type Participant struct {
	User     primitive.ObjectID `bson:"user" json:"user"`
	JoinedAt time.Time          `bson:"joined_at" json:"joinedAt"`
	Status   string             `bson:"status" json:"status"`
}

// Location describes where an initiative takes place.
type Location struct {
	Address     string       `bson:"address,omitempty" json:"address,omitempty"`
	City        string       `bson:"city,omitempty" json:"city,omitempty"`
	State       string       `bson:"state,omitempty" json:"state,omitempty"`
	Country     string       `bson:"country,omitempty" json:"country,omitempty"`
	Coordinates *Coordinates `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

// Coordinates is a lat/lng pair.
type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Impact holds the expected and measured environmental outcome of an
// initiative.
type Impact struct {
	ExpectedCO2Reduction   float64 `bson:"expected_co2_reduction,omitempty" json:"expectedCO2Reduction,omitempty"`
	ExpectedTreesPlanted   float64 `bson:"expected_trees_planted,omitempty" json:"expectedTreesPlanted,omitempty"`
	ExpectedWasteCollected float64 `bson:"expected_waste_collected,omitempty" json:"expectedWasteCollected,omitempty"`
	ActualCO2Reduction     float64 `bson:"actual_co2_reduction,omitempty" json:"actualCO2Reduction,omitempty"`
	ActualTreesPlanted     float64 `bson:"actual_trees_planted,omitempty" json:"actualTreesPlanted,omitempty"`
	ActualWasteCollected   float64 `bson:"actual_waste_collected,omitempty" json:"actualWasteCollected,omitempty"`
}

// ContactInfo is how participants reach the organizer.
type ContactInfo struct {
	Email string `bson:"email,omitempty" json:"email,omitempty"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// ParticipantCount is the roster length.
func (i *Initiative) ParticipantCount() int {
	return len(i.Participants)
}

// AvailableSpots is the remaining capacity (never negative).
func (i *Initiative) AvailableSpots() int {
	n := i.MaxParticipants - i.ParticipantCount()
	if n < 0 {
		return 0
	}
	return n
}

// IsFull reports whether the roster has reached capacity.
func (i *Initiative) IsFull() bool {
	return i.ParticipantCount() >= i.MaxParticipants
}

// HasActiveParticipant reports whether the user holds a non-cancelled
// roster entry.
func (i *Initiative) HasActiveParticipant(userID primitive.ObjectID) bool {
	for _, p := range i.Participants {
		if p.User == userID && IsActiveParticipation(p.Status) {
			return true
		}
	}
	return false
}

// Participant returns the roster entry for the user, if any.
func (i *Initiative) Participant(userID primitive.ObjectID) (Participant, bool) {
	for _, p := range i.Participants {
		if p.User == userID {
			return p, true
		}
	}
	return Participant{}, false
}

// MarshalJSON adds the derived roster fields to the JSON form.
func (i Initiative) MarshalJSON() ([]byte, error) {
	type plain Initiative
	return json.Marshal(struct {
		plain
		ParticipantCount int  `json:"participantCount"`
		AvailableSpots   int  `json:"availableSpots"`
		IsFull           bool `json:"isFull"`
	}{
		plain:            plain(i),
		ParticipantCount: i.ParticipantCount(),
		AvailableSpots:   i.AvailableSpots(),
		IsFull:           i.IsFull(),
	})
}

// IsValidCategory reports whether c is a known category.
func IsValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// IsValidInitiativeStatus reports whether s is a known initiative status.
func IsValidInitiativeStatus(s string) bool {
	for _, v := range InitiativeStatuses {
		if v == s {
			return true
		}
	}
	return false
}

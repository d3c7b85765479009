// Package impact derives a user's impact score, level and achievements from
// their stats counters. Everything here is pure; the counters themselves
// are maintained by the user store's ledger methods.
package impact

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/domain/models"
)

// Score weights.
const (
	CO2Weight   = 2.0
	TreesWeight = 5.0
	WasteWeight = 1.0
)

// Score is co2×2 + trees×5 + waste.
func Score(s models.UserStats) float64 {
	return s.CO2Reduced*CO2Weight + s.TreesPlanted*TreesWeight + s.WasteCollected*WasteWeight
}

// Levels, lowest first.
const (
	LevelNewMember      = "New Member"
	LevelEarthFriend    = "Earth Friend"
	LevelGreenAdvocate  = "Green Advocate"
	LevelClimateWarrior = "Climate Warrior"
	LevelEcoChampion    = "Eco Champion"
)

var thresholds = []struct {
	min   float64
	level string
}{
	{1000, LevelEcoChampion},
	{500, LevelClimateWarrior},
	{200, LevelGreenAdvocate},
	{50, LevelEarthFriend},
}

// Level maps a score onto a level name. Lower bounds are inclusive.
func Level(score float64) string {
	for _, t := range thresholds {
		if score >= t.min {
			return t.level
		}
	}
	return LevelNewMember
}

// Achievement is a badge shown on the dashboard.
type Achievement struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
}

// Achievements returns the badges earned by s, in display order.
func Achievements(s models.UserStats) []Achievement {
	out := []Achievement{}
	if s.InitiativesJoined >= 1 {
		out = append(out, Achievement{
			Type:        "first_join",
			Title:       "First Step",
			Description: "Joined your first initiative",
			Icon:        "fa-seedling",
			Color:       "#10b981",
		})
	}
	if s.TreesPlanted >= 10 {
		out = append(out, Achievement{
			Type:        "tree_planter",
			Title:       "Tree Planter",
			Description: fmt.Sprintf("Helped plant %s trees", num(s.TreesPlanted)),
			Icon:        "fa-tree",
			Color:       "#059669",
		})
	}
	if s.WasteCollected >= 50 {
		out = append(out, Achievement{
			Type:        "cleanup_hero",
			Title:       "Cleanup Hero",
			Description: fmt.Sprintf("Collected %skg of waste", num(s.WasteCollected)),
			Icon:        "fa-broom",
			Color:       "#3b82f6",
		})
	}
	if s.InitiativesCompleted >= 5 {
		out = append(out, Achievement{
			Type:        "eco_warrior",
			Title:       "Eco Warrior",
			Description: fmt.Sprintf("Completed %d initiatives", s.InitiativesCompleted),
			Icon:        "fa-shield-alt",
			Color:       "#8b5cf6",
		})
	}
	if s.InitiativesOrganized >= 1 {
		out = append(out, Achievement{
			Type:        "organizer",
			Title:       "Community Organizer",
			Description: fmt.Sprintf("Organized %d initiatives", s.InitiativesOrganized),
			Icon:        "fa-users",
			Color:       "#f59e0b",
		})
	}
	return out
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Delta is the measured outcome credited to a user on completion.
type Delta struct {
	CO2Reduced     float64 `json:"co2Reduced"`
	TreesPlanted   float64 `json:"treesPlanted"`
	WasteCollected float64 `json:"wasteCollected"`
}

// Validate rejects negative or non-finite amounts.
func (d Delta) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"co2Reduced", d.CO2Reduced},
		{"treesPlanted", d.TreesPlanted},
		{"wasteCollected", d.WasteCollected},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return apperr.Validation(f.name + " must be a number")
		}
		if f.v < 0 {
			return apperr.Validation(f.name + " cannot be negative")
		}
	}
	return nil
}

// Summary bundles the derived values the dashboard shows.
type Summary struct {
	Score        float64       `json:"impactScore"`
	Level        string        `json:"level"`
	Achievements []Achievement `json:"achievements"`
}

// Summarize computes score, level and achievements together.
func Summarize(s models.UserStats) Summary {
	score := Score(s)
	return Summary{Score: score, Level: Level(score), Achievements: Achievements(s)}
}

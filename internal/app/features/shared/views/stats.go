package views

import (
	"github.com/dalemusser/climatehub/internal/app/system/impact"
	"github.com/dalemusser/climatehub/internal/domain/models"
)

// Stats is the stats document for one user.
type Stats struct {
	Basic    models.UserStats `json:"basic"`
	Detailed DetailedStats    `json:"detailed"`
}

// DetailedStats is derived from the rosters the user appears on.
type DetailedStats struct {
	JoinedInitiatives    int            `json:"joinedInitiatives"`
	OrganizedInitiatives int            `json:"organizedInitiatives"`
	MonthlyActivity      map[string]int `json:"monthlyActivity"`   // "YYYY-MM" -> joins
	CategoryBreakdown    map[string]int `json:"categoryBreakdown"` // category -> joins
	ImpactScore          float64        `json:"impactScore"`
}

// BuildStats derives the stats document for u. joined holds the
// initiatives whose roster lists u; organized those u organizes.
func BuildStats(u *models.User, joined, organized []models.Initiative) Stats {
	d := DetailedStats{
		JoinedInitiatives:    len(joined),
		OrganizedInitiatives: len(organized),
		MonthlyActivity:      map[string]int{},
		CategoryBreakdown:    map[string]int{},
		ImpactScore:          impact.Score(u.Stats),
	}
	for i := range joined {
		in := &joined[i]
		if p, ok := in.Participant(u.ID); ok {
			d.MonthlyActivity[p.JoinedAt.UTC().Format("2006-01")]++
		}
		d.CategoryBreakdown[in.Category]++
	}
	return Stats{Basic: u.Stats, Detailed: d}
}

package impact_test

import (
	"math"
	"testing"

	"github.com/dalemusser/climatehub/internal/app/system/apperr"
	"github.com/dalemusser/climatehub/internal/app/system/impact"
	"github.com/dalemusser/climatehub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	s := models.UserStats{CO2Reduced: 10, TreesPlanted: 3, WasteCollected: 7}
	assert.Equal(t, 10*2.0+3*5.0+7.0, impact.Score(s))
	assert.Zero(t, impact.Score(models.UserStats{}))
}

func TestLevelBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0, impact.LevelNewMember},
		{49.99, impact.LevelNewMember},
		{50, impact.LevelEarthFriend},
		{199, impact.LevelEarthFriend},
		{200, impact.LevelGreenAdvocate},
		{500, impact.LevelClimateWarrior},
		{999.5, impact.LevelClimateWarrior},
		{1000, impact.LevelEcoChampion},
		{25000, impact.LevelEcoChampion},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, impact.Level(tt.score), "score %v", tt.score)
	}
}

func TestTreePlanterScenario(t *testing.T) {
	s := models.UserStats{TreesPlanted: 10, InitiativesJoined: 1}

	sum := impact.Summarize(s)
	assert.Equal(t, 50.0, sum.Score)
	assert.Equal(t, impact.LevelEarthFriend, sum.Level)

	var types []string
	for _, a := range sum.Achievements {
		types = append(types, a.Type)
	}
	assert.Equal(t, []string{"first_join", "tree_planter"}, types)
	assert.Equal(t, "Helped plant 10 trees", sum.Achievements[1].Description)
}

func TestAchievementsAll(t *testing.T) {
	s := models.UserStats{
		InitiativesJoined:    6,
		InitiativesCompleted: 5,
		InitiativesOrganized: 2,
		TreesPlanted:         12.5,
		WasteCollected:       50,
	}
	got := impact.Achievements(s)
	require.Len(t, got, 5)
	assert.Equal(t, "Cleanup Hero", got[2].Title)
	assert.Equal(t, "Collected 50kg of waste", got[2].Description)
	assert.Equal(t, "Helped plant 12.5 trees", got[1].Description)
	assert.Equal(t, "Organized 2 initiatives", got[4].Description)
	assert.Equal(t, "fa-shield-alt", got[3].Icon)
}

func TestAchievementsNoneIsEmptySlice(t *testing.T) {
	got := impact.Achievements(models.UserStats{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDeltaValidate(t *testing.T) {
	assert.NoError(t, impact.Delta{}.Validate())
	assert.NoError(t, impact.Delta{CO2Reduced: 1, TreesPlanted: 2, WasteCollected: 3}.Validate())

	err := impact.Delta{TreesPlanted: -1}.Validate()
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "treesPlanted")

	assert.Error(t, impact.Delta{WasteCollected: math.NaN()}.Validate())
}

package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	require.Greater(t, c.Len(), 0)

	goal, ok := c.Lookup(AchievementID("📚 Goal Setter"))
	require.True(t, ok)
	assert.Equal(t, StatTasksCompleted, goal.Requirement.Type)
	assert.Equal(t, 1, goal.Requirement.Value)
	assert.Equal(t, 15, goal.XPReward)

	learner, ok := c.Lookup(AchievementID("📚 Consistent Learner"))
	require.True(t, ok)
	assert.Equal(t, 10, learner.Requirement.Value)
	assert.Equal(t, 75, learner.XPReward)

	for _, key := range []string{
		StatTasksCompleted, StatAssessmentsTaken, StatInterviewsPracticed, StatCertificationsEarned,
		StatStreak, StatCurrentStreak, StatLevel, StatTotalXP, StatRoadmapProgress, StatTasksInOneDay,
	} {
		assert.NotEmpty(t, c.ByStat(key), key)
	}
}

func TestByStatSortedByThreshold(t *testing.T) {
	c := DefaultCatalog()
	for _, d := range c.All() {
		list := c.ByStat(d.Requirement.Type)
		for i := 1; i < len(list); i++ {
			assert.LessOrEqual(t, list[i-1].Requirement.Value, list[i].Requirement.Value)
		}
	}
	assert.Empty(t, c.ByStat("noSuchStat"))
}

func TestAchievementIDStable(t *testing.T) {
	assert.Equal(t, AchievementID("📚 Goal Setter"), AchievementID("📚 Goal Setter"))
	assert.NotEqual(t, AchievementID("📚 Goal Setter"), AchievementID("📚 Consistent Learner"))

	a := DefaultCatalog().All()
	b := DefaultCatalog().All()
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
	}
}

func TestNewCatalogValidation(t *testing.T) {
	good := def("x", "One", "", "c", TierBronze, RarityCommon, StatTasksCompleted, 1, 10)

	tests := []struct {
		name string
		defs []AchievementDef
	}{
		{"duplicate name", []AchievementDef{good, good}},
		{"empty name", []AchievementDef{{Tier: TierBronze, Rarity: RarityCommon, Requirement: Requirement{Type: "a", Value: 1}}}},
		{"negative reward", []AchievementDef{def("x", "Neg", "", "c", TierBronze, RarityCommon, StatTasksCompleted, 1, -1)}},
		{"unknown tier", []AchievementDef{def("x", "Tin", "", "c", Tier("tin"), RarityCommon, StatTasksCompleted, 1, 1)}},
		{"unknown rarity", []AchievementDef{def("x", "Mythic", "", "c", TierGold, Rarity("mythic"), StatTasksCompleted, 1, 1)}},
		{"no requirement", []AchievementDef{def("x", "Free", "", "c", TierGold, RarityEpic, "", 1, 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.defs)
			assert.Error(t, err)
		})
	}

	c, err := NewCatalog([]AchievementDef{good})
	require.NoError(t, err)
	assert.Equal(t, AchievementID("x One"), c.All()[0].ID)
}

func TestRarityWeight(t *testing.T) {
	assert.Greater(t, RarityLegendary.Weight(), RarityEpic.Weight())
	assert.Greater(t, RarityEpic.Weight(), RarityRare.Weight())
	assert.Greater(t, RarityRare.Weight(), RarityCommon.Weight())
	assert.Equal(t, 0, Rarity("unknown").Weight())
}

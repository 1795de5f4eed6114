package gamification

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Stat keys referenced by catalog requirements.
const (
	StatTasksCompleted       = "tasksCompleted"
	StatAssessmentsTaken     = "assessmentsTaken"
	StatInterviewsPracticed  = "interviewsPracticed"
	StatCertificationsEarned = "certificationsEarned"
	StatStreak               = "streak"
	StatCurrentStreak        = "currentStreak"
	StatLongestStreak        = "longestStreak"
	StatLevel                = "level"
	StatTotalXP              = "totalXP"
	StatRoadmapProgress      = "roadmapProgress"
	StatTasksInOneDay        = "tasksInOneDay"
)

type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

var rarityWeight = map[Rarity]int{
	RarityCommon:    1,
	RarityRare:      2,
	RarityEpic:      3,
	RarityLegendary: 4,
}

var validTiers = map[Tier]bool{TierBronze: true, TierSilver: true, TierGold: true, TierPlatinum: true}

// Weight orders rarities for display; unknown rarities sort last.
func (r Rarity) Weight() int {
	return rarityWeight[r]
}

// Requirement is a single threshold on one stat.
type Requirement struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

// AchievementDef defines a single achievement.
type AchievementDef struct {
	ID          uuid.UUID
	Name        string
	Description string
	Icon        string
	Category    string
	Tier        Tier
	Rarity      Rarity
	Requirement Requirement
	XPReward    int
}

// catalogNamespace keys achievement IDs so the same name always maps to the same ID.
var catalogNamespace = uuid.MustParse("6f1c8a52-3b0e-4d7a-9a51-2f7d0c4e8b13")

// AchievementID derives the stable ID for an achievement name.
func AchievementID(name string) uuid.UUID {
	return uuid.NewSHA1(catalogNamespace, []byte(name))
}

// Catalog is an immutable, indexed set of achievement definitions.
type Catalog struct {
	defs   []AchievementDef
	byStat map[string][]AchievementDef
	byID   map[uuid.UUID]AchievementDef
}

// NewCatalog validates and indexes defs. Missing IDs are derived from the name.
func NewCatalog(defs []AchievementDef) (*Catalog, error) {
	c := &Catalog{
		defs:   make([]AchievementDef, 0, len(defs)),
		byStat: make(map[string][]AchievementDef),
		byID:   make(map[uuid.UUID]AchievementDef, len(defs)),
	}
	names := make(map[string]bool, len(defs))

	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("achievement with empty name")
		}
		if names[d.Name] {
			return nil, fmt.Errorf("duplicate achievement %q", d.Name)
		}
		names[d.Name] = true

		if d.Requirement.Type == "" {
			return nil, fmt.Errorf("achievement %q has no requirement", d.Name)
		}
		if d.XPReward < 0 {
			return nil, fmt.Errorf("achievement %q has negative xp reward", d.Name)
		}
		if !validTiers[d.Tier] {
			return nil, fmt.Errorf("achievement %q has unknown tier %q", d.Name, d.Tier)
		}
		if d.Rarity.Weight() == 0 {
			return nil, fmt.Errorf("achievement %q has unknown rarity %q", d.Name, d.Rarity)
		}
		if d.ID == uuid.Nil {
			d.ID = AchievementID(d.Name)
		}

		c.defs = append(c.defs, d)
		c.byStat[d.Requirement.Type] = append(c.byStat[d.Requirement.Type], d)
		c.byID[d.ID] = d
	}

	for key := range c.byStat {
		list := c.byStat[key]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Requirement.Value < list[j].Requirement.Value
		})
	}

	return c, nil
}

// All returns every definition in declaration order.
func (c *Catalog) All() []AchievementDef {
	out := make([]AchievementDef, len(c.defs))
	copy(out, c.defs)
	return out
}

// ByStat returns the definitions keyed on statKey, lowest threshold first.
func (c *Catalog) ByStat(statKey string) []AchievementDef {
	return c.byStat[statKey]
}

func (c *Catalog) Lookup(id uuid.UUID) (AchievementDef, bool) {
	d, ok := c.byID[id]
	return d, ok
}

func (c *Catalog) Len() int {
	return len(c.defs)
}

// DefaultCatalog returns the built-in Guidely achievements.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultAchievements)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in achievement catalog: %v", err))
	}
	return c
}

func def(icon, name, description, category string, tier Tier, rarity Rarity, stat string, threshold, xp int) AchievementDef {
	return AchievementDef{
		Name:        icon + " " + name,
		Description: description,
		Icon:        icon,
		Category:    category,
		Tier:        tier,
		Rarity:      rarity,
		Requirement: Requirement{Type: stat, Value: threshold},
		XPReward:    xp,
	}
}

var defaultAchievements = []AchievementDef{
	// Learning
	def("📚", "Goal Setter", "Complete your first roadmap task", "learning", TierBronze, RarityCommon, StatTasksCompleted, 1, 15),
	def("📚", "Consistent Learner", "Complete 10 roadmap tasks", "learning", TierBronze, RarityCommon, StatTasksCompleted, 10, 75),
	def("📚", "Knowledge Seeker", "Complete 25 roadmap tasks", "learning", TierSilver, RarityRare, StatTasksCompleted, 25, 150),
	def("📚", "Dedicated Scholar", "Complete 50 roadmap tasks", "learning", TierGold, RarityEpic, StatTasksCompleted, 50, 300),
	def("📚", "Master Learner", "Complete 100 roadmap tasks", "learning", TierPlatinum, RarityLegendary, StatTasksCompleted, 100, 750),
	def("⚡", "Productive Day", "Complete 3 tasks in one day", "learning", TierBronze, RarityCommon, StatTasksInOneDay, 3, 30),
	def("⚡", "Power Hour", "Complete 5 tasks in one day", "learning", TierSilver, RarityRare, StatTasksInOneDay, 5, 60),
	def("⚡", "Unstoppable", "Complete 10 tasks in one day", "learning", TierGold, RarityEpic, StatTasksInOneDay, 10, 150),

	// Roadmap
	def("🗺️", "Halfway There", "Reach 50% progress on a roadmap", "roadmap", TierSilver, RarityRare, StatRoadmapProgress, 50, 100),
	def("🗺️", "Roadmap Complete", "Finish every task on a roadmap", "roadmap", TierGold, RarityEpic, StatRoadmapProgress, 100, 400),

	// Assessments
	def("🎯", "Self Aware", "Take your first skill assessment", "assessment", TierBronze, RarityCommon, StatAssessmentsTaken, 1, 20),
	def("🎯", "Skill Mapper", "Take 5 skill assessments", "assessment", TierSilver, RarityRare, StatAssessmentsTaken, 5, 100),
	def("🎯", "Assessment Pro", "Take 15 skill assessments", "assessment", TierGold, RarityEpic, StatAssessmentsTaken, 15, 250),

	// Interviews
	def("🎤", "First Interview", "Complete your first mock interview", "interview", TierBronze, RarityCommon, StatInterviewsPracticed, 1, 25),
	def("🎤", "Interview Ready", "Complete 5 mock interviews", "interview", TierSilver, RarityRare, StatInterviewsPracticed, 5, 100),
	def("🎤", "Interview Ace", "Complete 20 mock interviews", "interview", TierGold, RarityEpic, StatInterviewsPracticed, 20, 350),
	def("🎤", "Interview Legend", "Complete 50 mock interviews", "interview", TierPlatinum, RarityLegendary, StatInterviewsPracticed, 50, 800),

	// Certifications
	def("🏅", "Certified", "Earn your first certification", "certification", TierSilver, RarityRare, StatCertificationsEarned, 1, 100),
	def("🏅", "Credential Collector", "Earn 3 certifications", "certification", TierGold, RarityEpic, StatCertificationsEarned, 3, 300),
	def("🏅", "Certification Master", "Earn 5 certifications", "certification", TierPlatinum, RarityLegendary, StatCertificationsEarned, 5, 600),

	// Streaks
	def("🔥", "Getting Started", "Reach a 3-day streak", "streak", TierBronze, RarityCommon, StatStreak, 3, 25),
	def("🔥", "Week Warrior", "Reach a 7-day streak", "streak", TierSilver, RarityRare, StatStreak, 7, 75),
	def("🔥", "Fortnight Focus", "Reach a 14-day streak", "streak", TierGold, RarityEpic, StatStreak, 14, 150),
	def("🔥", "Monthly Master", "Reach a 30-day streak", "streak", TierPlatinum, RarityLegendary, StatStreak, 30, 500),
	def("🔥", "On Fire", "Keep a 5-day streak going", "streak", TierBronze, RarityCommon, StatCurrentStreak, 5, 40),
	def("🔥", "Habit Builder", "Keep a 21-day streak going", "streak", TierGold, RarityEpic, StatCurrentStreak, 21, 200),
	def("🔥", "Centurion", "Keep a 100-day streak going", "streak", TierPlatinum, RarityLegendary, StatCurrentStreak, 100, 1000),

	// Levels
	def("⭐", "Rising Star", "Reach level 3", "milestone", TierBronze, RarityCommon, StatLevel, 3, 50),
	def("⭐", "Career Climber", "Reach level 5", "milestone", TierSilver, RarityRare, StatLevel, 5, 100),
	def("⭐", "Expert", "Reach level 10", "milestone", TierGold, RarityEpic, StatLevel, 10, 300),
	def("⭐", "Career Legend", "Reach level 20", "milestone", TierPlatinum, RarityLegendary, StatLevel, 20, 1000),

	// XP
	def("💎", "XP Collector", "Earn 500 total XP", "milestone", TierBronze, RarityCommon, StatTotalXP, 500, 25),
	def("💎", "XP Hoarder", "Earn 1,000 total XP", "milestone", TierSilver, RarityRare, StatTotalXP, 1000, 50),
	def("💎", "XP Champion", "Earn 5,000 total XP", "milestone", TierGold, RarityEpic, StatTotalXP, 5000, 200),
	def("💎", "XP Legend", "Earn 10,000 total XP", "milestone", TierPlatinum, RarityLegendary, StatTotalXP, 10000, 500),
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// ── Core Progression Structs ─────────────────────────────

type UserStats struct {
	UserID               int64          `json:"user_id"`
	TasksCompleted       int            `json:"tasks_completed"`
	AssessmentsTaken     int            `json:"assessments_taken"`
	InterviewsPracticed  int            `json:"interviews_practiced"`
	CertificationsEarned int            `json:"certifications_earned"`
	CurrentStreak        int            `json:"current_streak"`
	LongestStreak        int            `json:"longest_streak"`
	TotalXP              int64          `json:"total_xp"`
	Level                int            `json:"level"`
	LastActivityDate     *time.Time     `json:"last_activity_date"`
	Counters             map[string]int `json:"counters"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// ── Response Types ────────────────────────────────────────

type AchievementView struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Category    string     `json:"category"`
	Tier        string     `json:"tier"`
	Rarity      string     `json:"rarity"`
	StatKey     string     `json:"stat_key"`
	Threshold   int        `json:"threshold"`
	XPReward    int        `json:"xp_reward"`
	Earned      bool       `json:"earned"`
	EarnedAt    *time.Time `json:"earned_at,omitempty"`
	Progress    int        `json:"progress"`
}

type RankResponse struct {
	Rank       int `json:"rank"`
	Percentile int `json:"percentile"`
	TotalUsers int `json:"total_users"`
}

type LevelInfo struct {
	Level          int   `json:"level"`
	XPIntoLevel    int64 `json:"xp_into_level"`
	XPForLevel     int64 `json:"xp_for_level"`
	XPForNextLevel int64 `json:"xp_for_next_level"`
}

type ProgressResponse struct {
	Stats              UserStats         `json:"stats"`
	Level              LevelInfo         `json:"level"`
	Rank               RankResponse      `json:"rank"`
	AchievementsEarned int               `json:"achievements_earned"`
	AchievementsTotal  int               `json:"achievements_total"`
	Displayed          []AchievementView `json:"displayed_achievements"`
}

type StatChangeResponse struct {
	Stats                UserStats         `json:"stats"`
	AchievementsUnlocked []AchievementView `json:"achievements_unlocked"`
}

package models

import "time"

type TaskProgress struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	RoadmapID   string     `json:"roadmap_id"`
	TaskID      string     `json:"task_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CountedAt   *time.Time `json:"counted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type TaskRequest struct {
	RoadmapID string `json:"roadmap_id"`
	TaskID    string `json:"task_id"`
}

type ActivityRequest struct {
	Kind string `json:"kind"` // "assessment", "interview" or "certification"
}

type TaskCompleteResponse struct {
	Task                 TaskProgress      `json:"task"`
	NewlyCompleted       bool              `json:"newly_completed"`
	Counted              bool              `json:"counted"`
	AchievementsUnlocked []AchievementView `json:"achievements_unlocked"`
	Stats                *UserStats        `json:"stats,omitempty"`
}

type RoadmapTask struct {
	RoadmapID string `json:"roadmap_id"`
	TaskID    string `json:"task_id"`
	Title     string `json:"title"`
}

type DefineRoadmapRequest struct {
	Tasks []RoadmapTask `json:"tasks"`
}

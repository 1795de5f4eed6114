package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/guidely/backend/internal/gamification"
	"github.com/guidely/backend/internal/logger"
	"github.com/guidely/backend/internal/models"
)

var (
	ErrInvalidTask     = errors.New("roadmap_id and task_id are required")
	ErrUnknownActivity = errors.New("unknown activity kind")
)

// activityStats maps an activity kind to the counter it bumps.
var activityStats = map[string]string{
	"assessment":    gamification.StatAssessmentsTaken,
	"interview":     gamification.StatInterviewsPracticed,
	"certification": gamification.StatCertificationsEarned,
}

// Engine is the part of the progression engine task events feed.
type Engine interface {
	IncrementStat(ctx context.Context, userID int64, statKey string, delta int) (*gamification.StatChange, error)
	SetStat(ctx context.Context, userID int64, statKey string, value int) (*gamification.StatChange, error)
	UpdateStreak(ctx context.Context, userID int64) (*gamification.StatChange, error)
}

type Service struct {
	repo   Repository
	engine Engine
	log    *logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, engine Engine, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, engine: engine, log: log.With("component", "tasks"), now: time.Now}
}

// Result is a task state change plus whatever the engine awarded for it.
type Result struct {
	Task           *models.TaskProgress
	NewlyCompleted bool
	// Counted is true when this completion fed the engine.
	Counted  bool
	Unlocked []gamification.AchievementDef
	EarnedAt map[uuid.UUID]time.Time
	Stats    *models.UserStats
}

// CompleteTask marks a roadmap task done. Only the first completion of a task
// ever feeds the engine, even across uncompletes; engine failures are logged
// and do not fail the completion.
func (s *Service) CompleteTask(ctx context.Context, userID int64, roadmapID, taskID string) (*Result, error) {
	roadmapID, taskID = strings.TrimSpace(roadmapID), strings.TrimSpace(taskID)
	if roadmapID == "" || taskID == "" {
		return nil, ErrInvalidTask
	}

	now := s.now()
	c, err := s.repo.Complete(ctx, userID, roadmapID, taskID, now)
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}

	res := &Result{Task: c.Task, NewlyCompleted: c.Flipped, Counted: c.FirstTime}
	log := s.log.With("user_id", userID, "roadmap_id", roadmapID, "task_id", taskID)
	if !c.FirstTime {
		if c.Flipped {
			log.Info("task completed again, already counted")
		}
		return res, nil
	}

	s.apply(res, log, "tasks completed", func() (*gamification.StatChange, error) {
		return s.engine.IncrementStat(ctx, userID, gamification.StatTasksCompleted, 1)
	})
	s.apply(res, log, "streak", func() (*gamification.StatChange, error) {
		return s.engine.UpdateStreak(ctx, userID)
	})

	if today, err := s.repo.CompletedSince(ctx, userID, startOfDay(now)); err != nil {
		log.Warn("count tasks today", "error", err)
	} else {
		s.apply(res, log, "tasks in one day", func() (*gamification.StatChange, error) {
			return s.engine.SetStat(ctx, userID, gamification.StatTasksInOneDay, today)
		})
	}

	if done, total, err := s.repo.RoadmapProgress(ctx, userID, roadmapID); err != nil {
		log.Warn("roadmap progress", "error", err)
	} else if total > 0 {
		s.apply(res, log, "roadmap progress", func() (*gamification.StatChange, error) {
			return s.engine.SetStat(ctx, userID, gamification.StatRoadmapProgress, done*100/total)
		})
	}

	log.Info("task completed", "unlocked", len(res.Unlocked))
	return res, nil
}

func (s *Service) apply(res *Result, log *logger.Logger, what string, fn func() (*gamification.StatChange, error)) {
	change, err := fn()
	if err != nil {
		log.Error("progression update failed", "update", what, "error", err)
		return
	}
	res.merge(change)
}

func (res *Result) merge(change *gamification.StatChange) {
	res.Unlocked = append(res.Unlocked, change.Unlocked...)
	for id, at := range change.EarnedAt {
		if res.EarnedAt == nil {
			res.EarnedAt = make(map[uuid.UUID]time.Time)
		}
		res.EarnedAt[id] = at
	}
	res.Stats = change.Stats
}

// UncompleteTask clears the completion flag. Stats and achievements are not
// reverted, and a later completion of the same task is not counted again.
func (s *Service) UncompleteTask(ctx context.Context, userID int64, roadmapID, taskID string) (*models.TaskProgress, error) {
	if strings.TrimSpace(roadmapID) == "" || strings.TrimSpace(taskID) == "" {
		return nil, ErrInvalidTask
	}
	return s.repo.Uncomplete(ctx, userID, roadmapID, taskID)
}

func (s *Service) ListTasks(ctx context.Context, userID int64, roadmapID string) ([]models.TaskProgress, error) {
	return s.repo.List(ctx, userID, roadmapID)
}

func (s *Service) DefineRoadmap(ctx context.Context, roadmapID string, tasks []models.RoadmapTask) error {
	if strings.TrimSpace(roadmapID) == "" {
		return ErrInvalidTask
	}
	for _, t := range tasks {
		if strings.TrimSpace(t.TaskID) == "" {
			return ErrInvalidTask
		}
	}
	return s.repo.DefineRoadmap(ctx, roadmapID, tasks)
}

// RecordActivity counts an assessment, interview or certification and extends the streak.
func (s *Service) RecordActivity(ctx context.Context, userID int64, kind string) (*Result, error) {
	statKey, ok := activityStats[strings.ToLower(strings.TrimSpace(kind))]
	if !ok {
		return nil, fmt.Errorf("%q: %w", kind, ErrUnknownActivity)
	}

	change, err := s.engine.IncrementStat(ctx, userID, statKey, 1)
	if err != nil {
		return nil, err
	}
	res := &Result{NewlyCompleted: true, Counted: true}
	res.merge(change)

	s.apply(res, s.log.With("user_id", userID, "kind", kind), "streak", func() (*gamification.StatChange, error) {
		return s.engine.UpdateStreak(ctx, userID)
	})
	return res, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package gamification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guidely/backend/internal/models"
)

// memRepo is an in-memory Repository with the same key routing as Store.
type memRepo struct {
	mu     sync.Mutex
	users  map[int64]bool
	stats  map[int64]*models.UserStats
	earned map[int64]map[uuid.UUID]time.Time
	seeded map[uuid.UUID]bool // nil accepts any achievement

	// conflicts simulates a concurrent request winning the insert.
	conflicts map[uuid.UUID]bool

	awardCalls int
	now        time.Time
}

func newMemRepo(userIDs ...int64) *memRepo {
	r := &memRepo{
		users:     make(map[int64]bool),
		stats:     make(map[int64]*models.UserStats),
		earned:    make(map[int64]map[uuid.UUID]time.Time),
		conflicts: make(map[uuid.UUID]bool),
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, id := range userIDs {
		r.users[id] = true
	}
	return r
}

func (r *memRepo) row(userID int64) (*models.UserStats, error) {
	if !r.users[userID] {
		return nil, fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
	}
	st, ok := r.stats[userID]
	if !ok {
		st = &models.UserStats{UserID: userID, Level: 1, Counters: map[string]int{}, CreatedAt: r.now, UpdatedAt: r.now}
		r.stats[userID] = st
	}
	return st, nil
}

func snapshot(st *models.UserStats) *models.UserStats {
	cp := *st
	cp.Counters = make(map[string]int, len(st.Counters))
	for k, v := range st.Counters {
		cp.Counters[k] = v
	}
	if st.LastActivityDate != nil {
		t := *st.LastActivityDate
		cp.LastActivityDate = &t
	}
	return &cp
}

func (r *memRepo) GetOrCreateStats(_ context.Context, userID int64) (*models.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, err := r.row(userID)
	if err != nil {
		return nil, err
	}
	return snapshot(st), nil
}

func (r *memRepo) IncrementStat(_ context.Context, userID int64, statKey string, delta int) (*models.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if statKey == StatTotalXP || statKey == StatLevel || streakKeys[statKey] {
		return nil, ErrProtectedStat
	}
	st, err := r.row(userID)
	if err != nil {
		return nil, err
	}
	switch statKey {
	case StatTasksCompleted:
		st.TasksCompleted += delta
	case StatAssessmentsTaken:
		st.AssessmentsTaken += delta
	case StatInterviewsPracticed:
		st.InterviewsPracticed += delta
	case StatCertificationsEarned:
		st.CertificationsEarned += delta
	default:
		if !statKeyPattern.MatchString(statKey) {
			return nil, ErrInvalidInput
		}
		st.Counters[statKey] += delta
	}
	return snapshot(st), nil
}

func (r *memRepo) SetStat(_ context.Context, userID int64, statKey string, value int) (*models.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if statKey == StatTotalXP || statKey == StatLevel {
		return nil, ErrProtectedStat
	}
	if value < 0 {
		return nil, ErrInvalidInput
	}
	st, err := r.row(userID)
	if err != nil {
		return nil, err
	}
	switch statKey {
	case StatTasksCompleted:
		st.TasksCompleted = max(st.TasksCompleted, value)
	case StatAssessmentsTaken:
		st.AssessmentsTaken = max(st.AssessmentsTaken, value)
	case StatInterviewsPracticed:
		st.InterviewsPracticed = max(st.InterviewsPracticed, value)
	case StatCertificationsEarned:
		st.CertificationsEarned = max(st.CertificationsEarned, value)
	case StatStreak, StatCurrentStreak:
		st.CurrentStreak = value
		st.LongestStreak = max(st.LongestStreak, value)
	case StatLongestStreak:
		st.LongestStreak = max(st.LongestStreak, value, st.CurrentStreak)
	default:
		if !statKeyPattern.MatchString(statKey) {
			return nil, ErrInvalidInput
		}
		st.Counters[statKey] = value
	}
	return snapshot(st), nil
}

func (r *memRepo) UpdateStreak(_ context.Context, userID int64, s StreakState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, err := r.row(userID)
	if err != nil {
		return err
	}
	st.CurrentStreak = s.Current
	st.LongestStreak = max(st.LongestStreak, s.Longest, s.Current)
	st.LastActivityDate = s.LastActivity
	return nil
}

func (r *memRepo) AwardAchievement(_ context.Context, userID int64, def AchievementDef) (AwardResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.awardCalls++

	if r.seeded != nil && !r.seeded[def.ID] {
		return AwardResult{}, ErrCatalogNotSeeded
	}
	st, err := r.row(userID)
	if err != nil {
		return AwardResult{}, err
	}
	if r.conflicts[def.ID] {
		return AwardResult{}, nil
	}
	if r.earned[userID] == nil {
		r.earned[userID] = make(map[uuid.UUID]time.Time)
	}
	if _, ok := r.earned[userID][def.ID]; ok {
		return AwardResult{}, nil
	}

	// strictly increasing so display order by time is deterministic
	r.now = r.now.Add(time.Second)
	r.earned[userID][def.ID] = r.now

	prev := st.Level
	st.TotalXP += int64(def.XPReward)
	st.Level = LevelForXP(st.TotalXP)
	st.UpdatedAt = r.now
	return AwardResult{Awarded: true, TotalXP: st.TotalXP, PreviousLevel: prev, Level: st.Level, EarnedAt: r.now}, nil
}

func (r *memRepo) EarnedAchievements(_ context.Context, userID int64) (map[uuid.UUID]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]time.Time, len(r.earned[userID]))
	for id, at := range r.earned[userID] {
		out[id] = at
	}
	return out, nil
}

func (r *memRepo) SeedDefinitions(_ context.Context, defs []AchievementDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seeded = make(map[uuid.UUID]bool, len(defs))
	for _, d := range defs {
		r.seeded[d.ID] = true
	}
	return nil
}

func (r *memRepo) CountUsers(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

func (r *memRepo) CountUsersAbove(_ context.Context, totalXP int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, st := range r.stats {
		if st.TotalXP > totalXP {
			n++
		}
	}
	return n, nil
}

// setStats overwrites a user's row for test setup.
func (r *memRepo) setStats(st models.UserStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[st.UserID] = true
	if st.Counters == nil {
		st.Counters = map[string]int{}
	}
	if st.Level == 0 {
		st.Level = LevelForXP(st.TotalXP)
	}
	r.stats[st.UserID] = &st
}

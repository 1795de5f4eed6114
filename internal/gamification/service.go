package gamification

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/guidely/backend/internal/logger"
	"github.com/guidely/backend/internal/models"
)

const defaultDisplayed = 3

type Service struct {
	repo      Repository
	catalog   *Catalog
	log       *logger.Logger
	displayed int
	now       func() time.Time
}

func NewService(repo Repository, catalog *Catalog, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:      repo,
		catalog:   catalog,
		log:       log.With("component", "gamification"),
		displayed: defaultDisplayed,
		now:       time.Now,
	}
}

// SetDisplayLimit changes how many achievements the dashboard shows by default.
func (s *Service) SetDisplayLimit(n int) {
	if n > 0 {
		s.displayed = n
	}
}

func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// StatChange is the result of any write that may unlock achievements.
type StatChange struct {
	Stats    *models.UserStats
	Unlocked []AchievementDef
	// EarnedAt holds the stored award time of each unlocked achievement.
	EarnedAt map[uuid.UUID]time.Time
}

// SeedCatalog writes every catalog definition to storage.
func (s *Service) SeedCatalog(ctx context.Context) error {
	if err := s.repo.SeedDefinitions(ctx, s.catalog.All()); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	s.log.Info("achievement catalog seeded", "count", s.catalog.Len())
	return nil
}

// ── Stats ───────────────────────────────────────────────

// GetStats returns the user's stats, zeroing a streak that lapsed since the last activity.
func (s *Service) GetStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	stats, err := s.repo.GetOrCreateStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	state, changed := ExpireIfStale(streakState(stats), s.now())
	if !changed {
		return stats, nil
	}
	if err := s.repo.UpdateStreak(ctx, userID, state); err != nil {
		return nil, fmt.Errorf("expire streak: %w", err)
	}
	s.log.Debug("streak expired", "user_id", userID, "was", stats.CurrentStreak)
	stats.CurrentStreak = state.Current
	return stats, nil
}

func (s *Service) IncrementStat(ctx context.Context, userID int64, statKey string, delta int) (*StatChange, error) {
	if delta < 1 {
		return nil, fmt.Errorf("increment %s by %d: %w", statKey, delta, ErrInvalidInput)
	}
	if _, err := s.repo.GetOrCreateStats(ctx, userID); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	stats, err := s.repo.IncrementStat(ctx, userID, statKey, delta)
	if err != nil {
		return nil, err
	}
	value, _ := StatValue(stats, statKey)
	return s.afterWrite(ctx, userID, statUpdate{key: statKey, value: value})
}

func (s *Service) SetStat(ctx context.Context, userID int64, statKey string, value int) (*StatChange, error) {
	if _, err := s.repo.GetOrCreateStats(ctx, userID); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	stats, err := s.repo.SetStat(ctx, userID, statKey, value)
	if err != nil {
		return nil, err
	}

	if statKey == StatStreak || statKey == StatCurrentStreak {
		return s.afterWrite(ctx, userID,
			statUpdate{key: StatStreak, value: int64(stats.CurrentStreak)},
			statUpdate{key: StatCurrentStreak, value: int64(stats.CurrentStreak)},
		)
	}
	v, _ := StatValue(stats, statKey)
	return s.afterWrite(ctx, userID, statUpdate{key: statKey, value: v})
}

// UpdateStreak records activity at the current time and evaluates streak achievements.
func (s *Service) UpdateStreak(ctx context.Context, userID int64) (*StatChange, error) {
	stats, err := s.repo.GetOrCreateStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	next := ApplyActivity(streakState(stats), s.now())
	if err := s.repo.UpdateStreak(ctx, userID, next); err != nil {
		return nil, fmt.Errorf("update streak: %w", err)
	}

	return s.afterWrite(ctx, userID,
		statUpdate{key: StatStreak, value: int64(next.Current)},
		statUpdate{key: StatCurrentStreak, value: int64(next.Current)},
	)
}

// afterWrite evaluates the seeds and re-reads stats so the result includes awarded XP.
func (s *Service) afterWrite(ctx context.Context, userID int64, seeds ...statUpdate) (*StatChange, error) {
	unlocked, earnedAt, err := s.evaluate(ctx, userID, seeds)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.GetOrCreateStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reload stats: %w", err)
	}
	return &StatChange{Stats: stats, Unlocked: unlocked, EarnedAt: earnedAt}, nil
}

// ── Achievement Evaluation ──────────────────────────────

type statUpdate struct {
	key   string
	value int64
}

// CheckAchievements awards every unearned achievement on statKey whose threshold
// value meets, then follows the level and totalXP changes those awards cause.
// Unknown stat keys match nothing.
func (s *Service) CheckAchievements(ctx context.Context, userID int64, statKey string, value int64) ([]AchievementDef, error) {
	unlocked, _, err := s.evaluate(ctx, userID, []statUpdate{{key: statKey, value: value}})
	return unlocked, err
}

func (s *Service) evaluate(ctx context.Context, userID int64, seeds []statUpdate) ([]AchievementDef, map[uuid.UUID]time.Time, error) {
	earned, err := s.repo.EarnedAchievements(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load earned achievements: %w", err)
	}

	// every award adds at most two follow-up items and each definition is awarded once
	maxSteps := len(seeds) + 2*s.catalog.Len()

	queue := append([]statUpdate(nil), seeds...)
	var unlocked []AchievementDef
	awardedAt := make(map[uuid.UUID]time.Time)

	for steps := 0; len(queue) > 0; steps++ {
		if steps >= maxSteps {
			return unlocked, awardedAt, ErrCascadeLimit
		}
		item := queue[0]
		queue = queue[1:]

		for _, d := range s.catalog.ByStat(item.key) {
			if int64(d.Requirement.Value) > item.value {
				break
			}
			if _, ok := earned[d.ID]; ok {
				continue
			}

			res, err := s.repo.AwardAchievement(ctx, userID, d)
			if err != nil {
				return unlocked, awardedAt, fmt.Errorf("award %q: %w", d.Name, err)
			}
			earned[d.ID] = res.EarnedAt
			if !res.Awarded {
				continue
			}

			unlocked = append(unlocked, d)
			awardedAt[d.ID] = res.EarnedAt
			s.log.Info("achievement unlocked",
				"user_id", userID,
				"achievement", d.Name,
				"xp", d.XPReward,
				"total_xp", res.TotalXP,
				"level", res.Level,
			)

			if res.Level > res.PreviousLevel {
				queue = append(queue, statUpdate{key: StatLevel, value: int64(res.Level)})
			}
			queue = append(queue, statUpdate{key: StatTotalXP, value: res.TotalXP})
		}
	}

	return unlocked, awardedAt, nil
}

// ── Achievement Views ───────────────────────────────────

// GetUserAchievements lists the whole catalog annotated with the user's progress.
func (s *Service) GetUserAchievements(ctx context.Context, userID int64) ([]models.AchievementView, error) {
	stats, err := s.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	earned, err := s.repo.EarnedAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load earned achievements: %w", err)
	}

	all := s.catalog.All()
	views := make([]models.AchievementView, 0, len(all))
	for _, d := range all {
		var earnedAt *time.Time
		if at, ok := earned[d.ID]; ok {
			at := at
			earnedAt = &at
		}
		views = append(views, NewAchievementView(d, stats, earnedAt))
	}
	return views, nil
}

// GetDisplayedAchievements returns earned achievements, rarest first, newest first within a rarity.
func (s *Service) GetDisplayedAchievements(ctx context.Context, userID int64, limit int) ([]models.AchievementView, error) {
	stats, err := s.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.displayedFor(ctx, stats, limit)
}

func (s *Service) displayedFor(ctx context.Context, stats *models.UserStats, limit int) ([]models.AchievementView, error) {
	if limit <= 0 {
		limit = s.displayed
	}
	earned, err := s.repo.EarnedAchievements(ctx, stats.UserID)
	if err != nil {
		return nil, fmt.Errorf("load earned achievements: %w", err)
	}

	type entry struct {
		def AchievementDef
		at  time.Time
	}
	list := make([]entry, 0, len(earned))
	for id, at := range earned {
		d, ok := s.catalog.Lookup(id)
		if !ok {
			continue
		}
		list = append(list, entry{def: d, at: at})
	}

	sort.Slice(list, func(i, j int) bool {
		wi, wj := list[i].def.Rarity.Weight(), list[j].def.Rarity.Weight()
		if wi != wj {
			return wi > wj
		}
		if !list[i].at.Equal(list[j].at) {
			return list[i].at.After(list[j].at)
		}
		return list[i].def.Name < list[j].def.Name
	})

	if len(list) > limit {
		list = list[:limit]
	}
	views := make([]models.AchievementView, 0, len(list))
	for _, e := range list {
		at := e.at
		views = append(views, NewAchievementView(e.def, stats, &at))
	}
	return views, nil
}

// ── Rank & Progress ─────────────────────────────────────

// ComputeRank ranks the user by total XP among all users. Ties share the better rank.
func (s *Service) ComputeRank(ctx context.Context, userID int64) (*models.RankResponse, error) {
	stats, err := s.repo.GetOrCreateStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return s.rankFor(ctx, stats)
}

func (s *Service) rankFor(ctx context.Context, stats *models.UserStats) (*models.RankResponse, error) {
	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	above, err := s.repo.CountUsersAbove(ctx, stats.TotalXP)
	if err != nil {
		return nil, fmt.Errorf("count users above: %w", err)
	}

	rank := above + 1
	if total < rank {
		total = rank
	}
	return &models.RankResponse{
		Rank:       rank,
		Percentile: ComputePercentile(rank, total, stats.TotalXP, stats.TasksCompleted),
		TotalUsers: total,
	}, nil
}

// GetProgress assembles the dashboard view.
func (s *Service) GetProgress(ctx context.Context, userID int64) (*models.ProgressResponse, error) {
	stats, err := s.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	rank, err := s.rankFor(ctx, stats)
	if err != nil {
		return nil, err
	}

	earned, err := s.repo.EarnedAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load earned achievements: %w", err)
	}

	displayed, err := s.displayedFor(ctx, stats, 0)
	if err != nil {
		return nil, err
	}

	return &models.ProgressResponse{
		Stats:              *stats,
		Level:              LevelProgress(stats.TotalXP),
		Rank:               *rank,
		AchievementsEarned: len(earned),
		AchievementsTotal:  s.catalog.Len(),
		Displayed:          displayed,
	}, nil
}

// ── Helpers ─────────────────────────────────────────────

// StatValue reads statKey from stats. The bool is false for a counter the user has never touched.
func StatValue(stats *models.UserStats, statKey string) (int64, bool) {
	switch statKey {
	case StatTasksCompleted:
		return int64(stats.TasksCompleted), true
	case StatAssessmentsTaken:
		return int64(stats.AssessmentsTaken), true
	case StatInterviewsPracticed:
		return int64(stats.InterviewsPracticed), true
	case StatCertificationsEarned:
		return int64(stats.CertificationsEarned), true
	case StatStreak, StatCurrentStreak:
		return int64(stats.CurrentStreak), true
	case StatLongestStreak:
		return int64(stats.LongestStreak), true
	case StatLevel:
		return int64(stats.Level), true
	case StatTotalXP:
		return stats.TotalXP, true
	}
	v, ok := stats.Counters[statKey]
	return int64(v), ok
}

func streakState(stats *models.UserStats) StreakState {
	return StreakState{
		Current:      stats.CurrentStreak,
		Longest:      stats.LongestStreak,
		LastActivity: stats.LastActivityDate,
	}
}

// NewAchievementView renders d for stats. A nil earnedAt means not earned.
func NewAchievementView(d AchievementDef, stats *models.UserStats, earnedAt *time.Time) models.AchievementView {
	progress, _ := StatValue(stats, d.Requirement.Type)
	if earnedAt != nil || progress > int64(d.Requirement.Value) {
		progress = int64(d.Requirement.Value)
	}
	if progress < 0 {
		progress = 0
	}
	return models.AchievementView{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Icon:        d.Icon,
		Category:    d.Category,
		Tier:        string(d.Tier),
		Rarity:      string(d.Rarity),
		StatKey:     d.Requirement.Type,
		Threshold:   d.Requirement.Value,
		XPReward:    d.XPReward,
		Earned:      earnedAt != nil,
		EarnedAt:    earnedAt,
		Progress:    int(progress),
	}
}

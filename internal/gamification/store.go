package gamification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/guidely/backend/internal/models"
)

// Repository is the persistence the Service needs. *Store is the Postgres implementation.
type Repository interface {
	GetOrCreateStats(ctx context.Context, userID int64) (*models.UserStats, error)
	IncrementStat(ctx context.Context, userID int64, statKey string, delta int) (*models.UserStats, error)
	SetStat(ctx context.Context, userID int64, statKey string, value int) (*models.UserStats, error)
	UpdateStreak(ctx context.Context, userID int64, s StreakState) error
	AwardAchievement(ctx context.Context, userID int64, def AchievementDef) (AwardResult, error)
	EarnedAchievements(ctx context.Context, userID int64) (map[uuid.UUID]time.Time, error)
	SeedDefinitions(ctx context.Context, defs []AchievementDef) error
	CountUsers(ctx context.Context) (int, error)
	CountUsersAbove(ctx context.Context, totalXP int64) (int, error)
}

// AwardResult describes one grant. Awarded is false when the row already existed.
type AwardResult struct {
	Awarded       bool
	TotalXP       int64
	PreviousLevel int
	Level         int
	EarnedAt      time.Time
}

// Postgres error codes.
const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

// counterColumns routes named stat keys to user_stats columns. Anything else is a JSONB counter.
var counterColumns = map[string]string{
	StatTasksCompleted:       "tasks_completed",
	StatAssessmentsTaken:     "assessments_taken",
	StatInterviewsPracticed:  "interviews_practiced",
	StatCertificationsEarned: "certifications_earned",
}

var streakKeys = map[string]bool{
	StatStreak:        true,
	StatCurrentStreak: true,
	StatLongestStreak: true,
}

var statKeyPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{0,49}$`)

const statsColumns = `user_id, tasks_completed, assessments_taken, interviews_practiced,
		certifications_earned, current_streak, longest_streak, total_xp, level,
		last_activity_date, counters, created_at, updated_at`

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Core Stats CRUD ─────────────────────────────────────

func (s *Store) GetOrCreateStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_stats (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return nil, fmt.Errorf("create stats for user %d: %w", userID, ErrUserNotFound)
		}
		return nil, fmt.Errorf("upsert stats: %w", err)
	}

	stats, err := scanStats(s.db.QueryRowContext(ctx,
		`SELECT `+statsColumns+` FROM user_stats WHERE user_id = $1`,
		userID,
	))
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}

func (s *Store) IncrementStat(ctx context.Context, userID int64, statKey string, delta int) (*models.UserStats, error) {
	if statKey == StatTotalXP || statKey == StatLevel || streakKeys[statKey] {
		return nil, fmt.Errorf("increment %s: %w", statKey, ErrProtectedStat)
	}

	var row *sql.Row
	if col, ok := counterColumns[statKey]; ok {
		row = s.db.QueryRowContext(ctx,
			`UPDATE user_stats SET `+col+` = `+col+` + $2, updated_at = NOW()
			 WHERE user_id = $1
			 RETURNING `+statsColumns,
			userID, delta,
		)
	} else {
		if !statKeyPattern.MatchString(statKey) {
			return nil, fmt.Errorf("increment %q: %w", statKey, ErrInvalidInput)
		}
		row = s.db.QueryRowContext(ctx,
			`UPDATE user_stats SET
			    counters = jsonb_set(counters, ARRAY[$2::text], to_jsonb(COALESCE((counters->>$2)::int, 0) + $3)),
			    updated_at = NOW()
			 WHERE user_id = $1
			 RETURNING `+statsColumns,
			userID, statKey, delta,
		)
	}

	stats, err := scanStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("increment %s for user %d: %w", statKey, userID, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("increment %s: %w", statKey, err)
	}
	return stats, nil
}

func (s *Store) SetStat(ctx context.Context, userID int64, statKey string, value int) (*models.UserStats, error) {
	if statKey == StatTotalXP || statKey == StatLevel {
		return nil, fmt.Errorf("set %s: %w", statKey, ErrProtectedStat)
	}
	if value < 0 {
		return nil, fmt.Errorf("set %s to %d: %w", statKey, value, ErrInvalidInput)
	}

	var row *sql.Row
	switch {
	case statKey == StatLongestStreak:
		row = s.db.QueryRowContext(ctx,
			`UPDATE user_stats SET longest_streak = GREATEST(longest_streak, $2, current_streak), updated_at = NOW()
			 WHERE user_id = $1
			 RETURNING `+statsColumns,
			userID, value,
		)
	case streakKeys[statKey]:
		row = s.db.QueryRowContext(ctx,
			`UPDATE user_stats SET current_streak = $2, longest_streak = GREATEST(longest_streak, $2), updated_at = NOW()
			 WHERE user_id = $1
			 RETURNING `+statsColumns,
			userID, value,
		)
	case counterColumns[statKey] != "":
		// activity counters only move up; an earned achievement stays backed by its stat
		col := counterColumns[statKey]
		row = s.db.QueryRowContext(ctx,
			`UPDATE user_stats SET `+col+` = GREATEST(`+col+`, $2), updated_at = NOW()
			 WHERE user_id = $1
			 RETURNING `+statsColumns,
			userID, value,
		)
	default:
		if !statKeyPattern.MatchString(statKey) {
			return nil, fmt.Errorf("set %q: %w", statKey, ErrInvalidInput)
		}
		row = s.db.QueryRowContext(ctx,
			`UPDATE user_stats SET counters = jsonb_set(counters, ARRAY[$2::text], to_jsonb($3::int)), updated_at = NOW()
			 WHERE user_id = $1
			 RETURNING `+statsColumns,
			userID, statKey, value,
		)
	}

	stats, err := scanStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("set %s for user %d: %w", statKey, userID, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", statKey, err)
	}
	return stats, nil
}

func (s *Store) UpdateStreak(ctx context.Context, userID int64, st StreakState) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_stats SET
		    current_streak = $2,
		    longest_streak = GREATEST(longest_streak, $3, $2),
		    last_activity_date = $4,
		    updated_at = NOW()
		 WHERE user_id = $1`,
		userID, st.Current, st.Longest, st.LastActivity,
	)
	if err != nil {
		return fmt.Errorf("update streak: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update streak for user %d: %w", userID, ErrUserNotFound)
	}
	return nil
}

// ── Achievements ────────────────────────────────────────

// AwardAchievement grants def and its XP in one transaction. The primary key on
// (user_id, achievement_id) decides concurrent grants; the loser gets Awarded=false.
func (s *Store) AwardAchievement(ctx context.Context, userID int64, def AchievementDef) (AwardResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AwardResult{}, fmt.Errorf("begin award tx: %w", err)
	}
	defer tx.Rollback()

	var earnedAt time.Time
	err = tx.QueryRowContext(ctx,
		`INSERT INTO user_achievements (user_id, achievement_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, achievement_id) DO NOTHING
		 RETURNING earned_at`,
		userID, def.ID,
	).Scan(&earnedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// already earned
		return AwardResult{}, nil
	}
	if err != nil {
		switch pqCode(err) {
		case pqUniqueViolation:
			return AwardResult{}, nil
		case pqForeignKeyViolation:
			if strings.Contains(pqConstraint(err), "achievement_id") {
				return AwardResult{}, fmt.Errorf("award %q: %w", def.Name, ErrCatalogNotSeeded)
			}
			return AwardResult{}, fmt.Errorf("award %q to user %d: %w", def.Name, userID, ErrUserNotFound)
		}
		return AwardResult{}, fmt.Errorf("insert user achievement: %w", err)
	}

	var totalXP int64
	var level int
	err = tx.QueryRowContext(ctx,
		`SELECT total_xp, level FROM user_stats WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&totalXP, &level)
	if errors.Is(err, sql.ErrNoRows) {
		return AwardResult{}, fmt.Errorf("award %q to user %d: %w", def.Name, userID, ErrUserNotFound)
	}
	if err != nil {
		return AwardResult{}, fmt.Errorf("lock stats: %w", err)
	}

	newTotal := totalXP + int64(def.XPReward)
	newLevel := LevelForXP(newTotal)

	if _, err := tx.ExecContext(ctx,
		`UPDATE user_stats SET total_xp = $2, level = $3, updated_at = NOW() WHERE user_id = $1`,
		userID, newTotal, newLevel,
	); err != nil {
		return AwardResult{}, fmt.Errorf("add xp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return AwardResult{}, fmt.Errorf("commit award: %w", err)
	}

	return AwardResult{Awarded: true, TotalXP: newTotal, PreviousLevel: level, Level: newLevel, EarnedAt: earnedAt}, nil
}

func (s *Store) EarnedAchievements(ctx context.Context, userID int64) (map[uuid.UUID]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT achievement_id, earned_at FROM user_achievements WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get earned achievements: %w", err)
	}
	defer rows.Close()

	earned := make(map[uuid.UUID]time.Time)
	for rows.Next() {
		var id uuid.UUID
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("scan earned achievement: %w", err)
		}
		earned[id] = at
	}
	return earned, rows.Err()
}

// SeedDefinitions upserts the catalog by name.
func (s *Store) SeedDefinitions(ctx context.Context, defs []AchievementDef) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer tx.Rollback()

	for _, d := range defs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO achievements (id, name, description, icon, category, tier, rarity,
			                           requirement_type, requirement_value, xp_reward)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (name) DO UPDATE SET
			    description = EXCLUDED.description,
			    icon = EXCLUDED.icon,
			    category = EXCLUDED.category,
			    tier = EXCLUDED.tier,
			    rarity = EXCLUDED.rarity,
			    requirement_type = EXCLUDED.requirement_type,
			    requirement_value = EXCLUDED.requirement_value,
			    xp_reward = EXCLUDED.xp_reward,
			    updated_at = NOW()`,
			d.ID, d.Name, d.Description, d.Icon, d.Category, string(d.Tier), string(d.Rarity),
			d.Requirement.Type, d.Requirement.Value, d.XPReward,
		)
		if err != nil {
			return fmt.Errorf("seed %q: %w", d.Name, err)
		}
	}

	return tx.Commit()
}

// ── Ranking ─────────────────────────────────────────────

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (s *Store) CountUsersAbove(ctx context.Context, totalXP int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_stats WHERE total_xp > $1`,
		totalXP,
	).Scan(&n)
	return n, err
}

// ── Helpers ─────────────────────────────────────────────

func scanStats(row *sql.Row) (*models.UserStats, error) {
	var st models.UserStats
	var counters []byte
	err := row.Scan(&st.UserID, &st.TasksCompleted, &st.AssessmentsTaken, &st.InterviewsPracticed,
		&st.CertificationsEarned, &st.CurrentStreak, &st.LongestStreak, &st.TotalXP, &st.Level,
		&st.LastActivityDate, &counters, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	st.Counters = map[string]int{}
	if len(counters) > 0 {
		if err := json.Unmarshal(counters, &st.Counters); err != nil {
			return nil, fmt.Errorf("decode counters: %w", err)
		}
	}
	return &st, nil
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func pqConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

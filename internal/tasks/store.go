package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/guidely/backend/internal/models"
)

var ErrTaskNotFound = errors.New("task progress not found")

// Repository persists per-user task progress and roadmap definitions.
type Repository interface {
	Complete(ctx context.Context, userID int64, roadmapID, taskID string, at time.Time) (*Completion, error)
	Uncomplete(ctx context.Context, userID int64, roadmapID, taskID string) (*models.TaskProgress, error)
	List(ctx context.Context, userID int64, roadmapID string) ([]models.TaskProgress, error)
	CompletedSince(ctx context.Context, userID int64, since time.Time) (int, error)
	RoadmapProgress(ctx context.Context, userID int64, roadmapID string) (done, total int, err error)
	DefineRoadmap(ctx context.Context, roadmapID string, tasks []models.RoadmapTask) error
}

const progressColumns = `id, user_id, roadmap_id, task_id, completed, completed_at, counted_at, created_at, updated_at`

// Completion is the outcome of marking a task done.
type Completion struct {
	Task *models.TaskProgress
	// Flipped is true when this call moved the task from not-done to done.
	Flipped bool
	// FirstTime is true only for the completion that first counted the task.
	// Completing again after an uncomplete flips it without counting.
	FirstTime bool
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Complete marks the task done. Flipped is true only when this call moved it from
// not-done, so two racing requests cannot both count the same task. counted_at
// survives uncompletes and decides FirstTime.
func (s *Store) Complete(ctx context.Context, userID int64, roadmapID, taskID string, at time.Time) (*Completion, error) {
	var tp models.TaskProgress
	var first bool
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO task_progress (user_id, roadmap_id, task_id, completed, completed_at, counted_at)
		 VALUES ($1, $2, $3, TRUE, $4, $4)
		 ON CONFLICT (user_id, roadmap_id, task_id) DO UPDATE
		    SET completed = TRUE,
		        completed_at = EXCLUDED.completed_at,
		        counted_at = COALESCE(task_progress.counted_at, EXCLUDED.counted_at),
		        updated_at = NOW()
		    WHERE task_progress.completed = FALSE
		 RETURNING `+progressColumns+`, counted_at = $4`,
		userID, roadmapID, taskID, at,
	).Scan(&tp.ID, &tp.UserID, &tp.RoadmapID, &tp.TaskID, &tp.Completed,
		&tp.CompletedAt, &tp.CountedAt, &tp.CreatedAt, &tp.UpdatedAt, &first)
	if err == nil {
		return &Completion{Task: &tp, Flipped: true, FirstTime: first}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("complete task: %w", err)
	}

	// already completed
	got, err := s.get(ctx, userID, roadmapID, taskID)
	if err != nil {
		return nil, err
	}
	return &Completion{Task: got}, nil
}

func (s *Store) Uncomplete(ctx context.Context, userID int64, roadmapID, taskID string) (*models.TaskProgress, error) {
	tp, err := scanProgress(s.db.QueryRowContext(ctx,
		`UPDATE task_progress SET completed = FALSE, completed_at = NULL, updated_at = NOW()
		 WHERE user_id = $1 AND roadmap_id = $2 AND task_id = $3
		 RETURNING `+progressColumns,
		userID, roadmapID, taskID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("uncomplete task: %w", err)
	}
	return tp, nil
}

func (s *Store) List(ctx context.Context, userID int64, roadmapID string) ([]models.TaskProgress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+progressColumns+` FROM task_progress
		 WHERE user_id = $1 AND roadmap_id = $2
		 ORDER BY task_id`,
		userID, roadmapID,
	)
	if err != nil {
		return nil, fmt.Errorf("list task progress: %w", err)
	}
	defer rows.Close()

	var out []models.TaskProgress
	for rows.Next() {
		var tp models.TaskProgress
		if err := rows.Scan(&tp.ID, &tp.UserID, &tp.RoadmapID, &tp.TaskID, &tp.Completed,
			&tp.CompletedAt, &tp.CountedAt, &tp.CreatedAt, &tp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task progress: %w", err)
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

// CompletedSince counts tasks first counted at or after since.
func (s *Store) CompletedSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM task_progress
		 WHERE user_id = $1 AND counted_at >= $2`,
		userID, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tasks since: %w", err)
	}
	return n, nil
}

// RoadmapProgress counts completed tasks among the roadmap's defined tasks.
// total is 0 for a roadmap that was never defined.
func (s *Store) RoadmapProgress(ctx context.Context, userID int64, roadmapID string) (int, int, error) {
	var done, total int
	err := s.db.QueryRowContext(ctx,
		`SELECT
		    COUNT(tp.id) FILTER (WHERE tp.completed),
		    COUNT(*)
		 FROM roadmap_tasks rt
		 LEFT JOIN task_progress tp
		    ON tp.roadmap_id = rt.roadmap_id AND tp.task_id = rt.task_id AND tp.user_id = $1
		 WHERE rt.roadmap_id = $2`,
		userID, roadmapID,
	).Scan(&done, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("roadmap progress: %w", err)
	}
	return done, total, nil
}

// DefineRoadmap replaces the task list of roadmapID.
func (s *Store) DefineRoadmap(ctx context.Context, roadmapID string, tasks []models.RoadmapTask) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin roadmap tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM roadmap_tasks WHERE roadmap_id = $1`, roadmapID); err != nil {
		return fmt.Errorf("clear roadmap: %w", err)
	}
	for _, t := range tasks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO roadmap_tasks (roadmap_id, task_id, title) VALUES ($1, $2, $3)
			 ON CONFLICT (roadmap_id, task_id) DO UPDATE SET title = EXCLUDED.title`,
			roadmapID, t.TaskID, t.Title,
		); err != nil {
			return fmt.Errorf("insert roadmap task %q: %w", t.TaskID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) get(ctx context.Context, userID int64, roadmapID, taskID string) (*models.TaskProgress, error) {
	tp, err := scanProgress(s.db.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM task_progress
		 WHERE user_id = $1 AND roadmap_id = $2 AND task_id = $3`,
		userID, roadmapID, taskID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task progress: %w", err)
	}
	return tp, nil
}

func scanProgress(row *sql.Row) (*models.TaskProgress, error) {
	var tp models.TaskProgress
	err := row.Scan(&tp.ID, &tp.UserID, &tp.RoadmapID, &tp.TaskID, &tp.Completed,
		&tp.CompletedAt, &tp.CountedAt, &tp.CreatedAt, &tp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &tp, nil
}

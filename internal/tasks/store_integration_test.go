package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guidely/backend/internal/config"
	"github.com/guidely/backend/internal/database"
	"github.com/guidely/backend/internal/models"
)

// Postgres-backed tests run only when DB_HOST points at a disposable database.
var (
	testDB   *sql.DB
	testUser int64
)

func TestMain(m *testing.M) {
	if err := setup(); err != nil {
		fmt.Fprintln(os.Stderr, "store setup:", err)
		os.Exit(1)
	}
	code := m.Run()
	teardown()
	os.Exit(code)
}

func setup() error {
	if os.Getenv("DB_HOST") == "" {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	email := fmt.Sprintf("tasks-test-%s@guidely.test", uuid.NewString())
	if err := db.QueryRow(
		`INSERT INTO users (email, name, password) VALUES ($1, 'Tasks Test', 'x') RETURNING id`,
		email,
	).Scan(&testUser); err != nil {
		return err
	}
	testDB = db
	return nil
}

func teardown() {
	if testDB == nil {
		return
	}
	testDB.Exec(`DELETE FROM users WHERE id = $1`, testUser)
	testDB.Close()
}

func TestStoreCompleteCountsOnce(t *testing.T) {
	if testDB == nil {
		t.Skip("DB_HOST not set")
	}
	store := NewStore(testDB)
	ctx := context.Background()
	roadmap := "store-test-" + uuid.NewString()[:8]
	at := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, store.DefineRoadmap(ctx, roadmap, []models.RoadmapTask{{TaskID: "a"}, {TaskID: "b"}}))

	c, err := store.Complete(ctx, testUser, roadmap, "a", at)
	require.NoError(t, err)
	assert.True(t, c.Flipped)
	assert.True(t, c.FirstTime)
	require.NotNil(t, c.Task.CountedAt)

	c, err = store.Complete(ctx, testUser, roadmap, "a", at.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, c.Flipped)
	assert.False(t, c.FirstTime)

	tp, err := store.Uncomplete(ctx, testUser, roadmap, "a")
	require.NoError(t, err)
	assert.False(t, tp.Completed)
	assert.NotNil(t, tp.CountedAt)

	c, err = store.Complete(ctx, testUser, roadmap, "a", at.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, c.Flipped)
	assert.False(t, c.FirstTime)
	assert.True(t, at.Equal(*c.Task.CountedAt))

	done, total, err := store.RoadmapProgress(ctx, testUser, roadmap)
	require.NoError(t, err)
	assert.Equal(t, 1, done)
	assert.Equal(t, 2, total)

	n, err := store.CompletedSince(ctx, testUser, at)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)

	_, err = store.Uncomplete(ctx, testUser, roadmap, "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

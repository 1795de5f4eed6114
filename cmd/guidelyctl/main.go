package main

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/guidely/backend/internal/config"
	"github.com/guidely/backend/internal/database"
	"github.com/guidely/backend/internal/gamification"
	"github.com/guidely/backend/internal/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "guidelyctl",
	Short: "Administer the Guidely progression backend",
	Long: `guidelyctl runs schema migrations, seeds the achievement catalog and
inspects or adjusts a user's progression from the command line.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env holds what every command that touches the database needs.
type env struct {
	cfg *config.Config
	log *logger.Logger
	db  *sql.DB
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Nop()
	if verbose {
		if log, err = logger.New(cfg.LogMode); err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

func (e *env) Close() {
	e.log.Sync()
	e.db.Close()
}

func (e *env) engine() *gamification.Service {
	svc := gamification.NewService(gamification.NewStore(e.db), gamification.DefaultCatalog(), e.log)
	svc.SetDisplayLimit(e.cfg.DisplayedAchievements)
	return svc
}

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return id, nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/guidely/backend/internal/auth"
	"github.com/guidely/backend/internal/coach"
	"github.com/guidely/backend/internal/config"
	"github.com/guidely/backend/internal/database"
	"github.com/guidely/backend/internal/gamification"
	"github.com/guidely/backend/internal/logger"
	"github.com/guidely/backend/internal/middleware"
	"github.com/guidely/backend/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}

	// Progression engine
	gamService := gamification.NewService(gamification.NewStore(db), gamification.DefaultCatalog(), log)
	gamService.SetDisplayLimit(cfg.DisplayedAchievements)
	if err := gamService.SeedCatalog(context.Background()); err != nil {
		log.Fatal("failed to seed achievements", "error", err)
	}

	taskService := tasks.NewService(tasks.NewStore(db), gamService, log)

	llm, model := coach.NewClient(cfg, log)

	// Initialize handlers
	authHandler := auth.NewHandler(db, []byte(cfg.JWTSecret), log)
	gamHandler := gamification.NewHandler(gamService)
	taskHandler := tasks.NewHandler(taskService)
	coachHandler := coach.NewHandler(gamService, coach.New(llm, model), log)

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log))
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth([]byte(cfg.JWTSecret)))
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	gamHandler.Register(protected)
	taskHandler.Register(protected)
	coachHandler.Register(protected)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
	log.Info("server stopped")
}

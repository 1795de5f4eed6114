package coach

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/guidely/backend/internal/gamification"
	"github.com/guidely/backend/internal/logger"
	"github.com/guidely/backend/internal/middleware"
	"github.com/guidely/backend/internal/models"
)

// ProgressSource is satisfied by *gamification.Service.
type ProgressSource interface {
	GetProgress(ctx context.Context, userID int64) (*models.ProgressResponse, error)
}

type Handler struct {
	progress ProgressSource
	coach    *Coach
	log      *logger.Logger
}

func NewHandler(progress ProgressSource, coach *Coach, log *logger.Logger) *Handler {
	return &Handler{progress: progress, coach: coach, log: log.With("component", "coach")}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/progress/insights", h.GetInsights).Methods("GET")
}

func (h *Handler) GetInsights(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	p, err := h.progress.GetProgress(r.Context(), userID)
	if err != nil {
		if errors.Is(err, gamification.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "User not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get progress"})
		return
	}

	ins, err := h.coach.Insights(r.Context(), p)
	if err != nil {
		h.log.Error("insights failed", "user_id", userID, "model", h.coach.ModelName(), "error", err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Coach is unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, ins)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

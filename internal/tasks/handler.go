package tasks

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/guidely/backend/internal/gamification"
	"github.com/guidely/backend/internal/middleware"
	"github.com/guidely/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/tasks/complete", h.CompleteTask).Methods("POST")
	r.HandleFunc("/tasks/uncomplete", h.UncompleteTask).Methods("POST")
	r.HandleFunc("/activities", h.RecordActivity).Methods("POST")
	r.HandleFunc("/roadmaps/{roadmapID}/tasks", h.ListTasks).Methods("GET")
	r.HandleFunc("/roadmaps/{roadmapID}/tasks", h.DefineRoadmap).Methods("PUT")
}

func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	res, err := h.service.CompleteTask(r.Context(), userID, req.RoadmapID, req.TaskID)
	if err != nil {
		writeError(w, err, "Failed to complete task")
		return
	}

	writeJSON(w, http.StatusOK, completeResponse(res))
}

func (h *Handler) UncompleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	tp, err := h.service.UncompleteTask(r.Context(), userID, req.RoadmapID, req.TaskID)
	if err != nil {
		writeError(w, err, "Failed to update task")
		return
	}

	writeJSON(w, http.StatusOK, tp)
}

func (h *Handler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	res, err := h.service.RecordActivity(r.Context(), userID, req.Kind)
	if err != nil {
		writeError(w, err, "Failed to record activity")
		return
	}

	writeJSON(w, http.StatusOK, models.StatChangeResponse{
		Stats:                *res.Stats,
		AchievementsUnlocked: views(res),
	})
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	list, err := h.service.ListTasks(r.Context(), userID, mux.Vars(r)["roadmapID"])
	if err != nil {
		writeError(w, err, "Failed to list tasks")
		return
	}
	if list == nil {
		list = []models.TaskProgress{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": list})
}

func (h *Handler) DefineRoadmap(w http.ResponseWriter, r *http.Request) {
	var req models.DefineRoadmapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	roadmapID := mux.Vars(r)["roadmapID"]
	if err := h.service.DefineRoadmap(r.Context(), roadmapID, req.Tasks); err != nil {
		writeError(w, err, "Failed to save roadmap")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"roadmap_id": roadmapID, "tasks": len(req.Tasks)})
}

// ── Helpers ─────────────────────────────────────────────

func completeResponse(res *Result) models.TaskCompleteResponse {
	return models.TaskCompleteResponse{
		Task:                 *res.Task,
		NewlyCompleted:       res.NewlyCompleted,
		Counted:              res.Counted,
		AchievementsUnlocked: views(res),
		Stats:                res.Stats,
	}
}

func views(res *Result) []models.AchievementView {
	out := make([]models.AchievementView, 0, len(res.Unlocked))
	stats := res.Stats
	if stats == nil {
		stats = &models.UserStats{}
	}
	for _, d := range res.Unlocked {
		at, ok := res.EarnedAt[d.ID]
		if !ok {
			at = time.Now()
		}
		out = append(out, gamification.NewAchievementView(d, stats, &at))
	}
	return out
}

func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidTask), errors.Is(err, ErrUnknownActivity):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, gamification.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: fallback})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

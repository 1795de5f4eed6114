package gamification

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/guidely/backend/internal/middleware"
	"github.com/guidely/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the progression routes on an authenticated router.
// Raw stat writes are not exposed here; they arrive through task and
// activity events or the guidelyctl admin tool.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/progress", h.GetProgress).Methods("GET")
	r.HandleFunc("/stats", h.GetStats).Methods("GET")
	r.HandleFunc("/streak", h.UpdateStreak).Methods("POST")
	r.HandleFunc("/achievements", h.ListAchievements).Methods("GET")
	r.HandleFunc("/achievements/displayed", h.DisplayedAchievements).Methods("GET")
	r.HandleFunc("/achievements/catalog", h.Catalog).Methods("GET")
	r.HandleFunc("/rank", h.GetRank).Methods("GET")
}

// ── Progress & Stats ────────────────────────────────────

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.GetProgress(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to get progress")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	stats, err := h.service.GetStats(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to get stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) UpdateStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	change, err := h.service.UpdateStreak(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to update streak")
		return
	}

	writeJSON(w, http.StatusOK, changeResponse(change))
}

// ── Achievements ────────────────────────────────────────

func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	views, err := h.service.GetUserAchievements(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to get achievements")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"achievements": views})
}

func (h *Handler) DisplayedAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	limit := intQueryParam(r.URL.Query(), "limit", 0)

	views, err := h.service.GetDisplayedAchievements(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err, "Failed to get achievements")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"achievements": views})
}

func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	defs := h.service.Catalog().All()
	views := make([]models.AchievementView, 0, len(defs))
	for _, d := range defs {
		views = append(views, NewAchievementView(d, &models.UserStats{}, nil))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"achievements": views})
}

// ── Rank ────────────────────────────────────────────────

func (h *Handler) GetRank(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.ComputeRank(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to get rank")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ── Helpers ─────────────────────────────────────────────

func changeResponse(c *StatChange) models.StatChangeResponse {
	resp := models.StatChangeResponse{
		Stats:                *c.Stats,
		AchievementsUnlocked: make([]models.AchievementView, 0, len(c.Unlocked)),
	}
	for _, d := range c.Unlocked {
		at, ok := c.EarnedAt[d.ID]
		if !ok {
			at = c.Stats.UpdatedAt
		}
		resp.AchievementsUnlocked = append(resp.AchievementsUnlocked, NewAchievementView(d, c.Stats, &at))
	}
	return resp
}

// writeError maps engine sentinels to statuses; anything else is a 500 with fallback as the message.
func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "User not found"})
	case errors.Is(err, ErrProtectedStat), errors.Is(err, ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: fallback})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}

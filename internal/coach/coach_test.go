package coach

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/guidely/backend/internal/logger"
	"github.com/guidely/backend/internal/middleware"
	"github.com/guidely/backend/internal/models"
)

type stubClient struct {
	content string
	err     error
	user    string
}

func (s *stubClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	s.user = userPrompt
	if s.err != nil {
		return nil, s.err
	}
	return &LLMResponse{Content: s.content}, nil
}

func sampleProgress() *models.ProgressResponse {
	return &models.ProgressResponse{
		Stats:              models.UserStats{TasksCompleted: 12, CurrentStreak: 4, LongestStreak: 9, TotalXP: 450},
		Level:              models.LevelInfo{Level: 3, XPIntoLevel: 50, XPForLevel: 500, XPForNextLevel: 900},
		Rank:               models.RankResponse{Rank: 3, Percentile: 30, TotalUsers: 10},
		AchievementsEarned: 4,
		AchievementsTotal:  35,
		Displayed:          []models.AchievementView{{Name: "📚 Consistent Learner"}},
	}
}

func TestParseInsights(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantSteps int
		wantErr   bool
	}{
		{"plain json", `{"headline":"Keep going","next_steps":["a","b"]}`, 2, false},
		{"json fence", "```json\n{\"headline\":\"Hi\",\"next_steps\":[\"a\"]}\n```", 1, false},
		{"bare fence", "```\n{\"headline\":\"Hi\",\"next_steps\":[]}\n```", 0, false},
		{"chatter around object", "Sure! Here you go:\n{\"headline\":\"Hi\",\"next_steps\":[\"a\"]}\nGood luck.", 1, false},
		{"blank steps dropped", `{"headline":"Hi","next_steps":["  ","a",""]}`, 1, false},
		{"too many steps", `{"headline":"Hi","next_steps":["1","2","3","4","5","6","7"]}`, maxNextSteps, false},
		{"empty object", `{}`, 0, true},
		{"not json", `I cannot help with that.`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins, err := ParseInsights(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", ins)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(ins.NextSteps) != tt.wantSteps {
				t.Errorf("expected %d steps, got %d", tt.wantSteps, len(ins.NextSteps))
			}
		})
	}
}

func TestParseInsights_EmptyIsSentinel(t *testing.T) {
	_, err := ParseInsights(`{"headline":"  ","next_steps":[" "]}`)
	if !errors.Is(err, ErrEmptyInsights) {
		t.Fatalf("expected ErrEmptyInsights, got %v", err)
	}
}

func TestBuildUserPrompt(t *testing.T) {
	prompt := BuildUserPrompt(sampleProgress())
	for _, want := range []string{"Level 3", "450 total XP", "Rank 3 of 10", "top 30%", "Tasks completed: 12", "Current streak 4", "4 of 35", "Consistent Learner"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestInsightsWithMockClient(t *testing.T) {
	c := New(NewMockClient(), "mock")
	ins, err := c.Insights(context.Background(), sampleProgress())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ins.Headline == "" || len(ins.NextSteps) != 2 {
		t.Errorf("unexpected insights: %+v", ins)
	}
}

func TestInsightsPropagatesClientError(t *testing.T) {
	c := New(&stubClient{err: errors.New("rate limited")}, "stub")
	if _, err := c.Insights(context.Background(), sampleProgress()); err == nil {
		t.Fatal("expected error")
	}
}

type fixedProgress struct {
	p   *models.ProgressResponse
	err error
}

func (f fixedProgress) GetProgress(ctx context.Context, userID int64) (*models.ProgressResponse, error) {
	return f.p, f.err
}

func TestGetInsightsHandler(t *testing.T) {
	tests := []struct {
		name   string
		client LLMClient
		authed bool
		want   int
	}{
		{"ok", NewMockClient(), true, http.StatusOK},
		{"unauthenticated", NewMockClient(), false, http.StatusUnauthorized},
		{"coach down", &stubClient{err: errors.New("boom")}, true, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(fixedProgress{p: sampleProgress()}, New(tt.client, "test"), logger.Nop())
			req := httptest.NewRequest(http.MethodGet, "/progress/insights", nil)
			if tt.authed {
				req = req.WithContext(middleware.WithUserID(req.Context(), 1))
			}
			rec := httptest.NewRecorder()
			h.GetInsights(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

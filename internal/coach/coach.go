package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/guidely/backend/internal/models"
)

const maxNextSteps = 5

var ErrEmptyInsights = errors.New("coach returned no usable insights")

// Insights is the coaching text shown next to the progress dashboard.
type Insights struct {
	Headline      string   `json:"headline"`
	NextSteps     []string `json:"next_steps"`
	Encouragement string   `json:"encouragement,omitempty"`
}

// Coach turns a progress snapshot into short, actionable advice.
type Coach struct {
	llm   LLMClient
	model string
}

func New(llm LLMClient, model string) *Coach {
	return &Coach{llm: llm, model: model}
}

func (c *Coach) ModelName() string {
	return c.model
}

func (c *Coach) Insights(ctx context.Context, p *models.ProgressResponse) (*Insights, error) {
	resp, err := c.llm.Generate(ctx, SystemPrompt(), BuildUserPrompt(p))
	if err != nil {
		return nil, fmt.Errorf("generate insights: %w", err)
	}

	ins, err := ParseInsights(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse insights: %w", err)
	}
	return ins, nil
}

func SystemPrompt() string {
	return `You are a career coach inside a learning app. You receive a learner's progress
snapshot and reply with ONLY a JSON object, no prose:
{"headline": string, "next_steps": [string, ...], "encouragement": string}
Keep the headline under 80 characters and give two to four concrete next steps.
Never invent achievements the learner has not earned.`
}

// BuildUserPrompt summarises the snapshot the model sees.
func BuildUserPrompt(p *models.ProgressResponse) string {
	var b strings.Builder
	s := p.Stats
	fmt.Fprintf(&b, "Level %d (%d/%d XP into the level, %d total XP).\n",
		p.Level.Level, p.Level.XPIntoLevel, p.Level.XPForLevel, s.TotalXP)
	fmt.Fprintf(&b, "Rank %d of %d users, top %d%%.\n", p.Rank.Rank, p.Rank.TotalUsers, p.Rank.Percentile)
	fmt.Fprintf(&b, "Tasks completed: %d. Assessments: %d. Mock interviews: %d. Certifications: %d.\n",
		s.TasksCompleted, s.AssessmentsTaken, s.InterviewsPracticed, s.CertificationsEarned)
	fmt.Fprintf(&b, "Current streak %d days, longest %d days.\n", s.CurrentStreak, s.LongestStreak)
	fmt.Fprintf(&b, "Achievements earned: %d of %d.\n", p.AchievementsEarned, p.AchievementsTotal)

	if len(p.Displayed) > 0 {
		names := make([]string, 0, len(p.Displayed))
		for _, a := range p.Displayed {
			names = append(names, a.Name)
		}
		fmt.Fprintf(&b, "Highlighted achievements: %s.\n", strings.Join(names, ", "))
	}
	return b.String()
}

func ParseInsights(body string) (*Insights, error) {
	cleaned := stripCodeFences(body)

	// tolerate chatter around the object
	if start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); start >= 0 && end > start {
		cleaned = cleaned[start : end+1]
	}

	var ins Insights
	if err := json.Unmarshal([]byte(cleaned), &ins); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	ins.Headline = strings.TrimSpace(ins.Headline)
	steps := ins.NextSteps[:0]
	for _, s := range ins.NextSteps {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
	}
	if len(steps) > maxNextSteps {
		steps = steps[:maxNextSteps]
	}
	ins.NextSteps = steps

	if ins.Headline == "" && len(ins.NextSteps) == 0 {
		return nil, ErrEmptyInsights
	}
	return &ins, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```json"))
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

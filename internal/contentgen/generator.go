package contentgen

import (
	"context"
	"fmt"
	"strings"

	"leadflow-platform/internal/campaigns"
	"leadflow-platform/internal/conversations"
	"leadflow-platform/internal/leads"
)

// Generator drafts the agent's next message from the conversation so far.
//
// Implementations are external collaborators with unbounded latency; the
// orchestrator never calls Draft while holding a conversation lock.

type Generator interface {
	Draft(ctx context.Context, req DraftRequest) (Draft, error)
}

// DraftRequest is an immutable snapshot handed to the generator. The
// generator must not observe live state; everything it may use is here.
type DraftRequest struct {
	Lead         leads.Lead                 `json:"lead"`
	Campaign     campaigns.Campaign         `json:"campaign"`
	Conversation conversations.Conversation `json:"conversation"`
}

type Draft struct {
	Content string `json:"content"`

	// ScoreDelta lets the generator flag explicit scoring signals it detected
	// while drafting (for example a stated budget). Usually zero.
	ScoreDelta int `json:"score_delta,omitempty"`

	// GoalsCompleted names campaign goals the generator judged complete in
	// this exchange.
	GoalsCompleted []string `json:"goals_completed,omitempty"`
}

// TemplateGenerator is the deterministic built-in generator. It echoes the
// lead's last message and nudges toward the first incomplete campaign goal.
// Useful for wiring, local runs and tests; production deployments inject a
// real generator.
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator { return &TemplateGenerator{} }

func (g *TemplateGenerator) Draft(ctx context.Context, req DraftRequest) (Draft, error) {
	name := req.Lead.DisplayName
	if name == "" {
		name = "there"
	}

	last := lastLeadMessage(req.Conversation.Messages)
	goal := nextGoal(req.Campaign.Goals, req.Conversation.GoalProgress)

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, thanks for your message", name)
	if last != "" {
		fmt.Fprintf(&b, " about %q", truncate(last, 60))
	}
	b.WriteString(".")
	if goal != "" {
		fmt.Fprintf(&b, " Could you tell me more about your %s?", strings.ReplaceAll(goal, "_", " "))
	}

	return Draft{Content: b.String()}, nil
}

func lastLeadMessage(msgs []conversations.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == conversations.RoleLead {
			return msgs[i].Content
		}
	}
	return ""
}

func nextGoal(goals []string, progress map[string]bool) string {
	for _, g := range goals {
		if !progress[g] {
			return g
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

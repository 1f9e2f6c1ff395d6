package contentgen

import (
	"context"
	"strings"
	"testing"

	"leadflow-platform/internal/campaigns"
	"leadflow-platform/internal/conversations"
	"leadflow-platform/internal/leads"
)

func TestTemplateGenerator_Deterministic(t *testing.T) {
	g := NewTemplateGenerator()
	req := DraftRequest{
		Lead:     leads.Lead{ID: "lead-1", DisplayName: "Sam"},
		Campaign: campaigns.Campaign{Goals: []string{"budget_confirmed", "demo_scheduled"}},
		Conversation: conversations.Conversation{
			Messages: []conversations.Message{
				{Role: conversations.RoleAgent, Content: "Welcome!"},
				{Role: conversations.RoleLead, Content: "I'm comparing pricing plans"},
			},
			GoalProgress: map[string]bool{},
		},
	}

	first, err := g.Draft(context.Background(), req)
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	second, _ := g.Draft(context.Background(), req)
	if first.Content != second.Content {
		t.Fatalf("drafts differ: %q vs %q", first.Content, second.Content)
	}

	if !strings.Contains(first.Content, "Sam") {
		t.Errorf("draft should address the lead by name: %q", first.Content)
	}
	if !strings.Contains(first.Content, "pricing plans") {
		t.Errorf("draft should reference the lead's last message: %q", first.Content)
	}
	if !strings.Contains(first.Content, "budget confirmed") {
		t.Errorf("draft should nudge the first incomplete goal: %q", first.Content)
	}
}

func TestTemplateGenerator_SkipsCompleteGoals(t *testing.T) {
	g := NewTemplateGenerator()
	req := DraftRequest{
		Lead:     leads.Lead{DisplayName: "Alex"},
		Campaign: campaigns.Campaign{Goals: []string{"budget_confirmed", "demo_scheduled"}},
		Conversation: conversations.Conversation{
			GoalProgress: map[string]bool{"budget_confirmed": true},
		},
	}

	d, err := g.Draft(context.Background(), req)
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if strings.Contains(d.Content, "budget confirmed") {
		t.Errorf("complete goal should not be nudged: %q", d.Content)
	}
	if !strings.Contains(d.Content, "demo scheduled") {
		t.Errorf("next incomplete goal missing: %q", d.Content)
	}
}

func TestTemplateGenerator_NoNameNoMessages(t *testing.T) {
	g := NewTemplateGenerator()
	d, err := g.Draft(context.Background(), DraftRequest{})
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if !strings.Contains(d.Content, "Hi there") {
		t.Errorf("fallback greeting missing: %q", d.Content)
	}
}

package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadflow-platform/internal/channels"
	"leadflow-platform/internal/conversations"
	"leadflow-platform/internal/decisions"
	"leadflow-platform/internal/leads"
)

func seededRepo(base time.Time) *MemoryRepo {
	repo := NewMemoryRepo()
	repo.Leads = []leads.Lead{
		{ID: "l1", CampaignID: "camp-1", Status: leads.StatusQualified, QualificationScore: 80, CreatedAt: base},
		{ID: "l2", CampaignID: "camp-1", Status: leads.StatusHandedOver, QualificationScore: 90, CreatedAt: base.Add(time.Hour)},
		{ID: "l3", CampaignID: "camp-1", Status: leads.StatusContacted, QualificationScore: 10, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "other", CampaignID: "camp-2", Status: leads.StatusNew, QualificationScore: 50, CreatedAt: base},
	}
	repo.Conversations = []conversations.Conversation{
		{ID: "c1", LeadID: "l1", Channel: channels.ChannelEmail, Status: conversations.StatusCompleted, StartedAt: base,
			Messages: []conversations.Message{{Content: "a"}, {Content: "b"}}},
		{ID: "c2", LeadID: "l2", Channel: channels.ChannelSMS, Status: conversations.StatusHandoverPending, StartedAt: base.Add(time.Hour),
			Messages: []conversations.Message{{Content: "a"}, {Content: "b"}, {Content: "c"}}},
		{ID: "c3", LeadID: "other", Channel: channels.ChannelChat, Status: conversations.StatusActive, StartedAt: base,
			Messages: []conversations.Message{{Content: "x"}}},
	}
	repo.Decisions = []decisions.Decision{
		{ID: "d1", LeadID: "l2", AgentType: decisions.AgentHandoverEvaluator, Kind: decisions.KindHandoverTriggered,
			Reasoning: "keyword_trigger", CreatedAt: base.Add(time.Hour)},
		{ID: "d2", LeadID: "l1", AgentType: decisions.AgentChannelRouter, Kind: decisions.KindChannelAssigned,
			Reasoning: "campaign primary channel", CreatedAt: base},
		{ID: "d3", LeadID: "other", AgentType: decisions.AgentHandoverEvaluator, Kind: decisions.KindHandoverTriggered,
			Reasoning: "qualification_score", CreatedAt: base},
	}
	return repo
}

func TestEngagementSummary(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(seededRepo(base))

	got, err := svc.EngagementSummary(context.Background(), EngagementSummaryRequest{
		CampaignID: "camp-1",
		Range:      TimeRange{From: base.Add(-time.Hour), To: base.Add(24 * time.Hour)},
	})
	if err != nil {
		t.Fatalf("EngagementSummary: %v", err)
	}

	if got.TotalLeads != 3 {
		t.Fatalf("total leads = %d, want 3 (other campaign excluded)", got.TotalLeads)
	}
	if got.LeadsByStatus["qualified"] != 1 || got.LeadsByStatus["handed_over"] != 1 {
		t.Fatalf("leads by status = %v", got.LeadsByStatus)
	}
	if got.AverageScore != (80+90+10)/3 {
		t.Fatalf("average score = %d", got.AverageScore)
	}

	if got.TotalConversations != 2 {
		t.Fatalf("conversations = %d, want 2", got.TotalConversations)
	}
	if got.TotalMessages != 5 || got.MessagesByChannel["sms"] != 3 {
		t.Fatalf("messages = %d by channel %v", got.TotalMessages, got.MessagesByChannel)
	}

	if got.TotalHandovers != 1 || got.HandoversByReason["keyword_trigger"] != 1 {
		t.Fatalf("handovers = %d by reason %v", got.TotalHandovers, got.HandoversByReason)
	}
}

func TestEngagementSummary_RangeFilters(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(seededRepo(base))

	// Window covering only the first hour drops l2's later activity.
	got, err := svc.EngagementSummary(context.Background(), EngagementSummaryRequest{
		CampaignID: "camp-1",
		Range:      TimeRange{From: base, To: base.Add(30 * time.Minute)},
	})
	if err != nil {
		t.Fatalf("EngagementSummary: %v", err)
	}
	if got.TotalLeads != 1 {
		t.Fatalf("total leads = %d, want 1", got.TotalLeads)
	}
	if got.TotalHandovers != 0 {
		t.Fatalf("handovers = %d, want 0 inside narrow window", got.TotalHandovers)
	}
}

func TestEngagementSummary_InvalidRequests(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()
	now := time.Now()

	cases := []EngagementSummaryRequest{
		{CampaignID: "", Range: TimeRange{From: now.Add(-time.Hour), To: now}},
		{CampaignID: "camp-1"},
		{CampaignID: "camp-1", Range: TimeRange{From: now, To: now.Add(-time.Hour)}},
	}
	for i, req := range cases {
		if _, err := svc.EngagementSummary(ctx, req); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("case %d: err = %v, want ErrInvalidRequest", i, err)
		}
	}
}

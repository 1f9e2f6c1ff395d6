package reporting

import (
	"context"
	"errors"
	"time"

	"leadflow-platform/internal/conversations"
	"leadflow-platform/internal/decisions"
	"leadflow-platform/internal/leads"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// Implementations read immutable or append-only sources (conversation
// history, the decision log) and join conversations and decisions to a
// campaign through their lead.

type Repository interface {
	ListLeads(ctx context.Context, campaignID string, from, to time.Time) ([]leads.Lead, error)
	ListConversations(ctx context.Context, campaignID string, from, to time.Time) ([]conversations.Conversation, error)
	ListDecisions(ctx context.Context, campaignID string, from, to time.Time) ([]decisions.Decision, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// EngagementSummary aggregates a campaign's engagement over a range.
// Read-only: the sources are never mutated.
func (s *Service) EngagementSummary(ctx context.Context, req EngagementSummaryRequest) (EngagementSummary, error) {
	if req.CampaignID == "" {
		return EngagementSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return EngagementSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return EngagementSummary{}, errors.New("reporting: repository not configured")
	}

	out := EngagementSummary{
		CampaignID:            req.CampaignID,
		LeadsByStatus:         map[string]int{},
		ConversationsByStatus: map[string]int{},
		MessagesByChannel:     map[string]int{},
		HandoversByReason:     map[string]int{},
	}

	rows, err := s.repo.ListLeads(ctx, req.CampaignID, req.Range.From, req.Range.To)
	if err != nil {
		return EngagementSummary{}, err
	}
	scoreSum := 0
	for _, l := range rows {
		out.TotalLeads++
		out.LeadsByStatus[string(l.Status)]++
		scoreSum += l.QualificationScore
	}
	if out.TotalLeads > 0 {
		out.AverageScore = scoreSum / out.TotalLeads
	}

	convs, err := s.repo.ListConversations(ctx, req.CampaignID, req.Range.From, req.Range.To)
	if err != nil {
		return EngagementSummary{}, err
	}
	for _, c := range convs {
		out.TotalConversations++
		out.ConversationsByStatus[string(c.Status)]++
		out.TotalMessages += len(c.Messages)
		out.MessagesByChannel[string(c.Channel)] += len(c.Messages)
	}

	recs, err := s.repo.ListDecisions(ctx, req.CampaignID, req.Range.From, req.Range.To)
	if err != nil {
		return EngagementSummary{}, err
	}
	for _, d := range recs {
		if d.Kind != decisions.KindHandoverTriggered {
			continue
		}
		out.TotalHandovers++
		// Reasoning carries the matched escalation rule.
		out.HandoversByReason[d.Reasoning]++
	}

	return out, nil
}

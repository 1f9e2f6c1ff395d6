package reporting

import (
	"context"
	"errors"
	"sync"
	"time"

	"leadflow-platform/internal/conversations"
	"leadflow-platform/internal/decisions"
	"leadflow-platform/internal/leads"
)

// MemoryRepo is a simple in-memory reporting repository for tests and early
// development. Conversations and decisions carry no campaign reference of
// their own, so the repo indexes them through their lead.

type MemoryRepo struct {
	mu sync.Mutex

	Leads         []leads.Lead
	Conversations []conversations.Conversation
	Decisions     []decisions.Decision
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListLeads(ctx context.Context, campaignID string, from, to time.Time) ([]leads.Lead, error) {
	if campaignID == "" {
		return nil, errors.New("campaign_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]leads.Lead, 0)
	for _, l := range r.Leads {
		if l.CampaignID != campaignID {
			continue
		}
		if !inRange(l.CreatedAt, from, to) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *MemoryRepo) ListConversations(ctx context.Context, campaignID string, from, to time.Time) ([]conversations.Conversation, error) {
	if campaignID == "" {
		return nil, errors.New("campaign_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	members := r.leadSet(campaignID)
	out := make([]conversations.Conversation, 0)
	for _, c := range r.Conversations {
		if !members[c.LeadID] {
			continue
		}
		if !inRange(c.StartedAt, from, to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryRepo) ListDecisions(ctx context.Context, campaignID string, from, to time.Time) ([]decisions.Decision, error) {
	if campaignID == "" {
		return nil, errors.New("campaign_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	members := r.leadSet(campaignID)
	out := make([]decisions.Decision, 0)
	for _, d := range r.Decisions {
		if !members[d.LeadID] {
			continue
		}
		if !inRange(d.CreatedAt, from, to) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// leadSet is called with r.mu held.
func (r *MemoryRepo) leadSet(campaignID string) map[string]bool {
	set := make(map[string]bool, len(r.Leads))
	for _, l := range r.Leads {
		if l.CampaignID == campaignID {
			set[l.ID] = true
		}
	}
	return set
}

func inRange(ts, from, to time.Time) bool {
	if ts.IsZero() {
		return true
	}
	return !ts.Before(from) && ts.Before(to)
}

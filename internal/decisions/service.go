package decisions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for the decision log.
//
// The log is append-only: there are no Update or Delete methods.
// Append is safe for concurrent writers; no cross-component ordering
// agreement is required beyond "append happened".

type Repository interface {
	Append(ctx context.Context, d Decision) error
	ListByLead(ctx context.Context, leadID string) ([]Decision, error)
}

// Service records orchestration decisions.
//
// IMPORTANT: callers should treat decision logging as best-effort for
// non-critical paths, but handover and routing decisions are part of the
// operation contract and their append errors must be surfaced.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidDecision = errors.New("decisions: invalid decision")

func (s *Service) Append(ctx context.Context, d Decision) error {
	if s.repo == nil {
		return errors.New("decisions: repository not configured")
	}
	if d.LeadID == "" {
		return ErrInvalidDecision
	}
	if d.AgentType == "" || d.Kind == "" {
		return ErrInvalidDecision
	}

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, d)
}

// Log is the common helper: marshals structured context and appends.
func (s *Service) Log(ctx context.Context, leadID string, agent AgentType, kind Kind, reasoning string, details any) error {
	raw := ""
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return err
		}
		raw = string(b)
	}
	return s.Append(ctx, Decision{
		LeadID:    leadID,
		AgentType: agent,
		Kind:      kind,
		Reasoning: reasoning,
		Context:   raw,
	})
}

// ListByLead returns the lead's decision history in append order.
func (s *Service) ListByLead(ctx context.Context, leadID string) ([]Decision, error) {
	if s.repo == nil {
		return nil, errors.New("decisions: repository not configured")
	}
	if leadID == "" {
		return nil, ErrInvalidDecision
	}
	return s.repo.ListByLead(ctx, leadID)
}

package scoring

import (
	"context"
	"errors"

	"leadflow-platform/internal/campaigns"
	"leadflow-platform/internal/conversations"
	"leadflow-platform/internal/decisions"
	"leadflow-platform/internal/leads"
)

// Scorer derives a lead's qualification score from conversation content and
// campaign criteria.
//
// The computed score is a deterministic function of:
// - campaign goals marked complete in the conversation's goal progress,
//   weighted evenly across the goal list;
// - presence of the campaign's required metadata fields on the lead;
// - explicit per-message score deltas, contributing additively.
//
// Within a single conversation the score is monotonic non-decreasing unless
// a message carries an explicit negative delta: score decay is not supported.
//
// Writers: the scorer is the only writer of a conversation's score snapshot.
// The lead-level aggregate is raised through the repository's compare-and-set
// so concurrent conversations can never lower it.

const (
	goalWeight     = 60
	metadataWeight = 20
)

type Scorer struct {
	leads     leads.Repository
	decisions *decisions.Service
}

func NewScorer(leadRepo leads.Repository, decisionLog *decisions.Service) *Scorer {
	return &Scorer{leads: leadRepo, decisions: decisionLog}
}

var ErrNotConfigured = errors.New("scoring: dependencies not configured")

// Compute returns the deterministic score for the conversation snapshot.
// Pure function: no I/O, no clock, no randomness.
func Compute(c conversations.Conversation, lead leads.Lead, campaign campaigns.Campaign) int {
	score := 0

	if n := len(campaign.Goals); n > 0 {
		complete := 0
		for _, g := range campaign.Goals {
			if c.GoalProgress[g] {
				complete++
			}
		}
		score += goalWeight * complete / n
	}

	if n := len(campaign.Qualification.RequiredFields); n > 0 {
		present := 0
		for _, f := range campaign.Qualification.RequiredFields {
			if lead.HasField(f) {
				present++
			}
		}
		score += metadataWeight * present / n
	}

	for _, m := range c.Messages {
		score += m.ScoreDelta
	}

	return clamp(score)
}

// Recompute derives the new score, applies the monotonicity floor, writes the
// conversation snapshot (in memory; the caller persists the conversation) and
// raises the lead-level aggregate.
//
// A `qualified` decision is emitted only on the lead's first crossing of the
// campaign's qualification threshold. The check runs against the stored
// lead aggregate, not the conversation snapshot, so a later conversation
// (snapshot reset after a channel switch) cannot re-qualify the lead.
func (s *Scorer) Recompute(ctx context.Context, c *conversations.Conversation, lead leads.Lead, campaign campaigns.Campaign) (int, error) {
	if s.leads == nil || s.decisions == nil {
		return 0, ErrNotConfigured
	}

	raw := Compute(*c, lead, campaign)

	// Monotonic non-decreasing unless an explicit negative delta exists.
	score := raw
	if raw < c.ScoreSnapshot && !hasNegativeDelta(c.Messages) {
		score = c.ScoreSnapshot
	}

	stored, err := s.leads.Get(ctx, lead.ID)
	if err != nil {
		return 0, err
	}
	crossed := crossesThreshold(stored.QualificationScore, score, campaign.Qualification.MinScore)
	c.ScoreSnapshot = score

	if _, err := s.leads.RaiseScore(ctx, lead.ID, score); err != nil {
		return 0, err
	}

	if crossed {
		if err := s.decisions.Log(ctx, lead.ID,
			decisions.AgentQualificationScorer, decisions.KindQualified,
			"qualification threshold reached",
			map[string]any{
				"score":          score,
				"threshold":      campaign.Qualification.MinScore,
				"conversation":   c.ID,
				"channel":        c.Channel,
				"goals_complete": completeGoals(*c, campaign),
			},
		); err != nil {
			return 0, err
		}

		// Lifecycle follows the score: a lead that crossed the threshold is
		// qualified. Invalid transitions (already handed over) are fine.
		if err := s.leads.UpdateStatus(ctx, lead.ID, leads.StatusQualified); err != nil &&
			!errors.Is(err, leads.ErrInvalidTransition) {
			return 0, err
		}
	}

	return score, nil
}

func crossesThreshold(prev, next, threshold int) bool {
	if threshold <= 0 {
		return false
	}
	return prev < threshold && next >= threshold
}

func hasNegativeDelta(msgs []conversations.Message) bool {
	for _, m := range msgs {
		if m.ScoreDelta < 0 {
			return true
		}
	}
	return false
}

func completeGoals(c conversations.Conversation, campaign campaigns.Campaign) []string {
	var out []string
	for _, g := range campaign.Goals {
		if c.GoalProgress[g] {
			out = append(out, g)
		}
	}
	return out
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

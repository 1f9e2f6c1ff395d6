package handover

import (
	"encoding/json"
	"strings"
	"time"

	"leadflow-platform/internal/campaigns"
	"leadflow-platform/internal/conversations"
	"leadflow-platform/internal/leads"
)

// Evaluator decides, after each message and score update, whether a
// conversation should escalate to a human.
//
// Priority (first match wins; ties broken by this order, never by magnitude):
//  1) keyword trigger in any message content (case-insensitive)
//  2) qualification score at threshold AND conversation long enough
//  3) all goals in goal_completion_required complete
//  4) conversation older than the elapsed-time threshold AND score at the
//     stale floor (low-value stale conversations stay with the agent)
//
// Return an outcome only. No side effects (no DB writes, no status changes,
// no notifications): the router applies escalations, which keeps Evaluate
// deterministic for a given snapshot.
//
// A campaign with no usable escalation path always evaluates to continue;
// that misconfiguration is rejected at campaign load, not detected here.

type Evaluator struct {
	// Now is injectable for the explicit elapsed-time check; it is the only
	// clock dependency in the decision.
	Now func() time.Time
}

func NewEvaluator() *Evaluator {
	return &Evaluator{Now: time.Now}
}

// Reason names the escalation rule that fired.
type Reason string

const (
	ReasonKeywordTrigger     Reason = "keyword_trigger"
	ReasonQualificationScore Reason = "qualification_score"
	ReasonGoalCompletion     Reason = "goal_completion"
	ReasonTimeThreshold      Reason = "time_threshold"
)

// defaultTimeScoreFloor applies when a campaign enables the time rule
// without naming its own floor.
const defaultTimeScoreFloor = 25

// Outcome is the evaluator's verdict for one conversation snapshot.
type Outcome struct {
	Escalate bool
	Reason   Reason

	// Recipients is the campaign's handover list, priority-sorted, ready for
	// external delivery. Empty when Escalate is false.
	Recipients []campaigns.Recipient

	Summary Summary
}

// Summary is the structured handover context handed to the notifier.
type Summary struct {
	LeadID         string        `json:"lead_id"`
	ConversationID string        `json:"conversation_id"`
	Reason         Reason        `json:"reason"`
	Score          int           `json:"score"`
	GoalsAchieved  []string      `json:"goals_achieved,omitempty"`
	MessageCount   int           `json:"message_count"`
	Elapsed        time.Duration `json:"elapsed"`
}

// MarshalJSON renders Elapsed as a duration string ("26h3m0s") instead of
// raw nanoseconds, so decision-log entries stay readable.
func (s Summary) MarshalJSON() ([]byte, error) {
	type alias Summary
	return json.Marshal(struct {
		alias
		Elapsed string `json:"elapsed"`
	}{alias: alias(s), Elapsed: s.Elapsed.Round(time.Second).String()})
}

// Evaluate applies the escalation rules to one conversation snapshot.
func (e *Evaluator) Evaluate(c conversations.Conversation, lead leads.Lead, campaign campaigns.Campaign) Outcome {
	now := time.Now
	if e != nil && e.Now != nil {
		now = e.Now
	}
	elapsed := now().UTC().Sub(c.StartedAt)
	h := campaign.Handover

	cont := Outcome{Escalate: false}

	if c.Status != conversations.StatusActive {
		return cont
	}

	reason, ok := e.match(c, h, elapsed)
	if !ok {
		return cont
	}

	return Outcome{
		Escalate:   true,
		Reason:     reason,
		Recipients: h.SortedRecipients(),
		Summary: Summary{
			LeadID:         lead.ID,
			ConversationID: c.ID,
			Reason:         reason,
			Score:          c.ScoreSnapshot,
			GoalsAchieved:  achievedGoals(c, campaign),
			MessageCount:   len(c.Messages),
			Elapsed:        elapsed,
		},
	}
}

func (e *Evaluator) match(c conversations.Conversation, h campaigns.HandoverCriteria, elapsed time.Duration) (Reason, bool) {
	// 1) Keyword trigger.
	if matchesKeyword(c.Messages, h.KeywordTriggers) {
		return ReasonKeywordTrigger, true
	}

	// 2) Score threshold, gated by conversation length.
	if h.ScoreThreshold > 0 && c.ScoreSnapshot >= h.ScoreThreshold &&
		len(c.Messages) >= h.MinConversationLength {
		return ReasonQualificationScore, true
	}

	// 3) Goal completion.
	if len(h.GoalCompletionRequired) > 0 && allComplete(c.GoalProgress, h.GoalCompletionRequired) {
		return ReasonGoalCompletion, true
	}

	// 4) Time threshold, gated by the stale-score floor.
	if h.ElapsedTimeThreshold > 0 && elapsed >= h.ElapsedTimeThreshold {
		floor := h.TimeScoreFloor
		if floor <= 0 {
			floor = defaultTimeScoreFloor
		}
		if c.ScoreSnapshot >= floor {
			return ReasonTimeThreshold, true
		}
	}

	return "", false
}

func matchesKeyword(msgs []conversations.Message, triggers []string) bool {
	if len(triggers) == 0 {
		return false
	}
	for _, m := range msgs {
		content := strings.ToLower(m.Content)
		for _, kw := range triggers {
			if kw == "" {
				continue
			}
			if strings.Contains(content, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

func allComplete(progress map[string]bool, required []string) bool {
	for _, g := range required {
		if !progress[g] {
			return false
		}
	}
	return true
}

func achievedGoals(c conversations.Conversation, campaign campaigns.Campaign) []string {
	var out []string
	for _, g := range campaign.Goals {
		if c.GoalProgress[g] {
			out = append(out, g)
		}
	}
	return out
}

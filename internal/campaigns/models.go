package campaigns

import (
	"sort"
	"time"

	"leadflow-platform/internal/channels"
)

// Campaign is a read-only rule set applied to leads.
//
// Invariants:
// - Campaigns are never mutated by the orchestration core.
// - Unless ManualOnly is set, handover criteria must name at least one of
//   {score threshold, keyword trigger, goal completion} as an escalation path,
//   otherwise no lead on this campaign could ever hand over. Validate()
//   enforces this at load time.

type Campaign struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	// Goals is the ordered list of engagement goals.
	Goals []string `json:"goals"`

	Qualification QualificationCriteria `json:"qualification"`
	Handover      HandoverCriteria      `json:"handover"`
	Channels      ChannelPreference     `json:"channels"`

	// ManualOnly marks a campaign where automated handover is intentionally
	// disabled and escalation happens only through human review tooling.
	ManualOnly bool `json:"manual_only" db:"manual_only"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// QualificationCriteria drive the qualification scorer.
type QualificationCriteria struct {
	// MinScore is the score at which a lead counts as qualified (0..100).
	MinScore int `json:"min_score"`

	// RequiredFields are lead metadata fields that must be present
	// before the metadata component of the score is fully granted.
	RequiredFields []string `json:"required_fields,omitempty"`

	// RequiredGoals must be complete for qualification-by-goals.
	RequiredGoals []string `json:"required_goals,omitempty"`
}

// HandoverCriteria drive the handover evaluator.
type HandoverCriteria struct {
	// ScoreThreshold triggers handover when the qualification score reaches it
	// and the conversation holds at least MinConversationLength messages.
	// Zero disables the rule; a threshold above 100 is unreachable.
	ScoreThreshold        int `json:"score_threshold,omitempty"`
	MinConversationLength int `json:"min_conversation_length,omitempty"`

	// ElapsedTimeThreshold triggers handover for conversations older than this,
	// provided the score is at least TimeScoreFloor (stale low-value
	// conversations should not be handed to humans). Zero disables the rule.
	ElapsedTimeThreshold time.Duration `json:"elapsed_time_threshold,omitempty"`
	TimeScoreFloor       int           `json:"time_score_floor,omitempty"`

	// KeywordTriggers are matched case-insensitively against message content.
	KeywordTriggers []string `json:"keyword_triggers,omitempty"`

	// GoalCompletionRequired lists goals that, once all complete, trigger handover.
	GoalCompletionRequired []string `json:"goal_completion_required,omitempty"`

	// Recipients receive the handover, ordered by Priority (lower first).
	Recipients []Recipient `json:"recipients,omitempty"`
}

// Recipient is a human destination for a handover.
type Recipient struct {
	Name     string           `json:"name"`
	Address  string           `json:"address"`
	Channel  channels.Channel `json:"channel,omitempty"`
	Priority int              `json:"priority"`
}

// ChannelPreference names the campaign's primary channel and its ordered fallbacks.
type ChannelPreference struct {
	Primary   channels.Channel   `json:"primary"`
	Fallbacks []channels.Channel `json:"fallbacks,omitempty"`
}

// AllowedChannels returns the primary channel followed by fallbacks, in order.
func (p ChannelPreference) AllowedChannels() []channels.Channel {
	out := make([]channels.Channel, 0, 1+len(p.Fallbacks))
	if p.Primary != channels.None {
		out = append(out, p.Primary)
	}
	for _, c := range p.Fallbacks {
		if c != p.Primary {
			out = append(out, c)
		}
	}
	return out
}

// Allows reports whether ch is the primary channel or one of the fallbacks.
func (p ChannelPreference) Allows(ch channels.Channel) bool {
	for _, c := range p.AllowedChannels() {
		if c == ch {
			return true
		}
	}
	return false
}

// SortedRecipients returns recipients ordered by ascending priority.
// The sort is stable so equal priorities keep their configured order.
func (h HandoverCriteria) SortedRecipients() []Recipient {
	out := make([]Recipient, len(h.Recipients))
	copy(out, h.Recipients)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// HasEscalationPath reports whether any reachable automated escalation rule
// is configured. A score threshold above 100 is not reachable.
func (h HandoverCriteria) HasEscalationPath() bool {
	if len(h.KeywordTriggers) > 0 {
		return true
	}
	if h.ScoreThreshold > 0 && h.ScoreThreshold <= 100 {
		return true
	}
	if len(h.GoalCompletionRequired) > 0 {
		return true
	}
	if h.ElapsedTimeThreshold > 0 {
		return true
	}
	return false
}

package conversations

import (
	"time"

	"leadflow-platform/internal/channels"
)

// Conversation is one engagement session for a lead on one channel.
//
// Invariants:
// - At most one active conversation exists per (lead, channel) pair;
//   ending a conversation is the only way to start a new one on the
//   same channel.
// - Messages are append-only: no entry is mutated or deleted once recorded.
// - Message order is append sequence, not wall clock; client timestamps
//   may be skewed and are not trusted for ordering.
// - Version supports optimistic concurrency across external-call
//   boundaries; see Repository.Update.

type Conversation struct {
	ID     string `json:"id" db:"id"`
	LeadID string `json:"lead_id" db:"lead_id"`

	Channel channels.Channel `json:"channel" db:"channel"`

	// AgentType names the automated agent persona engaged on this channel.
	AgentType string `json:"agent_type" db:"agent_type"`

	Messages []Message `json:"messages"`

	// ScoreSnapshot is the qualification score as of the last recompute.
	// Only the qualification scorer writes it.
	ScoreSnapshot int `json:"score_snapshot" db:"score_snapshot"`

	// GoalProgress maps campaign goal -> completed.
	GoalProgress map[string]bool `json:"goal_progress,omitempty"`

	Context CrossChannelContext `json:"cross_channel_context"`

	Status Status `json:"status" db:"status"`

	// Version increments on every persisted update.
	Version int `json:"version" db:"version"`

	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

// Message is one entry in a conversation's ordered history.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ScoreDelta is an optional explicit qualification score change carried
	// by this message (may be negative).
	ScoreDelta int `json:"qualification_score_change,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

type Role string

const (
	RoleAgent Role = "agent"
	RoleLead  Role = "lead"
)

// CrossChannelContext carries continuity when engagement moves channels.
//
// PreviousChannels is strictly append-only across the life of a lead,
// even through multiple switches.
type CrossChannelContext struct {
	PreviousChannels []channels.Channel `json:"previous_channels,omitempty"`
	SharedNotes      []string           `json:"shared_notes,omitempty"`
	LeadPreferences  map[string]string  `json:"lead_preferences,omitempty"`
}

type Status string

const (
	StatusActive          Status = "active"
	StatusHandoverPending Status = "handover_pending"
	StatusHumanTakeover   Status = "human_takeover"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

func (s Status) Ended() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo enforces the conversation state machine:
// active -> {handover_pending, human_takeover, completed, failed};
// handover_pending -> {human_takeover, completed, failed};
// completed/failed terminal. No transition skips active.
func (s Status) CanTransitionTo(to Status) bool {
	switch s {
	case StatusActive:
		return to == StatusHandoverPending || to == StatusHumanTakeover ||
			to == StatusCompleted || to == StatusFailed
	case StatusHandoverPending:
		return to == StatusHumanTakeover || to == StatusCompleted || to == StatusFailed
	case StatusHumanTakeover:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

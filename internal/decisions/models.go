package decisions

import "time"

// Decision is an immutable, append-only audit record of one routing,
// qualification, or handover choice made for a lead.
//
// Invariants:
// - Decisions are never updated or deleted in normal operation
//   (retention cleanup is housekeeping, not core behavior).
// - LeadID is required; decisions are always lead-scoped.
// - Records for one lead are ordered by creation and never reordered.
//
// Storage recommendation (Postgres):
// - Table agent_decisions with an INSERT-only policy.
// - Optional: trigger to prevent UPDATE/DELETE.
// - Optional: partition by time for retention.

type Decision struct {
	ID     string `json:"id" db:"id"`
	LeadID string `json:"lead_id" db:"lead_id"`

	// AgentType names the deciding component.
	AgentType AgentType `json:"agent_type" db:"agent_type"`

	// Kind is the decision string, e.g. "channel_assigned" or "qualified".
	Kind Kind `json:"decision" db:"decision"`

	// Reasoning is a short free-text explanation for internal ops.
	Reasoning string `json:"reasoning,omitempty" db:"reasoning"`

	// Context holds structured details as JSON (scores, channels, goals).
	Context string `json:"context,omitempty" db:"context"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type AgentType string

const (
	AgentChannelRouter       AgentType = "channel_router"
	AgentQualificationScorer AgentType = "qualification_scorer"
	AgentHandoverEvaluator   AgentType = "handover_evaluator"
	AgentDeliveryDispatcher  AgentType = "delivery_dispatcher"
)

type Kind string

const (
	KindChannelAssigned        Kind = "channel_assigned"
	KindChannelSwitched        Kind = "channel_switched"
	KindQualified              Kind = "qualified"
	KindHandoverTriggered      Kind = "handover_triggered"
	KindExternalDispatchFailed Kind = "external_dispatch_failed"
)

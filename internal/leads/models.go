package leads

import (
	"time"

	"leadflow-platform/internal/channels"
)

// Lead is a prospective customer tracked through the engagement pipeline.
//
// Invariants:
// - Status transitions are monotonic forward; rejected and archived are
//   absorbing (see Status.CanTransitionTo).
// - AssignedChannel is set only by the channel router, never by
//   conversation logic.
// - QualificationScore only rises via the repository's compare-and-set;
//   a blind overwrite is not offered.

type Lead struct {
	ID          string `json:"id" db:"id"`
	DisplayName string `json:"display_name" db:"display_name"`

	// Contact handles are optional; a lead may arrive with either or both.
	Email string `json:"email,omitempty" db:"email"`
	Phone string `json:"phone,omitempty" db:"phone"`

	// Source is the originating source string (form, import, referral id).
	Source string `json:"source" db:"source"`

	CampaignID string `json:"campaign_id,omitempty" db:"campaign_id"`

	Status Status `json:"status" db:"status"`

	// AssignedChannel is channels.None until the router assigns one.
	AssignedChannel channels.Channel `json:"assigned_channel,omitempty" db:"assigned_channel"`

	// QualificationScore is the lead-level aggregate (0..100), the max
	// across the lead's conversations.
	QualificationScore int `json:"qualification_score" db:"qualification_score"`

	Metadata Metadata `json:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusNew        Status = "new"
	StatusContacted  Status = "contacted"
	StatusQualified  Status = "qualified"
	StatusHandedOver Status = "handed_over"
	StatusRejected   Status = "rejected"
	StatusArchived   Status = "archived"
)

func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusArchived
}

// forwardRank orders the forward-only lifecycle states.
var forwardRank = map[Status]int{
	StatusNew:        0,
	StatusContacted:  1,
	StatusQualified:  2,
	StatusHandedOver: 3,
}

// CanTransitionTo enforces the lifecycle state machine: forward-only through
// new, contacted, qualified, handed_over; rejected/archived reachable from
// any non-terminal state and absorbing once entered.
func (s Status) CanTransitionTo(to Status) bool {
	if s == to {
		return false
	}
	if s.Terminal() {
		return false
	}
	if to.Terminal() {
		return true
	}
	from, okFrom := forwardRank[s]
	dest, okTo := forwardRank[to]
	if !okFrom || !okTo {
		return false
	}
	return dest > from
}

// Metadata is the typed schema for lead metadata fields the router and
// scorer depend on. Anything else stays in the free-form Fields map.
type Metadata struct {
	// PreferredChannel expresses an explicit channel preference; the router
	// honors it when the campaign allows that channel.
	PreferredChannel channels.Channel `json:"preferred_channel,omitempty"`

	Fields map[string]string `json:"fields,omitempty"`
}

// HasField reports whether a required metadata field is present.
// The typed fields and the lead's contact handles count as fields so
// campaign criteria can name them uniformly.
func (l Lead) HasField(name string) bool {
	switch name {
	case "email":
		return l.Email != ""
	case "phone":
		return l.Phone != ""
	case "preferred_channel":
		return l.Metadata.PreferredChannel != channels.None
	}
	v, ok := l.Metadata.Fields[name]
	return ok && v != ""
}

package comms

import (
	"time"

	"leadflow-platform/internal/channels"
)

// Communication records one message sent or received over a channel,
// independent of which conversation groups it.
//
// Invariants:
// - Content and direction never change after creation.
// - DeliveryStatus is mutated only by applying the delivery collaborator's
//   status callbacks; the core records what is reported, never infers it.

type Communication struct {
	ID     string `json:"id" db:"id"`
	LeadID string `json:"lead_id" db:"lead_id"`

	Channel   channels.Channel `json:"channel" db:"channel"`
	Direction Direction        `json:"direction" db:"direction"`

	Content string `json:"content" db:"content"`

	Status DeliveryStatus `json:"status" db:"status"`

	// ExternalID is the delivery provider's identifier, used to correlate
	// asynchronous status callbacks.
	ExternalID string `json:"external_id,omitempty" db:"external_id"`

	// Metadata is optional JSON for provider payloads.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
)

func ValidDeliveryStatus(s DeliveryStatus) bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusFailed:
		return true
	default:
		return false
	}
}

package crosschannel

import (
	"strings"

	"leadflow-platform/internal/conversations"
	"leadflow-platform/internal/leads"

	"leadflow-platform/internal/channels"
)

// Manager preserves engagement continuity across a channel switch.
//
// Guarantees:
// - PreviousChannels is strictly append-only across the life of a lead,
//   even through multiple switches.
// - Carry never mutates the source conversation's context.

type Manager struct {
	// MaxNotes caps how many lead-authored highlights carry forward.
	MaxNotes int
}

func NewManager() *Manager {
	return &Manager{MaxNotes: 5}
}

// Carry builds the context for the next channel from the conversation being
// left and the lead's stored metadata.
func (m *Manager) Carry(from conversations.Conversation, lead leads.Lead) conversations.CrossChannelContext {
	prev := make([]channels.Channel, 0, len(from.Context.PreviousChannels)+1)
	prev = append(prev, from.Context.PreviousChannels...)
	prev = append(prev, from.Channel)

	notes := make([]string, 0, len(from.Context.SharedNotes))
	notes = append(notes, from.Context.SharedNotes...)
	notes = append(notes, m.leadHighlights(from)...)

	prefs := map[string]string{}
	// Conversation-observed signals first, then lead metadata wins: the lead's
	// stored profile is the more deliberate source.
	for k, v := range from.Context.LeadPreferences {
		prefs[k] = v
	}
	for k, v := range lead.Metadata.Fields {
		prefs[k] = v
	}
	if lead.Metadata.PreferredChannel != channels.None {
		prefs["preferred_channel"] = string(lead.Metadata.PreferredChannel)
	}

	return conversations.CrossChannelContext{
		PreviousChannels: prev,
		SharedNotes:      notes,
		LeadPreferences:  prefs,
	}
}

// Apply attaches carried context to a newly created conversation.
// It overwrites nothing on the old conversation; the new one simply starts
// with history in hand.
func (m *Manager) Apply(c *conversations.Conversation, carried conversations.CrossChannelContext) {
	c.Context = carried
}

// leadHighlights extracts the most recent substantive lead-authored messages
// to carry as shared notes. Short acknowledgements are skipped.
func (m *Manager) leadHighlights(from conversations.Conversation) []string {
	max := m.MaxNotes
	if max <= 0 {
		max = 5
	}

	var picked []string
	for i := len(from.Messages) - 1; i >= 0 && len(picked) < max; i-- {
		msg := from.Messages[i]
		if msg.Role != conversations.RoleLead {
			continue
		}
		content := strings.TrimSpace(msg.Content)
		if len(content) < 12 {
			continue
		}
		picked = append(picked, content)
	}

	// Reverse back to chronological order.
	for i, j := 0, len(picked)-1; i < j; i, j = i+1, j-1 {
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked
}

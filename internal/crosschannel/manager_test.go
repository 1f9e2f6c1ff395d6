package crosschannel

import (
	"testing"

	"leadflow-platform/internal/channels"
	"leadflow-platform/internal/conversations"
	"leadflow-platform/internal/leads"
)

func TestCarry_AppendsPreviousChannel(t *testing.T) {
	m := NewManager()

	first := conversations.Conversation{Channel: channels.ChannelEmail}
	carried := m.Carry(first, leads.Lead{})
	if len(carried.PreviousChannels) != 1 || carried.PreviousChannels[0] != channels.ChannelEmail {
		t.Fatalf("expected [email], got %v", carried.PreviousChannels)
	}

	// Second switch: email -> sms -> chat accumulates without loss.
	second := conversations.Conversation{Channel: channels.ChannelSMS, Context: carried}
	carried = m.Carry(second, leads.Lead{})
	if len(carried.PreviousChannels) != 2 ||
		carried.PreviousChannels[0] != channels.ChannelEmail ||
		carried.PreviousChannels[1] != channels.ChannelSMS {
		t.Fatalf("expected [email sms], got %v", carried.PreviousChannels)
	}
}

func TestCarry_DoesNotMutateSource(t *testing.T) {
	m := NewManager()
	src := conversations.Conversation{
		Channel: channels.ChannelEmail,
		Context: conversations.CrossChannelContext{PreviousChannels: []channels.Channel{channels.ChannelChat}},
	}
	_ = m.Carry(src, leads.Lead{})
	if len(src.Context.PreviousChannels) != 1 || src.Context.PreviousChannels[0] != channels.ChannelChat {
		t.Fatalf("source context mutated: %v", src.Context.PreviousChannels)
	}
}

func TestCarry_ExtractsLeadHighlights(t *testing.T) {
	m := NewManager()
	src := conversations.Conversation{
		Channel: channels.ChannelEmail,
		Messages: []conversations.Message{
			{Role: conversations.RoleAgent, Content: "How is your budget looking for this quarter?"},
			{Role: conversations.RoleLead, Content: "ok"}, // too short, skipped
			{Role: conversations.RoleLead, Content: "We have around 50k budgeted for this"},
			{Role: conversations.RoleLead, Content: "Prefer a call next Tuesday afternoon"},
		},
	}
	carried := m.Carry(src, leads.Lead{})
	if len(carried.SharedNotes) != 2 {
		t.Fatalf("expected 2 highlights, got %v", carried.SharedNotes)
	}
	if carried.SharedNotes[0] != "We have around 50k budgeted for this" {
		t.Fatalf("expected chronological order, got %v", carried.SharedNotes)
	}
}

func TestCarry_MergesPreferences(t *testing.T) {
	m := NewManager()
	src := conversations.Conversation{
		Channel: channels.ChannelEmail,
		Context: conversations.CrossChannelContext{
			LeadPreferences: map[string]string{"timezone": "observed-cet", "tone": "formal"},
		},
	}
	lead := leads.Lead{Metadata: leads.Metadata{
		PreferredChannel: channels.ChannelSMS,
		Fields:           map[string]string{"timezone": "CET"},
	}}

	carried := m.Carry(src, lead)
	if carried.LeadPreferences["timezone"] != "CET" {
		t.Fatalf("lead metadata should win over observed signal, got %q", carried.LeadPreferences["timezone"])
	}
	if carried.LeadPreferences["tone"] != "formal" {
		t.Fatalf("observed signal lost")
	}
	if carried.LeadPreferences["preferred_channel"] != "sms" {
		t.Fatalf("preferred channel not carried")
	}
}

func TestApply_AttachesContext(t *testing.T) {
	m := NewManager()
	c := conversations.Conversation{Channel: channels.ChannelSMS}
	carried := conversations.CrossChannelContext{PreviousChannels: []channels.Channel{channels.ChannelEmail}}
	m.Apply(&c, carried)
	if len(c.Context.PreviousChannels) != 1 {
		t.Fatalf("context not attached")
	}
}

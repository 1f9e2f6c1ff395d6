package campaigns

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadflow-platform/internal/channels"
)

func validCampaign() Campaign {
	return Campaign{
		ID:    "c1",
		Name:  "mortgage-q3",
		Goals: []string{"budget_confirmed", "timeline_confirmed"},
		Qualification: QualificationCriteria{
			MinScore:       60,
			RequiredFields: []string{"email"},
		},
		Handover: HandoverCriteria{
			ScoreThreshold:        75,
			MinConversationLength: 4,
			KeywordTriggers:       []string{"ready to apply"},
			Recipients: []Recipient{
				{Name: "backup", Address: "backup@example.com", Priority: 2},
				{Name: "primary", Address: "sales@example.com", Priority: 1},
			},
		},
		Channels: ChannelPreference{
			Primary:   channels.ChannelEmail,
			Fallbacks: []channels.Channel{channels.ChannelSMS},
		},
	}
}

func TestValidate_AcceptsWellFormedCampaign(t *testing.T) {
	if err := Validate(validCampaign()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestValidate_RejectsNoEscalationPath(t *testing.T) {
	c := validCampaign()
	c.Handover.KeywordTriggers = nil
	c.Handover.ScoreThreshold = 0
	c.Handover.GoalCompletionRequired = nil
	if err := Validate(c); !errors.Is(err, ErrNoEscalationPath) {
		t.Fatalf("expected ErrNoEscalationPath, got %v", err)
	}
}

func TestValidate_UnreachableScoreThresholdIsNotAPath(t *testing.T) {
	c := validCampaign()
	c.Handover.KeywordTriggers = nil
	c.Handover.ScoreThreshold = 150
	c.Handover.GoalCompletionRequired = nil
	if err := Validate(c); !errors.Is(err, ErrNoEscalationPath) {
		t.Fatalf("expected ErrNoEscalationPath for threshold above 100, got %v", err)
	}
}

func TestValidate_TimeRuleAloneIsAPath(t *testing.T) {
	c := validCampaign()
	c.Handover.KeywordTriggers = nil
	c.Handover.ScoreThreshold = 0
	c.Handover.GoalCompletionRequired = nil
	c.Handover.ElapsedTimeThreshold = time.Hour
	if err := Validate(c); err != nil {
		t.Fatalf("time-threshold rule should count as a path, got %v", err)
	}
}

func TestValidate_ManualOnlySkipsEscalationCheck(t *testing.T) {
	c := validCampaign()
	c.ManualOnly = true
	c.Handover = HandoverCriteria{}
	if err := Validate(c); err != nil {
		t.Fatalf("manual-only campaign should validate, got %v", err)
	}
}

func TestValidate_RejectsUnknownGoalReference(t *testing.T) {
	c := validCampaign()
	c.Handover.GoalCompletionRequired = []string{"no_such_goal"}
	if err := Validate(c); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestSortedRecipients_OrdersByPriority(t *testing.T) {
	c := validCampaign()
	rs := c.Handover.SortedRecipients()
	if len(rs) != 2 {
		t.Fatalf("expected 2 recipients")
	}
	if rs[0].Name != "primary" || rs[1].Name != "backup" {
		t.Fatalf("expected priority order primary,backup; got %s,%s", rs[0].Name, rs[1].Name)
	}
	// Input slice must not be reordered.
	if c.Handover.Recipients[0].Name != "backup" {
		t.Fatalf("input recipients mutated")
	}
}

func TestChannelPreference_Allows(t *testing.T) {
	p := ChannelPreference{Primary: channels.ChannelEmail, Fallbacks: []channels.Channel{channels.ChannelChat}}
	if !p.Allows(channels.ChannelEmail) || !p.Allows(channels.ChannelChat) {
		t.Fatalf("expected email and chat allowed")
	}
	if p.Allows(channels.ChannelSMS) {
		t.Fatalf("sms is not in the preference set")
	}
}

func TestMemoryProvider_RejectsInvalidAtLoad(t *testing.T) {
	p := NewMemoryProvider()
	c := validCampaign()
	c.Handover = HandoverCriteria{}
	if err := p.Put(c); !errors.Is(err, ErrNoEscalationPath) {
		t.Fatalf("expected load-time rejection, got %v", err)
	}
}

func TestMemoryProvider_Lookup(t *testing.T) {
	p := NewMemoryProvider()
	c := validCampaign()
	c.CreatedAt = time.Now().UTC()
	if err := p.Put(c); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	got, err := p.GetByID(context.Background(), "c1")
	if err != nil || got.Name != "mortgage-q3" {
		t.Fatalf("GetByID: %v %v", got, err)
	}
	if _, err := p.GetByName(context.Background(), "mortgage-q3"); err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if _, err := p.GetByID(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package leads

import (
	"context"
	"errors"
	"testing"

	"leadflow-platform/internal/channels"
)

func TestStatus_ForwardOnly(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusNew, StatusContacted, true},
		{StatusNew, StatusQualified, true},
		{StatusContacted, StatusQualified, true},
		{StatusQualified, StatusHandedOver, true},
		{StatusContacted, StatusNew, false},
		{StatusQualified, StatusContacted, false},
		{StatusHandedOver, StatusQualified, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.ok {
			t.Fatalf("%s -> %s: expected %v", c.from, c.to, c.ok)
		}
	}
}

func TestStatus_RejectedAndArchivedAbsorb(t *testing.T) {
	for _, from := range []Status{StatusNew, StatusContacted, StatusQualified, StatusHandedOver} {
		if !from.CanTransitionTo(StatusRejected) {
			t.Fatalf("%s should allow rejection", from)
		}
		if !from.CanTransitionTo(StatusArchived) {
			t.Fatalf("%s should allow archival", from)
		}
	}
	for _, term := range []Status{StatusRejected, StatusArchived} {
		for _, to := range []Status{StatusNew, StatusContacted, StatusQualified, StatusHandedOver, StatusRejected, StatusArchived} {
			if term.CanTransitionTo(to) {
				t.Fatalf("%s must be absorbing, allowed -> %s", term, to)
			}
		}
	}
}

func TestLead_HasField(t *testing.T) {
	l := Lead{
		Email:    "a@b.c",
		Metadata: Metadata{PreferredChannel: channels.ChannelSMS, Fields: map[string]string{"budget": "50k"}},
	}
	if !l.HasField("email") || !l.HasField("preferred_channel") || !l.HasField("budget") {
		t.Fatalf("expected fields present")
	}
	if l.HasField("phone") || l.HasField("company") {
		t.Fatalf("expected fields absent")
	}
}

func TestMemoryRepo_RaiseScoreIsMonotonic(t *testing.T) {
	repo := NewMemoryRepo()
	if err := repo.Create(context.Background(), Lead{ID: "l1", Status: StatusNew}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	got, err := repo.RaiseScore(context.Background(), "l1", 40)
	if err != nil || got != 40 {
		t.Fatalf("expected 40, got %d err %v", got, err)
	}
	// Lower score must not overwrite.
	got, err = repo.RaiseScore(context.Background(), "l1", 25)
	if err != nil || got != 40 {
		t.Fatalf("expected stored 40 after lower CAS, got %d err %v", got, err)
	}
	got, err = repo.RaiseScore(context.Background(), "l1", 70)
	if err != nil || got != 70 {
		t.Fatalf("expected 70, got %d err %v", got, err)
	}
}

func TestMemoryRepo_UpdateStatusEnforcesMachine(t *testing.T) {
	repo := NewMemoryRepo()
	if err := repo.Create(context.Background(), Lead{ID: "l1"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if err := repo.UpdateStatus(context.Background(), "l1", StatusContacted); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := repo.UpdateStatus(context.Background(), "l1", StatusNew); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := repo.UpdateStatus(context.Background(), "missing", StatusContacted); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

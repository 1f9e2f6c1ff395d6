package campaigns

import (
	"context"
	"errors"
	"fmt"

	"leadflow-platform/internal/channels"
)

var (
	ErrNotFound = errors.New("campaigns: not found")

	// ErrNoEscalationPath flags a campaign whose handover criteria can never
	// fire. Detected once at load time, not re-checked on every evaluation.
	ErrNoEscalationPath = errors.New("campaigns: handover criteria define no reachable escalation path")

	ErrInvalid = errors.New("campaigns: invalid campaign")
)

// Provider is the read-only campaign configuration boundary.
//
// Campaigns are configuration, not state: the orchestration core fetches them
// and never writes them. Implementations must validate campaigns before
// returning them (a misconfigured campaign should be a load-time failure,
// not a silent runtime dead end).

type Provider interface {
	GetByID(ctx context.Context, id string) (Campaign, error)
	GetByName(ctx context.Context, name string) (Campaign, error)
}

// Validate checks structural correctness and the escalation-path invariant.
func Validate(c Campaign) error {
	if c.ID == "" {
		return fmt.Errorf("%w: id required", ErrInvalid)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalid)
	}

	if c.Channels.Primary == channels.None {
		return fmt.Errorf("%w: primary channel required", ErrInvalid)
	}
	for _, ch := range c.Channels.AllowedChannels() {
		if !channels.Valid(ch) {
			return fmt.Errorf("%w: channel %q not supported", ErrInvalid, ch)
		}
	}

	if c.Qualification.MinScore < 0 || c.Qualification.MinScore > 100 {
		return fmt.Errorf("%w: qualification min_score must be within 0..100", ErrInvalid)
	}
	for _, g := range c.Qualification.RequiredGoals {
		if !containsGoal(c.Goals, g) {
			return fmt.Errorf("%w: required goal %q not in goal list", ErrInvalid, g)
		}
	}
	for _, g := range c.Handover.GoalCompletionRequired {
		if !containsGoal(c.Goals, g) {
			return fmt.Errorf("%w: handover goal %q not in goal list", ErrInvalid, g)
		}
	}

	for _, r := range c.Handover.Recipients {
		if r.Address == "" {
			return fmt.Errorf("%w: handover recipient address required", ErrInvalid)
		}
	}

	// Automated campaigns must have at least one way to ever hand over.
	if !c.ManualOnly && !c.Handover.HasEscalationPath() {
		return ErrNoEscalationPath
	}

	return nil
}

func containsGoal(goals []string, g string) bool {
	for _, x := range goals {
		if x == g {
			return true
		}
	}
	return false
}

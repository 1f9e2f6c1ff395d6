package leads

import (
	"context"
	"errors"

	"leadflow-platform/internal/channels"
)

var (
	ErrNotFound          = errors.New("leads: not found")
	ErrInvalidTransition = errors.New("leads: invalid status transition")
	ErrInvalidArgument   = errors.New("leads: invalid argument")
)

// Repository is the persistence contract for leads.
//
// Score writes go through RaiseScore only: it is a compare-and-set with
// monotonic non-decrease as the invariant, because a lead can briefly have
// conversations on two channels during a switch overlap and the higher
// score must win regardless of write order.

type Repository interface {
	Create(ctx context.Context, l Lead) error
	Get(ctx context.Context, id string) (Lead, error)

	// AssignChannel records the router's channel decision.
	AssignChannel(ctx context.Context, id string, ch channels.Channel) error

	// UpdateStatus applies a lifecycle transition, enforcing the state machine.
	UpdateStatus(ctx context.Context, id string, to Status) error

	// RaiseScore sets the lead score to score only if it is higher than the
	// stored value. Returns the resulting stored score.
	RaiseScore(ctx context.Context, id string, score int) (int, error)
}

package conversations

import (
	"context"
	"errors"

	"leadflow-platform/internal/channels"
)

var (
	ErrNotFound = errors.New("conversations: not found")

	// ErrConflict means an active conversation already exists for the
	// (lead, channel) pair. Expected under racing channel switches; callers
	// retry once after re-reading current state.
	ErrConflict = errors.New("conversations: active conversation already exists")

	// ErrStale means an optimistic version check failed: the conversation
	// changed while the caller was at an external-call boundary. Retried
	// exactly once by the orchestrator.
	ErrStale = errors.New("conversations: stale conversation")

	ErrInvalidTransition = errors.New("conversations: invalid status transition")
	ErrInvalidArgument   = errors.New("conversations: invalid argument")
)

// Repository is the persistence contract for conversations.
//
// Create enforces the at-most-one-active invariant at the storage layer
// (unique partial index in Postgres, map check in memory) so the invariant
// holds even if two nodes race past the keyed lock.

type Repository interface {
	Create(ctx context.Context, c Conversation) error
	Get(ctx context.Context, id string) (Conversation, error)
	FindActive(ctx context.Context, leadID string, ch channels.Channel) (Conversation, error)

	// Update persists the conversation iff the stored version equals
	// c.Version, then increments it. Returns ErrStale on mismatch.
	Update(ctx context.Context, c Conversation) (Conversation, error)
}

package conversations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadflow-platform/internal/channels"
	"leadflow-platform/pkg/utils"

	"github.com/google/uuid"
)

// Tracker owns conversation lifecycle and message history.
//
// Concurrency model: Open, AppendMessage, End and status transitions for the
// same (lead, channel) pair are serialized through a keyed mutex. Different
// leads and different channels proceed independently. Cross-process
// deployments additionally hold the Redis keyed lock at the orchestration
// layer; the tracker's in-process lock is still correct locally.

type Tracker struct {
	repo  Repository
	locks *utils.KeyedMutex
	clock func() time.Time
}

func NewTracker(repo Repository) *Tracker {
	return &Tracker{repo: repo, locks: utils.NewKeyedMutex(), clock: time.Now}
}

// LockKey is the serialization key for a (lead, channel) pair.
func LockKey(leadID string, ch channels.Channel) string {
	return fmt.Sprintf("conversation:%s:%s", leadID, ch)
}

// Open starts a new active conversation for (lead, channel).
// Fails with ErrConflict if one is already active on that pair.
func (t *Tracker) Open(ctx context.Context, leadID string, ch channels.Channel, agentType string) (Conversation, error) {
	if leadID == "" || !channels.Valid(ch) {
		return Conversation{}, ErrInvalidArgument
	}

	key := LockKey(leadID, ch)
	t.locks.Lock(key)
	defer t.locks.Unlock(key)

	if _, err := t.repo.FindActive(ctx, leadID, ch); err == nil {
		return Conversation{}, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return Conversation{}, err
	}

	c := Conversation{
		ID:           uuid.NewString(),
		LeadID:       leadID,
		Channel:      ch,
		AgentType:    agentType,
		GoalProgress: map[string]bool{},
		Status:       StatusActive,
		StartedAt:    t.clock().UTC(),
	}
	if err := t.repo.Create(ctx, c); err != nil {
		return Conversation{}, err
	}
	return c, nil
}

// OpenWithContext opens a conversation that carries cross-channel context
// from a previous channel. The context is attached at creation time only.
func (t *Tracker) OpenWithContext(ctx context.Context, leadID string, ch channels.Channel, agentType string, carried CrossChannelContext) (Conversation, error) {
	c, err := t.Open(ctx, leadID, ch, agentType)
	if err != nil {
		return Conversation{}, err
	}
	c.Context = carried
	return t.repo.Update(ctx, c)
}

// AppendMessage appends to the ordered message list and returns the updated
// conversation. The message timestamp defaults to call time when absent;
// ordering is append sequence regardless of timestamps.
func (t *Tracker) AppendMessage(ctx context.Context, conversationID string, m Message) (Conversation, error) {
	if conversationID == "" || m.Content == "" {
		return Conversation{}, ErrInvalidArgument
	}
	if m.Role != RoleAgent && m.Role != RoleLead {
		return Conversation{}, ErrInvalidArgument
	}

	c, err := t.repo.Get(ctx, conversationID)
	if err != nil {
		return Conversation{}, err
	}

	key := LockKey(c.LeadID, c.Channel)
	t.locks.Lock(key)
	defer t.locks.Unlock(key)

	// Re-read under the lock; the first read only resolved the key.
	c, err = t.repo.Get(ctx, conversationID)
	if err != nil {
		return Conversation{}, err
	}
	if c.Status != StatusActive {
		return Conversation{}, ErrNotFound
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = t.clock().UTC()
	}
	c.Messages = append(c.Messages, m)

	return t.repo.Update(ctx, c)
}

// End closes the conversation with completed or failed.
// Idempotent: ending an already-ended conversation returns current state.
func (t *Tracker) End(ctx context.Context, conversationID string, final Status) (Conversation, error) {
	if final != StatusCompleted && final != StatusFailed {
		return Conversation{}, ErrInvalidArgument
	}

	c, err := t.repo.Get(ctx, conversationID)
	if err != nil {
		return Conversation{}, err
	}

	key := LockKey(c.LeadID, c.Channel)
	t.locks.Lock(key)
	defer t.locks.Unlock(key)

	c, err = t.repo.Get(ctx, conversationID)
	if err != nil {
		return Conversation{}, err
	}
	if c.Status.Ended() {
		return c, nil
	}
	if !c.Status.CanTransitionTo(final) {
		return Conversation{}, ErrInvalidTransition
	}

	now := t.clock().UTC()
	c.Status = final
	c.EndedAt = &now
	return t.repo.Update(ctx, c)
}

// Transition applies a non-terminal status change (handover_pending,
// human_takeover). Reachable only through the handover path; callers other
// than the orchestrator should not use this.
func (t *Tracker) Transition(ctx context.Context, conversationID string, to Status) (Conversation, error) {
	if to.Ended() {
		return Conversation{}, ErrInvalidArgument
	}

	c, err := t.repo.Get(ctx, conversationID)
	if err != nil {
		return Conversation{}, err
	}

	key := LockKey(c.LeadID, c.Channel)
	t.locks.Lock(key)
	defer t.locks.Unlock(key)

	c, err = t.repo.Get(ctx, conversationID)
	if err != nil {
		return Conversation{}, err
	}
	if !c.Status.CanTransitionTo(to) {
		return Conversation{}, ErrInvalidTransition
	}
	c.Status = to
	return t.repo.Update(ctx, c)
}

// FindActive resolves the active conversation for a (lead, channel) pair.
func (t *Tracker) FindActive(ctx context.Context, leadID string, ch channels.Channel) (Conversation, error) {
	return t.repo.FindActive(ctx, leadID, ch)
}

// Get resolves a conversation by id.
func (t *Tracker) Get(ctx context.Context, id string) (Conversation, error) {
	return t.repo.Get(ctx, id)
}

// Save persists caller-side mutations (score snapshot, goal progress) with
// the optimistic version check. Callers handle ErrStale per the retry policy.
func (t *Tracker) Save(ctx context.Context, c Conversation) (Conversation, error) {
	return t.repo.Update(ctx, c)
}

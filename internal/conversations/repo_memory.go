package conversations

import (
	"context"
	"sync"

	"leadflow-platform/internal/channels"
)

// MemoryRepo is an in-memory conversation store for tests and local
// development. It enforces the same invariants as the Postgres repo:
// one active conversation per (lead, channel), version-checked updates.

type MemoryRepo struct {
	mu     sync.Mutex
	byID   map[string]Conversation
	active map[string]string // LockKey(lead, channel) -> conversation id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Conversation),
		active: make(map[string]string),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, c Conversation) error {
	if c.ID == "" || c.LeadID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := LockKey(c.LeadID, c.Channel)
	if _, taken := r.active[key]; taken && c.Status == StatusActive {
		return ErrConflict
	}
	if _, exists := r.byID[c.ID]; exists {
		return ErrInvalidArgument
	}

	r.byID[c.ID] = clone(c)
	if c.Status == StatusActive || c.Status == StatusHandoverPending || c.Status == StatusHumanTakeover {
		r.active[key] = c.ID
	}
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return clone(c), nil
}

func (r *MemoryRepo) FindActive(ctx context.Context, leadID string, ch channels.Channel) (Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.active[LockKey(leadID, ch)]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	c, ok := r.byID[id]
	if !ok || c.Status != StatusActive {
		return Conversation{}, ErrNotFound
	}
	return clone(c), nil
}

func (r *MemoryRepo) Update(ctx context.Context, c Conversation) (Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[c.ID]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	if stored.Version != c.Version {
		return Conversation{}, ErrStale
	}

	c.Version++
	r.byID[c.ID] = clone(c)

	// The key stays reserved through handover_pending and human_takeover:
	// only an ended conversation frees the channel for a new one.
	key := LockKey(c.LeadID, c.Channel)
	if c.Status.Ended() {
		if r.active[key] == c.ID {
			delete(r.active, key)
		}
	} else {
		r.active[key] = c.ID
	}
	return clone(c), nil
}

// clone deep-copies the slices and maps so callers cannot mutate stored
// history behind the repo's back (messages are append-only).
func clone(c Conversation) Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	if c.GoalProgress != nil {
		out.GoalProgress = make(map[string]bool, len(c.GoalProgress))
		for k, v := range c.GoalProgress {
			out.GoalProgress[k] = v
		}
	}
	out.Context.PreviousChannels = append([]channels.Channel(nil), c.Context.PreviousChannels...)
	out.Context.SharedNotes = append([]string(nil), c.Context.SharedNotes...)
	if c.Context.LeadPreferences != nil {
		out.Context.LeadPreferences = make(map[string]string, len(c.Context.LeadPreferences))
		for k, v := range c.Context.LeadPreferences {
			out.Context.LeadPreferences[k] = v
		}
	}
	return out
}

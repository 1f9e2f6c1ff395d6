package leads

import (
	"context"
	"sync"
	"time"

	"leadflow-platform/internal/channels"
)

// MemoryRepo is an in-memory lead store for tests and local development.

type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]Lead
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Lead)}
}

func (r *MemoryRepo) Create(ctx context.Context, l Lead) error {
	if l.ID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[l.ID]; ok {
		return ErrInvalidArgument
	}
	if l.Status == "" {
		l.Status = StatusNew
	}
	r.byID[l.ID] = l
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return l, nil
}

func (r *MemoryRepo) AssignChannel(ctx context.Context, id string, ch channels.Channel) error {
	if !channels.Valid(ch) {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	l.AssignedChannel = ch
	l.UpdatedAt = time.Now().UTC()
	r.byID[id] = l
	return nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, id string, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if !l.Status.CanTransitionTo(to) {
		return ErrInvalidTransition
	}
	l.Status = to
	l.UpdatedAt = time.Now().UTC()
	r.byID[id] = l
	return nil
}

func (r *MemoryRepo) RaiseScore(ctx context.Context, id string, score int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[id]
	if !ok {
		return 0, ErrNotFound
	}
	if score > l.QualificationScore {
		l.QualificationScore = score
		l.UpdatedAt = time.Now().UTC()
		r.byID[id] = l
	}
	return l.QualificationScore, nil
}

package comms

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory communications store for tests.

type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]Communication
	// order preserves creation order per lead for listing.
	order []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Communication)}
}

func (r *MemoryRepo) Create(ctx context.Context, c Communication) error {
	if c.ID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[c.ID]; ok {
		return ErrInvalidArgument
	}
	r.byID[c.ID] = c
	r.order = append(r.order, c.ID)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Communication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return Communication{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) GetByExternalID(ctx context.Context, externalID string) (Communication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if c := r.byID[id]; c.ExternalID == externalID {
			return c, nil
		}
	}
	return Communication{}, ErrNotFound
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, id string, status DeliveryStatus, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	if externalID != "" {
		c.ExternalID = externalID
	}
	c.UpdatedAt = time.Now().UTC()
	r.byID[id] = c
	return nil
}

func (r *MemoryRepo) ListByLead(ctx context.Context, leadID string) ([]Communication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Communication
	for _, id := range r.order {
		if c := r.byID[id]; c.LeadID == leadID {
			out = append(out, c)
		}
	}
	return out, nil
}

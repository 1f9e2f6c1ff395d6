package decisions

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory append-only repository useful for tests.
// It is not intended for production use: the decision log must be backed by
// injected persistence, never process-local state.

type MemoryRepo struct {
	mu      sync.Mutex
	records []Decision
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, d Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, d)
	return nil
}

func (r *MemoryRepo) ListByLead(ctx context.Context, leadID string) ([]Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Decision
	for _, d := range r.records {
		if d.LeadID == leadID {
			out = append(out, d)
		}
	}
	return out, nil
}

// All returns a copy of every record, in append order.
func (r *MemoryRepo) All() []Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Decision, len(r.records))
	copy(out, r.records)
	return out
}

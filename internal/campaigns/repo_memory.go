package campaigns

import (
	"context"
	"sync"
)

// MemoryProvider holds validated campaigns in memory.
// Useful for tests and for config-file driven deployments.

type MemoryProvider struct {
	mu   sync.RWMutex
	byID map[string]Campaign
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{byID: make(map[string]Campaign)}
}

// Put validates and stores a campaign. Invalid campaigns are rejected here,
// at load time, so the evaluator never sees an unusable configuration.
func (p *MemoryProvider) Put(c Campaign) error {
	if err := Validate(c); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byID[c.ID] = c
	return nil
}

func (p *MemoryProvider) GetByID(ctx context.Context, id string) (Campaign, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.byID[id]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	return c, nil
}

func (p *MemoryProvider) GetByName(ctx context.Context, name string) (Campaign, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, c := range p.byID {
		if c.Name == name {
			return c, nil
		}
	}
	return Campaign{}, ErrNotFound
}

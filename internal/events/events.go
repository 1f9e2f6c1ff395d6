package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"leadflow-platform/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Type names an orchestration event.
type Type string

const (
	TypeLeadRouted               Type = "lead_routed"
	TypeConversationStateChanged Type = "conversation_state_changed"
	TypeHandoverTriggered        Type = "handover_triggered"
)

// Event announces that something already happened. Consumers get entity IDs
// and a timestamp; they read current state themselves if they need more.
type Event struct {
	Type           Type      `json:"type"`
	LeadID         string    `json:"lead_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Channel        string    `json:"channel,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Sink receives emitted events. Emission is fire-and-forget from the
// orchestrator's point of view: a sink error is logged by the caller and
// never fails the operation that produced the event.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// MemorySink collects events in memory for tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Emit(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// All returns a copy of the collected events in emission order.
func (s *MemorySink) All() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByType filters collected events.
func (s *MemorySink) ByType(t Type) []Event {
	var out []Event
	for _, e := range s.All() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// RedisSink publishes events as JSON on "<prefix>:events:<type>" channels.
// Pub/sub delivery is best-effort, which matches the emission contract.
type RedisSink struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisSink(rdb *redis.Client, prefix string) *RedisSink {
	if prefix == "" {
		prefix = "leadflow"
	}
	return &RedisSink{rdb: rdb, prefix: prefix}
}

func (s *RedisSink) Emit(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	channel := s.prefix + ":events:" + string(e.Type)
	return s.rdb.Publish(ctx, channel, payload).Err()
}

// Emit sends through the sink and logs failures instead of returning them.
// Orchestration call sites use this helper so event emission can never
// abort a routing or handover operation.
func Emit(ctx context.Context, sink Sink, e Event) {
	if sink == nil {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := sink.Emit(ctx, e); err != nil {
		logger.From(ctx).Warn("event emission failed",
			"event_type", string(e.Type), "lead_id", e.LeadID, "err", err)
	}
}

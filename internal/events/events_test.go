package events

import (
	"context"
	"sync"
	"testing"
)

func TestMemorySink_CollectsInOrder(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	Emit(ctx, sink, Event{Type: TypeLeadRouted, LeadID: "lead-1", Channel: "email"})
	Emit(ctx, sink, Event{Type: TypeConversationStateChanged, LeadID: "lead-1", ConversationID: "conv-1"})
	Emit(ctx, sink, Event{Type: TypeHandoverTriggered, LeadID: "lead-2"})

	all := sink.All()
	if len(all) != 3 {
		t.Fatalf("events = %d, want 3", len(all))
	}
	if all[0].Type != TypeLeadRouted || all[2].Type != TypeHandoverTriggered {
		t.Fatalf("order wrong: %v", all)
	}
	for _, e := range all {
		if e.OccurredAt.IsZero() {
			t.Fatalf("OccurredAt not stamped: %+v", e)
		}
	}

	routed := sink.ByType(TypeLeadRouted)
	if len(routed) != 1 || routed[0].LeadID != "lead-1" {
		t.Fatalf("ByType = %v", routed)
	}
}

func TestEmit_NilSinkIsNoop(t *testing.T) {
	// Must not panic.
	Emit(context.Background(), nil, Event{Type: TypeLeadRouted, LeadID: "lead-1"})
}

func TestMemorySink_ConcurrentEmit(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				Emit(ctx, sink, Event{Type: TypeConversationStateChanged, LeadID: "lead-1"})
			}
		}()
	}
	wg.Wait()

	if got := len(sink.All()); got != 160 {
		t.Fatalf("events = %d, want 160", got)
	}
}

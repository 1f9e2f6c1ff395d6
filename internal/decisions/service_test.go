package decisions

import (
	"context"
	"sync"
	"testing"
)

func TestService_AppendRequiresLeadAndKind(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Decision{AgentType: AgentChannelRouter, Kind: KindChannelAssigned}); err == nil {
		t.Fatalf("expected error for missing lead")
	}
	if err := svc.Append(context.Background(), Decision{LeadID: "l1"}); err == nil {
		t.Fatalf("expected error for missing agent/kind")
	}
}

func TestService_LogMarshalsContext(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Log(context.Background(), "l1", AgentChannelRouter, KindChannelAssigned, "campaign primary", map[string]string{"channel": "email"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	recs := repo.All()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record")
	}
	if recs[0].Kind != KindChannelAssigned {
		t.Fatalf("expected channel_assigned, got %q", recs[0].Kind)
	}
	if recs[0].Context != `{"channel":"email"}` {
		t.Fatalf("unexpected context %q", recs[0].Context)
	}
	if recs[0].ID == "" || recs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp assigned")
	}
}

func TestMemoryRepo_ConcurrentAppendsAllSurvive(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	const writers = 32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.Log(context.Background(), "l1", AgentQualificationScorer, KindQualified, "", nil)
		}()
	}
	wg.Wait()

	got, err := svc.ListByLead(context.Background(), "l1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != writers {
		t.Fatalf("expected %d records, got %d", writers, len(got))
	}
}

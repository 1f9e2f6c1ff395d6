package comms

import (
	"context"
	"errors"
	"testing"

	"leadflow-platform/internal/channels"
	"leadflow-platform/internal/decisions"
)

type stubDispatcher struct {
	name       string
	externalID string
	err        error
	calls      int
	lastReq    SendRequest
}

func (d *stubDispatcher) Name() string { return d.name }

func (d *stubDispatcher) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	d.calls++
	d.lastReq = req
	if d.err != nil {
		return SendResult{}, d.err
	}
	return SendResult{ExternalID: d.externalID}, nil
}

func newTestService() (*Service, *MemoryRepo, *decisions.MemoryRepo) {
	repo := NewMemoryRepo()
	decRepo := decisions.NewMemoryRepo()
	return NewService(repo, decisions.NewService(decRepo)), repo, decRepo
}

func TestRecordInbound_BornDelivered(t *testing.T) {
	svc, _, _ := newTestService()

	c, err := svc.RecordInbound(context.Background(), "lead-1", channels.ChannelSMS, "hello")
	if err != nil {
		t.Fatalf("RecordInbound: %v", err)
	}
	if c.Direction != DirectionInbound {
		t.Fatalf("direction = %q, want inbound", c.Direction)
	}
	if c.Status != StatusDelivered {
		t.Fatalf("status = %q, want delivered", c.Status)
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		t.Fatalf("record missing identity or timestamp: %+v", c)
	}
}

func TestRecord_InvalidArgs(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.RecordInbound(ctx, "", channels.ChannelSMS, "x"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty lead: err = %v", err)
	}
	if _, err := svc.RecordOutbound(ctx, "lead-1", channels.ChannelSMS, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty content: err = %v", err)
	}
	if _, err := svc.RecordOutbound(ctx, "lead-1", channels.Channel("fax"), "x"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad channel: err = %v", err)
	}
}

func TestDispatch_Success(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	c, err := svc.RecordOutbound(ctx, "lead-1", channels.ChannelEmail, "pricing details attached")
	if err != nil {
		t.Fatalf("RecordOutbound: %v", err)
	}
	if c.Status != StatusPending {
		t.Fatalf("outbound born %q, want pending", c.Status)
	}

	d := &stubDispatcher{name: "smtp", externalID: "prov-42"}
	sent := svc.Dispatch(ctx, d, c, "lead@example.com")

	if d.calls != 1 {
		t.Fatalf("dispatcher calls = %d, want 1", d.calls)
	}
	if d.lastReq.Recipient != "lead@example.com" || d.lastReq.CommunicationID != c.ID {
		t.Fatalf("unexpected send request: %+v", d.lastReq)
	}
	if sent.Status != StatusSent || sent.ExternalID != "prov-42" {
		t.Fatalf("dispatched = %+v, want sent with external id", sent)
	}

	stored, err := repo.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != StatusSent || stored.ExternalID != "prov-42" {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestDispatch_FailureIsRecordedNotFatal(t *testing.T) {
	svc, repo, decRepo := newTestService()
	ctx := context.Background()

	c, err := svc.RecordOutbound(ctx, "lead-1", channels.ChannelSMS, "hi")
	if err != nil {
		t.Fatalf("RecordOutbound: %v", err)
	}

	d := &stubDispatcher{name: "sms-gw", err: errors.New("gateway timeout")}
	got := svc.Dispatch(ctx, d, c, "+15550100")

	if got.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	stored, _ := repo.Get(ctx, c.ID)
	if stored.Status != StatusFailed {
		t.Fatalf("stored status = %q, want failed", stored.Status)
	}

	all := decRepo.All()
	if len(all) != 1 {
		t.Fatalf("decisions logged = %d, want 1", len(all))
	}
	if all[0].Kind != decisions.KindExternalDispatchFailed {
		t.Fatalf("decision kind = %q", all[0].Kind)
	}
	if all[0].AgentType != decisions.AgentDeliveryDispatcher {
		t.Fatalf("decision agent = %q", all[0].AgentType)
	}
	if all[0].Reasoning != "gateway timeout" {
		t.Fatalf("decision reasoning = %q", all[0].Reasoning)
	}
}

func TestDispatch_NilDispatcherFailsSoftly(t *testing.T) {
	svc, repo, decRepo := newTestService()
	ctx := context.Background()

	c, _ := svc.RecordOutbound(ctx, "lead-1", channels.ChannelChat, "hi")
	got := svc.Dispatch(ctx, nil, c, "session-9")

	if got.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	stored, _ := repo.Get(ctx, c.ID)
	if stored.Status != StatusFailed {
		t.Fatalf("stored status = %q", stored.Status)
	}
	if len(decRepo.All()) != 1 {
		t.Fatalf("expected one dispatch-failed decision")
	}
}

func TestApplyDeliveryStatus(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	c, _ := svc.RecordOutbound(ctx, "lead-1", channels.ChannelEmail, "hello")
	d := &stubDispatcher{name: "smtp", externalID: "prov-7"}
	svc.Dispatch(ctx, d, c, "lead@example.com")

	updated, err := svc.ApplyDeliveryStatus(ctx, "prov-7", StatusDelivered)
	if err != nil {
		t.Fatalf("ApplyDeliveryStatus: %v", err)
	}
	if updated.ID != c.ID || updated.Status != StatusDelivered {
		t.Fatalf("updated = %+v", updated)
	}

	if _, err := svc.ApplyDeliveryStatus(ctx, "unknown", StatusDelivered); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown external id: err = %v", err)
	}
	if _, err := svc.ApplyDeliveryStatus(ctx, "prov-7", DeliveryStatus("bounced")); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad status: err = %v", err)
	}
}

func TestListByLead_OrderedHistory(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	svc.RecordInbound(ctx, "lead-1", channels.ChannelSMS, "first")
	svc.RecordOutbound(ctx, "lead-1", channels.ChannelSMS, "second")
	svc.RecordInbound(ctx, "lead-2", channels.ChannelChat, "other lead")

	got, err := svc.ListByLead(ctx, "lead-1")
	if err != nil {
		t.Fatalf("ListByLead: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Content != "first" || got[1].Content != "second" {
		t.Fatalf("order wrong: %q, %q", got[0].Content, got[1].Content)
	}
}

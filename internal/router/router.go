package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadflow-platform/internal/campaigns"
	"leadflow-platform/internal/channels"
	"leadflow-platform/internal/comms"
	"leadflow-platform/internal/contentgen"
	"leadflow-platform/internal/conversations"
	"leadflow-platform/internal/crosschannel"
	"leadflow-platform/internal/decisions"
	"leadflow-platform/internal/delivery"
	"leadflow-platform/internal/events"
	"leadflow-platform/internal/handover"
	"leadflow-platform/internal/leads"
	"leadflow-platform/internal/scoring"
	"leadflow-platform/pkg/logger"
	"leadflow-platform/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrInvalidChannel flags a channel outside the campaign's allowed set.
	// Surfaced immediately; never retried.
	ErrInvalidChannel = errors.New("router: channel not allowed for campaign")

	ErrNotConfigured = errors.New("router: dependencies not configured")
)

// Router is the orchestration entry point: it assigns channels, opens
// conversations, runs the per-message pipeline and applies handover
// escalations.
//
// Every routing decision lands in the append-only decision log. External
// collaborators (content generator, delivery dispatchers, event sink) are
// called outside the per-(lead, channel) lock; their failures degrade the
// operation, never corrupt state.

type Router struct {
	leads     leads.Repository
	tracker   *conversations.Tracker
	campaigns campaigns.Provider
	decisions *decisions.Service
	scorer    *scoring.Scorer
	evaluator *handover.Evaluator
	carrier   *crosschannel.Manager
	comms     *comms.Service

	dispatchers *delivery.Registry
	generator   contentgen.Generator
	sink        events.Sink

	// rdb, when set, adds the cross-process keyed lock on top of the
	// tracker's in-process serialization.
	rdb     *redis.Client
	lockTTL time.Duration

	clock func() time.Time
}

// Deps wires the router. Leads, Tracker, Campaigns, Decisions, Scorer,
// Evaluator, Carrier and Comms are required; the rest degrade gracefully
// when absent (nil generator means no auto-reply, nil registry means sends
// are recorded as failed, nil sink drops events, nil Redis means
// single-process locking only).
type Deps struct {
	Leads     leads.Repository
	Tracker   *conversations.Tracker
	Campaigns campaigns.Provider
	Decisions *decisions.Service
	Scorer    *scoring.Scorer
	Evaluator *handover.Evaluator
	Carrier   *crosschannel.Manager
	Comms     *comms.Service

	Dispatchers *delivery.Registry
	Generator   contentgen.Generator
	Events      events.Sink

	Redis   *redis.Client
	LockTTL time.Duration
}

func New(d Deps) (*Router, error) {
	if d.Leads == nil || d.Tracker == nil || d.Campaigns == nil || d.Decisions == nil ||
		d.Scorer == nil || d.Evaluator == nil || d.Carrier == nil || d.Comms == nil {
		return nil, ErrNotConfigured
	}
	ttl := d.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Router{
		leads:       d.Leads,
		tracker:     d.Tracker,
		campaigns:   d.Campaigns,
		decisions:   d.Decisions,
		scorer:      d.Scorer,
		evaluator:   d.Evaluator,
		carrier:     d.Carrier,
		comms:       d.Comms,
		dispatchers: d.Dispatchers,
		generator:   d.Generator,
		sink:        d.Events,
		rdb:         d.Redis,
		lockTTL:     ttl,
		clock:       time.Now,
	}, nil
}

// AssignChannel picks the engagement channel for a lead: the lead's stated
// preference when the campaign allows it, otherwise the campaign's primary.
// The choice is persisted and logged as a channel_assigned decision.
func (r *Router) AssignChannel(ctx context.Context, lead leads.Lead, campaign campaigns.Campaign) (channels.Channel, error) {
	ch := campaign.Channels.Primary
	reasoning := "campaign primary channel"

	if pref := lead.Metadata.PreferredChannel; channels.Valid(pref) && campaign.Channels.Allows(pref) {
		ch = pref
		reasoning = "lead metadata preference"
	}
	if !channels.Valid(ch) {
		return channels.None, fmt.Errorf("%w: campaign %s has no usable channel", ErrInvalidChannel, campaign.ID)
	}

	if err := r.leads.AssignChannel(ctx, lead.ID, ch); err != nil {
		return channels.None, err
	}

	if err := r.decisions.Log(ctx, lead.ID,
		decisions.AgentChannelRouter, decisions.KindChannelAssigned, reasoning,
		map[string]string{
			"channel":     string(ch),
			"preferred":   string(lead.Metadata.PreferredChannel),
			"campaign_id": campaign.ID,
		},
	); err != nil {
		return channels.None, err
	}
	return ch, nil
}

// Routed is the outcome of lead arrival.
type Routed struct {
	Lead         leads.Lead
	Conversation conversations.Conversation
	Channel      channels.Channel
}

// RouteLead runs the arrival flow: assign a channel, open the first
// conversation, mark the lead contacted and announce lead_routed.
// Routing an already-routed lead is idempotent and returns the active
// conversation.
func (r *Router) RouteLead(ctx context.Context, leadID string) (Routed, error) {
	lead, err := r.leads.Get(ctx, leadID)
	if err != nil {
		return Routed{}, err
	}
	campaign, err := r.campaigns.GetByID(ctx, lead.CampaignID)
	if err != nil {
		return Routed{}, err
	}

	ch, err := r.AssignChannel(ctx, lead, campaign)
	if err != nil {
		return Routed{}, err
	}

	conv, err := r.tracker.Open(ctx, lead.ID, ch, agentTypeFor(ch))
	if errors.Is(err, conversations.ErrConflict) {
		conv, err = r.tracker.FindActive(ctx, lead.ID, ch)
	}
	if err != nil {
		return Routed{}, err
	}

	if err := r.leads.UpdateStatus(ctx, lead.ID, leads.StatusContacted); err != nil &&
		!errors.Is(err, leads.ErrInvalidTransition) {
		return Routed{}, err
	}

	events.Emit(ctx, r.sink, events.Event{
		Type:           events.TypeLeadRouted,
		LeadID:         lead.ID,
		ConversationID: conv.ID,
		Channel:        string(ch),
	})

	lead, err = r.leads.Get(ctx, lead.ID)
	if err != nil {
		return Routed{}, err
	}
	return Routed{Lead: lead, Conversation: conv, Channel: ch}, nil
}

// Intake creates a lead and immediately routes it.
func (r *Router) Intake(ctx context.Context, l leads.Lead) (Routed, error) {
	if l.CampaignID == "" {
		return Routed{}, leads.ErrInvalidArgument
	}
	if _, err := r.campaigns.GetByID(ctx, l.CampaignID); err != nil {
		return Routed{}, err
	}

	now := r.clock().UTC()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.Status = leads.StatusNew
	l.AssignedChannel = channels.None
	l.QualificationScore = 0
	l.CreatedAt = now
	l.UpdatedAt = now

	if err := r.leads.Create(ctx, l); err != nil {
		return Routed{}, err
	}
	return r.RouteLead(ctx, l.ID)
}

// RequestChannelSwitch moves an engaged lead to another channel: the current
// conversation ends as completed, its context carries forward, and a new
// conversation opens on the target channel.
func (r *Router) RequestChannelSwitch(ctx context.Context, leadID string, target channels.Channel) (conversations.Conversation, error) {
	lead, err := r.leads.Get(ctx, leadID)
	if err != nil {
		return conversations.Conversation{}, err
	}
	campaign, err := r.campaigns.GetByID(ctx, lead.CampaignID)
	if err != nil {
		return conversations.Conversation{}, err
	}
	if !channels.Valid(target) || !campaign.Channels.Allows(target) {
		return conversations.Conversation{}, fmt.Errorf("%w: %q", ErrInvalidChannel, target)
	}

	// Switching to the currently active channel is a no-op.
	if conv, err := r.tracker.FindActive(ctx, leadID, target); err == nil {
		return conv, nil
	} else if !errors.Is(err, conversations.ErrNotFound) {
		return conversations.Conversation{}, err
	}

	carried := conversations.CrossChannelContext{}
	from := channels.None
	if cur := lead.AssignedChannel; cur != channels.None {
		prev, err := r.tracker.FindActive(ctx, leadID, cur)
		if err == nil {
			if prev, err = r.tracker.End(ctx, prev.ID, conversations.StatusCompleted); err != nil {
				return conversations.Conversation{}, err
			}
			carried = r.carrier.Carry(prev, lead)
			from = cur
		} else if !errors.Is(err, conversations.ErrNotFound) {
			return conversations.Conversation{}, err
		}
	}

	conv, err := r.tracker.OpenWithContext(ctx, leadID, target, agentTypeFor(target), carried)
	if errors.Is(err, conversations.ErrConflict) {
		// A racing switch opened on this channel first; adopt its conversation.
		conv, err = r.tracker.FindActive(ctx, leadID, target)
	}
	if err != nil {
		return conversations.Conversation{}, err
	}

	if err := r.leads.AssignChannel(ctx, leadID, target); err != nil {
		return conversations.Conversation{}, err
	}

	if err := r.decisions.Log(ctx, leadID,
		decisions.AgentChannelRouter, decisions.KindChannelSwitched,
		"channel switch requested",
		map[string]string{
			"from":         string(from),
			"to":           string(target),
			"conversation": conv.ID,
		},
	); err != nil {
		return conversations.Conversation{}, err
	}

	events.Emit(ctx, r.sink, events.Event{
		Type:           events.TypeConversationStateChanged,
		LeadID:         leadID,
		ConversationID: conv.ID,
		Channel:        string(target),
		Detail:         "channel_switched",
	})
	return conv, nil
}

func agentTypeFor(ch channels.Channel) string {
	return string(ch) + "_agent"
}

// acquireLock takes the cross-process keyed lock when Redis is wired.
// The returned release is safe to call regardless.
func (r *Router) acquireLock(ctx context.Context, key string) (func(), error) {
	if r.rdb == nil {
		return func() {}, nil
	}
	token := uuid.NewString()
	for {
		ok, err := utils.AcquireKeyedLock(ctx, r.rdb, key, token, r.lockTTL)
		if err != nil {
			return func() {}, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return func() {}, ctx.Err()
		case <-time.After(25 * time.Millisecond):
		}
	}
	return func() {
		if err := utils.ReleaseKeyedLock(context.WithoutCancel(ctx), r.rdb, key, token); err != nil {
			logger.From(ctx).Warn("lock release failed", "key", key, "err", err)
		}
	}, nil
}

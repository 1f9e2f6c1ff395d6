package router

import (
	"context"
	"errors"

	"leadflow-platform/internal/campaigns"
	"leadflow-platform/internal/channels"
	"leadflow-platform/internal/comms"
	"leadflow-platform/internal/contentgen"
	"leadflow-platform/internal/conversations"
	"leadflow-platform/internal/decisions"
	"leadflow-platform/internal/events"
	"leadflow-platform/internal/handover"
	"leadflow-platform/internal/leads"
	"leadflow-platform/pkg/logger"
)

// InboundMessage is one lead-authored message entering the pipeline.
// ScoreDelta and GoalsCompleted are explicit signals supplied by the
// ingesting boundary; absent signals mean plain content.
type InboundMessage struct {
	Content        string   `json:"content"`
	ScoreDelta     int      `json:"score_delta,omitempty"`
	GoalsCompleted []string `json:"goals_completed,omitempty"`
}

// Result is the pipeline outcome for one inbound message.
type Result struct {
	Conversation conversations.Conversation
	Score        int

	// Handover is set when the message triggered escalation; the caller
	// notifies the recipients. Nil means the conversation continues.
	Handover *handover.Outcome

	// Reply is the dispatched agent response, nil when the conversation
	// escalated or no generator is wired.
	Reply *comms.Communication
}

// ProcessInboundMessage runs the per-message pipeline: append the message,
// recompute the qualification score, evaluate handover, then either escalate
// or draft and dispatch the agent's reply.
//
// The per-(lead, channel) lock is held for the append/score/evaluate section
// and released across the content-generation and delivery calls; the reply
// append re-validates the conversation after re-acquiring.
func (r *Router) ProcessInboundMessage(ctx context.Context, leadID string, ch channels.Channel, msg InboundMessage) (Result, error) {
	if msg.Content == "" || !channels.Valid(ch) {
		return Result{}, conversations.ErrInvalidArgument
	}

	lead, err := r.leads.Get(ctx, leadID)
	if err != nil {
		return Result{}, err
	}
	campaign, err := r.campaigns.GetByID(ctx, lead.CampaignID)
	if err != nil {
		return Result{}, err
	}
	conv, err := r.tracker.FindActive(ctx, leadID, ch)
	if err != nil {
		return Result{}, err
	}

	release, err := r.acquireLock(ctx, conversations.LockKey(leadID, ch))
	if err != nil {
		return Result{}, err
	}

	conv, err = r.tracker.AppendMessage(ctx, conv.ID, conversations.Message{
		Role:       conversations.RoleLead,
		Content:    msg.Content,
		ScoreDelta: msg.ScoreDelta,
	})
	if err != nil {
		release()
		return Result{}, err
	}

	if _, err := r.comms.RecordInbound(ctx, leadID, ch, msg.Content); err != nil {
		release()
		return Result{}, err
	}

	conv, score, err := r.scoreAndSave(ctx, conv, lead, campaign, msg.GoalsCompleted)
	if err != nil {
		release()
		return Result{}, err
	}

	// Re-read the lead: the scorer may have raised the aggregate or
	// qualified it.
	lead, err = r.leads.Get(ctx, leadID)
	if err != nil {
		release()
		return Result{}, err
	}

	outcome := r.evaluator.Evaluate(conv, lead, campaign)
	if outcome.Escalate {
		conv, err = r.applyHandover(ctx, conv, lead, outcome)
		release()
		if err != nil {
			return Result{}, err
		}
		return Result{Conversation: conv, Score: score, Handover: &outcome}, nil
	}

	// Continue: drafting has unbounded latency, so the lock goes first.
	release()

	if r.generator == nil {
		return Result{Conversation: conv, Score: score}, nil
	}
	draft, err := r.generator.Draft(ctx, contentgen.DraftRequest{
		Lead:         lead,
		Campaign:     campaign,
		Conversation: conv,
	})
	if err != nil {
		logger.From(ctx).Warn("content generation failed",
			"lead_id", leadID, "conversation_id", conv.ID, "err", err)
		return Result{Conversation: conv, Score: score}, nil
	}

	reply, updated, err := r.sendReply(ctx, lead, campaign, ch, conv.ID, draft)
	if err != nil {
		return Result{}, err
	}
	if updated.ID != "" {
		conv = updated
	}
	return Result{Conversation: conv, Score: score, Reply: reply}, nil
}

// sendReply re-acquires the lock, re-validates the conversation is still
// active, appends the agent's message, then records and dispatches the
// outbound communication.
func (r *Router) sendReply(ctx context.Context, lead leads.Lead, campaign campaigns.Campaign, ch channels.Channel, conversationID string, draft contentgen.Draft) (*comms.Communication, conversations.Conversation, error) {
	release, err := r.acquireLock(ctx, conversations.LockKey(lead.ID, ch))
	if err != nil {
		return nil, conversations.Conversation{}, err
	}

	conv, err := r.tracker.Get(ctx, conversationID)
	if err != nil {
		release()
		return nil, conversations.Conversation{}, err
	}
	if conv.Status != conversations.StatusActive {
		// Ended or escalated while the draft was generated; drop the reply.
		release()
		return nil, conv, nil
	}

	conv, err = r.tracker.AppendMessage(ctx, conversationID, conversations.Message{
		Role:       conversations.RoleAgent,
		Content:    draft.Content,
		ScoreDelta: draft.ScoreDelta,
	})
	if err != nil {
		release()
		if errors.Is(err, conversations.ErrNotFound) {
			return nil, conversations.Conversation{}, nil
		}
		return nil, conversations.Conversation{}, err
	}

	if len(draft.GoalsCompleted) > 0 || draft.ScoreDelta != 0 {
		conv, _, err = r.scoreAndSave(ctx, conv, lead, campaign, draft.GoalsCompleted)
		if err != nil {
			release()
			return nil, conversations.Conversation{}, err
		}
	}

	out, err := r.comms.RecordOutbound(ctx, lead.ID, ch, draft.Content)
	if err != nil {
		release()
		return nil, conversations.Conversation{}, err
	}

	// Delivery is external; the lock is not held across it.
	release()

	var dispatcher comms.Dispatcher
	if r.dispatchers != nil {
		dispatcher = r.dispatchers.For(ch)
	}
	out = r.comms.Dispatch(ctx, dispatcher, out, recipientFor(lead, ch))
	return &out, conv, nil
}

// scoreAndSave marks completed goals, recomputes the score snapshot and
// persists the conversation, retrying exactly once on a stale version.
func (r *Router) scoreAndSave(ctx context.Context, conv conversations.Conversation, lead leads.Lead, campaign campaigns.Campaign, goals []string) (conversations.Conversation, int, error) {
	apply := func(c *conversations.Conversation) {
		if c.GoalProgress == nil {
			c.GoalProgress = map[string]bool{}
		}
		for _, g := range goals {
			if hasGoal(campaign.Goals, g) {
				c.GoalProgress[g] = true
			}
		}
	}

	apply(&conv)
	score, err := r.scorer.Recompute(ctx, &conv, lead, campaign)
	if err != nil {
		return conversations.Conversation{}, 0, err
	}

	saved, err := r.tracker.Save(ctx, conv)
	if errors.Is(err, conversations.ErrStale) {
		fresh, gerr := r.tracker.Get(ctx, conv.ID)
		if gerr != nil {
			return conversations.Conversation{}, 0, gerr
		}
		apply(&fresh)
		if score, err = r.scorer.Recompute(ctx, &fresh, lead, campaign); err != nil {
			return conversations.Conversation{}, 0, err
		}
		saved, err = r.tracker.Save(ctx, fresh)
	}
	if err != nil {
		return conversations.Conversation{}, 0, err
	}
	return saved, score, nil
}

// applyHandover moves the conversation to handover_pending, advances the
// lead lifecycle and records the escalation. Notification failure downstream
// never rolls this back.
func (r *Router) applyHandover(ctx context.Context, conv conversations.Conversation, lead leads.Lead, outcome handover.Outcome) (conversations.Conversation, error) {
	conv, err := r.tracker.Transition(ctx, conv.ID, conversations.StatusHandoverPending)
	if err != nil {
		return conversations.Conversation{}, err
	}

	if err := r.leads.UpdateStatus(ctx, lead.ID, leads.StatusHandedOver); err != nil &&
		!errors.Is(err, leads.ErrInvalidTransition) {
		return conversations.Conversation{}, err
	}

	if err := r.decisions.Log(ctx, lead.ID,
		decisions.AgentHandoverEvaluator, decisions.KindHandoverTriggered,
		string(outcome.Reason), outcome.Summary,
	); err != nil {
		return conversations.Conversation{}, err
	}

	events.Emit(ctx, r.sink, events.Event{
		Type:           events.TypeHandoverTriggered,
		LeadID:         lead.ID,
		ConversationID: conv.ID,
		Channel:        string(conv.Channel),
		Detail:         string(outcome.Reason),
	})
	events.Emit(ctx, r.sink, events.Event{
		Type:           events.TypeConversationStateChanged,
		LeadID:         lead.ID,
		ConversationID: conv.ID,
		Channel:        string(conv.Channel),
		Detail:         string(conversations.StatusHandoverPending),
	})
	return conv, nil
}

func recipientFor(lead leads.Lead, ch channels.Channel) string {
	switch ch {
	case channels.ChannelEmail:
		return lead.Email
	case channels.ChannelSMS:
		return lead.Phone
	default:
		return lead.ID
	}
}

func hasGoal(goals []string, g string) bool {
	for _, have := range goals {
		if have == g {
			return true
		}
	}
	return false
}

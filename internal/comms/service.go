package comms

import (
	"context"
	"errors"
	"time"

	"leadflow-platform/internal/channels"
	"leadflow-platform/internal/decisions"
	"leadflow-platform/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("comms: not found")
	ErrInvalidArgument = errors.New("comms: invalid argument")
)

// Repository is the persistence contract for communications.
type Repository interface {
	Create(ctx context.Context, c Communication) error
	Get(ctx context.Context, id string) (Communication, error)
	GetByExternalID(ctx context.Context, externalID string) (Communication, error)
	UpdateStatus(ctx context.Context, id string, status DeliveryStatus, externalID string) error
	ListByLead(ctx context.Context, leadID string) ([]Communication, error)
}

// Dispatcher is the outbound delivery collaborator boundary. Implementations
// live outside this core (SMTP relay, SMS gateway, chat provider); failures
// and latency are theirs, recording is ours.
type Dispatcher interface {
	Name() string
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

type SendRequest struct {
	CommunicationID string           `json:"communication_id"`
	LeadID          string           `json:"lead_id"`
	Channel         channels.Channel `json:"channel"`
	Recipient       string           `json:"recipient"`
	Content         string           `json:"content"`
}

type SendResult struct {
	// ExternalID keys the provider's asynchronous status callbacks.
	ExternalID string `json:"external_id"`
}

// Service records communications and applies delivery callbacks.
type Service struct {
	repo      Repository
	decisions *decisions.Service
	clock     func() time.Time
}

func NewService(repo Repository, decisionLog *decisions.Service) *Service {
	return &Service{repo: repo, decisions: decisionLog, clock: time.Now}
}

// RecordInbound stores a received message. Inbound records are born
// delivered: the provider already handed them to us.
func (s *Service) RecordInbound(ctx context.Context, leadID string, ch channels.Channel, content string) (Communication, error) {
	return s.record(ctx, leadID, ch, DirectionInbound, content, StatusDelivered)
}

// RecordOutbound stores a message the orchestrator wants delivered.
func (s *Service) RecordOutbound(ctx context.Context, leadID string, ch channels.Channel, content string) (Communication, error) {
	return s.record(ctx, leadID, ch, DirectionOutbound, content, StatusPending)
}

func (s *Service) record(ctx context.Context, leadID string, ch channels.Channel, dir Direction, content string, status DeliveryStatus) (Communication, error) {
	if leadID == "" || content == "" || !channels.Valid(ch) {
		return Communication{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	c := Communication{
		ID:        uuid.NewString(),
		LeadID:    leadID,
		Channel:   ch,
		Direction: dir,
		Content:   content,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Communication{}, err
	}
	return c, nil
}

// Dispatch hands an outbound communication to the delivery collaborator.
//
// A dispatch failure is recorded (status failed plus an
// external_dispatch_failed decision) and swallowed: a failed send never
// prevents the conversation from continuing or from later being evaluated
// for handover.
func (s *Service) Dispatch(ctx context.Context, d Dispatcher, c Communication, recipient string) Communication {
	log := logger.From(ctx)

	if d == nil {
		// No dispatcher configured counts as an external failure, not a crash.
		s.markDispatchFailed(ctx, c, "no dispatcher configured")
		c.Status = StatusFailed
		return c
	}

	res, err := d.Send(ctx, SendRequest{
		CommunicationID: c.ID,
		LeadID:          c.LeadID,
		Channel:         c.Channel,
		Recipient:       recipient,
		Content:         c.Content,
	})
	if err != nil {
		log.Warn("outbound dispatch failed", "communication_id", c.ID, "provider", d.Name(), "err", err)
		s.markDispatchFailed(ctx, c, err.Error())
		c.Status = StatusFailed
		return c
	}

	if uerr := s.repo.UpdateStatus(ctx, c.ID, StatusSent, res.ExternalID); uerr != nil {
		log.Warn("dispatch status record failed", "communication_id", c.ID, "err", uerr)
		return c
	}
	c.Status = StatusSent
	c.ExternalID = res.ExternalID
	return c
}

func (s *Service) markDispatchFailed(ctx context.Context, c Communication, reason string) {
	if err := s.repo.UpdateStatus(ctx, c.ID, StatusFailed, c.ExternalID); err != nil {
		logger.From(ctx).Warn("failed-status record failed", "communication_id", c.ID, "err", err)
	}
	if s.decisions != nil {
		_ = s.decisions.Log(ctx, c.LeadID,
			decisions.AgentDeliveryDispatcher, decisions.KindExternalDispatchFailed,
			reason,
			map[string]string{"communication_id": c.ID, "channel": string(c.Channel)},
		)
	}
}

// ApplyDeliveryStatus records a status reported by the provider's callback,
// keyed by external identifier. The core's only obligation is to record
// whatever is reported.
func (s *Service) ApplyDeliveryStatus(ctx context.Context, externalID string, status DeliveryStatus) (Communication, error) {
	if externalID == "" || !ValidDeliveryStatus(status) {
		return Communication{}, ErrInvalidArgument
	}
	c, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return Communication{}, err
	}
	if err := s.repo.UpdateStatus(ctx, c.ID, status, externalID); err != nil {
		return Communication{}, err
	}
	c.Status = status
	return c, nil
}

// ListByLead returns a lead's communication history.
func (s *Service) ListByLead(ctx context.Context, leadID string) ([]Communication, error) {
	if leadID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListByLead(ctx, leadID)
}

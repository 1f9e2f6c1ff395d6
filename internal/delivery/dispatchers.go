package delivery

import (
	"context"
	"fmt"

	"leadflow-platform/internal/channels"
	"leadflow-platform/internal/comms"
	"leadflow-platform/pkg/logger"

	"github.com/google/uuid"
)

// Provider adapters only. Each dispatcher wraps one external delivery
// provider (SMTP relay, SMS gateway, chat session API); no orchestration
// decisions are made here.

// Registry maps channels to their configured dispatcher.
type Registry struct {
	byChannel map[channels.Channel]comms.Dispatcher
}

func NewRegistry() *Registry {
	return &Registry{byChannel: make(map[channels.Channel]comms.Dispatcher)}
}

func (r *Registry) Register(ch channels.Channel, d comms.Dispatcher) *Registry {
	r.byChannel[ch] = d
	return r
}

// For returns the dispatcher for a channel, or nil when none is configured.
// The comms service treats a nil dispatcher as an external failure, so an
// unconfigured channel degrades to a recorded failed send.
func (r *Registry) For(ch channels.Channel) comms.Dispatcher {
	return r.byChannel[ch]
}

// LogDispatcher is the built-in dispatcher for local runs and tests: it logs
// the message and fabricates a provider ID so the callback path can be
// exercised end to end without a live provider.
type LogDispatcher struct {
	Channel channels.Channel
}

func NewLogDispatcher(ch channels.Channel) *LogDispatcher {
	return &LogDispatcher{Channel: ch}
}

func (d *LogDispatcher) Name() string {
	return fmt.Sprintf("log-%s", d.Channel)
}

func (d *LogDispatcher) Send(ctx context.Context, req comms.SendRequest) (comms.SendResult, error) {
	externalID := "local-" + uuid.NewString()
	logger.From(ctx).Info("outbound message dispatched",
		"provider", d.Name(),
		"channel", string(req.Channel),
		"lead_id", req.LeadID,
		"communication_id", req.CommunicationID,
		"recipient", req.Recipient,
		"external_id", externalID,
	)
	return comms.SendResult{ExternalID: externalID}, nil
}

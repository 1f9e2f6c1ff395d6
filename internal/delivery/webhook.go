package delivery

import (
	"fmt"
	"net/http"
	"strings"

	"leadflow-platform/internal/comms"
)

// StatusCallbackForm captures the provider's delivery status callback.
// Providers post either JSON or form-encoded bodies; both map to these
// fields. Provider-specific extras are ignored.

type StatusCallbackForm struct {
	ExternalID string `json:"external_id" form:"external_id"`
	Status     string `json:"status" form:"status"`

	// ErrorCode is informational only; the recorded status is what matters.
	ErrorCode string `json:"error_code,omitempty" form:"error_code"`
}

// ParseStatusCallback reads a callback request without binding to any single
// provider's field names. Common aliases are accepted.
func ParseStatusCallback(r *http.Request) (StatusCallbackForm, error) {
	if err := r.ParseForm(); err != nil {
		return StatusCallbackForm{}, err
	}
	f := StatusCallbackForm{
		ExternalID: firstFormValue(r, "external_id", "MessageSid", "message_id"),
		Status:     strings.ToLower(firstFormValue(r, "status", "MessageStatus", "event")),
		ErrorCode:  firstFormValue(r, "error_code", "ErrorCode"),
	}
	if f.ExternalID == "" || f.Status == "" {
		return StatusCallbackForm{}, fmt.Errorf("delivery: callback missing external id or status")
	}
	return f, nil
}

func firstFormValue(r *http.Request, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(r.PostFormValue(n)); v != "" {
			return v
		}
	}
	return ""
}

// MapStatus translates provider status vocabulary onto the delivery states.
// Unknown statuses are rejected rather than guessed.
func MapStatus(s string) (comms.DeliveryStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "queued", "accepted", "pending":
		return comms.StatusPending, true
	case "sent", "sending":
		return comms.StatusSent, true
	case "delivered", "read":
		return comms.StatusDelivered, true
	case "failed", "undelivered", "bounced", "rejected":
		return comms.StatusFailed, true
	default:
		return "", false
	}
}

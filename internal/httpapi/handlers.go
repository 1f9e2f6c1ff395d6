package httpapi

import (
	"errors"
	"net/http"
	"time"

	"leadflow-platform/internal/campaigns"
	"leadflow-platform/internal/channels"
	"leadflow-platform/internal/comms"
	"leadflow-platform/internal/conversations"
	"leadflow-platform/internal/decisions"
	"leadflow-platform/internal/delivery"
	"leadflow-platform/internal/leads"
	"leadflow-platform/internal/reporting"
	"leadflow-platform/internal/router"
	"leadflow-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Router    *router.Router
	Leads     leads.Repository
	Comms     *comms.Service
	Decisions *decisions.Service
	Reporting *reporting.Service
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, leads.ErrNotFound),
		errors.Is(err, conversations.ErrNotFound),
		errors.Is(err, campaigns.ErrNotFound),
		errors.Is(err, comms.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, router.ErrInvalidChannel):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, conversations.ErrConflict),
		errors.Is(err, conversations.ErrStale):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error(), "retryable": true})
	case errors.Is(err, leads.ErrInvalidArgument),
		errors.Is(err, conversations.ErrInvalidArgument),
		errors.Is(err, comms.ErrInvalidArgument),
		errors.Is(err, reporting.ErrInvalidRequest):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.From(c.Request.Context()).Error("request failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// --- Lead intake ---

type intakeRequest struct {
	DisplayName      string            `json:"display_name"`
	Email            string            `json:"email,omitempty"`
	Phone            string            `json:"phone,omitempty"`
	Source           string            `json:"source"`
	CampaignID       string            `json:"campaign_id"`
	PreferredChannel string            `json:"preferred_channel,omitempty"`
	Fields           map[string]string `json:"fields,omitempty"`
}

// IntakeLead creates a lead and routes it onto its first channel.
func (h Handlers) IntakeLead(c *gin.Context) {
	var req intakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.CampaignID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "campaign_id required"})
		return
	}

	l := leads.Lead{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Phone:       req.Phone,
		Source:      req.Source,
		CampaignID:  req.CampaignID,
		Metadata:    leads.Metadata{Fields: req.Fields},
	}
	if req.PreferredChannel != "" {
		ch, err := channels.Parse(req.PreferredChannel)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		l.Metadata.PreferredChannel = ch
	}

	routed, err := h.Router.Intake(c.Request.Context(), l)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"lead":         routed.Lead,
		"conversation": routed.Conversation,
		"channel":      routed.Channel,
	})
}

// GetLead returns the lead with its decision history.
func (h Handlers) GetLead(c *gin.Context) {
	leadID := c.Param("lead_id")
	l, err := h.Leads.Get(c.Request.Context(), leadID)
	if err != nil {
		respondError(c, err)
		return
	}
	history, err := h.Decisions.ListByLead(c.Request.Context(), leadID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": l, "decisions": history})
}

// --- Conversation pipeline ---

type inboundMessageRequest struct {
	Channel        string   `json:"channel"`
	Content        string   `json:"content"`
	ScoreDelta     int      `json:"score_delta,omitempty"`
	GoalsCompleted []string `json:"goals_completed,omitempty"`
}

// InboundMessage feeds one lead message through the orchestration pipeline.
func (h Handlers) InboundMessage(c *gin.Context) {
	var req inboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ch, err := channels.Parse(req.Channel)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if req.Content == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "content required"})
		return
	}

	res, err := h.Router.ProcessInboundMessage(c.Request.Context(), c.Param("lead_id"), ch, router.InboundMessage{
		Content:        req.Content,
		ScoreDelta:     req.ScoreDelta,
		GoalsCompleted: req.GoalsCompleted,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	body := gin.H{
		"conversation": res.Conversation,
		"score":        res.Score,
	}
	if res.Handover != nil {
		body["handover"] = res.Handover
	}
	if res.Reply != nil {
		body["reply"] = res.Reply
	}
	c.JSON(http.StatusOK, body)
}

type switchChannelRequest struct {
	Channel string `json:"channel"`
}

// SwitchChannel moves the lead's engagement to another channel.
func (h Handlers) SwitchChannel(c *gin.Context) {
	var req switchChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ch, err := channels.Parse(req.Channel)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.Router.RequestChannelSwitch(c.Request.Context(), c.Param("lead_id"), ch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// ListCommunications returns the lead's communication history.
func (h Handlers) ListCommunications(c *gin.Context) {
	history, err := h.Comms.ListByLead(c.Request.Context(), c.Param("lead_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"communications": history})
}

// --- Delivery callbacks ---

// DeliveryCallback applies a provider's asynchronous delivery status report.
func (h Handlers) DeliveryCallback(c *gin.Context) {
	form, err := delivery.ParseStatusCallback(c.Request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, ok := delivery.MapStatus(form.Status)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown delivery status"})
		return
	}

	comm, err := h.Comms.ApplyDeliveryStatus(c.Request.Context(), form.ExternalID, status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"communication": comm})
}

// --- Reporting ---

// CampaignSummary returns engagement metrics for a campaign over a range.
// Defaults to the trailing 30 days when the range is absent.
func (h Handlers) CampaignSummary(c *gin.Context) {
	now := time.Now().UTC()
	req := reporting.EngagementSummaryRequest{
		CampaignID: c.Param("campaign_id"),
		Range: reporting.TimeRange{
			From: now.AddDate(0, 0, -30),
			To:   now,
		},
	}
	if v := c.Query("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		req.Range.From = ts
	}
	if v := c.Query("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}
		req.Range.To = ts
	}

	summary, err := h.Reporting.EngagementSummary(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

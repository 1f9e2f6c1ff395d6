package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// EngagementSummaryRequest requests aggregated engagement metrics for one
// campaign over a time range.

type EngagementSummaryRequest struct {
	CampaignID string    `json:"campaign_id"`
	Range      TimeRange `json:"range"`
}

type EngagementSummary struct {
	CampaignID string `json:"campaign_id"`

	TotalLeads    int            `json:"total_leads"`
	LeadsByStatus map[string]int `json:"leads_by_status"`

	// AverageScore is the mean lead-level qualification score, rounded down.
	AverageScore int `json:"average_score"`

	TotalConversations    int            `json:"total_conversations"`
	ConversationsByStatus map[string]int `json:"conversations_by_status"`

	TotalMessages     int            `json:"total_messages"`
	MessagesByChannel map[string]int `json:"messages_by_channel"`

	TotalHandovers    int            `json:"total_handovers"`
	HandoversByReason map[string]int `json:"handovers_by_reason"`
}

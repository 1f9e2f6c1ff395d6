package reporting

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"leadflow-platform/internal/channels"
	"leadflow-platform/internal/conversations"
	"leadflow-platform/internal/decisions"
	"leadflow-platform/internal/leads"
)

// PostgresRepo reads the engagement tables for reporting. Conversations and
// decisions join to a campaign through the leads table.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) ListLeads(ctx context.Context, campaignID string, from, to time.Time) ([]leads.Lead, error) {
	const q = `
SELECT id, display_name, email, phone, source, campaign_id, status,
       assigned_channel, qualification_score, metadata, created_at, updated_at
FROM leads
WHERE campaign_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at, id
`
	rows, err := r.db.QueryContext(ctx, q, campaignID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leads.Lead
	for rows.Next() {
		var (
			l       leads.Lead
			ch      string
			metaRaw []byte
		)
		if err := rows.Scan(
			&l.ID, &l.DisplayName, &l.Email, &l.Phone, &l.Source, &l.CampaignID,
			&l.Status, &ch, &l.QualificationScore, &metaRaw, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		l.AssignedChannel = channels.Channel(ch)
		if len(metaRaw) > 0 {
			if err := json.Unmarshal(metaRaw, &l.Metadata); err != nil {
				return nil, fmt.Errorf("reporting: decode lead metadata: %w", err)
			}
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListConversations(ctx context.Context, campaignID string, from, to time.Time) ([]conversations.Conversation, error) {
	const q = `
SELECT c.id, c.lead_id, c.channel, c.status, c.score_snapshot, c.messages, c.started_at
FROM conversations c
JOIN leads l ON l.id = c.lead_id
WHERE l.campaign_id = $1 AND c.started_at >= $2 AND c.started_at < $3
ORDER BY c.started_at, c.id
`
	rows, err := r.db.QueryContext(ctx, q, campaignID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []conversations.Conversation
	for rows.Next() {
		var (
			c       conversations.Conversation
			ch      string
			msgsRaw []byte
		)
		if err := rows.Scan(&c.ID, &c.LeadID, &ch, &c.Status, &c.ScoreSnapshot, &msgsRaw, &c.StartedAt); err != nil {
			return nil, err
		}
		c.Channel = channels.Channel(ch)
		if len(msgsRaw) > 0 {
			if err := json.Unmarshal(msgsRaw, &c.Messages); err != nil {
				return nil, fmt.Errorf("reporting: decode messages: %w", err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListDecisions(ctx context.Context, campaignID string, from, to time.Time) ([]decisions.Decision, error) {
	const q = `
SELECT d.id, d.lead_id, d.agent_type, d.decision, d.reasoning, d.context, d.created_at
FROM agent_decisions d
JOIN leads l ON l.id = d.lead_id
WHERE l.campaign_id = $1 AND d.created_at >= $2 AND d.created_at < $3
ORDER BY d.created_at, d.id
`
	rows, err := r.db.QueryContext(ctx, q, campaignID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []decisions.Decision
	for rows.Next() {
		var d decisions.Decision
		if err := rows.Scan(&d.ID, &d.LeadID, &d.AgentType, &d.Kind, &d.Reasoning, &d.Context, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

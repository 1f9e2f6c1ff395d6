package conversations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"leadflow-platform/internal/channels"
)

// PostgresRepo stores conversations in the conversations table.
//
// NOTE: This repo assumes:
// - messages, goal_progress and cross_channel_context stored as JSONB
// - a partial unique index enforcing the at-most-one-active invariant:
//   UNIQUE (lead_id, channel) WHERE status NOT IN ('completed','failed')
// - version INT for optimistic concurrency

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const conversationColumns = `
id, lead_id, channel, agent_type, messages, score_snapshot, goal_progress,
cross_channel_context, status, version, started_at, ended_at
`

func (r *PostgresRepo) Create(ctx context.Context, c Conversation) error {
	if c.ID == "" || c.LeadID == "" {
		return ErrInvalidArgument
	}
	msgs, goals, cctx, err := encodeJSON(c)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO conversations (` + conversationColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`
	_, err = r.db.ExecContext(ctx, q,
		c.ID,
		c.LeadID,
		string(c.Channel),
		c.AgentType,
		msgs,
		c.ScoreSnapshot,
		goals,
		cctx,
		c.Status,
		c.Version,
		c.StartedAt,
		c.EndedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Conversation, error) {
	const q = `
SELECT ` + conversationColumns + `
FROM conversations
WHERE id = $1
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) FindActive(ctx context.Context, leadID string, ch channels.Channel) (Conversation, error) {
	const q = `
SELECT ` + conversationColumns + `
FROM conversations
WHERE lead_id = $1 AND channel = $2 AND status = 'active'
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, leadID, string(ch)))
}

func (r *PostgresRepo) Update(ctx context.Context, c Conversation) (Conversation, error) {
	msgs, goals, cctx, err := encodeJSON(c)
	if err != nil {
		return Conversation{}, err
	}

	const q = `
UPDATE conversations
SET messages = $2, score_snapshot = $3, goal_progress = $4,
    cross_channel_context = $5, status = $6, version = version + 1,
    ended_at = $7
WHERE id = $1 AND version = $8
`
	res, err := r.db.ExecContext(ctx, q,
		c.ID,
		msgs,
		c.ScoreSnapshot,
		goals,
		cctx,
		c.Status,
		c.EndedAt,
		c.Version,
	)
	if err != nil {
		return Conversation{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Conversation{}, err
	}
	if n == 0 {
		// Either missing or a version mismatch; distinguish for the caller.
		if _, getErr := r.Get(ctx, c.ID); getErr != nil {
			return Conversation{}, getErr
		}
		return Conversation{}, ErrStale
	}
	c.Version++
	return c, nil
}

func (r *PostgresRepo) scanOne(row *sql.Row) (Conversation, error) {
	var (
		c        Conversation
		ch       string
		msgsRaw  []byte
		goalsRaw []byte
		cctxRaw  []byte
	)
	if err := row.Scan(
		&c.ID,
		&c.LeadID,
		&ch,
		&c.AgentType,
		&msgsRaw,
		&c.ScoreSnapshot,
		&goalsRaw,
		&cctxRaw,
		&c.Status,
		&c.Version,
		&c.StartedAt,
		&c.EndedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, err
	}
	c.Channel = channels.Channel(ch)
	if len(msgsRaw) > 0 {
		if err := json.Unmarshal(msgsRaw, &c.Messages); err != nil {
			return Conversation{}, fmt.Errorf("conversations: decode messages: %w", err)
		}
	}
	if len(goalsRaw) > 0 {
		if err := json.Unmarshal(goalsRaw, &c.GoalProgress); err != nil {
			return Conversation{}, fmt.Errorf("conversations: decode goal progress: %w", err)
		}
	}
	if len(cctxRaw) > 0 {
		if err := json.Unmarshal(cctxRaw, &c.Context); err != nil {
			return Conversation{}, fmt.Errorf("conversations: decode context: %w", err)
		}
	}
	return c, nil
}

func encodeJSON(c Conversation) (msgs, goals, cctx []byte, err error) {
	if msgs, err = json.Marshal(c.Messages); err != nil {
		return nil, nil, nil, fmt.Errorf("conversations: encode messages: %w", err)
	}
	if goals, err = json.Marshal(c.GoalProgress); err != nil {
		return nil, nil, nil, fmt.Errorf("conversations: encode goal progress: %w", err)
	}
	if cctx, err = json.Marshal(c.Context); err != nil {
		return nil, nil, nil, fmt.Errorf("conversations: encode context: %w", err)
	}
	return msgs, goals, cctx, nil
}

// isUniqueViolation matches Postgres unique_violation (SQLSTATE 23505)
// without importing driver internals at every call site.
func isUniqueViolation(err error) bool {
	type coder interface{ SQLState() string }
	var c coder
	if errors.As(err, &c) {
		return c.SQLState() == "23505"
	}
	return false
}

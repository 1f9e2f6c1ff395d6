package decisions

import (
	"context"
	"database/sql"
)

// PostgresRepo stores decisions in the agent_decisions table.
// The table is INSERT-only.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, d Decision) error {
	const q = `
INSERT INTO agent_decisions (
  id, lead_id, agent_type, decision, reasoning, context, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7
)
`
	_, err := r.db.ExecContext(ctx, q,
		d.ID,
		d.LeadID,
		d.AgentType,
		d.Kind,
		d.Reasoning,
		d.Context,
		d.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) ListByLead(ctx context.Context, leadID string) ([]Decision, error) {
	const q = `
SELECT id, lead_id, agent_type, decision, reasoning, context, created_at
FROM agent_decisions
WHERE lead_id = $1
ORDER BY created_at, id
`
	rows, err := r.db.QueryContext(ctx, q, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(
			&d.ID,
			&d.LeadID,
			&d.AgentType,
			&d.Kind,
			&d.Reasoning,
			&d.Context,
			&d.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

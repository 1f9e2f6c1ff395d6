package campaigns

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresProvider reads campaigns from Postgres.
//
// NOTE: This provider assumes a campaigns table with rule columns stored as
// JSONB (goals, qualification, handover, channels). Campaign authoring lives
// outside this core; rows are read-only here.

type PostgresProvider struct {
	db *sql.DB
}

func NewPostgresProvider(db *sql.DB) *PostgresProvider {
	return &PostgresProvider{db: db}
}

const campaignColumns = `
id, name, goals, qualification, handover, channels, manual_only, created_at, updated_at
`

func (p *PostgresProvider) GetByID(ctx context.Context, id string) (Campaign, error) {
	const q = `
SELECT ` + campaignColumns + `
FROM campaigns
WHERE id = $1
`
	return p.scanOne(p.db.QueryRowContext(ctx, q, id))
}

func (p *PostgresProvider) GetByName(ctx context.Context, name string) (Campaign, error) {
	const q = `
SELECT ` + campaignColumns + `
FROM campaigns
WHERE name = $1
`
	return p.scanOne(p.db.QueryRowContext(ctx, q, name))
}

func (p *PostgresProvider) scanOne(row *sql.Row) (Campaign, error) {
	var (
		c             Campaign
		goalsRaw      []byte
		qualRaw       []byte
		handoverRaw   []byte
		channelsRaw   []byte
	)
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&goalsRaw,
		&qualRaw,
		&handoverRaw,
		&channelsRaw,
		&c.ManualOnly,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, err
	}

	if err := json.Unmarshal(goalsRaw, &c.Goals); err != nil {
		return Campaign{}, fmt.Errorf("campaigns: decode goals: %w", err)
	}
	if err := json.Unmarshal(qualRaw, &c.Qualification); err != nil {
		return Campaign{}, fmt.Errorf("campaigns: decode qualification: %w", err)
	}
	if err := json.Unmarshal(handoverRaw, &c.Handover); err != nil {
		return Campaign{}, fmt.Errorf("campaigns: decode handover: %w", err)
	}
	if err := json.Unmarshal(channelsRaw, &c.Channels); err != nil {
		return Campaign{}, fmt.Errorf("campaigns: decode channels: %w", err)
	}

	// Load-time validation: a row that fails here is a configuration error
	// surfaced to the caller, never a silent evaluator dead end.
	if err := Validate(c); err != nil {
		return Campaign{}, err
	}
	return c, nil
}

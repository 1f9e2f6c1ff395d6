package comms

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"leadflow-platform/internal/channels"
)

// PostgresRepo stores communications in the communications table.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const commColumns = `
id, lead_id, channel, direction, content, status, external_id, metadata, created_at, updated_at
`

func (r *PostgresRepo) Create(ctx context.Context, c Communication) error {
	if c.ID == "" {
		return ErrInvalidArgument
	}
	const q = `
INSERT INTO communications (` + commColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`
	_, err := r.db.ExecContext(ctx, q,
		c.ID,
		c.LeadID,
		string(c.Channel),
		c.Direction,
		c.Content,
		c.Status,
		c.ExternalID,
		c.Metadata,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Communication, error) {
	const q = `
SELECT ` + commColumns + `
FROM communications
WHERE id = $1
`
	return scanComm(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) GetByExternalID(ctx context.Context, externalID string) (Communication, error) {
	const q = `
SELECT ` + commColumns + `
FROM communications
WHERE external_id = $1
ORDER BY created_at DESC
LIMIT 1
`
	return scanComm(r.db.QueryRowContext(ctx, q, externalID))
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id string, status DeliveryStatus, externalID string) error {
	const q = `
UPDATE communications
SET status = $2,
    external_id = CASE WHEN $3 <> '' THEN $3 ELSE external_id END,
    updated_at = $4
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, id, status, externalID, time.Now().UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) ListByLead(ctx context.Context, leadID string) ([]Communication, error) {
	const q = `
SELECT ` + commColumns + `
FROM communications
WHERE lead_id = $1
ORDER BY created_at, id
`
	rows, err := r.db.QueryContext(ctx, q, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Communication
	for rows.Next() {
		c, err := scanCommRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanComm(row *sql.Row) (Communication, error) {
	var (
		c  Communication
		ch string
	)
	if err := row.Scan(
		&c.ID, &c.LeadID, &ch, &c.Direction, &c.Content,
		&c.Status, &c.ExternalID, &c.Metadata, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Communication{}, ErrNotFound
		}
		return Communication{}, err
	}
	c.Channel = channels.Channel(ch)
	return c, nil
}

func scanCommRows(rows *sql.Rows) (Communication, error) {
	var (
		c  Communication
		ch string
	)
	if err := rows.Scan(
		&c.ID, &c.LeadID, &ch, &c.Direction, &c.Content,
		&c.Status, &c.ExternalID, &c.Metadata, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return Communication{}, err
	}
	c.Channel = channels.Channel(ch)
	return c, nil
}

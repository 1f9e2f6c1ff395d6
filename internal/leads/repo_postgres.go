package leads

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadflow-platform/internal/channels"
	"leadflow-platform/pkg/utils"
)

// PostgresRepo stores leads in the leads table.
//
// NOTE: metadata is a JSONB column. The score write uses a conditional
// UPDATE so monotonic non-decrease holds without a row lock: concurrent
// writers race, but the higher score always survives.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, l Lead) error {
	if l.ID == "" {
		return ErrInvalidArgument
	}
	if l.Status == "" {
		l.Status = StatusNew
	}
	meta, err := json.Marshal(l.Metadata)
	if err != nil {
		return fmt.Errorf("leads: encode metadata: %w", err)
	}

	const q = `
INSERT INTO leads (
  id, display_name, email, phone, source, campaign_id, status,
  assigned_channel, qualification_score, metadata, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
`
	_, err = r.db.ExecContext(ctx, q,
		l.ID,
		l.DisplayName,
		l.Email,
		l.Phone,
		l.Source,
		l.CampaignID,
		l.Status,
		string(l.AssignedChannel),
		l.QualificationScore,
		meta,
		l.CreatedAt,
		l.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Lead, error) {
	const q = `
SELECT id, display_name, email, phone, source, campaign_id, status,
       assigned_channel, qualification_score, metadata, created_at, updated_at
FROM leads
WHERE id = $1
`
	var (
		l       Lead
		ch      string
		metaRaw []byte
	)
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&l.ID,
		&l.DisplayName,
		&l.Email,
		&l.Phone,
		&l.Source,
		&l.CampaignID,
		&l.Status,
		&ch,
		&l.QualificationScore,
		&metaRaw,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	l.AssignedChannel = channels.Channel(ch)
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &l.Metadata); err != nil {
			return Lead{}, fmt.Errorf("leads: decode metadata: %w", err)
		}
	}
	return l, nil
}

func (r *PostgresRepo) AssignChannel(ctx context.Context, id string, ch channels.Channel) error {
	if !channels.Valid(ch) {
		return ErrInvalidArgument
	}
	const q = `
UPDATE leads
SET assigned_channel = $2, updated_at = $3
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, id, string(ch), time.Now().UTC())
	if err != nil {
		return err
	}
	return mustAffectOne(res)
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id string, to Status) error {
	// The state machine is re-checked in SQL so racing transitions cannot
	// skip states: the update applies only from a status that allows it.
	froms := allowedSources(to)
	if len(froms) == 0 {
		return ErrInvalidTransition
	}

	const q = `
UPDATE leads
SET status = $2, updated_at = $3
WHERE id = $1 AND status = ANY($4)
`
	res, err := r.db.ExecContext(ctx, q, id, to, time.Now().UTC(), statusArray(froms))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish missing lead from an invalid transition.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return ErrInvalidTransition
	}
	return nil
}

func (r *PostgresRepo) RaiseScore(ctx context.Context, id string, score int) (int, error) {
	var stored int
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const q = `
UPDATE leads
SET qualification_score = $2, updated_at = $3
WHERE id = $1 AND qualification_score < $2
`
		if _, err := tx.ExecContext(ctx, q, id, score, time.Now().UTC()); err != nil {
			return err
		}

		const sel = `SELECT qualification_score FROM leads WHERE id = $1`
		if err := tx.QueryRowContext(ctx, sel, id).Scan(&stored); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return stored, nil
}

// allowedSources lists the statuses a lead may move to `to` from.
func allowedSources(to Status) []Status {
	all := []Status{StatusNew, StatusContacted, StatusQualified, StatusHandedOver}
	var out []Status
	for _, from := range all {
		if from.CanTransitionTo(to) {
			out = append(out, from)
		}
	}
	return out
}

func statusArray(ss []Status) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

func mustAffectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

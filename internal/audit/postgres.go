package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/leadgen-dispatch/internal/scripts"
)

type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRecorder stores the trail in the interactions table.
type PostgresRecorder struct {
	db db
}

func NewPostgresRecorder(db db) *PostgresRecorder {
	if db == nil {
		panic("audit: pgx pool required")
	}
	return &PostgresRecorder{db: db}
}

var _ Recorder = (*PostgresRecorder)(nil)

const insertInteraction = `
	INSERT INTO interactions (id, user_id, lead_id, channel_type, subject, description, delivery_key, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

func (r *PostgresRecorder) RecordDelivery(ctx context.Context, d Delivery) (bool, error) {
	d, col, err := prepareDelivery(d)
	if err != nil {
		return false, err
	}
	in := stamp(d.Interaction)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("audit: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, insertInteraction+` ON CONFLICT (delivery_key) DO NOTHING`,
		in.ID, in.UserID, in.LeadID, in.ChannelType, in.Subject, in.Description, in.DeliveryKey, in.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("audit: insert interaction: %w", err)
	}
	inserted := tag.RowsAffected() > 0

	// col comes from scripts.Flag.Column, never from caller input.
	tag, err = tx.Exec(ctx, fmt.Sprintf(`UPDATE campaign_scripts SET %s = TRUE WHERE id = $1`, col), d.ScriptID)
	if err != nil {
		return false, fmt.Errorf("audit: set %s: %w", col, err)
	}
	if tag.RowsAffected() == 0 {
		return false, scripts.ErrScriptNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("audit: commit: %w", err)
	}
	return inserted, nil
}

func (r *PostgresRecorder) AppendInteraction(ctx context.Context, in Interaction) (Interaction, error) {
	if err := validateInteraction(in); err != nil {
		return Interaction{}, err
	}
	in = stamp(in)
	var key *string
	if in.DeliveryKey != "" {
		key = &in.DeliveryKey
	}
	if _, err := r.db.Exec(ctx, insertInteraction,
		in.ID, in.UserID, in.LeadID, in.ChannelType, in.Subject, in.Description, key, in.CreatedAt); err != nil {
		return Interaction{}, fmt.Errorf("audit: append interaction: %w", err)
	}
	return in, nil
}

func (r *PostgresRecorder) ListByUser(ctx context.Context, userID string, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, COALESCE(lead_id::text, ''), channel_type, subject, description, COALESCE(delivery_key, ''), created_at
		FROM interactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: list interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var (
			in     Interaction
			leadID string
		)
		if err := rows.Scan(&in.ID, &in.UserID, &leadID, &in.ChannelType, &in.Subject, &in.Description, &in.DeliveryKey, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan interaction: %w", err)
		}
		if leadID != "" {
			in.LeadID = &leadID
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate interactions: %w", err)
	}
	return out, nil
}

func stamp(in Interaction) Interaction {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	return in
}

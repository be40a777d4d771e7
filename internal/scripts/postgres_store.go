package scripts

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type rowsQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore reads campaign scripts. Flag writes go through the audit recorder
// so they share a transaction with the interaction insert.
type PostgresStore struct {
	pool rowsQuerier
}

// NewPostgresStore initializes a store backed by a pgx pool.
func NewPostgresStore(pool rowsQuerier) *PostgresStore {
	if pool == nil {
		panic("scripts: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

// ListByCampaign returns the owner's scripts in the campaign, in creation order.
func (s *PostgresStore) ListByCampaign(ctx context.Context, campaignID, ownerUserID string) ([]Script, error) {
	query := `
		SELECT id, campaign_id, owner_user_id, company_name, COALESCE(phone, ''), COALESCE(call_script, ''),
		       COALESCE(email_subject, ''), COALESCE(email_body, ''),
		       whatsapp_sent, email_sent, call_made
		FROM campaign_scripts
		WHERE campaign_id = $1 AND owner_user_id = $2
		ORDER BY created_at, id
	`
	rows, err := s.pool.Query(ctx, query, campaignID, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("scripts: list by campaign: %w", err)
	}
	defer rows.Close()

	var out []Script
	for rows.Next() {
		var sc Script
		if err := rows.Scan(
			&sc.ID,
			&sc.CampaignID,
			&sc.OwnerUserID,
			&sc.CompanyName,
			&sc.Phone,
			&sc.CallScript,
			&sc.EmailSubject,
			&sc.EmailBody,
			&sc.WhatsAppSent,
			&sc.EmailSent,
			&sc.CallMade,
		); err != nil {
			return nil, fmt.Errorf("scripts: scan script: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scripts: iterate scripts: %w", err)
	}
	return out, nil
}

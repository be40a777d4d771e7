package leads

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	pool querier
}

// NewPostgresRepository initializes a repo backed by a pgx pool.
func NewPostgresRepository(pool querier) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// ListByOwner returns the owner's leads in creation order.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerUserID string) ([]Lead, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return nil, ErrMissingOwner
	}
	query := `
		SELECT id, owner_user_id, company_name,
		       COALESCE(phone, ''), COALESCE(whatsapp, ''), COALESCE(email, ''), COALESCE(website_url, ''),
		       status
		FROM leads
		WHERE owner_user_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("leads: list by owner: %w", err)
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		var lead Lead
		if err := rows.Scan(
			&lead.ID,
			&lead.OwnerUserID,
			&lead.CompanyName,
			&lead.Phone,
			&lead.WhatsApp,
			&lead.Email,
			&lead.WebsiteURL,
			&lead.Status,
		); err != nil {
			return nil, fmt.Errorf("leads: scan lead: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: iterate leads: %w", err)
	}
	return out, nil
}

// UpdateStatus sets a single lead's status in one statement.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, leadID, status string) error {
	if strings.TrimSpace(status) == "" {
		return ErrInvalidStatus
	}
	query := `
		UPDATE leads
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	ct, err := r.pool.Exec(ctx, query, leadID, status)
	if err != nil {
		return fmt.Errorf("leads: update status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

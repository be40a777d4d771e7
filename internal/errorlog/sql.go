package errorlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SQLStore writes entries to the dispatch_errors table.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

var _ Store = (*SQLStore)(nil)

func (s *SQLStore) Log(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO dispatch_errors (
			id, campaign_id, user_id, error_type, channel, subject, detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.CampaignID,
		entry.UserID,
		string(entry.ErrorType),
		nullString(entry.Channel),
		entry.Subject,
		entry.Detail,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("errorlog: failed to log entry: %w", err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `
		SELECT id, campaign_id, user_id, error_type, channel, subject, detail, created_at
		FROM dispatch_errors
		WHERE 1 = 1
	`
	var args []interface{}
	argIdx := 1

	if filter.CampaignID != "" {
		query += fmt.Sprintf(" AND campaign_id = $%d", argIdx)
		args = append(args, filter.CampaignID)
		argIdx++
	}
	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if len(filter.ErrorTypes) > 0 {
		types := make([]string, len(filter.ErrorTypes))
		for i, t := range filter.ErrorTypes {
			types[i] = string(t)
		}
		query += fmt.Sprintf(" AND error_type = ANY($%d)", argIdx)
		args = append(args, pq.Array(types))
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.Since)
		argIdx++
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("errorlog: failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var errType string
		var channel sql.NullString
		if err := rows.Scan(&e.ID, &e.CampaignID, &e.UserID, &errType, &channel, &e.Subject, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("errorlog: failed to scan entry: %w", err)
		}
		e.ErrorType = ErrorType(errType)
		e.Channel = channel.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("errorlog: failed to read entries: %w", err)
	}
	return entries, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

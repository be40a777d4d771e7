package triage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrMessageNotFound is returned when claiming an unknown message.
var ErrMessageNotFound = errors.New("triage: inbound message not found")

// InboundMessage is a reply received from a lead. LeadID is set when the
// receiving webhook could already tie it to a lead.
type InboundMessage struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	LeadID     *string   `json:"lead_id,omitempty"`
	From       string    `json:"from"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
	Processed  bool      `json:"processed"`
	Intent     Intent    `json:"intent,omitempty"`
}

// InboundStore lists pending replies and claims them. An empty userID lists
// every user's replies. MarkProcessed reports false when another consumer
// claimed the message first.
type InboundStore interface {
	ListUnprocessed(ctx context.Context, userID string, limit int) ([]InboundMessage, error)
	MarkProcessed(ctx context.Context, id string, intent Intent) (bool, error)
}

// MemoryInboundStore keeps inbound messages in arrival order.
type MemoryInboundStore struct {
	mu       sync.Mutex
	messages []InboundMessage
}

func NewMemoryInboundStore() *MemoryInboundStore {
	return &MemoryInboundStore{}
}

// Add appends a message.
func (s *MemoryInboundStore) Add(msg InboundMessage) {
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

func (s *MemoryInboundStore) ListUnprocessed(ctx context.Context, userID string, limit int) ([]InboundMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []InboundMessage
	for _, m := range s.messages {
		if m.Processed || (userID != "" && m.UserID != userID) {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryInboundStore) MarkProcessed(ctx context.Context, id string, intent Intent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID != id {
			continue
		}
		if s.messages[i].Processed {
			return false, nil
		}
		s.messages[i].Processed = true
		s.messages[i].Intent = intent
		return true, nil
	}
	return false, ErrMessageNotFound
}

// Get returns a copy of a stored message.
func (s *MemoryInboundStore) Get(id string) (InboundMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return InboundMessage{}, false
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresInboundStore reads the inbound_messages table.
type PostgresInboundStore struct {
	pool querier
}

func NewPostgresInboundStore(pool querier) *PostgresInboundStore {
	if pool == nil {
		panic("triage: pgx pool required")
	}
	return &PostgresInboundStore{pool: pool}
}

func (s *PostgresInboundStore) ListUnprocessed(ctx context.Context, userID string, limit int) ([]InboundMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, COALESCE(lead_id::text, ''), from_number, body, received_at
		FROM inbound_messages
		WHERE processed = FALSE
	`
	args := []any{limit}
	if userID != "" {
		query += " AND user_id = $2"
		args = append(args, userID)
	}
	query += " ORDER BY received_at, id LIMIT $1"
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("triage: list unprocessed: %w", err)
	}
	defer rows.Close()

	var out []InboundMessage
	for rows.Next() {
		var (
			m      InboundMessage
			leadID string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &leadID, &m.From, &m.Body, &m.ReceivedAt); err != nil {
			return nil, fmt.Errorf("triage: scan inbound message: %w", err)
		}
		if leadID != "" {
			m.LeadID = &leadID
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("triage: iterate inbound messages: %w", err)
	}
	return out, nil
}

// MarkProcessed flips the processed flag only if it is still false.
func (s *PostgresInboundStore) MarkProcessed(ctx context.Context, id string, intent Intent) (bool, error) {
	ct, err := s.pool.Exec(ctx, `
		UPDATE inbound_messages
		SET processed = TRUE, intent = $2, processed_at = now()
		WHERE id = $1 AND processed = FALSE
	`, id, string(intent))
	if err != nil {
		return false, fmt.Errorf("triage: mark processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

package triage

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresInboundStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresInboundStore(mock)
	received := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, user_id").WithArgs(10).WillReturnRows(
		pgxmock.NewRows([]string{"id", "user_id", "lead_id", "from_number", "body", "received_at"}).
			AddRow("in-1", "user-1", "lead-1", "5511977776666", "sim", received).
			AddRow("in-2", "user-1", "", "5511900001111", "não", received),
	)
	msgs, err := store.ListUnprocessed(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.NotNil(t, msgs[0].LeadID)
	assert.Equal(t, "lead-1", *msgs[0].LeadID)
	assert.Nil(t, msgs[1].LeadID)

	mock.ExpectExec("UPDATE inbound_messages").WithArgs("in-1", "positive").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.MarkProcessed(context.Background(), "in-1", IntentPositive)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec("UPDATE inbound_messages").WithArgs("in-1", "positive").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	ok, err = store.MarkProcessed(context.Background(), "in-1", IntentPositive)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryInboundStore_MarkProcessedOnce(t *testing.T) {
	store := NewMemoryInboundStore()
	store.Add(InboundMessage{ID: "in-1", Body: "oi"})

	ok, err := store.MarkProcessed(context.Background(), "in-1", IntentNeutral)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.MarkProcessed(context.Background(), "in-1", IntentNeutral)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.MarkProcessed(context.Background(), "missing", IntentNeutral)
	assert.ErrorIs(t, err, ErrMessageNotFound)

	pending, err := store.ListUnprocessed(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPostgresInboundStore_ListScopedToUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresInboundStore(mock)
	mock.ExpectQuery(`WHERE processed = FALSE\s+AND user_id = \$2 ORDER BY received_at, id LIMIT \$1`).
		WithArgs(50, "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "lead_id", "from_number", "body", "received_at"}).
			AddRow("in-1", "user-1", "", "5511977776666", "sim", time.Now()))

	msgs, err := store.ListUnprocessed(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user-1", msgs[0].UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryInboundStore_ListScopedToUser(t *testing.T) {
	store := NewMemoryInboundStore()
	store.Add(InboundMessage{ID: "in-1", UserID: "user-1", Body: "sim"})
	store.Add(InboundMessage{ID: "in-2", UserID: "user-2", Body: "não"})

	mine, err := store.ListUnprocessed(context.Background(), "user-2", 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "in-2", mine[0].ID)

	all, err := store.ListUnprocessed(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	env := newTriageEnv()
	env.inbound.Add(InboundMessage{ID: "in-1", UserID: "user-1", From: "5511977776666", Body: "Quem fala?"})
	w := NewWorker(env.service(), nil).WithInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		msg, _ := env.inbound.Get("in-1")
		return msg.Processed
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

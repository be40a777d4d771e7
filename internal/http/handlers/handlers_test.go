package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/leadgen-dispatch/internal/dispatch"
	"github.com/wolfman30/leadgen-dispatch/internal/errorlog"
	"github.com/wolfman30/leadgen-dispatch/internal/http/middleware"
	"github.com/wolfman30/leadgen-dispatch/internal/triage"
)

type stubRunner struct {
	outcome    dispatch.Outcome
	err        error
	campaignID string
	userID     string
	target     dispatch.Target
}

func (s *stubRunner) Run(ctx context.Context, campaignID, userID string, target dispatch.Target) (dispatch.Outcome, error) {
	s.campaignID, s.userID, s.target = campaignID, userID, target
	return s.outcome, s.err
}

func dispatchRouter(h *DispatchHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/campaigns/{campaignID}/dispatch", h.Dispatch)
	return r
}

func dispatchRequestAs(userID, campaignID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/campaigns/"+campaignID+"/dispatch", strings.NewReader(body))
	if userID != "" {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	return req
}

func TestDispatchRan(t *testing.T) {
	runner := &stubRunner{outcome: dispatch.Outcome{CampaignID: "camp-1", Ran: true, SentCount: 3}}
	rec := httptest.NewRecorder()
	dispatchRouter(NewDispatchHandler(runner, nil)).ServeHTTP(rec, dispatchRequestAs("user-1", "camp-1", `{"channel":"Email"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "camp-1", runner.campaignID)
	assert.Equal(t, "user-1", runner.userID)
	assert.Equal(t, dispatch.TargetEmail, runner.target)

	var out dispatch.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 3, out.SentCount)
}

func TestDispatchNotRanIsUnprocessable(t *testing.T) {
	runner := &stubRunner{outcome: dispatch.Outcome{
		CampaignID: "camp-1",
		Errors:     []dispatch.Error{{Subject: "camp-1", Kind: errorlog.NoLeads}},
	}}
	rec := httptest.NewRecorder()
	dispatchRouter(NewDispatchHandler(runner, nil)).ServeHTTP(rec, dispatchRequestAs("user-1", "camp-1", `{"channel":"all"}`))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var out dispatch.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.HasErrorKind(errorlog.NoLeads))
}

func TestDispatchRejectsBadInput(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		body     string
		wantCode int
	}{
		{"no user", "", `{"channel":"email"}`, http.StatusUnauthorized},
		{"bad json", "user-1", `{`, http.StatusBadRequest},
		{"unknown channel", "user-1", `{"channel":"sms"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{}
			rec := httptest.NewRecorder()
			dispatchRouter(NewDispatchHandler(runner, nil)).ServeHTTP(rec, dispatchRequestAs(tt.userID, "camp-1", tt.body))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Empty(t, runner.campaignID, "runner must not be called")
		})
	}
}

func TestDispatchSenderUnavailable(t *testing.T) {
	runner := &stubRunner{err: dispatch.ErrSenderUnavailable}
	rec := httptest.NewRecorder()
	dispatchRouter(NewDispatchHandler(runner, nil)).ServeHTTP(rec, dispatchRequestAs("user-1", "camp-1", `{"channel":"whatsapp"}`))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func errorsRequestAs(userID, target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if userID != "" {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	return req
}

func TestErrorLogList(t *testing.T) {
	store := errorlog.NewMemoryStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, store.Log(ctx, errorlog.Entry{CampaignID: "camp-1", UserID: "user-1", ErrorType: errorlog.NoMatch, Subject: "A", CreatedAt: base}))
	require.NoError(t, store.Log(ctx, errorlog.Entry{CampaignID: "camp-1", UserID: "user-1", ErrorType: errorlog.ProviderError, Subject: "B", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, store.Log(ctx, errorlog.Entry{CampaignID: "camp-2", UserID: "user-1", ErrorType: errorlog.NoMatch, Subject: "C", CreatedAt: base}))

	r := chi.NewRouter()
	r.Get("/campaigns/{campaignID}/errors", NewErrorLogHandler(store, nil).List)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, errorsRequestAs("user-1", "/campaigns/camp-1/errors"))
	require.Equal(t, http.StatusOK, rec.Code)
	var all errorListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Equal(t, 2, all.Count)
	assert.Equal(t, "B", all.Errors[0].Subject)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, errorsRequestAs("user-1", "/campaigns/camp-1/errors?error_type=no_match"))
	require.Equal(t, http.StatusOK, rec.Code)
	var filtered errorListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	require.Equal(t, 1, filtered.Count)
	assert.Equal(t, "A", filtered.Errors[0].Subject)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, errorsRequestAs("user-1", "/campaigns/camp-1/errors?since="+base.Add(30*time.Minute).Format(time.RFC3339)))
	var recent errorListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recent))
	require.Equal(t, 1, recent.Count)
	assert.Equal(t, "B", recent.Errors[0].Subject)
}

func TestErrorLogListHidesOtherUsersEntries(t *testing.T) {
	store := errorlog.NewMemoryStore()
	require.NoError(t, store.Log(context.Background(), errorlog.Entry{CampaignID: "camp-1", UserID: "user-1", ErrorType: errorlog.NoMatch, Subject: "A"}))

	r := chi.NewRouter()
	r.Get("/campaigns/{campaignID}/errors", NewErrorLogHandler(store, nil).List)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, errorsRequestAs("user-2", "/campaigns/camp-1/errors"))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp errorListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
	assert.Empty(t, resp.Errors)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, errorsRequestAs("", "/campaigns/camp-1/errors"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestErrorLogListRejectsBadQuery(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/campaigns/{campaignID}/errors", NewErrorLogHandler(errorlog.NewMemoryStore(), nil).List)

	for _, q := range []string{"error_type=BOGUS", "since=yesterday", "limit=-1"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, errorsRequestAs("user-1", "/campaigns/camp-1/errors?"+q))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

type stubProcessor struct {
	summary triage.Summary
	err     error
	userID  *string
}

func (s stubProcessor) ProcessPendingFor(ctx context.Context, userID string) (triage.Summary, error) {
	if s.userID != nil {
		*s.userID = userID
	}
	return s.summary, s.err
}

func triageRequestAs(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/inbound/triage", nil)
	if userID != "" {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	return req
}

func TestTriageTrigger(t *testing.T) {
	var seen string
	rec := httptest.NewRecorder()
	NewTriageHandler(stubProcessor{summary: triage.Summary{Fetched: 2, Positive: 1}, userID: &seen}, nil).
		Trigger(rec, triageRequestAs("user-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", seen)
	var sum triage.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 2, sum.Fetched)
	assert.Equal(t, 1, sum.Positive)

	rec = httptest.NewRecorder()
	NewTriageHandler(stubProcessor{err: errors.New("db down")}, nil).
		Trigger(rec, triageRequestAs("user-1"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTriageTriggerRequiresUser(t *testing.T) {
	var seen string
	rec := httptest.NewRecorder()
	NewTriageHandler(stubProcessor{userID: &seen}, nil).Trigger(rec, triageRequestAs(""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, seen)
}

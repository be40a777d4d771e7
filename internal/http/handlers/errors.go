package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/leadgen-dispatch/internal/errorlog"
	"github.com/wolfman30/leadgen-dispatch/internal/http/middleware"
	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

const maxErrorListLimit = 500

// ErrorLogHandler serves the per-campaign error log.
type ErrorLogHandler struct {
	store  errorlog.Store
	logger *logging.Logger
}

func NewErrorLogHandler(store errorlog.Store, logger *logging.Logger) *ErrorLogHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ErrorLogHandler{store: store, logger: logger}
}

type errorListResponse struct {
	Errors []errorlog.Entry `json:"errors"`
	Count  int              `json:"count"`
}

// List handles GET /campaigns/{campaignID}/errors. error_type may repeat or be
// comma separated. Only entries recorded for the caller's runs are returned.
func (h *ErrorLogHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	campaignID := strings.TrimSpace(chi.URLParam(r, "campaignID"))
	if campaignID == "" {
		jsonError(w, "campaign id required", http.StatusBadRequest)
		return
	}
	filter := errorlog.Filter{CampaignID: campaignID, UserID: userID, Limit: 100}

	q := r.URL.Query()
	for _, raw := range q["error_type"] {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			t, err := errorlog.ParseType(part)
			if err != nil {
				jsonError(w, "unknown error_type "+part, http.StatusBadRequest)
				return
			}
			filter.ErrorTypes = append(filter.ErrorTypes, t)
		}
	}
	if since := q.Get("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			jsonError(w, "since must be RFC3339", http.StatusBadRequest)
			return
		}
		filter.Since = ts
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		if n > maxErrorListLimit {
			n = maxErrorListLimit
		}
		filter.Limit = n
	}

	entries, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list dispatch errors failed", "campaign_id", campaignID, "error", err)
		jsonError(w, "failed to list errors", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []errorlog.Entry{}
	}
	writeJSON(w, http.StatusOK, errorListResponse{Errors: entries, Count: len(entries)})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/leadgen-dispatch/internal/dispatch"
	"github.com/wolfman30/leadgen-dispatch/internal/http/middleware"
	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

// Runner executes one campaign dispatch.
type Runner interface {
	Run(ctx context.Context, campaignID, userID string, target dispatch.Target) (dispatch.Outcome, error)
}

// DispatchHandler exposes campaign dispatch over HTTP.
type DispatchHandler struct {
	runner Runner
	logger *logging.Logger
}

func NewDispatchHandler(runner Runner, logger *logging.Logger) *DispatchHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DispatchHandler{runner: runner, logger: logger}
}

type dispatchRequest struct {
	Channel string `json:"channel"`
}

// Dispatch handles POST /campaigns/{campaignID}/dispatch. A run that could not
// start (no scripts, no leads, lock held) answers 422 with the outcome body.
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
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

	var req dispatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	target, err := dispatch.ParseTarget(req.Channel)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := h.runner.Run(r.Context(), campaignID, userID, target)
	if err != nil {
		h.logger.Error("dispatch run failed", "campaign_id", campaignID, "channel", target, "error", err)
		switch {
		case errors.Is(err, dispatch.ErrSenderUnavailable):
			jsonError(w, "channel not configured", http.StatusServiceUnavailable)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeJSON(w, http.StatusGatewayTimeout, outcome)
		default:
			jsonError(w, "dispatch failed", http.StatusInternalServerError)
		}
		return
	}

	status := http.StatusOK
	if !outcome.Ran {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, outcome)
}

package handlers

import (
	"context"
	"net/http"

	"github.com/wolfman30/leadgen-dispatch/internal/http/middleware"
	"github.com/wolfman30/leadgen-dispatch/internal/triage"
	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

// TriageProcessor drains pending inbound replies addressed to one user.
type TriageProcessor interface {
	ProcessPendingFor(ctx context.Context, userID string) (triage.Summary, error)
}

type TriageHandler struct {
	processor TriageProcessor
	logger    *logging.Logger
}

func NewTriageHandler(processor TriageProcessor, logger *logging.Logger) *TriageHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &TriageHandler{processor: processor, logger: logger}
}

// Trigger handles POST /inbound/triage and runs a single batch of the
// caller's own pending replies.
func (h *TriageHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	summary, err := h.processor.ProcessPendingFor(r.Context(), userID)
	if err != nil {
		h.logger.Error("inbound triage failed", "user_id", userID, "error", err)
		jsonError(w, "triage failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

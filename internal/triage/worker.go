package triage

import (
	"context"
	"time"

	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

// Worker polls the inbound store and runs triage passes.
type Worker struct {
	service  *Service
	logger   *logging.Logger
	interval time.Duration
}

func NewWorker(service *Service, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		service:  service,
		logger:   logger,
		interval: time.Minute,
	}
}

func (w *Worker) WithInterval(d time.Duration) *Worker {
	if d > 0 {
		w.interval = d
	}
	return w
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	if w.service == nil {
		return
	}
	for {
		sum, err := w.service.ProcessPending(ctx)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Error("triage pass failed", "error", err)
			}
			return
		}
		// A full batch means more may be waiting.
		if sum.Fetched < w.service.batchSize || sum.Claimed == 0 {
			return
		}
	}
}

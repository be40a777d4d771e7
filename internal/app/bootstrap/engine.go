package bootstrap

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/leadgen-dispatch/internal/audit"
	appconfig "github.com/wolfman30/leadgen-dispatch/internal/config"
	"github.com/wolfman30/leadgen-dispatch/internal/dispatch"
	"github.com/wolfman30/leadgen-dispatch/internal/errorlog"
	"github.com/wolfman30/leadgen-dispatch/internal/leads"
	"github.com/wolfman30/leadgen-dispatch/internal/observability/metrics"
	"github.com/wolfman30/leadgen-dispatch/internal/scripts"
	"github.com/wolfman30/leadgen-dispatch/internal/triage"
	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

// Stores are the persistence dependencies shared by the dispatcher and triage.
type Stores struct {
	Scripts  scripts.Store
	Leads    leads.Repository
	Recorder audit.Recorder
	Errors   errorlog.Store
	Inbound  triage.InboundStore
}

// BuildDispatcher wires the dispatcher with pacing, senders, metrics and,
// when Redis is available, the per-campaign run lock.
func BuildDispatcher(cfg *appconfig.Config, stores Stores, senders Senders, redisClient *redis.Client, reg prometheus.Registerer, logger *logging.Logger) *dispatch.Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	d := dispatch.NewDispatcher(stores.Scripts, stores.Leads, stores.Recorder, stores.Errors, logger).
		WithSender(senders.WhatsApp).
		WithSender(senders.Email).
		WithMetrics(metrics.NewDispatchMetrics(reg))
	var ttl time.Duration
	if cfg != nil {
		delay := cfg.SendDelay
		d = d.WithPacerFactory(func() dispatch.Pacer { return dispatch.NewIntervalPacer(delay) })
		ttl = cfg.RunLockTTL
	}
	if redisClient != nil {
		d = d.WithRunLock(dispatch.NewRedisRunLock(redisClient), ttl)
	}
	return d
}

// BuildTriageService wires inbound reply triage. Follow-ups go out on WhatsApp.
func BuildTriageService(cfg *appconfig.Config, stores Stores, senders Senders, reg prometheus.Registerer, logger *logging.Logger) *triage.Service {
	svc := triage.NewService(stores.Inbound, stores.Leads, senders.WhatsApp, stores.Recorder, logger).
		WithMetrics(metrics.NewTriageMetrics(reg))
	if cfg != nil {
		svc = svc.WithBatchSize(cfg.TriageBatchSize).WithFollowUpTemplate(cfg.FollowUpTemplate)
	}
	return svc
}

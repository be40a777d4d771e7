package triage

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/leadgen-dispatch/internal/audit"
	"github.com/wolfman30/leadgen-dispatch/internal/channels"
	"github.com/wolfman30/leadgen-dispatch/internal/leads"
	"github.com/wolfman30/leadgen-dispatch/internal/matching"
	"github.com/wolfman30/leadgen-dispatch/internal/templates"
	"github.com/wolfman30/leadgen-dispatch/internal/observability/metrics"
	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

// DefaultFollowUpTemplate is sent to leads that reply with interest.
const DefaultFollowUpTemplate = `Que ótimo{{if .Empresa}}, {{.Empresa}}{{end}}! Obrigado pelo retorno. ` +
	`Um especialista da nossa equipe vai falar com você em breve para combinar os próximos passos.`

const followUpSubject = "Follow-up automático: resposta positiva"

// Summary reports one ProcessPending pass.
type Summary struct {
	Fetched         int `json:"fetched"`
	Claimed         int `json:"claimed"`
	Skipped         int `json:"skipped"`
	Positive        int `json:"positive"`
	Negative        int `json:"negative"`
	Neutral         int `json:"neutral"`
	FollowUpsSent   int `json:"follow_ups_sent"`
	FollowUpsFailed int `json:"follow_ups_failed"`
	LeadsUpdated    int `json:"leads_updated"`
}

type followUpData struct {
	Empresa string
	Nome    string
}

// Service consumes inbound replies exactly once each.
type Service struct {
	store      InboundStore
	leads      leads.Repository
	sender     channels.Sender
	recorder   audit.Recorder
	classifier Classifier
	renderer   templates.Renderer
	template   string
	batchSize  int
	metrics    *metrics.TriageMetrics
	logger     *logging.Logger
}

func NewService(store InboundStore, leadRepo leads.Repository, sender channels.Sender, recorder audit.Recorder, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:      store,
		leads:      leadRepo,
		sender:     sender,
		recorder:   recorder,
		classifier: NewKeywordClassifier(),
		template:   DefaultFollowUpTemplate,
		batchSize:  50,
		logger:     logger,
	}
}

func (s *Service) WithClassifier(c Classifier) *Service {
	if c != nil {
		s.classifier = c
	}
	return s
}

func (s *Service) WithFollowUpTemplate(tmpl string) *Service {
	if strings.TrimSpace(tmpl) != "" {
		s.template = tmpl
	}
	return s
}

func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

func (s *Service) WithMetrics(m *metrics.TriageMetrics) *Service {
	s.metrics = m
	return s
}

// ProcessPending classifies one batch of unprocessed replies. A message is
// claimed before any side effect, so a follow-up is never sent twice; a
// follow-up that fails after the claim is logged and not retried.
func (s *Service) ProcessPending(ctx context.Context) (Summary, error) {
	return s.ProcessPendingFor(ctx, "")
}

// ProcessPendingFor is ProcessPending restricted to replies addressed to
// userID. An empty userID processes every user's replies.
func (s *Service) ProcessPendingFor(ctx context.Context, userID string) (Summary, error) {
	var sum Summary
	if s.store == nil {
		return sum, fmt.Errorf("triage: inbound store not configured")
	}
	msgs, err := s.store.ListUnprocessed(ctx, userID, s.batchSize)
	if err != nil {
		return sum, err
	}
	sum.Fetched = len(msgs)

	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		intent := s.classifier.Classify(msg.Body)
		claimed, err := s.store.MarkProcessed(ctx, msg.ID, intent)
		if err != nil {
			s.logger.Error("failed to claim inbound message", "error", err, "message_id", msg.ID)
			continue
		}
		if !claimed {
			sum.Skipped++
			continue
		}
		sum.Claimed++
		s.metrics.ObserveClassified(string(intent))

		switch intent {
		case IntentPositive:
			sum.Positive++
			s.followUp(ctx, msg, &sum)
		case IntentNegative:
			sum.Negative++
		default:
			sum.Neutral++
		}
	}
	if sum.Claimed > 0 {
		s.logger.Info("inbound triage pass complete",
			"claimed", sum.Claimed,
			"positive", sum.Positive,
			"negative", sum.Negative,
			"follow_ups_sent", sum.FollowUpsSent,
		)
	}
	return sum, nil
}

func (s *Service) followUp(ctx context.Context, msg InboundMessage, sum *Summary) {
	logger := s.logger.With("message_id", msg.ID, "user_id", msg.UserID)

	lead, found := s.resolveLead(ctx, msg)
	if !found {
		logger.Warn("positive reply without a known lead")
	}

	data := followUpData{}
	if found {
		data.Empresa = strings.TrimSpace(lead.CompanyName)
		data.Nome = data.Empresa
	}
	body, err := s.renderer.Render("follow_up", s.template, data)
	if err != nil {
		logger.Error("failed to render follow-up", "error", err)
		sum.FollowUpsFailed++
		s.metrics.ObserveFollowUp("failed")
		return
	}

	if s.sender == nil {
		logger.Warn("no follow-up sender configured")
		sum.FollowUpsFailed++
		s.metrics.ObserveFollowUp("failed")
	} else if _, err := s.sender.Send(ctx, msg.From, channels.Message{Body: body}, data.Empresa); err != nil {
		logger.Error("follow-up send failed", "error", err)
		sum.FollowUpsFailed++
		s.metrics.ObserveFollowUp("failed")
	} else {
		sum.FollowUpsSent++
		s.metrics.ObserveFollowUp("sent")
		s.appendInteraction(ctx, msg, lead, found, body, logger)
	}

	if !found {
		return
	}
	if err := s.leads.UpdateStatus(ctx, lead.ID, leads.StatusInterested); err != nil {
		logger.Error("failed to mark lead interested", "error", err, "lead_id", lead.ID)
		return
	}
	sum.LeadsUpdated++
}

func (s *Service) appendInteraction(ctx context.Context, msg InboundMessage, lead leads.Lead, found bool, body string, logger *logging.Logger) {
	if s.recorder == nil {
		return
	}
	in := audit.Interaction{
		UserID:      msg.UserID,
		ChannelType: string(channels.ChannelWhatsApp),
		Subject:     followUpSubject,
		Description: body,
	}
	if found {
		id := lead.ID
		in.LeadID = &id
	}
	if s.sender.Mode() == channels.ModeSimulated {
		in.Subject = audit.SimulatedPrefix + in.Subject
		in.Description = audit.SimulatedPrefix + in.Description
	}
	if _, err := s.recorder.AppendInteraction(ctx, in); err != nil {
		logger.Error("failed to record follow-up interaction", "error", err)
	}
}

// resolveLead finds the lead by ID, or failing that by phone among the
// owner's leads.
func (s *Service) resolveLead(ctx context.Context, msg InboundMessage) (leads.Lead, bool) {
	if s.leads == nil || strings.TrimSpace(msg.UserID) == "" {
		return leads.Lead{}, false
	}
	owned, err := s.leads.ListByOwner(ctx, msg.UserID)
	if err != nil {
		s.logger.Error("failed to load leads for triage", "error", err, "user_id", msg.UserID)
		return leads.Lead{}, false
	}
	if msg.LeadID != nil {
		for _, l := range owned {
			if l.ID == *msg.LeadID {
				return l, true
			}
		}
	}
	for _, l := range owned {
		if matching.SamePhone(msg.From, l.WhatsApp) || matching.SamePhone(msg.From, l.Phone) {
			return l, true
		}
	}
	return leads.Lead{}, false
}

// Package dispatch runs a campaign's scripts through matching and the channel
// senders, one script at a time, and aggregates what happened.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/leadgen-dispatch/internal/audit"
	"github.com/wolfman30/leadgen-dispatch/internal/channels"
	"github.com/wolfman30/leadgen-dispatch/internal/errorlog"
	"github.com/wolfman30/leadgen-dispatch/internal/leads"
	"github.com/wolfman30/leadgen-dispatch/internal/matching"
	"github.com/wolfman30/leadgen-dispatch/internal/observability/metrics"
	"github.com/wolfman30/leadgen-dispatch/internal/scripts"
	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

var tracer = otel.Tracer("leadgen.internal.dispatch")

var (
	ErrUnknownTarget     = errors.New("dispatch: unknown channel")
	ErrMissingCampaign   = errors.New("dispatch: campaign id required")
	ErrMissingUser       = errors.New("dispatch: user id required")
	ErrSenderUnavailable = errors.New("dispatch: no sender configured for channel")
)

// Dispatcher orchestrates dispatch runs. Senders and lock are shared by every
// run; each run gets its own pacer and holds no other state between runs.
type Dispatcher struct {
	scripts  scripts.Store
	leads    leads.Repository
	recorder audit.Recorder
	errs     errorlog.Store
	matcher  *matching.Matcher
	senders  map[channels.Channel]channels.Sender
	pacers   func() Pacer
	lock     RunLock
	lockTTL  time.Duration
	metrics  *metrics.DispatchMetrics
	logger   *logging.Logger
	now      func() time.Time
}

func NewDispatcher(scriptStore scripts.Store, leadRepo leads.Repository, recorder audit.Recorder, errs errorlog.Store, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		scripts:  scriptStore,
		leads:    leadRepo,
		recorder: recorder,
		errs:     errs,
		matcher:  matching.NewMatcher(),
		senders:  make(map[channels.Channel]channels.Sender),
		pacers:   func() Pacer { return noPacer{} },
		lockTTL:  30 * time.Minute,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithSender registers the sender for its channel, replacing any previous one.
func (d *Dispatcher) WithSender(s channels.Sender) *Dispatcher {
	if s != nil {
		d.senders[s.Channel()] = s
	}
	return d
}

// WithPacer shares p across every run.
func (d *Dispatcher) WithPacer(p Pacer) *Dispatcher {
	if p != nil {
		d.pacers = func() Pacer { return p }
	}
	return d
}

// WithPacerFactory builds a fresh pacer at the start of each run, so
// concurrent runs for different campaigns do not wait on each other.
func (d *Dispatcher) WithPacerFactory(newPacer func() Pacer) *Dispatcher {
	if newPacer != nil {
		d.pacers = newPacer
	}
	return d
}

func (d *Dispatcher) WithRunLock(l RunLock, ttl time.Duration) *Dispatcher {
	d.lock = l
	if ttl > 0 {
		d.lockTTL = ttl
	}
	return d
}

func (d *Dispatcher) WithMetrics(m *metrics.DispatchMetrics) *Dispatcher {
	d.metrics = m
	return d
}

func (d *Dispatcher) WithMatcher(m *matching.Matcher) *Dispatcher {
	if m != nil {
		d.matcher = m
	}
	return d
}

func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	if now != nil {
		d.now = now
	}
	return d
}

type runState struct {
	runID      string
	campaignID string
	userID     string
	pacer      Pacer
	out        *Outcome
	logger     *logging.Logger
}

// Run dispatches every unsent script of the campaign on the target channels.
// A returned error means the run could not be carried out (bad arguments,
// store read failure, lock failure, cancellation); item failures and run
// preconditions are reported in the Outcome instead.
func (d *Dispatcher) Run(ctx context.Context, campaignID, userID string, target Target) (Outcome, error) {
	campaignID = strings.TrimSpace(campaignID)
	userID = strings.TrimSpace(userID)
	if campaignID == "" {
		return Outcome{}, ErrMissingCampaign
	}
	if userID == "" {
		return Outcome{}, ErrMissingUser
	}
	chans := target.Channels()
	if len(chans) == 0 {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	senders := make([]channels.Sender, 0, len(chans))
	for _, c := range chans {
		s, ok := d.senders[c]
		if !ok {
			return Outcome{}, fmt.Errorf("%w: %s", ErrSenderUnavailable, c)
		}
		senders = append(senders, s)
	}

	ctx, span := tracer.Start(ctx, "dispatch.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("leadgen.campaign_id", campaignID),
		attribute.String("leadgen.channel", string(target)),
	)

	started := time.Now()
	defer func() { d.metrics.ObserveRun(string(target), time.Since(started).Seconds()) }()

	out := Outcome{
		CampaignID:       campaignID,
		Channel:          target,
		SentCompanyNames: []string{},
		Errors:           []Error{},
		StartedAt:        d.now(),
	}
	for _, s := range senders {
		if s.Mode() == channels.ModeSimulated {
			out.Simulated = true
		}
	}
	runID := uuid.NewString()
	pacer := d.pacers()
	if pacer == nil {
		pacer = noPacer{}
	}
	r := &runState{
		runID:      runID,
		campaignID: campaignID,
		userID:     userID,
		pacer:      pacer,
		out:        &out,
		logger:     d.logger.With("run_id", runID, "campaign_id", campaignID, "user_id", userID, "channel", string(target)),
	}

	if d.lock != nil {
		token, ok, err := d.lock.Acquire(ctx, campaignID, d.lockTTL)
		if err != nil {
			span.RecordError(err)
			return d.finish(r), err
		}
		if !ok {
			d.note(ctx, r, Error{Subject: campaignID, Kind: errorlog.RunInProgress, Detail: "another dispatch run holds this campaign"})
			return d.finish(r), nil
		}
		defer func() {
			if err := d.lock.Release(context.WithoutCancel(ctx), campaignID, token); err != nil {
				r.logger.Warn("failed to release run lock", "error", err)
			}
		}()
	}

	// Scripts of a campaign owned by someone else read as an empty campaign.
	list, err := d.scripts.ListByCampaign(ctx, campaignID, userID)
	if err != nil {
		span.RecordError(err)
		return d.finish(r), fmt.Errorf("dispatch: load scripts: %w", err)
	}
	if len(list) == 0 {
		d.note(ctx, r, Error{Subject: campaignID, Kind: errorlog.NoScripts, Detail: "campaign has no scripts"})
		return d.finish(r), nil
	}

	owned, err := d.leads.ListByOwner(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return d.finish(r), fmt.Errorf("dispatch: load leads: %w", err)
	}
	valid := make([]leads.Lead, 0, len(owned))
	for _, l := range owned {
		if l.Contactable() {
			valid = append(valid, l)
		}
	}
	if len(valid) == 0 {
		d.note(ctx, r, Error{Subject: userID, Kind: errorlog.NoLeads, Detail: fmt.Sprintf("user has no contactable leads for %d scripts", len(list))})
		return d.finish(r), nil
	}

	out.Ran = true
	set := matching.NewCandidates(valid)
	r.logger.Info("dispatch run started", "scripts", len(list), "leads", set.Len(), "simulated", out.Simulated)

	var runErr error
	for _, script := range list {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("dispatch: run aborted: %w", err)
			break
		}
		if err := d.processScript(ctx, r, script, set, senders); err != nil {
			runErr = err
			break
		}
	}
	if runErr != nil {
		span.RecordError(runErr)
	}
	return d.finish(r), runErr
}

func (d *Dispatcher) processScript(ctx context.Context, r *runState, script scripts.Script, set *matching.Candidates, senders []channels.Sender) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("panic while dispatching script", "script_id", script.ID, "panic", fmt.Sprint(p))
			d.fail(ctx, r, Error{Subject: subjectOf(script), Kind: errorlog.ProcessingError, Detail: fmt.Sprintf("panic: %v", p)})
			err = nil
		}
	}()

	pending := make([]channels.Sender, 0, len(senders))
	for _, s := range senders {
		if script.Sent(flagFor(s.Channel())) {
			r.out.SkippedCount++
			continue
		}
		pending = append(pending, s)
	}
	if len(pending) == 0 {
		return nil
	}

	match, matched := d.matcher.MatchCandidates(script, set)
	d.countMatch(r, match, matched)

	if !matched {
		var live []string
		for _, s := range pending {
			if s.Mode() != channels.ModeSimulated {
				live = append(live, string(s.Channel()))
			}
		}
		if len(live) > 0 {
			e := Error{Subject: subjectOf(script), Kind: errorlog.NoMatch, Detail: "no lead matched the script company name or phone"}
			if len(live) == 1 {
				e.Channel = live[0]
			}
			d.fail(ctx, r, e)
		}
	}

	sentAny := false
	for _, s := range pending {
		if s.Mode() == channels.ModeSimulated {
			if d.deliverSimulated(ctx, r, script, match, matched, s) {
				sentAny = true
			}
			continue
		}
		if !matched {
			continue
		}
		sent, err := d.deliverLive(ctx, r, script, match.Lead, s)
		if err != nil {
			return err
		}
		if sent {
			sentAny = true
		}
	}
	if sentAny {
		r.out.SentCompanyNames = append(r.out.SentCompanyNames, subjectOf(script))
	}
	return nil
}

func (d *Dispatcher) deliverLive(ctx context.Context, r *runState, script scripts.Script, lead leads.Lead, sender channels.Sender) (bool, error) {
	ch := sender.Channel()
	subject := subjectOf(script)

	dest := destinationOf(lead, ch)
	if dest == "" {
		kind := errorlog.NoWhatsAppField
		if ch == channels.ChannelEmail {
			kind = errorlog.NoEmailField
		}
		d.fail(ctx, r, Error{Subject: subject, Kind: kind, Channel: string(ch), Detail: fmt.Sprintf("lead %s has no %s destination", lead.ID, ch)})
		return false, nil
	}

	missing := script.MissingChatContent()
	if ch == channels.ChannelEmail {
		missing = script.MissingEmailContent()
	}
	if len(missing) > 0 {
		d.fail(ctx, r, Error{Subject: subject, Kind: errorlog.IncompleteScript, Channel: string(ch), Detail: "missing " + strings.Join(missing, ", ")})
		return false, nil
	}

	msg := buildMessage(script, lead, ch)
	if err := r.pacer.Wait(ctx); err != nil {
		return false, fmt.Errorf("dispatch: wait for send slot: %w", err)
	}
	if _, err := sender.Send(ctx, dest, msg, lead.CompanyName); err != nil {
		d.metrics.ObserveSend(string(ch), "failed", false)
		d.fail(ctx, r, Error{Subject: subject, Kind: classifySendError(ch, err), Channel: string(ch), Detail: err.Error()})
		return false, nil
	}
	d.metrics.ObserveSend(string(ch), "sent", false)
	r.out.SentCount++

	leadID := lead.ID
	d.record(ctx, r, script, &leadID, ch, msg, false)
	return true, nil
}

func (d *Dispatcher) deliverSimulated(ctx context.Context, r *runState, script scripts.Script, match matching.Result, matched bool, sender channels.Sender) bool {
	ch := sender.Channel()
	lead := leads.Lead{CompanyName: script.CompanyName, Phone: script.Phone}
	var leadID *string
	if matched {
		lead = match.Lead
		id := lead.ID
		leadID = &id
	}

	msg := buildMessage(script, lead, ch)
	if _, err := sender.Send(ctx, destinationOf(lead, ch), msg, lead.CompanyName); err != nil {
		d.fail(ctx, r, Error{Subject: subjectOf(script), Kind: errorlog.ProcessingError, Channel: string(ch), Detail: err.Error()})
		return false
	}
	d.metrics.ObserveSend(string(ch), "sent", true)
	r.out.SentCount++
	d.record(ctx, r, script, leadID, ch, msg, true)
	return true
}

// record writes the flag and Interaction for a confirmed send. A failure here
// does not undo the send.
func (d *Dispatcher) record(ctx context.Context, r *runState, script scripts.Script, leadID *string, ch channels.Channel, msg channels.Message, simulated bool) {
	in := audit.Interaction{
		UserID:      r.userID,
		LeadID:      leadID,
		ChannelType: string(ch),
		Subject:     interactionSubject(script, ch, msg),
		Description: msg.Body,
	}
	if simulated {
		in.Subject = audit.SimulatedPrefix + in.Subject
		in.Description = audit.SimulatedPrefix + in.Description
	}
	if d.recorder == nil {
		d.note(ctx, r, Error{Subject: subjectOf(script), Kind: errorlog.AuditWriteFailed, Channel: string(ch), Detail: "no audit recorder configured"})
		return
	}
	recorded, err := d.recorder.RecordDelivery(ctx, audit.Delivery{ScriptID: script.ID, Flag: flagFor(ch), RunID: r.runID, Interaction: in})
	if err != nil {
		d.note(ctx, r, Error{Subject: subjectOf(script), Kind: errorlog.AuditWriteFailed, Channel: string(ch), Detail: err.Error()})
		return
	}
	if !recorded {
		r.out.AlreadyRecorded++
		r.logger.Warn("delivery already recorded, no new interaction written", "script_id", script.ID, "delivery_channel", string(ch))
	}
}

func (d *Dispatcher) countMatch(r *runState, match matching.Result, matched bool) {
	if !matched {
		r.out.MatchStats.NoMatch++
		d.metrics.ObserveMatch("none")
		return
	}
	switch {
	case match.Reason.Exact():
		r.out.MatchStats.ExactMatch++
	case match.Reason == matching.ReasonFuzzyName:
		r.out.MatchStats.FuzzyMatch++
	case match.Reason == matching.ReasonPhoneFallback:
		r.out.MatchStats.PhoneMatch++
	}
	d.metrics.ObserveMatch(string(match.Reason))
}

// fail records an item failure.
func (d *Dispatcher) fail(ctx context.Context, r *runState, e Error) {
	r.out.FailedCount++
	d.note(ctx, r, e)
}

// note records an error without counting a failed item.
func (d *Dispatcher) note(ctx context.Context, r *runState, e Error) {
	r.out.Errors = append(r.out.Errors, e)
	d.metrics.ObserveError(string(e.Kind))
	r.logger.Warn("dispatch error", "error_type", string(e.Kind), "subject", e.Subject, "delivery_channel", e.Channel, "detail", e.Detail)
	if d.errs == nil {
		return
	}
	if err := d.errs.Log(ctx, errorlog.Entry{
		CampaignID: r.campaignID,
		UserID:     r.userID,
		ErrorType:  e.Kind,
		Channel:    e.Channel,
		Subject:    e.Subject,
		Detail:     e.Detail,
	}); err != nil {
		r.logger.Error("failed to write error log", "error", err, "error_type", string(e.Kind))
	}
}

func (d *Dispatcher) finish(r *runState) Outcome {
	r.out.FinishedAt = d.now()
	r.logger.Info("dispatch run finished",
		"ran", r.out.Ran,
		"sent", r.out.SentCount,
		"failed", r.out.FailedCount,
		"skipped", r.out.SkippedCount,
		"already_recorded", r.out.AlreadyRecorded,
		"errors", len(r.out.Errors),
	)
	return *r.out
}

func classifySendError(ch channels.Channel, err error) errorlog.ErrorType {
	var perr *channels.ProviderError
	switch {
	case errors.As(err, &perr), errors.Is(err, channels.ErrMissingCredentials):
		return errorlog.ProviderError
	case errors.Is(err, channels.ErrInvalidDestination):
		if ch == channels.ChannelEmail {
			return errorlog.NoEmailField
		}
		return errorlog.NoWhatsAppField
	case errors.Is(err, channels.ErrEmptyMessage):
		return errorlog.IncompleteScript
	}
	return errorlog.ProcessingError
}

func destinationOf(lead leads.Lead, ch channels.Channel) string {
	if ch == channels.ChannelEmail {
		return strings.TrimSpace(lead.Email)
	}
	return lead.WhatsAppNumber()
}

func buildMessage(script scripts.Script, lead leads.Lead, ch channels.Channel) channels.Message {
	if ch == channels.ChannelEmail {
		return channels.Message{
			Subject: channels.Format(script.EmailSubject, lead),
			Body:    channels.Format(script.EmailBody, lead),
		}
	}
	return channels.Message{Body: channels.Format(script.CallScript, lead)}
}

func interactionSubject(script scripts.Script, ch channels.Channel, msg channels.Message) string {
	if ch == channels.ChannelEmail && msg.Subject != "" {
		return msg.Subject
	}
	if ch == channels.ChannelEmail {
		return "E-mail para " + subjectOf(script)
	}
	return "WhatsApp para " + subjectOf(script)
}

func subjectOf(script scripts.Script) string {
	if name := strings.TrimSpace(script.CompanyName); name != "" {
		return name
	}
	return "script " + script.ID
}

package triage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/leadgen-dispatch/internal/audit"
	"github.com/wolfman30/leadgen-dispatch/internal/channels"
	"github.com/wolfman30/leadgen-dispatch/internal/leads"
	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

type stubSender struct {
	mode channels.Mode
	err  error
	to   []string
	body []string
}

func (s *stubSender) Channel() channels.Channel { return channels.ChannelWhatsApp }

func (s *stubSender) Mode() channels.Mode {
	if s.mode == "" {
		return channels.ModeLive
	}
	return s.mode
}

func (s *stubSender) Send(ctx context.Context, destination string, msg channels.Message, displayName string) (channels.Receipt, error) {
	if s.err != nil {
		return channels.Receipt{}, s.err
	}
	s.to = append(s.to, destination)
	s.body = append(s.body, msg.Body)
	return channels.Receipt{Provider: "stub"}, nil
}

type triageEnv struct {
	inbound  *MemoryInboundStore
	leads    *leads.InMemoryRepository
	recorder *audit.MemoryRecorder
	sender   *stubSender
}

func newTriageEnv() *triageEnv {
	return &triageEnv{
		inbound:  NewMemoryInboundStore(),
		leads:    leads.NewInMemoryRepository(),
		recorder: audit.NewMemoryRecorder(nil),
		sender:   &stubSender{},
	}
}

func (e *triageEnv) service() *Service {
	return NewService(e.inbound, e.leads, e.sender, e.recorder, logging.NewWithWriter("error", io.Discard))
}

func strPtr(s string) *string { return &s }

func TestProcessPending_PositiveReplyFollowsUp(t *testing.T) {
	env := newTriageEnv()
	env.leads.Add(leads.Lead{ID: "lead-1", OwnerUserID: "user-1", CompanyName: "Padaria Central", Phone: "5511977776666"})
	env.inbound.Add(InboundMessage{ID: "in-1", UserID: "user-1", From: "+55 11 97777-6666", Body: "Sim, tenho interesse!"})

	sum, err := env.service().ProcessPending(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Summary{Fetched: 1, Claimed: 1, Positive: 1, FollowUpsSent: 1, LeadsUpdated: 1}, sum)
	require.Len(t, env.sender.body, 1)
	assert.Contains(t, env.sender.body[0], "Que ótimo, Padaria Central!")
	assert.Equal(t, "+55 11 97777-6666", env.sender.to[0])

	lead, ok := env.leads.Get("lead-1")
	require.True(t, ok)
	assert.Equal(t, leads.StatusInterested, lead.Status)

	interactions := env.recorder.All()
	require.Len(t, interactions, 1)
	require.NotNil(t, interactions[0].LeadID)
	assert.Equal(t, "lead-1", *interactions[0].LeadID)
	assert.Equal(t, "whatsapp", interactions[0].ChannelType)

	msg, _ := env.inbound.Get("in-1")
	assert.True(t, msg.Processed)
	assert.Equal(t, IntentPositive, msg.Intent)
}

func TestProcessPending_EachMessageOnce(t *testing.T) {
	env := newTriageEnv()
	env.leads.Add(leads.Lead{ID: "lead-1", OwnerUserID: "user-1", CompanyName: "Acme", Phone: "5511977776666"})
	env.inbound.Add(InboundMessage{ID: "in-1", UserID: "user-1", LeadID: strPtr("lead-1"), From: "5511977776666", Body: "quero sim"})
	env.inbound.Add(InboundMessage{ID: "in-2", UserID: "user-1", From: "5511900001111", Body: "Não tenho interesse"})
	env.inbound.Add(InboundMessage{ID: "in-3", UserID: "user-1", From: "5511900002222", Body: "Quem fala?"})
	svc := env.service()

	first, err := svc.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, first.Claimed)
	assert.Equal(t, 1, first.Positive)
	assert.Equal(t, 1, first.Negative)
	assert.Equal(t, 1, first.Neutral)

	second, err := svc.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, second)
	assert.Len(t, env.sender.body, 1)
}

func TestProcessPending_FailedFollowUpStillConsumesMessage(t *testing.T) {
	env := newTriageEnv()
	env.sender.err = errors.New("provider down")
	env.leads.Add(leads.Lead{ID: "lead-1", OwnerUserID: "user-1", CompanyName: "Acme", WhatsApp: "5511977776666"})
	env.inbound.Add(InboundMessage{ID: "in-1", UserID: "user-1", From: "5511977776666", Body: "Perfeito, pode ligar"})

	sum, err := env.service().ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.FollowUpsFailed)
	assert.Equal(t, 0, sum.FollowUpsSent)
	assert.Equal(t, 1, sum.LeadsUpdated)
	assert.Empty(t, env.recorder.All())

	msg, _ := env.inbound.Get("in-1")
	assert.True(t, msg.Processed)
}

func TestProcessPending_UnknownLeadStillFollowsUp(t *testing.T) {
	env := newTriageEnv()
	env.sender.mode = channels.ModeSimulated
	env.inbound.Add(InboundMessage{ID: "in-1", UserID: "user-1", From: "5511977776666", Body: "Claro, manda a proposta"})

	sum, err := env.service().WithFollowUpTemplate("Obrigado! {{.Empresa}}").ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.FollowUpsSent)
	assert.Equal(t, 0, sum.LeadsUpdated)
	assert.Equal(t, "Obrigado! ", env.sender.body[0])

	interactions := env.recorder.All()
	require.Len(t, interactions, 1)
	assert.Nil(t, interactions[0].LeadID)
	assert.True(t, strings.HasPrefix(interactions[0].Subject, audit.SimulatedPrefix))
}

type alreadyClaimedStore struct {
	*MemoryInboundStore
}

func (alreadyClaimedStore) MarkProcessed(ctx context.Context, id string, intent Intent) (bool, error) {
	return false, nil
}

func TestProcessPending_SkipsMessagesClaimedElsewhere(t *testing.T) {
	env := newTriageEnv()
	env.inbound.Add(InboundMessage{ID: "in-1", UserID: "user-1", From: "5511977776666", Body: "sim"})
	svc := NewService(alreadyClaimedStore{env.inbound}, env.leads, env.sender, env.recorder, nil)

	sum, err := svc.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 0, sum.Claimed)
	assert.Empty(t, env.sender.body)
}

func TestProcessPendingFor_LeavesOtherUsersReplies(t *testing.T) {
	env := newTriageEnv()
	env.inbound.Add(InboundMessage{ID: "in-1", UserID: "user-1", From: "5511977776666", Body: "sim"})
	env.inbound.Add(InboundMessage{ID: "in-2", UserID: "user-2", From: "5511900001111", Body: "sim"})

	sum, err := env.service().ProcessPendingFor(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Fetched)

	mine, _ := env.inbound.Get("in-2")
	assert.True(t, mine.Processed)
	theirs, _ := env.inbound.Get("in-1")
	assert.False(t, theirs.Processed)
}

func TestProcessPending_PluggableClassifier(t *testing.T) {
	env := newTriageEnv()
	env.inbound.Add(InboundMessage{ID: "in-1", UserID: "user-1", From: "5511977776666", Body: "anything"})

	sum, err := env.service().WithClassifier(classifierFunc(func(string) Intent { return IntentNegative })).ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Negative)
}

type classifierFunc func(string) Intent

func (f classifierFunc) Classify(text string) Intent { return f(text) }

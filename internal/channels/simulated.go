package channels

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/wolfman30/leadgen-dispatch/pkg/logging"
)

// SimulatedSender confirms every send without touching the network, so a
// pipeline can be exercised with no provider credentials and no spend.
type SimulatedSender struct {
	channel Channel
	logger  *logging.Logger
}

// NewSimulatedSender creates a simulated sender for channel.
func NewSimulatedSender(channel Channel, logger *logging.Logger) *SimulatedSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &SimulatedSender{channel: channel, logger: logger}
}

var _ Sender = (*SimulatedSender)(nil)

func (s *SimulatedSender) Channel() Channel { return s.channel }

func (s *SimulatedSender) Mode() Mode { return ModeSimulated }

// Send logs the would-be delivery and reports success.
func (s *SimulatedSender) Send(ctx context.Context, destination string, msg Message, displayName string) (Receipt, error) {
	s.logger.Info("simulated send",
		"channel", string(s.channel),
		"to", strings.TrimSpace(destination),
		"display_name", displayName,
		"subject", msg.Subject,
	)
	return Receipt{
		Provider:          "simulation",
		ProviderMessageID: "sim-" + uuid.NewString(),
		Simulated:         true,
	}, nil
}

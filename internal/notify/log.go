package notify

import (
	"context"

	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/rs/zerolog"
)

type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) StatusChanged(_ context.Context, change domain.StatusChange) {
	ev := n.logger.Info()
	if !change.Current.IsHealthy() {
		ev = n.logger.Warn()
	}
	ev.Str("event_id", change.ID).
		Str("resource", change.ResourceID).
		Str("server", change.ServerID).
		Bool("primary", change.Primary).
		Str("previous", change.Previous.String()).
		Str("current", change.Current.String()).
		Msg("Resource status changed")
}

func (n *LogNotifier) ProxyStatusChanged(_ context.Context, event domain.ProxyStatusChanged) {
	ev := n.logger.Info()
	if event.Error != "" {
		ev = n.logger.Error().Str("error", event.Error)
	}
	ev.Str("event_id", event.ID).
		Str("server", event.ServerID).
		Str("status", string(event.Status)).
		Msg("Proxy status changed")
}

package docker

import (
	"context"
	"strings"
	"time"

	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
)

// Trigger asks for an out-of-band reconciliation of one resource.
type Trigger struct {
	ResourceID string
	ServerID   string
	Action     events.Action
	At         time.Time
}

var watchedActions = map[events.Action]struct{}{
	events.ActionStart:   {},
	events.ActionStop:    {},
	events.ActionDie:     {},
	events.ActionPause:   {},
	events.ActionUnPause: {},
	events.ActionRestart: {},
	events.ActionDestroy: {},
}

// Watch streams container lifecycle events of managed containers on a
// server. The channel closes when ctx ends or the event stream closes.
func (s *Source) Watch(ctx context.Context, server domain.Server) (<-chan Trigger, error) {
	cli, err := s.client(server)
	if err != nil {
		return nil, err
	}

	const bufferSize = 100
	out := make(chan Trigger, bufferSize)
	logger := s.logger.With().Str("server", server.ID).Logger()

	go func() {
		defer close(out)

		filterArgs := filters.NewArgs()
		filterArgs.Add("type", string(events.ContainerEventType))
		filterArgs.Add("label", domain.LabelResourceID)

		options := events.ListOptions{
			Filters: filterArgs,
			Since:   time.Now().Format(time.RFC3339Nano),
		}
		eventCh, errCh := cli.Events(ctx, options)

		for {
			select {
			case <-ctx.Done():
				logger.Info().Msg("Docker watcher cancelled by context")
				return
			case err, ok := <-errCh:
				if !ok {
					return
				}
				if err != nil {
					logger.Error().Err(err).Msg("Error from Docker events stream")
					return
				}
			case msg, ok := <-eventCh:
				if !ok {
					logger.Info().Msg("Docker events channel closed")
					return
				}

				trigger, convErr := fromEventsMessage(server.ID, msg)
				if convErr != nil {
					logger.Debug().Err(convErr).Msg("Skipping docker event")
					continue
				}

				logger.Debug().Str("resource", trigger.ResourceID).Str("action", string(trigger.Action)).Msg("Received Docker event")
				select {
				case out <- trigger:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// isWatchedAction also accepts health transitions, which Docker reports as
// "health_status: <state>".
func isWatchedAction(action events.Action) bool {
	if _, ok := watchedActions[action]; ok {
		return true
	}
	return strings.HasPrefix(string(action), string(events.ActionHealthStatus))
}

func fromEventsMessage(serverID string, msg events.Message) (Trigger, error) {
	if !isWatchedAction(msg.Action) {
		return Trigger{}, NewUnsupportedEventError(msg.Action)
	}
	resourceID := msg.Actor.Attributes[domain.LabelResourceID]
	if resourceID == "" {
		return Trigger{}, NewUnsupportedEventError(msg.Action)
	}
	return Trigger{
		ResourceID: resourceID,
		ServerID:   serverID,
		Action:     msg.Action,
		At:         time.Unix(0, msg.TimeNano),
	}, nil
}

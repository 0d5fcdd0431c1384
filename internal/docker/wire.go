package docker

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/docker/docker/api/types/container"
)

// FromInspect converts a Docker inspect result. Missing state decodes to
// exited, missing health to none, missing labels to no service name.
func FromInspect(c container.InspectResponse) domain.ContainerObservation {
	o := domain.ContainerObservation{
		State:  domain.ContainerExited,
		Health: domain.HealthNone,
	}
	if c.ContainerJSONBase != nil {
		o.ID = c.ID
		o.Name = strings.TrimPrefix(c.Name, "/")
		o.RestartCount = c.RestartCount
		if c.State != nil {
			o.State = domain.ParseContainerState(c.State.Status)
			if c.State.Health != nil {
				o.Health = domain.ParseHealthStatus(c.State.Health.Status)
			}
		}
	}
	if c.Config != nil && c.Config.Labels != nil {
		o.Labels = c.Config.Labels
		o.ServiceName = c.Config.Labels[domain.LabelComposeService]
	}
	return o
}

// DecodeInspectJSON decodes the array printed by `docker inspect`.
func DecodeInspectJSON(data []byte) ([]domain.ContainerObservation, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}
	var raw []container.InspectResponse
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("decoding docker inspect output: %w", err)
	}
	out := make([]domain.ContainerObservation, 0, len(raw))
	for _, c := range raw {
		out = append(out, FromInspect(c))
	}
	return out, nil
}

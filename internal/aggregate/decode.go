package aggregate

import (
	"strings"

	"github.com/auto-dns/container-status-sync/internal/domain"
)

// DecodeStatusString turns a pre-rendered status string into an observation
// using substring matching, in the order restarting, running, exited,
// created/starting, paused, dead/removing. Unrecognised strings report false
// and contribute nothing to the aggregate.
func DecodeStatusString(s string) (domain.ContainerObservation, bool) {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "restarting"):
		return domain.ContainerObservation{State: domain.ContainerRestarting}, true
	case strings.Contains(s, "running"):
		return domain.ContainerObservation{State: domain.ContainerRunning, Health: decodeStringHealth(s)}, true
	case strings.Contains(s, "exited"):
		return domain.ContainerObservation{State: domain.ContainerExited}, true
	case strings.Contains(s, "created"), strings.Contains(s, "starting"):
		return domain.ContainerObservation{State: domain.ContainerStarting}, true
	case strings.Contains(s, "paused"):
		return domain.ContainerObservation{State: domain.ContainerPaused}, true
	case strings.Contains(s, "dead"), strings.Contains(s, "removing"):
		return domain.ContainerObservation{State: domain.ContainerDead}, true
	default:
		return domain.ContainerObservation{}, false
	}
}

// A running string without a qualifier counts as healthy.
func decodeStringHealth(s string) domain.HealthStatus {
	switch {
	case strings.Contains(s, "unhealthy"):
		return domain.HealthUnhealthy
	case strings.Contains(s, "unknown"), strings.Contains(s, "starting"):
		return domain.HealthUnknown
	default:
		return domain.HealthHealthy
	}
}

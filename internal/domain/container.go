package domain

import (
	"strconv"
	"strings"

	"github.com/auto-dns/container-status-sync/internal/util"
)

type ContainerState string

const (
	ContainerCreated    ContainerState = "created"
	ContainerStarting   ContainerState = "starting"
	ContainerRunning    ContainerState = "running"
	ContainerRestarting ContainerState = "restarting"
	ContainerExited     ContainerState = "exited"
	ContainerPaused     ContainerState = "paused"
	ContainerDead       ContainerState = "dead"
	ContainerRemoving   ContainerState = "removing"
)

func (cs ContainerState) IsValid() bool {
	switch cs {
	case ContainerCreated,
		ContainerStarting,
		ContainerRunning,
		ContainerRestarting,
		ContainerExited,
		ContainerPaused,
		ContainerDead,
		ContainerRemoving:
		return true
	}
	return false
}

// ParseContainerState maps a raw Docker state string to a ContainerState.
// Missing or unrecognised states are treated as exited.
func ParseContainerState(s string) ContainerState {
	cs := ContainerState(strings.ToLower(strings.TrimSpace(s)))
	if !cs.IsValid() {
		return ContainerExited
	}
	return cs
}

type HealthStatus string

const (
	HealthNone      HealthStatus = "none"
	HealthStarting  HealthStatus = "starting"
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthUnknown   HealthStatus = "unknown"
)

// ParseHealthStatus maps a raw Docker health string. An empty string means the
// container has no health check.
func ParseHealthStatus(s string) HealthStatus {
	switch hs := HealthStatus(strings.ToLower(strings.TrimSpace(s))); hs {
	case "":
		return HealthNone
	case HealthNone, HealthStarting, HealthHealthy, HealthUnhealthy:
		return hs
	default:
		return HealthUnknown
	}
}

// Compose and platform labels read from containers.
const (
	LabelComposeService = "com.docker.compose.service"
	LabelResourceID     = "coolify.resourceId"
	LabelPullRequestID  = "coolify.pullRequestId"
	LabelProxy          = "coolify.proxy"
)

// ContainerObservation is one container's relevant state at a point in time.
// Health is only meaningful when State is running.
type ContainerObservation struct {
	ID           string
	Name         string
	State        ContainerState
	Health       HealthStatus
	ServiceName  string
	RestartCount int
	Labels       map[string]string
}

func (co ContainerObservation) IsRunning() bool {
	return co.State == ContainerRunning
}

// PullRequestID returns the preview deployment id label, 0 for the main
// deployment.
func (co ContainerObservation) PullRequestID() int {
	id, err := strconv.Atoi(strings.TrimSpace(co.Labels[LabelPullRequestID]))
	if err != nil {
		return 0
	}
	return id
}

// ForPullRequest keeps the containers belonging to one deployment, dropping
// preview containers of other pull requests.
func ForPullRequest(observations []ContainerObservation, pullRequestID int) []ContainerObservation {
	return util.Filter(observations, func(o ContainerObservation) bool {
		return o.PullRequestID() == pullRequestID
	})
}

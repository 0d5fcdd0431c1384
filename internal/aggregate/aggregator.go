package aggregate

import (
	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/rs/zerolog"
)

// MaxSaneRestartCount is the restart count above which the input is logged
// as anomalous. It is not rejected.
const MaxSaneRestartCount = 1000

// Aggregator collapses a set of container observations into one
// AggregatedStatus. It holds no state and is safe for concurrent use.
type Aggregator struct {
	logger zerolog.Logger
}

func NewAggregator(logger zerolog.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// flags is the canonical form both decoders normalise into.
type flags struct {
	running    bool
	restarting bool
	exited     bool
	starting   bool
	paused     bool
	dead       bool
	unhealthy  bool
	unknown    bool
}

// Resolve aggregates structured observations. A positive maxRestartCount
// together with an exited container is treated as a crash loop.
func (a *Aggregator) Resolve(observations []domain.ContainerObservation, maxRestartCount int) domain.AggregatedStatus {
	maxRestartCount = a.clampRestartCount(maxRestartCount)
	if len(observations) == 0 {
		return domain.Exited
	}

	var f flags
	for _, o := range observations {
		f.observe(o)
	}
	return resolve(f, f.exited && maxRestartCount > 0)
}

// ResolveStrings aggregates pre-rendered status strings such as
// "running:healthy" or "exited". Strings carry no restart signal, so the
// crash-loop rule never fires on this path.
func (a *Aggregator) ResolveStrings(statuses []string) domain.AggregatedStatus {
	if len(statuses) == 0 {
		return domain.Exited
	}

	var f flags
	for _, s := range statuses {
		if o, ok := DecodeStatusString(s); ok {
			f.observe(o)
		}
	}
	return resolve(f, false)
}

func (a *Aggregator) clampRestartCount(n int) int {
	if n < 0 {
		a.logger.Warn().Int("max_restart_count", n).Msg("Negative restart count, using 0")
		return 0
	}
	if n > MaxSaneRestartCount {
		a.logger.Warn().Int("max_restart_count", n).Msg("Restart count is unusually high")
	}
	return n
}

func (f *flags) observe(o domain.ContainerObservation) {
	switch o.State {
	case domain.ContainerRestarting:
		f.restarting = true
	case domain.ContainerRunning:
		f.running = true
		switch o.Health {
		case domain.HealthUnhealthy:
			f.unhealthy = true
		case domain.HealthHealthy:
		default:
			f.unknown = true
		}
	case domain.ContainerExited:
		f.exited = true
	case domain.ContainerCreated, domain.ContainerStarting:
		f.starting = true
	case domain.ContainerPaused:
		f.paused = true
	case domain.ContainerDead, domain.ContainerRemoving:
		f.dead = true
	default:
		f.exited = true
	}
}

// resolve applies the priority cascade. The order is the contract: the
// first matching rule wins.
func resolve(f flags, crashLoop bool) domain.AggregatedStatus {
	switch {
	case f.restarting:
		return domain.DegradedUnhealthy
	case crashLoop:
		return domain.DegradedUnhealthy
	case f.running && f.exited:
		return domain.DegradedUnhealthy
	case f.running:
		if f.unhealthy {
			return domain.RunningUnhealthy
		}
		if f.unknown {
			return domain.RunningUnknown
		}
		return domain.RunningHealthy
	case f.dead:
		return domain.DegradedUnhealthy
	case f.paused:
		return domain.PausedUnknown
	case f.starting:
		return domain.StartingUnknown
	default:
		return domain.Exited
	}
}

// MaxRestartCount returns the largest restart count among observations.
func MaxRestartCount(observations []domain.ContainerObservation) int {
	highest := 0
	for _, o := range observations {
		if o.RestartCount > highest {
			highest = o.RestartCount
		}
	}
	return highest
}

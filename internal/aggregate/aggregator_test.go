package aggregate

import (
	"bytes"
	"testing"

	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obs(state domain.ContainerState, health domain.HealthStatus) domain.ContainerObservation {
	return domain.ContainerObservation{State: state, Health: health}
}

func TestResolve_PriorityCascade(t *testing.T) {
	agg := NewAggregator(zerolog.Nop())

	tests := []struct {
		name     string
		in       []domain.ContainerObservation
		restarts int
		want     string
	}{
		{"empty", nil, 0, "exited"},
		{"running without health check", []domain.ContainerObservation{obs(domain.ContainerRunning, domain.HealthNone)}, 0, "running:unknown"},
		{"running health starting", []domain.ContainerObservation{obs(domain.ContainerRunning, domain.HealthStarting)}, 0, "running:unknown"},
		{"running and exited without restarts", []domain.ContainerObservation{
			obs(domain.ContainerRunning, domain.HealthHealthy),
			obs(domain.ContainerExited, ""),
		}, 0, "degraded:unhealthy"},
		{"restarting dominates running", []domain.ContainerObservation{
			obs(domain.ContainerRunning, domain.HealthHealthy),
			obs(domain.ContainerRestarting, ""),
		}, 0, "degraded:unhealthy"},
		{"exited with restarts is a crash loop", []domain.ContainerObservation{obs(domain.ContainerExited, "")}, 3, "degraded:unhealthy"},
		{"all exited without restarts", []domain.ContainerObservation{
			obs(domain.ContainerExited, ""),
			obs(domain.ContainerExited, ""),
		}, 0, "exited"},
		{"unhealthy beats unknown", []domain.ContainerObservation{
			obs(domain.ContainerRunning, domain.HealthNone),
			obs(domain.ContainerRunning, domain.HealthUnhealthy),
			obs(domain.ContainerRunning, domain.HealthHealthy),
		}, 0, "running:unhealthy"},
		{"unknown beats healthy", []domain.ContainerObservation{
			obs(domain.ContainerRunning, domain.HealthHealthy),
			obs(domain.ContainerRunning, domain.HealthNone),
		}, 0, "running:unknown"},
		{"running beats paused", []domain.ContainerObservation{
			obs(domain.ContainerRunning, domain.HealthHealthy),
			obs(domain.ContainerPaused, ""),
		}, 0, "running:healthy"},
		{"dead", []domain.ContainerObservation{obs(domain.ContainerDead, "")}, 0, "degraded:unhealthy"},
		{"removing beats paused", []domain.ContainerObservation{
			obs(domain.ContainerRemoving, ""),
			obs(domain.ContainerPaused, ""),
		}, 0, "degraded:unhealthy"},
		{"paused beats created", []domain.ContainerObservation{
			obs(domain.ContainerPaused, ""),
			obs(domain.ContainerCreated, ""),
		}, 0, "paused:unknown"},
		{"created", []domain.ContainerObservation{obs(domain.ContainerCreated, "")}, 0, "starting:unknown"},
		{"starting", []domain.ContainerObservation{obs(domain.ContainerStarting, "")}, 0, "starting:unknown"},
		{"restart count ignored without exited", []domain.ContainerObservation{obs(domain.ContainerRunning, domain.HealthHealthy)}, 5, "running:healthy"},
		{"negative restart count clamps to zero", []domain.ContainerObservation{obs(domain.ContainerExited, "")}, -4, "exited"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, agg.Resolve(tt.in, tt.restarts).String())
		})
	}
}

func TestResolve_AllRunningHealthy(t *testing.T) {
	agg := NewAggregator(zerolog.Nop())
	for n := 1; n <= 5; n++ {
		in := make([]domain.ContainerObservation, n)
		for i := range in {
			in[i] = obs(domain.ContainerRunning, domain.HealthHealthy)
		}
		assert.Equal(t, domain.RunningHealthy, agg.Resolve(in, 0))
	}
}

func TestResolve_RestartingAlwaysDegraded(t *testing.T) {
	agg := NewAggregator(zerolog.Nop())
	others := []domain.ContainerObservation{
		obs(domain.ContainerRunning, domain.HealthHealthy),
		obs(domain.ContainerExited, ""),
		obs(domain.ContainerPaused, ""),
		obs(domain.ContainerCreated, ""),
		obs(domain.ContainerDead, ""),
	}
	for i := range others {
		in := append([]domain.ContainerObservation{obs(domain.ContainerRestarting, "")}, others[:i+1]...)
		got := agg.Resolve(in, 0)
		assert.Equal(t, domain.StatusDegraded, got.Primary)
	}
}

func TestResolve_IsPure(t *testing.T) {
	agg := NewAggregator(zerolog.Nop())
	in := []domain.ContainerObservation{
		obs(domain.ContainerRunning, domain.HealthNone),
		obs(domain.ContainerPaused, ""),
	}
	first := agg.Resolve(in, 0)
	second := agg.Resolve(in, 0)
	assert.Equal(t, first, second)
	assert.Equal(t, domain.ContainerRunning, in[0].State)
}

func TestResolve_LogsRestartCountAnomalies(t *testing.T) {
	var buf bytes.Buffer
	agg := NewAggregator(zerolog.New(&buf))

	agg.Resolve([]domain.ContainerObservation{obs(domain.ContainerExited, "")}, -1)
	assert.Contains(t, buf.String(), "Negative restart count")

	buf.Reset()
	got := agg.Resolve([]domain.ContainerObservation{obs(domain.ContainerExited, "")}, 5000)
	assert.Contains(t, buf.String(), "unusually high")
	assert.Equal(t, domain.DegradedUnhealthy, got)
}

func TestResolveStrings(t *testing.T) {
	agg := NewAggregator(zerolog.Nop())

	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"empty", nil, "exited"},
		{"plain running", []string{"running"}, "running:healthy"},
		{"running unknown", []string{"running:unknown", "running:healthy"}, "running:unknown"},
		{"running unhealthy", []string{"running:unhealthy", "running:unknown"}, "running:unhealthy"},
		{"restarting", []string{"running:healthy", "restarting"}, "degraded:unhealthy"},
		{"mixed running exited", []string{"running:healthy", "exited"}, "degraded:unhealthy"},
		{"exited only", []string{"exited", "exited (0) 3 minutes ago"}, "exited"},
		{"paused", []string{"paused"}, "paused:unknown"},
		{"created", []string{"created"}, "starting:unknown"},
		{"removing", []string{"removing", "paused"}, "degraded:unhealthy"},
		{"unrecognised strings ignored", []string{"running:healthy", "???"}, "running:healthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, agg.ResolveStrings(tt.in).String())
		})
	}
}

func TestResolveStrings_MatchesObjectPathWithoutRestarts(t *testing.T) {
	agg := NewAggregator(zerolog.Nop())
	objects := []domain.ContainerObservation{
		obs(domain.ContainerRunning, domain.HealthUnhealthy),
		obs(domain.ContainerPaused, ""),
	}
	strs := []string{"running:unhealthy", "paused"}
	assert.Equal(t, agg.Resolve(objects, 0), agg.ResolveStrings(strs))
}

func TestMaxRestartCount(t *testing.T) {
	require.Equal(t, 0, MaxRestartCount(nil))
	in := []domain.ContainerObservation{{RestartCount: 2}, {RestartCount: 7}, {RestartCount: 0}}
	assert.Equal(t, 7, MaxRestartCount(in))
}

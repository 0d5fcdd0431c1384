package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAggregatedStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want AggregatedStatus
	}{
		{"exited", Exited},
		{"exited:unhealthy", ExitedUnhealthy},
		{"running:healthy", RunningHealthy},
		{"running:unknown:excluded", AggregatedStatus{Primary: StatusRunning, Health: QualifierUnknown, Excluded: true}},
		{"paused:excluded", AggregatedStatus{Primary: StatusPaused, Excluded: true}},
		{" degraded:unhealthy ", DegradedUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAggregatedStatus(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestParseAggregatedStatus_Invalid(t *testing.T) {
	for _, raw := range []string{"", "up", "running:great", "running:healthy:extra", "exited:unhealthy:excluded:x", "excluded"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseAggregatedStatus(raw)
			assert.Error(t, err)
		})
	}
}

func TestAggregatedStatus_IsHealthy(t *testing.T) {
	assert.True(t, RunningHealthy.IsHealthy())
	assert.True(t, RunningUnknown.IsHealthy())
	assert.False(t, RunningUnhealthy.IsHealthy())
	assert.False(t, ExitedUnhealthy.IsHealthy())
	assert.False(t, DegradedUnhealthy.IsHealthy())
}

func TestResource_Attachments(t *testing.T) {
	r := Resource{ID: "app", ServerID: "s1", AdditionalServerIDs: []string{"s2", "s1", "s3", "s2"}}

	assert.Equal(t, []Attachment{
		{ResourceID: "app", ServerID: "s1", Primary: true},
		{ResourceID: "app", ServerID: "s2"},
		{ResourceID: "app", ServerID: "s3"},
	}, r.Attachments())
}

func TestParseContainerState(t *testing.T) {
	assert.Equal(t, ContainerRunning, ParseContainerState("running"))
	assert.Equal(t, ContainerExited, ParseContainerState(""))
	assert.Equal(t, ContainerExited, ParseContainerState("weird"))
	assert.Equal(t, HealthNone, ParseHealthStatus(""))
	assert.Equal(t, HealthUnknown, ParseHealthStatus("weird"))
}

func TestForPullRequest(t *testing.T) {
	main := ContainerObservation{ID: "a"}
	preview := ContainerObservation{ID: "b", Labels: map[string]string{LabelPullRequestID: "7"}}
	zero := ContainerObservation{ID: "c", Labels: map[string]string{LabelPullRequestID: "0"}}

	all := []ContainerObservation{main, preview, zero}
	assert.Equal(t, []ContainerObservation{main, zero}, ForPullRequest(all, 0))
	assert.Equal(t, []ContainerObservation{preview}, ForPullRequest(all, 7))
}

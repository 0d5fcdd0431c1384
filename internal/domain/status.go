package domain

import (
	"fmt"
	"strings"
)

type PrimaryStatus string

const (
	StatusRunning  PrimaryStatus = "running"
	StatusDegraded PrimaryStatus = "degraded"
	StatusStarting PrimaryStatus = "starting"
	StatusPaused   PrimaryStatus = "paused"
	StatusExited   PrimaryStatus = "exited"
)

type HealthQualifier string

const (
	QualifierNone      HealthQualifier = ""
	QualifierHealthy   HealthQualifier = "healthy"
	QualifierUnhealthy HealthQualifier = "unhealthy"
	QualifierUnknown   HealthQualifier = "unknown"
)

const excludedToken = "excluded"

// AggregatedStatus is the single status summarising every container of a
// resource on one server. It renders as primary[:health][:excluded].
type AggregatedStatus struct {
	Primary  PrimaryStatus
	Health   HealthQualifier
	Excluded bool
}

var (
	Exited            = AggregatedStatus{Primary: StatusExited}
	ExitedUnhealthy   = AggregatedStatus{Primary: StatusExited, Health: QualifierUnhealthy}
	DegradedUnhealthy = AggregatedStatus{Primary: StatusDegraded, Health: QualifierUnhealthy}
	RunningHealthy    = AggregatedStatus{Primary: StatusRunning, Health: QualifierHealthy}
	RunningUnhealthy  = AggregatedStatus{Primary: StatusRunning, Health: QualifierUnhealthy}
	RunningUnknown    = AggregatedStatus{Primary: StatusRunning, Health: QualifierUnknown}
	PausedUnknown     = AggregatedStatus{Primary: StatusPaused, Health: QualifierUnknown}
	StartingUnknown   = AggregatedStatus{Primary: StatusStarting, Health: QualifierUnknown}
)

func (s AggregatedStatus) String() string {
	parts := []string{string(s.Primary)}
	if s.Health != QualifierNone {
		parts = append(parts, string(s.Health))
	}
	if s.Excluded {
		parts = append(parts, excludedToken)
	}
	return strings.Join(parts, ":")
}

func (s AggregatedStatus) Equal(o AggregatedStatus) bool {
	return s.Primary == o.Primary && s.Health == o.Health && s.Excluded == o.Excluded
}

func (s AggregatedStatus) IsZero() bool {
	return s.Primary == ""
}

// IsHealthy reports whether the status should be considered up by alerting.
func (s AggregatedStatus) IsHealthy() bool {
	return s.Primary == StatusRunning && s.Health != QualifierUnhealthy
}

// ParseAggregatedStatus parses every rendered form of AggregatedStatus.
func ParseAggregatedStatus(raw string) (AggregatedStatus, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) == 0 || len(parts) > 3 {
		return AggregatedStatus{}, fmt.Errorf("invalid status %q", raw)
	}

	var s AggregatedStatus
	switch p := PrimaryStatus(parts[0]); p {
	case StatusRunning, StatusDegraded, StatusStarting, StatusPaused, StatusExited:
		s.Primary = p
	default:
		return AggregatedStatus{}, fmt.Errorf("invalid status %q: unknown primary %q", raw, parts[0])
	}

	rest := parts[1:]
	if n := len(rest); n > 0 && rest[n-1] == excludedToken {
		s.Excluded = true
		rest = rest[:n-1]
	}
	switch len(rest) {
	case 0:
	case 1:
		switch q := HealthQualifier(rest[0]); q {
		case QualifierHealthy, QualifierUnhealthy, QualifierUnknown:
			s.Health = q
		default:
			return AggregatedStatus{}, fmt.Errorf("invalid status %q: unknown health %q", raw, rest[0])
		}
	default:
		return AggregatedStatus{}, fmt.Errorf("invalid status %q", raw)
	}
	return s, nil
}

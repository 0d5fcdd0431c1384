package exclusion

import (
	"strings"

	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultRestartPolicy is assumed for services that do not declare one.
const DefaultRestartPolicy = "always"

// Set is a set of compose service names excluded from health aggregation.
type Set map[string]struct{}

func (s Set) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// composeFile holds the only compose fields the resolver reads.
type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	ExcludeFromHC flexBool      `yaml:"exclude_from_hc"`
	Restart       restartPolicy `yaml:"restart"`
}

// restartPolicy keeps the literal scalar so an unquoted `no` stays "no".
type restartPolicy string

func (r *restartPolicy) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*r = restartPolicy(node.Value)
	}
	return nil
}

// flexBool accepts YAML booleans and the common truthy strings.
type flexBool bool

func (b *flexBool) UnmarshalYAML(node *yaml.Node) error {
	var v bool
	if err := node.Decode(&v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		*b = false
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}

// ExcludedServiceNames returns the services declared with exclude_from_hc or
// restart: "no". Unparseable YAML yields an empty set.
func ExcludedServiceNames(composeYAML string, logger zerolog.Logger) Set {
	excluded := Set{}
	if strings.TrimSpace(composeYAML) == "" {
		return excluded
	}

	var cf composeFile
	if err := yaml.Unmarshal([]byte(composeYAML), &cf); err != nil {
		logger.Warn().Err(err).Msg("Could not parse compose definition, treating all containers as included")
		return excluded
	}

	for name, svc := range cf.Services {
		restart := strings.TrimSpace(string(svc.Restart))
		if restart == "" {
			restart = DefaultRestartPolicy
		}
		if bool(svc.ExcludeFromHC) || restart == "no" {
			excluded[name] = struct{}{}
		}
	}
	return excluded
}

// SplitRelevant partitions containers by exclusion. Containers without a
// service name are always relevant.
func SplitRelevant(containers []domain.ContainerObservation, excluded Set) (relevant, excludedContainers []domain.ContainerObservation) {
	for _, c := range containers {
		if c.ServiceName != "" && excluded.Contains(c.ServiceName) {
			excludedContainers = append(excludedContainers, c)
			continue
		}
		relevant = append(relevant, c)
	}
	return relevant, excludedContainers
}

// AppendExcludedSuffix marks a status as computed only from excluded
// containers. Only running keeps its health qualifier.
func AppendExcludedSuffix(s domain.AggregatedStatus) domain.AggregatedStatus {
	out := domain.AggregatedStatus{Primary: s.Primary, Excluded: true}
	if s.Primary == domain.StatusRunning {
		out.Health = s.Health
	}
	return out
}

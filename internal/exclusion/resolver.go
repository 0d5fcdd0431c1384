package exclusion

import (
	"github.com/auto-dns/container-status-sync/internal/domain"
)

type aggregator interface {
	Resolve(observations []domain.ContainerObservation, maxRestartCount int) domain.AggregatedStatus
}

// Resolver applies the aggregator with the exclusion overlay.
type Resolver struct {
	agg aggregator
}

func NewResolver(agg aggregator) *Resolver {
	return &Resolver{agg: agg}
}

// Resolve aggregates relevant containers only. When every container is
// excluded and the exclusion set is non-empty the excluded containers are
// aggregated instead and the result carries the excluded suffix.
func (r *Resolver) Resolve(containers []domain.ContainerObservation, excluded Set, maxRestartCount int) domain.AggregatedStatus {
	relevant, excludedContainers := SplitRelevant(containers, excluded)
	if len(relevant) > 0 {
		return r.agg.Resolve(relevant, maxRestartCount)
	}
	if len(excluded) > 0 {
		return AppendExcludedSuffix(r.agg.Resolve(excludedContainers, maxRestartCount))
	}
	return r.agg.Resolve(nil, maxRestartCount)
}

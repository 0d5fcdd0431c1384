package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/auto-dns/container-status-sync/internal/aggregate"
	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/auto-dns/container-status-sync/internal/exclusion"
	"github.com/auto-dns/container-status-sync/internal/notify"
	"github.com/rs/zerolog"
)

// ResourceStatusReconciler computes the status of every attachment of a
// resource and persists it when it changed. Callers are expected to hold the
// resource lock.
type ResourceStatusReconciler struct {
	logger       zerolog.Logger
	inventory    *Inventory
	health       serverHealth
	sources      map[domain.Transport]ContainerSource
	resolver     statusResolver
	store        statusStore
	fetchTimeout time.Duration
	now          func() time.Time
}

func NewResourceStatusReconciler(
	inventory *Inventory,
	health serverHealth,
	sources map[domain.Transport]ContainerSource,
	resolver statusResolver,
	store statusStore,
	fetchTimeout time.Duration,
	logger zerolog.Logger,
) *ResourceStatusReconciler {
	return &ResourceStatusReconciler{
		logger:       logger,
		inventory:    inventory,
		health:       health,
		sources:      sources,
		resolver:     resolver,
		store:        store,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
	}
}

// Reconcile handles the primary server and then each additional server.
// A failure on one server never affects the status of another. Store errors
// are collected and returned together.
func (r *ResourceStatusReconciler) Reconcile(ctx context.Context, resource domain.Resource) ([]domain.StatusChange, error) {
	logger := r.logger.With().Str("resource", resource.ID).Logger()
	excluded := exclusion.ExcludedServiceNames(resource.ComposeRaw, logger)

	var changes []domain.StatusChange
	var errs []error
	for _, att := range resource.Attachments() {
		status := r.Status(ctx, resource, att, excluded)
		change, changed, err := r.persist(ctx, att, status)
		if err != nil {
			logger.Error().Err(err).Str("server", att.ServerID).Msg("Failed to persist status")
			errs = append(errs, err)
			continue
		}
		if changed {
			changes = append(changes, change)
		}
	}
	return changes, errors.Join(errs...)
}

// Status resolves the current status of one attachment without persisting it.
func (r *ResourceStatusReconciler) Status(ctx context.Context, resource domain.Resource, att domain.Attachment, excluded exclusion.Set) domain.AggregatedStatus {
	logger := r.logger.With().Str("resource", resource.ID).Str("server", att.ServerID).Logger()

	containers, err := r.fetch(ctx, resource, att.ServerID)
	if err != nil {
		logger.Warn().Err(err).Msg("No container evidence, reporting exited:unhealthy")
		fetchFailuresTotal.WithLabelValues(att.ServerID, failureReason(err)).Inc()
		return domain.ExitedUnhealthy
	}
	if len(containers) == 0 {
		logger.Debug().Msg("No containers found")
		return domain.ExitedUnhealthy
	}

	status := r.resolver.Resolve(containers, excluded, aggregate.MaxRestartCount(containers))
	if status.Equal(domain.Exited) {
		// A deployed resource that is fully stopped reads as unhealthy.
		return domain.ExitedUnhealthy
	}
	return status
}

func (r *ResourceStatusReconciler) fetch(ctx context.Context, resource domain.Resource, serverID string) ([]domain.ContainerObservation, error) {
	server, ok := r.inventory.Server(serverID)
	if !ok {
		return nil, NewUnknownServerError(serverID)
	}

	// The reachability check and the listing share one deadline.
	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()
	if !r.health.IsFunctional(fetchCtx, server) {
		return nil, NewServerUnavailableError(serverID)
	}
	source, ok := r.sources[server.Transport]
	if !ok {
		return nil, fmt.Errorf("no container source for transport %q", server.Transport)
	}

	containers, err := source.ListByLabel(fetchCtx, server, domain.LabelResourceID, resource.ID)
	if err != nil {
		return nil, err
	}
	return domain.ForPullRequest(containers, resource.PullRequestID), nil
}

func (r *ResourceStatusReconciler) persist(ctx context.Context, att domain.Attachment, status domain.AggregatedStatus) (domain.StatusChange, bool, error) {
	existing, found, err := r.store.Get(ctx, att)
	if err != nil {
		return domain.StatusChange{}, false, fmt.Errorf("reading status of %s: %w", att.Key(), err)
	}
	if found && existing.Status.Equal(status) {
		return domain.StatusChange{}, false, nil
	}

	now := r.now()
	record := domain.StatusRecord{
		ResourceID: att.ResourceID,
		ServerID:   att.ServerID,
		Primary:    att.Primary,
		Status:     status,
		UpdatedAt:  now,
	}
	if err := r.store.Put(ctx, record); err != nil {
		return domain.StatusChange{}, false, fmt.Errorf("writing status of %s: %w", att.Key(), err)
	}

	statusChangesTotal.WithLabelValues(strconv.FormatBool(att.Primary), status.String()).Inc()
	return domain.StatusChange{
		ID:         notify.NewEventID(),
		ResourceID: att.ResourceID,
		ServerID:   att.ServerID,
		Primary:    att.Primary,
		Previous:   existing.Status,
		Current:    status,
		At:         now,
	}, true, nil
}

func failureReason(err error) string {
	var unknown *UnknownServerError
	var unavailable *ServerUnavailableError
	switch {
	case errors.As(err, &unknown):
		return "unknown_server"
	case errors.As(err, &unavailable):
		return "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

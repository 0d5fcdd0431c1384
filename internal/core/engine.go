package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/auto-dns/container-status-sync/internal/config"
	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SyncEngine drives periodic reconciliation of every resource, reacts to
// container events, and runs the proxy watchdog.
type SyncEngine struct {
	logger     zerolog.Logger
	cfg        *config.AppConfig
	inventory  *Inventory
	reconciler reconciler
	store      statusStore
	notifier   notifier
	watchdog   *ProxyWatchdog
	watcher    eventWatcher
}

func NewSyncEngine(logger zerolog.Logger, cfg *config.AppConfig, inventory *Inventory, rec reconciler, store statusStore, n notifier, watchdog *ProxyWatchdog, watcher eventWatcher) *SyncEngine {
	return &SyncEngine{
		logger:     logger,
		cfg:        cfg,
		inventory:  inventory,
		reconciler: rec,
		store:      store,
		notifier:   n,
		watchdog:   watchdog,
		watcher:    watcher,
	}
}

func resourceLockKey(resourceID string) string {
	return "resource/" + resourceID
}

// ReconcileResource reconciles one resource under its lock and publishes
// the resulting changes.
func (se *SyncEngine) ReconcileResource(ctx context.Context, resource domain.Resource) error {
	start := time.Now()
	err := se.store.LockTransaction(ctx, []string{resourceLockKey(resource.ID)}, func() error {
		changes, err := se.reconciler.Reconcile(ctx, resource)
		for _, change := range changes {
			se.notifier.StatusChanged(ctx, change)
		}
		return err
	})
	reconcileDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		reconcileTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("reconciling resource %s: %w", resource.ID, err)
	}
	reconcileTotal.WithLabelValues("ok").Inc()
	return nil
}

// Tick reconciles every resource with bounded concurrency, prunes records of
// removed attachments and runs the proxy watchdog.
func (se *SyncEngine) Tick(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(max(se.cfg.Concurrency, 1))

	var errs []error
	errCh := make(chan error, len(se.inventory.Resources()))
	for _, resource := range se.inventory.Resources() {
		g.Go(func() error {
			if err := se.ReconcileResource(ctx, resource); err != nil {
				errCh <- err
			}
			return nil
		})
	}
	_ = g.Wait()
	close(errCh)
	for err := range errCh {
		errs = append(errs, err)
	}

	if _, err := se.Prune(ctx); err != nil {
		errs = append(errs, err)
	}
	if se.watchdog != nil {
		se.watchdog.Check(ctx)
	}
	return errors.Join(errs...)
}

// Prune deletes stored records whose attachment no longer exists.
func (se *SyncEngine) Prune(ctx context.Context) ([]domain.Attachment, error) {
	records, err := se.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing status records: %w", err)
	}

	var pruned []domain.Attachment
	var errs []error
	for _, rec := range records {
		att := rec.Attachment()
		if se.inventory.HasAttachment(att) {
			continue
		}
		err := se.store.LockTransaction(ctx, []string{resourceLockKey(att.ResourceID)}, func() error {
			return se.store.Delete(ctx, att)
		})
		if err != nil {
			se.logger.Error().Err(err).Str("attachment", att.Key()).Msg("Error removing stale status")
			errs = append(errs, err)
			continue
		}
		se.logger.Info().Str("attachment", att.Key()).Msg("Removed status of detached resource")
		pruned = append(pruned, att)
	}
	return pruned, errors.Join(errs...)
}

func (se *SyncEngine) subscribe(ctx context.Context) <-chan string {
	out := make(chan string, 100)
	if se.watcher == nil || !se.cfg.WatchEvents {
		return out
	}
	for _, server := range se.inventory.Servers() {
		if server.Transport != domain.TransportDocker || server.Disabled {
			continue
		}
		triggers, err := se.watcher.Watch(ctx, server)
		if err != nil {
			se.logger.Error().Err(err).Str("server", server.ID).Msg("Failed to subscribe to Docker events")
			continue
		}
		go func() {
			for t := range triggers {
				select {
				case out <- t.ResourceID:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	return out
}

func (se *SyncEngine) Run(ctx context.Context) error {
	se.logger.Info().Int("resources", len(se.inventory.Resources())).Msg("Starting SyncEngine")

	triggers := se.subscribe(ctx)

	if err := se.Tick(ctx); err != nil {
		se.logger.Error().Err(err).Msg("Initial reconciliation finished with errors")
	}

	se.logger.Info().Msg("Launching reconciliation loop")
	ticker := time.NewTicker(time.Duration(se.cfg.PollInterval) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			se.logger.Debug().Msg("Reconciliation loop tick")
			if err := se.Tick(ctx); err != nil {
				se.logger.Error().Err(err).Msg("Sync error")
			}
		case id := <-triggers:
			resource, ok := se.inventory.Resource(id)
			if !ok {
				se.logger.Debug().Str("resource", id).Msg("Ignoring event for unmanaged resource")
				continue
			}
			if err := se.ReconcileResource(ctx, resource); err != nil {
				se.logger.Error().Err(err).Msg("Sync error")
			}
		case <-ctx.Done():
			se.logger.Info().Msg("SyncEngine shutting down")
			if err := se.store.Close(); err != nil {
				se.logger.Error().Err(err).Msg("Error closing status store")
			}
			return ctx.Err()
		}
	}
}

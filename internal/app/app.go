package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/auto-dns/container-status-sync/internal/aggregate"
	"github.com/auto-dns/container-status-sync/internal/api"
	"github.com/auto-dns/container-status-sync/internal/config"
	"github.com/auto-dns/container-status-sync/internal/core"
	"github.com/auto-dns/container-status-sync/internal/docker"
	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/auto-dns/container-status-sync/internal/exclusion"
	"github.com/auto-dns/container-status-sync/internal/health"
	"github.com/auto-dns/container-status-sync/internal/notify"
	"github.com/auto-dns/container-status-sync/internal/proxy"
	"github.com/auto-dns/container-status-sync/internal/registry"
	"github.com/auto-dns/container-status-sync/internal/remote"
	"github.com/auto-dns/container-status-sync/internal/shell"
	"github.com/auto-dns/container-status-sync/internal/state"
	"github.com/rs/zerolog"
	clientv3 "go.etcd.io/etcd/client/v3"
	"golang.org/x/sync/errgroup"
)

const recentEventCapacity = 200

type App struct {
	dockerSource *docker.Source
	store        registry.StatusStore
	inventory    *core.Inventory
	proxies      *proxy.Manager
	engine       *core.SyncEngine
	server       *api.Server
	logger       zerolog.Logger
}

// New creates a new App by wiring up all dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	resources, err := cfg.ResourceList()
	if err != nil {
		return nil, err
	}
	inventory := core.NewInventory(cfg.ServerMap(), resources)

	// Remote execution
	hardener := shell.NewHardener(cfg.Hardener.OwnedRoots)
	runner := remote.NewSSHRunner(&cfg.Remote, hardener, logger)
	sshSource := remote.NewContainerSource(runner, logger)
	dockerSource := docker.NewSource(logger)
	sources := map[domain.Transport]core.ContainerSource{
		domain.TransportSSH:    sshSource,
		domain.TransportDocker: dockerSource,
	}
	checker := health.NewChecker(sshSource, dockerSource, seconds(cfg.Remote.HealthCacheTTL), seconds(cfg.Remote.Timeout), logger)

	// Status store
	store, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Notifications
	recorder := notify.NewRecorder(recentEventCapacity)
	notifier := notify.Multi{notify.NewLogNotifier(logger), recorder}

	// Engine
	resolver := exclusion.NewResolver(aggregate.NewAggregator(logger))
	rec := core.NewResourceStatusReconciler(inventory, checker, sources, resolver, store, seconds(cfg.Remote.Timeout), logger)
	proxies := proxy.NewManager(&cfg.Proxy, runner, store, notifier, logger)
	var watchdog *core.ProxyWatchdog
	if cfg.Proxy.AutoRestart {
		watchdog = core.NewProxyWatchdog(inventory, checker, sources, store, proxies, seconds(cfg.Remote.Timeout), logger)
	}
	engine := core.NewSyncEngine(logger, &cfg.App, inventory, rec, store, notifier, watchdog, dockerSource)

	a := &App{
		dockerSource: dockerSource,
		store:        store,
		inventory:    inventory,
		proxies:      proxies,
		engine:       engine,
		logger:       logger,
	}
	if cfg.API.Enabled {
		a.server = api.NewServer(&cfg.API, store, inventory, proxies, engine, recorder, logger)
	}
	return a, nil
}

func newStore(cfg *config.Config, logger zerolog.Logger) (registry.StatusStore, error) {
	if !cfg.Etcd.Enabled {
		logger.Info().Msg("etcd disabled, keeping statuses in memory")
		return state.NewMemoryState(), nil
	}
	etcdClient, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Etcd.Endpoints,
		DialTimeout: seconds(cfg.Etcd.DialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	return registry.NewEtcdRegistry(etcdClient, &cfg.Etcd, cfg.App.Hostname, logger), nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// Run starts the sync engine and, when enabled, the HTTP API.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info().Msg("Application starting")
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.engine.Run(ctx)
	})
	if a.server != nil {
		g.Go(func() error {
			return a.server.Run(ctx)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ProxyAction runs a single proxy lifecycle action against a configured
// server. Action is one of start, stop, restart.
func (a *App) ProxyAction(ctx context.Context, action, serverID string, opts proxy.StopOptions) error {
	server, ok := a.inventory.Server(serverID)
	if !ok {
		return core.NewUnknownServerError(serverID)
	}
	switch action {
	case "start":
		return a.proxies.Start(ctx, server)
	case "stop":
		return a.proxies.Stop(ctx, server, opts)
	case "restart":
		return a.proxies.Restart(ctx, server)
	default:
		return fmt.Errorf("unknown proxy action %q", action)
	}
}

// Close releases the docker connections. The engine closes the status store
// when Run returns.
func (a *App) Close() error {
	var errs []error
	if a.dockerSource != nil {
		if err := a.dockerSource.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close docker clients: %w", err))
		}
	}
	return errors.Join(errs...)
}

// CloseStore closes the status store for one-shot commands that never call Run.
func (a *App) CloseStore() error {
	return a.store.Close()
}

package core

import (
	"context"
	"slices"
	"time"

	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/rs/zerolog"
)

// ProxyWatchdog restarts proxies that should be running but are not.
// Servers whose proxy was stopped on purpose are left alone.
type ProxyWatchdog struct {
	logger    zerolog.Logger
	inventory *Inventory
	health    serverHealth
	sources   map[domain.Transport]ContainerSource
	store     statusStore
	proxy     proxyStarter
	timeout   time.Duration
}

func NewProxyWatchdog(inventory *Inventory, health serverHealth, sources map[domain.Transport]ContainerSource, store statusStore, proxy proxyStarter, timeout time.Duration, logger zerolog.Logger) *ProxyWatchdog {
	return &ProxyWatchdog{
		logger:    logger,
		inventory: inventory,
		health:    health,
		sources:   sources,
		store:     store,
		proxy:     proxy,
		timeout:   timeout,
	}
}

// Check inspects every proxy-enabled server and returns the ids of servers
// whose proxy was restarted.
func (w *ProxyWatchdog) Check(ctx context.Context) []string {
	var restarted []string
	for _, server := range w.inventory.Servers() {
		if !server.Proxy.Enabled || server.Disabled {
			continue
		}
		if w.check(ctx, server) {
			restarted = append(restarted, server.ID)
		}
	}
	return restarted
}

func (w *ProxyWatchdog) check(ctx context.Context, server domain.Server) bool {
	logger := w.logger.With().Str("server", server.ID).Logger()

	rec, found, err := w.store.GetProxy(ctx, server.ID)
	if err != nil {
		logger.Error().Err(err).Msg("Reading proxy record")
		return false
	}
	if found && rec.ForceStop {
		return false
	}
	if w.needsStart(ctx, server, logger) {
		logger.Warn().Msg("Proxy is not running, starting it")
		proxyRestartsTotal.WithLabelValues(server.ID).Inc()
		if err := w.proxy.Start(ctx, server); err != nil {
			logger.Error().Err(err).Msg("Proxy restart failed")
			return false
		}
		return true
	}
	return false
}

// needsStart reports whether the server is reachable and lists no running
// proxy container. The ping and the listing share one deadline.
func (w *ProxyWatchdog) needsStart(ctx context.Context, server domain.Server, logger zerolog.Logger) bool {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if !w.health.IsFunctional(ctx, server) {
		return false
	}
	source, ok := w.sources[server.Transport]
	if !ok {
		return false
	}

	containers, err := source.ListByLabel(ctx, server, domain.LabelProxy, "true")
	if err != nil {
		logger.Warn().Err(err).Msg("Could not read proxy containers")
		return false
	}
	return !slices.ContainsFunc(containers, domain.ContainerObservation.IsRunning)
}

package proxy

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"time"

	"github.com/auto-dns/container-status-sync/internal/config"
	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/auto-dns/container-status-sync/internal/notify"
	"github.com/auto-dns/container-status-sync/internal/shell"
	"github.com/rs/zerolog"
)

type runner interface {
	Run(ctx context.Context, server domain.Server, commands []string) (string, error)
}

type proxyStore interface {
	PutProxy(ctx context.Context, record domain.ProxyRecord) error
}

type notifier interface {
	ProxyStatusChanged(ctx context.Context, event domain.ProxyStatusChanged)
}

// StopOptions controls a proxy stop. Force marks the proxy as intentionally
// stopped so the watchdog leaves it alone.
type StopOptions struct {
	Force   bool
	Timeout int
}

// Manager starts and stops the reverse-proxy container on servers.
type Manager struct {
	logger   zerolog.Logger
	cfg      *config.ProxyConfig
	runner   runner
	store    proxyStore
	notifier notifier
	compose  func() (string, error)
	now      func() time.Time
}

func NewManager(cfg *config.ProxyConfig, r runner, store proxyStore, n notifier, logger zerolog.Logger) *Manager {
	return &Manager{
		logger:   logger,
		cfg:      cfg,
		runner:   r,
		store:    store,
		notifier: n,
		compose:  func() (string, error) { return ComposeFile(cfg) },
		now:      time.Now,
	}
}

// Start uploads the compose file and brings the proxy up. A failed start is
// recorded as exited and returned.
func (m *Manager) Start(ctx context.Context, server domain.Server) error {
	err := m.start(ctx, server)
	status := domain.ProxyRunning
	if err != nil {
		status = domain.ProxyExited
	}
	m.record(ctx, server, status, false, err)
	return err
}

// Stop removes the proxy container. Remote failures are logged and the proxy
// is recorded as exited regardless.
func (m *Manager) Stop(ctx context.Context, server domain.Server, opts StopOptions) error {
	err := m.stop(ctx, server, opts)
	m.record(ctx, server, domain.ProxyExited, opts.Force, err)
	return nil
}

// Restart stops and starts the proxy, publishing a single event for the
// combined action.
func (m *Manager) Restart(ctx context.Context, server domain.Server) error {
	if err := m.stop(ctx, server, StopOptions{}); err != nil {
		m.logger.Warn().Err(err).Str("server", server.ID).Msg("[proxy] Stop before restart failed, continuing")
	}
	return m.Start(ctx, server)
}

func (m *Manager) start(ctx context.Context, server domain.Server) error {
	if server.IP == "" {
		return fmt.Errorf("server %s has no address for proxy commands", server.ID)
	}
	compose, err := m.compose()
	if err != nil {
		return err
	}
	m.logger.Info().Str("server", server.ID).Msg("[proxy] Starting proxy")
	if _, err := m.runner.Run(ctx, server, m.startCommands(compose)); err != nil {
		return fmt.Errorf("starting proxy on %s: %w", server.ID, err)
	}
	return nil
}

func (m *Manager) stop(ctx context.Context, server domain.Server, opts StopOptions) error {
	if server.IP == "" {
		return fmt.Errorf("server %s has no address for proxy commands", server.ID)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = m.cfg.StopTimeout
	}
	m.logger.Info().Str("server", server.ID).Int("timeout", timeout).Bool("force", opts.Force).Msg("[proxy] Stopping proxy")
	if _, err := m.runner.Run(ctx, server, m.stopCommands(timeout)); err != nil {
		return fmt.Errorf("stopping proxy on %s: %w", server.ID, err)
	}
	return nil
}

func (m *Manager) record(ctx context.Context, server domain.Server, status domain.ProxyStatus, forceStop bool, cause error) {
	now := m.now().UTC()
	if err := m.store.PutProxy(ctx, domain.ProxyRecord{
		ServerID:  server.ID,
		Status:    status,
		ForceStop: forceStop,
		UpdatedAt: now,
	}); err != nil {
		m.logger.Error().Err(err).Str("server", server.ID).Msg("[proxy] Failed to persist proxy status")
	}

	event := domain.ProxyStatusChanged{
		ID:       notify.NewEventID(),
		ServerID: server.ID,
		Status:   status,
		At:       now,
	}
	if cause != nil {
		event.Error = cause.Error()
		m.logger.Warn().Err(cause).Str("server", server.ID).Str("status", string(status)).Msg("[proxy] Proxy action failed")
	}
	if m.notifier != nil {
		m.notifier.ProxyStatusChanged(ctx, event)
	}
}

func (m *Manager) startCommands(compose string) []string {
	dir := shell.Quote(m.cfg.Path)
	file := shell.Quote(path.Join(m.cfg.Path, "docker-compose.yml"))
	encoded := base64.StdEncoding.EncodeToString([]byte(compose))

	cmds := []string{
		"mkdir -p " + dir,
		"cd " + dir,
		fmt.Sprintf("echo '%s' | base64 -d | tee %s > /dev/null", encoded, file),
		"docker compose pull",
		fmt.Sprintf("if docker ps -a --format '{{.Names}}' | grep -q %s; then", m.namePattern()),
		"echo 'Removing existing proxy container'",
		fmt.Sprintf("docker rm -f %s 2>/dev/null || true", shell.Quote(m.cfg.ContainerName)),
		"fi",
	}
	cmds = append(cmds, m.waitForRemoval()...)
	cmds = append(cmds, "docker compose up -d --wait --remove-orphans")
	for _, network := range m.cfg.Networks {
		cmds = append(cmds, fmt.Sprintf("docker network connect %s %s >/dev/null 2>&1 || true",
			shell.Quote(network), shell.Quote(m.cfg.ContainerName)))
	}
	return cmds
}

func (m *Manager) stopCommands(timeout int) []string {
	name := shell.Quote(m.cfg.ContainerName)
	cmds := []string{
		fmt.Sprintf("docker stop --time=%d %s 2>/dev/null || true", timeout, name),
		fmt.Sprintf("docker rm -f %s 2>/dev/null || true", name),
	}
	return append(cmds, m.waitForRemoval()...)
}

func (m *Manager) waitForRemoval() []string {
	return []string{
		"for i in $(seq 1 10); do",
		fmt.Sprintf("if ! docker ps -a --format '{{.Names}}' | grep -q %s; then break; fi", m.namePattern()),
		"sleep 1",
		"done",
	}
}

func (m *Manager) namePattern() string {
	return shell.Quote("^" + m.cfg.ContainerName + "$")
}

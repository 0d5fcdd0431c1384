package docker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	dockerCli "github.com/docker/docker/client"
	"github.com/rs/zerolog"
)

// Source reads container state from servers reachable through the Docker
// Engine API. Clients are created lazily and reused per server.
type Source struct {
	logger  zerolog.Logger
	connect func(server domain.Server) (dockerClient, error)

	mu      sync.Mutex
	clients map[string]dockerClient
}

func NewSource(logger zerolog.Logger) *Source {
	return newSource(connectSDK, logger)
}

func newSource(connect func(domain.Server) (dockerClient, error), logger zerolog.Logger) *Source {
	return &Source{
		logger:  logger,
		connect: connect,
		clients: make(map[string]dockerClient),
	}
}

func connectSDK(server domain.Server) (dockerClient, error) {
	opts := []dockerCli.Opt{dockerCli.FromEnv, dockerCli.WithAPIVersionNegotiation()}
	if server.DockerHost != "" {
		opts = append(opts, dockerCli.WithHost(server.DockerHost))
	}
	return dockerCli.NewClientWithOpts(opts...)
}

func (s *Source) client(server domain.Server) (dockerClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cli, ok := s.clients[server.ID]; ok {
		return cli, nil
	}
	cli, err := s.connect(server)
	if err != nil {
		return nil, NewConnectError(server.ID, err)
	}
	s.clients[server.ID] = cli
	return cli, nil
}

// ListByLabel inspects every container, stopped ones included, carrying the
// label key=value.
func (s *Source) ListByLabel(ctx context.Context, server domain.Server, key, value string) ([]domain.ContainerObservation, error) {
	cli, err := s.client(server)
	if err != nil {
		return nil, err
	}

	opts := container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", fmt.Sprintf("%s=%s", key, value))),
	}
	summaries, err := cli.ContainerList(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing containers on %s: %w", server.ID, err)
	}

	out := make([]domain.ContainerObservation, 0, len(summaries))
	for _, summary := range summaries {
		inspect, err := cli.ContainerInspect(ctx, summary.ID)
		if err != nil {
			if dockerCli.IsErrNotFound(err) {
				s.logger.Debug().Str("container", summary.ID).Msg("Container disappeared before inspect")
				continue
			}
			return nil, fmt.Errorf("inspecting container %s on %s: %w", summary.ID, server.ID, err)
		}
		out = append(out, FromInspect(inspect))
	}
	return out, nil
}

// Ping reports whether the server's Docker daemon answers.
func (s *Source) Ping(ctx context.Context, server domain.Server) error {
	cli, err := s.client(server)
	if err != nil {
		return err
	}
	if _, err := cli.Ping(ctx); err != nil {
		return fmt.Errorf("pinging docker on %s: %w", server.ID, err)
	}
	return nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for id, cli := range s.clients {
		if err := cli.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close docker client for %s: %w", id, err))
		}
		delete(s.clients, id)
	}
	return errors.Join(errs...)
}

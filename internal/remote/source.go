package remote

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/auto-dns/container-status-sync/internal/docker"
	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/auto-dns/container-status-sync/internal/shell"
	"github.com/rs/zerolog"
)

type runner interface {
	Run(ctx context.Context, server domain.Server, commands []string) (string, error)
}

var containerID = regexp.MustCompile(`^[0-9a-f]{12,64}$`)

// ContainerSource reads container state by running docker on the server
// over ssh and decoding `docker inspect` output.
type ContainerSource struct {
	logger zerolog.Logger
	runner runner
}

func NewContainerSource(r runner, logger zerolog.Logger) *ContainerSource {
	return &ContainerSource{logger: logger, runner: r}
}

func (s *ContainerSource) ListByLabel(ctx context.Context, server domain.Server, key, value string) ([]domain.ContainerObservation, error) {
	filter := shell.Quote(fmt.Sprintf("label=%s=%s", key, value))
	out, err := s.runner.Run(ctx, server, []string{"docker ps -aq --no-trunc --filter " + filter})
	if err != nil {
		return nil, fmt.Errorf("listing containers on %s: %w", server.ID, err)
	}

	var ids []string
	for _, line := range strings.Split(out, "\n") {
		id := strings.TrimSpace(line)
		if id == "" {
			continue
		}
		if !containerID.MatchString(id) {
			s.logger.Warn().Str("server", server.ID).Str("line", id).Msg("Ignoring unexpected docker ps output")
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	out, err = s.runner.Run(ctx, server, []string{"docker inspect " + strings.Join(ids, " ")})
	if err != nil {
		return nil, fmt.Errorf("inspecting containers on %s: %w", server.ID, err)
	}
	return docker.DecodeInspectJSON([]byte(out))
}

// Ping reports whether the server accepts commands.
func (s *ContainerSource) Ping(ctx context.Context, server domain.Server) error {
	_, err := s.runner.Run(ctx, server, []string{"true"})
	return err
}

package proxy

import (
	"fmt"
	"os"

	"github.com/auto-dns/container-status-sync/internal/config"
	"github.com/auto-dns/container-status-sync/internal/domain"
	"gopkg.in/yaml.v3"
)

const defaultImage = "traefik:v3.1"

type composeFile struct {
	Name     string                    `yaml:"name"`
	Services map[string]composeService `yaml:"services"`
	Networks map[string]composeNetwork `yaml:"networks,omitempty"`
}

type composeService struct {
	Image         string            `yaml:"image"`
	ContainerName string            `yaml:"container_name"`
	Restart       string            `yaml:"restart"`
	ExtraHosts    []string          `yaml:"extra_hosts,omitempty"`
	Networks      []string          `yaml:"networks,omitempty"`
	Ports         []string          `yaml:"ports"`
	Volumes       []string          `yaml:"volumes"`
	Command       []string          `yaml:"command"`
	Labels        map[string]string `yaml:"labels"`
	Healthcheck   *composeHealth    `yaml:"healthcheck,omitempty"`
}

type composeHealth struct {
	Test     []string `yaml:"test"`
	Interval string   `yaml:"interval"`
	Timeout  string   `yaml:"timeout"`
	Retries  int      `yaml:"retries"`
}

type composeNetwork struct {
	External bool `yaml:"external"`
}

// ComposeFile returns the proxy compose definition: the configured file when
// set, otherwise a generated Traefik definition.
func ComposeFile(cfg *config.ProxyConfig) (string, error) {
	if cfg.ComposeFile != "" {
		data, err := os.ReadFile(cfg.ComposeFile)
		if err != nil {
			return "", fmt.Errorf("reading proxy compose file: %w", err)
		}
		return string(data), nil
	}
	return defaultCompose(cfg)
}

func defaultCompose(cfg *config.ProxyConfig) (string, error) {
	networks := make(map[string]composeNetwork, len(cfg.Networks))
	for _, n := range cfg.Networks {
		networks[n] = composeNetwork{External: true}
	}

	svc := composeService{
		Image:         defaultImage,
		ContainerName: cfg.ContainerName,
		Restart:       "unless-stopped",
		ExtraHosts:    []string{"host.docker.internal:host-gateway"},
		Networks:      cfg.Networks,
		Ports:         []string{"80:80", "443:443", "443:443/udp", "8080:8080"},
		Volumes: []string{
			"/var/run/docker.sock:/var/run/docker.sock:ro",
			cfg.Path + ":/traefik",
		},
		Command: []string{
			"--ping=true",
			"--ping.entrypoint=http",
			"--api.dashboard=true",
			"--entrypoints.http.address=:80",
			"--entrypoints.https.address=:443",
			"--entrypoints.https.http3",
			"--providers.docker=true",
			"--providers.docker.exposedbydefault=false",
			"--providers.file.directory=/traefik/dynamic/",
			"--providers.file.watch=true",
		},
		Labels: map[string]string{
			domain.LabelProxy: "true",
			"traefik.enable":  "true",
			"traefik.http.routers.traefik.entrypoints": "http",
			"traefik.http.routers.traefik.service":     "api@internal",
		},
		Healthcheck: &composeHealth{
			Test:     []string{"CMD-SHELL", "wget -qO- http://localhost:80/ping || exit 1"},
			Interval: "4s",
			Timeout:  "2s",
			Retries:  5,
		},
	}

	out, err := yaml.Marshal(composeFile{
		Name:     "coolify-proxy",
		Services: map[string]composeService{"traefik": svc},
		Networks: networks,
	})
	if err != nil {
		return "", fmt.Errorf("rendering proxy compose file: %w", err)
	}
	return string(out), nil
}

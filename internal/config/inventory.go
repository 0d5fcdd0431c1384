package config

import (
	"fmt"
	"os"

	"github.com/auto-dns/container-status-sync/internal/domain"
)

func (sc ServerConfig) ToServer() domain.Server {
	port := sc.Port
	if port == 0 {
		port = 22
	}
	transport := domain.Transport(sc.Transport)
	if transport == "" {
		transport = domain.TransportSSH
	}
	user := sc.User
	if user == "" {
		user = "root"
	}
	return domain.Server{
		ID:           sc.ID,
		Name:         sc.Name,
		IP:           sc.IP,
		Port:         port,
		User:         user,
		Transport:    transport,
		DockerHost:   sc.DockerHost,
		IdentityFile: sc.IdentityFile,
		Disabled:     sc.Disabled,
		Proxy:        domain.ProxySettings{Enabled: sc.ProxyEnabled},
	}
}

// ToResource builds the domain resource, reading the compose file from disk
// when one is configured.
func (rc ResourceConfig) ToResource() (domain.Resource, error) {
	compose := rc.Compose
	if rc.ComposeFile != "" {
		data, err := os.ReadFile(rc.ComposeFile)
		if err != nil {
			return domain.Resource{}, fmt.Errorf("reading compose file for resource %s: %w", rc.ID, err)
		}
		compose = string(data)
	}
	kind := domain.ResourceKind(rc.Kind)
	if kind == "" {
		kind = domain.KindApplication
	}
	return domain.Resource{
		ID:                  rc.ID,
		UUID:                rc.UUID,
		Name:                rc.Name,
		Kind:                kind,
		ServerID:            rc.ServerID,
		AdditionalServerIDs: rc.AdditionalServerIDs,
		ComposeRaw:          compose,
		PullRequestID:       rc.PullRequestID,
	}, nil
}

// ServerMap returns the server inventory keyed by id.
func (c *Config) ServerMap() map[string]domain.Server {
	out := make(map[string]domain.Server, len(c.Servers))
	for _, sc := range c.Servers {
		out[sc.ID] = sc.ToServer()
	}
	return out
}

func (c *Config) ResourceList() ([]domain.Resource, error) {
	out := make([]domain.Resource, 0, len(c.Resources))
	for _, rc := range c.Resources {
		r, err := rc.ToResource()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

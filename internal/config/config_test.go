package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{PollInterval: 5, Concurrency: 2},
		Servers: []ServerConfig{
			{ID: "s1", IP: "10.0.0.1"},
			{ID: "s2", Transport: "docker", DockerHost: "unix:///var/run/docker.sock"},
		},
		Resources: []ResourceConfig{
			{ID: "app", ServerID: "s1", AdditionalServerIDs: []string{"s2"}},
		},
	}
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"poll interval", func(c *Config) { c.App.PollInterval = 0 }, "app.poll_interval"},
		{"concurrency", func(c *Config) { c.App.Concurrency = -1 }, "app.concurrency"},
		{"etcd endpoints", func(c *Config) { c.Etcd.Enabled = true }, "etcd.endpoints"},
		{"etcd lock ttl", func(c *Config) {
			c.Etcd = EtcdConfig{Enabled: true, Endpoints: []string{"http://etcd:2379"}, LockTTL: 0.5}
		}, "etcd.lock_ttl"},
		{"duplicate server", func(c *Config) { c.Servers = append(c.Servers, ServerConfig{ID: "s1", IP: "x"}) }, `duplicate id "s1"`},
		{"transport", func(c *Config) { c.Servers[0].Transport = "telnet" }, "unknown transport"},
		{"missing ip", func(c *Config) { c.Servers[0].IP = "" }, "ip is required"},
		{"proxy without ip", func(c *Config) { c.Servers[1].ProxyEnabled = true }, "ip is required to manage the proxy"},
		{"unknown server", func(c *Config) { c.Resources[0].ServerID = "nope" }, `unknown server "nope"`},
		{"unknown additional server", func(c *Config) { c.Resources[0].AdditionalServerIDs = []string{"s9"} }, `unknown additional server "s9"`},
		{"kind", func(c *Config) { c.Resources[0].Kind = "database" }, "unknown kind"},
		{"compose both", func(c *Config) {
			c.Resources[0].Compose = "services: {}"
			c.Resources[0].ComposeFile = "x.yaml"
		}, "mutually exclusive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestServerConfig_ToServerDefaults(t *testing.T) {
	s := ServerConfig{ID: "s1", IP: "10.0.0.1", ProxyEnabled: true}.ToServer()

	assert.Equal(t, 22, s.Port)
	assert.Equal(t, "root", s.User)
	assert.Equal(t, domain.TransportSSH, s.Transport)
	assert.True(t, s.Proxy.Enabled)
	assert.True(t, s.IsRoot())
}

func TestResourceConfig_ToResource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compose.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services:\n  web: {}\n"), 0o600))

	r, err := ResourceConfig{ID: "app", ServerID: "s1", ComposeFile: path}.ToResource()
	require.NoError(t, err)
	assert.Equal(t, "services:\n  web: {}\n", r.ComposeRaw)
	assert.Equal(t, domain.KindApplication, r.Kind)

	_, err = ResourceConfig{ID: "app", ComposeFile: filepath.Join(dir, "missing.yaml")}.ToResource()
	assert.Error(t, err)
}

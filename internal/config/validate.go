package config

import (
	"errors"
	"fmt"

	"github.com/auto-dns/container-status-sync/internal/domain"
)

// Validate checks the server and resource inventory for consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.App.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("app.poll_interval must be positive, got %d", c.App.PollInterval))
	}
	if c.App.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("app.concurrency must be positive, got %d", c.App.Concurrency))
	}
	if c.Etcd.Enabled && len(c.Etcd.Endpoints) == 0 {
		errs = append(errs, errors.New("etcd.endpoints must not be empty when etcd is enabled"))
	}
	if c.Etcd.Enabled && c.Etcd.LockTTL < 1 {
		errs = append(errs, fmt.Errorf("etcd.lock_ttl must be at least 1 second, got %g", c.Etcd.LockTTL))
	}

	servers := make(map[string]struct{}, len(c.Servers))
	for i, sc := range c.Servers {
		if sc.ID == "" {
			errs = append(errs, fmt.Errorf("servers[%d]: id is required", i))
			continue
		}
		if _, dup := servers[sc.ID]; dup {
			errs = append(errs, fmt.Errorf("servers[%d]: duplicate id %q", i, sc.ID))
		}
		servers[sc.ID] = struct{}{}
		if sc.Transport != "" && !domain.Transport(sc.Transport).IsValid() {
			errs = append(errs, fmt.Errorf("server %s: unknown transport %q", sc.ID, sc.Transport))
		}
		if sc.Transport != string(domain.TransportDocker) && sc.IP == "" {
			errs = append(errs, fmt.Errorf("server %s: ip is required for ssh transport", sc.ID))
		}
		if sc.ProxyEnabled && sc.IP == "" {
			errs = append(errs, fmt.Errorf("server %s: ip is required to manage the proxy", sc.ID))
		}
	}

	resources := make(map[string]struct{}, len(c.Resources))
	for i, rc := range c.Resources {
		if rc.ID == "" {
			errs = append(errs, fmt.Errorf("resources[%d]: id is required", i))
			continue
		}
		if _, dup := resources[rc.ID]; dup {
			errs = append(errs, fmt.Errorf("resources[%d]: duplicate id %q", i, rc.ID))
		}
		resources[rc.ID] = struct{}{}
		if rc.Kind != "" && rc.Kind != string(domain.KindApplication) && rc.Kind != string(domain.KindService) {
			errs = append(errs, fmt.Errorf("resource %s: unknown kind %q", rc.ID, rc.Kind))
		}
		if _, ok := servers[rc.ServerID]; !ok {
			errs = append(errs, fmt.Errorf("resource %s: unknown server %q", rc.ID, rc.ServerID))
		}
		for _, id := range rc.AdditionalServerIDs {
			if _, ok := servers[id]; !ok {
				errs = append(errs, fmt.Errorf("resource %s: unknown additional server %q", rc.ID, id))
			}
		}
		if rc.ComposeFile != "" && rc.Compose != "" {
			errs = append(errs, fmt.Errorf("resource %s: compose and compose_file are mutually exclusive", rc.ID))
		}
	}

	return errors.Join(errs...)
}

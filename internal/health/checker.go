package health

import (
	"context"
	"sync"
	"time"

	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/rs/zerolog"
)

type pinger interface {
	Ping(ctx context.Context, server domain.Server) error
}

type entry struct {
	functional bool
	checkedAt  time.Time
}

// Checker answers whether a server is functional. Results are cached for
// ttl so one tick does not ping the same server for every resource.
type Checker struct {
	logger      zerolog.Logger
	ttl         time.Duration
	pingTimeout time.Duration
	ssh         pinger
	docker      pinger
	now         func() time.Time

	mu    sync.Mutex
	cache map[string]entry
}

// NewChecker builds a checker whose pings give up after pingTimeout. A
// ping that times out marks the server as not functional.
func NewChecker(ssh, docker pinger, ttl, pingTimeout time.Duration, logger zerolog.Logger) *Checker {
	return &Checker{
		logger:      logger,
		ttl:         ttl,
		pingTimeout: pingTimeout,
		ssh:         ssh,
		docker:      docker,
		now:         time.Now,
		cache:       make(map[string]entry),
	}
}

func (c *Checker) IsFunctional(ctx context.Context, server domain.Server) bool {
	if server.Disabled {
		return false
	}

	c.mu.Lock()
	cached, ok := c.cache[server.ID]
	c.mu.Unlock()
	if ok && c.now().Sub(cached.checkedAt) < c.ttl {
		return cached.functional
	}

	p := c.ssh
	if server.Transport == domain.TransportDocker {
		p = c.docker
	}
	functional := p != nil
	if functional {
		if err := c.ping(ctx, p, server); err != nil {
			c.logger.Warn().Err(err).Str("server", server.ID).Msg("Server is not functional")
			functional = false
		}
	}

	if functional != cached.functional || !ok {
		c.logger.Info().Str("server", server.ID).Bool("functional", functional).Msg("Server reachability changed")
	}

	c.mu.Lock()
	c.cache[server.ID] = entry{functional: functional, checkedAt: c.now()}
	c.mu.Unlock()
	return functional
}

func (c *Checker) ping(ctx context.Context, p pinger, server domain.Server) error {
	if c.pingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.pingTimeout)
		defer cancel()
	}
	return p.Ping(ctx, server)
}

// Invalidate drops the cached result for a server.
func (c *Checker) Invalidate(serverID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, serverID)
}

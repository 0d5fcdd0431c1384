package main

import (
	"context"

	"github.com/auto-dns/container-status-sync/internal/proxy"
)

type application interface {
	Run(ctx context.Context) error
	Close() error
}

type proxyApplication interface {
	ProxyAction(ctx context.Context, action, serverID string, opts proxy.StopOptions) error
	Close() error
	CloseStore() error
}

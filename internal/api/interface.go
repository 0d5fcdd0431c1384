package api

import (
	"context"

	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/auto-dns/container-status-sync/internal/proxy"
)

type statusReader interface {
	List(ctx context.Context) ([]domain.StatusRecord, error)
	ListResource(ctx context.Context, resourceID string) ([]domain.StatusRecord, error)
	GetProxy(ctx context.Context, serverID string) (domain.ProxyRecord, bool, error)
}

type inventory interface {
	Server(id string) (domain.Server, bool)
	Resource(id string) (domain.Resource, bool)
}

type proxyController interface {
	Start(ctx context.Context, server domain.Server) error
	Stop(ctx context.Context, server domain.Server, opts proxy.StopOptions) error
	Restart(ctx context.Context, server domain.Server) error
}

type resourceReconciler interface {
	ReconcileResource(ctx context.Context, resource domain.Resource) error
}

type eventLog interface {
	StatusChanges() []domain.StatusChange
	ProxyEvents() []domain.ProxyStatusChanged
}

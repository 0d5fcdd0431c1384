package core

import (
	"context"

	"github.com/auto-dns/container-status-sync/internal/docker"
	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/auto-dns/container-status-sync/internal/exclusion"
)

// ContainerSource lists the containers on a server carrying a label.
type ContainerSource interface {
	ListByLabel(ctx context.Context, server domain.Server, key, value string) ([]domain.ContainerObservation, error)
}

type serverHealth interface {
	IsFunctional(ctx context.Context, server domain.Server) bool
}

type statusResolver interface {
	Resolve(containers []domain.ContainerObservation, excluded exclusion.Set, maxRestartCount int) domain.AggregatedStatus
}

type statusStore interface {
	LockTransaction(ctx context.Context, keys []string, fn func() error) error
	Get(ctx context.Context, att domain.Attachment) (domain.StatusRecord, bool, error)
	Put(ctx context.Context, record domain.StatusRecord) error
	Delete(ctx context.Context, att domain.Attachment) error
	List(ctx context.Context) ([]domain.StatusRecord, error)
	GetProxy(ctx context.Context, serverID string) (domain.ProxyRecord, bool, error)
	Close() error
}

type notifier interface {
	StatusChanged(ctx context.Context, change domain.StatusChange)
}

type reconciler interface {
	Reconcile(ctx context.Context, resource domain.Resource) ([]domain.StatusChange, error)
}

type proxyStarter interface {
	Start(ctx context.Context, server domain.Server) error
}

type eventWatcher interface {
	Watch(ctx context.Context, server domain.Server) (<-chan docker.Trigger, error)
}

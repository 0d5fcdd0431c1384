package registry

import (
	"context"

	"github.com/auto-dns/container-status-sync/internal/domain"
)

// StatusStore persists attachment statuses and proxy records, and provides
// mutual exclusion for concurrent reconcilers.
type StatusStore interface {
	LockTransaction(ctx context.Context, keys []string, fn func() error) error
	Get(ctx context.Context, att domain.Attachment) (domain.StatusRecord, bool, error)
	Put(ctx context.Context, record domain.StatusRecord) error
	Delete(ctx context.Context, att domain.Attachment) error
	List(ctx context.Context) ([]domain.StatusRecord, error)
	ListResource(ctx context.Context, resourceID string) ([]domain.StatusRecord, error)
	GetProxy(ctx context.Context, serverID string) (domain.ProxyRecord, bool, error)
	PutProxy(ctx context.Context, record domain.ProxyRecord) error
	Close() error
}

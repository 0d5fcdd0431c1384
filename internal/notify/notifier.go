package notify

import (
	"context"

	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/google/uuid"
)

// Notifier receives status events after they have been persisted.
type Notifier interface {
	StatusChanged(ctx context.Context, change domain.StatusChange)
	ProxyStatusChanged(ctx context.Context, event domain.ProxyStatusChanged)
}

func NewEventID() string {
	return uuid.NewString()
}

// Multi fans every event out to each notifier in order.
type Multi []Notifier

func (m Multi) StatusChanged(ctx context.Context, change domain.StatusChange) {
	for _, n := range m {
		n.StatusChanged(ctx, change)
	}
}

func (m Multi) ProxyStatusChanged(ctx context.Context, event domain.ProxyStatusChanged) {
	for _, n := range m {
		n.ProxyStatusChanged(ctx, event)
	}
}

package notify

import (
	"context"
	"sync"

	"github.com/auto-dns/container-status-sync/internal/domain"
)

// Recorder keeps the most recent events in memory for the API.
type Recorder struct {
	mu       sync.RWMutex
	capacity int
	changes  []domain.StatusChange
	proxies  []domain.ProxyStatusChanged
}

func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = 100
	}
	return &Recorder{capacity: capacity}
}

func (r *Recorder) StatusChanged(_ context.Context, change domain.StatusChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = appendBounded(r.changes, change, r.capacity)
}

func (r *Recorder) ProxyStatusChanged(_ context.Context, event domain.ProxyStatusChanged) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proxies = appendBounded(r.proxies, event, r.capacity)
}

// StatusChanges returns recorded changes, oldest first.
func (r *Recorder) StatusChanges() []domain.StatusChange {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.StatusChange(nil), r.changes...)
}

func (r *Recorder) ProxyEvents() []domain.ProxyStatusChanged {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.ProxyStatusChanged(nil), r.proxies...)
}

func appendBounded[T any](s []T, v T, capacity int) []T {
	s = append(s, v)
	if len(s) > capacity {
		s = s[len(s)-capacity:]
	}
	return s
}

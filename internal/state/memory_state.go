package state

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/auto-dns/container-status-sync/internal/domain"
)

// MemoryState stores statuses in process. It is used when etcd is disabled
// and by the one-shot CLI commands.
type MemoryState struct {
	mu      sync.RWMutex
	records map[string]domain.StatusRecord
	proxies map[string]domain.ProxyRecord

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

func NewMemoryState() *MemoryState {
	return &MemoryState{
		records: make(map[string]domain.StatusRecord),
		proxies: make(map[string]domain.ProxyRecord),
		locks:   make(map[string]chan struct{}),
	}
}

func (s *MemoryState) Get(_ context.Context, att domain.Attachment) (domain.StatusRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[att.Key()]
	if ok && rec.Primary != att.Primary {
		return domain.StatusRecord{}, false, nil
	}
	return rec, ok, nil
}

func (s *MemoryState) Put(_ context.Context, record domain.StatusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Attachment().Key()] = record
	return nil
}

func (s *MemoryState) Delete(_ context.Context, att domain.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, att.Key())
	return nil
}

// List returns every record ordered by resource, primary first.
func (s *MemoryState) List(_ context.Context) ([]domain.StatusRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.StatusRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func (s *MemoryState) ListResource(ctx context.Context, resourceID string) ([]domain.StatusRecord, error) {
	all, _ := s.List(ctx)
	return slices.DeleteFunc(all, func(rec domain.StatusRecord) bool {
		return rec.ResourceID != resourceID
	}), nil
}

func (s *MemoryState) GetProxy(_ context.Context, serverID string) (domain.ProxyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.proxies[serverID]
	return rec, ok, nil
}

func (s *MemoryState) PutProxy(_ context.Context, record domain.ProxyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proxies[record.ServerID] = record
	return nil
}

// LockTransaction holds an in-process lock on every key while fn runs.
// It waits until the locks are free or ctx ends.
func (s *MemoryState) LockTransaction(ctx context.Context, keys []string, fn func() error) error {
	uniqueKeys := slices.Clone(keys)
	slices.Sort(uniqueKeys)
	uniqueKeys = slices.Compact(uniqueKeys)

	held := make([]chan struct{}, 0, len(uniqueKeys))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}()

	for _, key := range uniqueKeys {
		lock := s.lockFor(key)
		select {
		case lock <- struct{}{}:
			held = append(held, lock)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fn()
}

func (s *MemoryState) lockFor(key string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = make(chan struct{}, 1)
		s.locks[key] = lock
	}
	return lock
}

func (s *MemoryState) Close() error {
	return nil
}

func sortRecords(records []domain.StatusRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.ResourceID != b.ResourceID {
			return a.ResourceID < b.ResourceID
		}
		if a.Primary != b.Primary {
			return a.Primary
		}
		return a.ServerID < b.ServerID
	})
}

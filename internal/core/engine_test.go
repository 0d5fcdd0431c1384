package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/auto-dns/container-status-sync/internal/config"
	"github.com/auto-dns/container-status-sync/internal/docker"
	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/auto-dns/container-status-sync/internal/state"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReconciler struct {
	mu        sync.Mutex
	calls     map[string]int
	active    int32
	maxActive int32
	errFor    string
	changes   []domain.StatusChange
}

func (f *fakeReconciler) Reconcile(_ context.Context, resource domain.Resource) ([]domain.StatusChange, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		m := atomic.LoadInt32(&f.maxActive)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxActive, m, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[resource.ID]++
	if resource.ID == f.errFor {
		return nil, errors.New("store down")
	}
	return f.changes, nil
}

func (f *fakeReconciler) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []domain.StatusChange
}

func (n *recordingNotifier) StatusChanged(_ context.Context, c domain.StatusChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
}

type fakeWatcher struct {
	ch      chan docker.Trigger
	watched []string
}

func (w *fakeWatcher) Watch(_ context.Context, server domain.Server) (<-chan docker.Trigger, error) {
	w.watched = append(w.watched, server.ID)
	return w.ch, nil
}

func testInventory(n int) *Inventory {
	servers := map[string]domain.Server{
		"s1": {ID: "s1", Transport: domain.TransportSSH},
		"d1": {ID: "d1", Transport: domain.TransportDocker},
	}
	var resources []domain.Resource
	for i := 0; i < n; i++ {
		resources = append(resources, domain.Resource{ID: string(rune('a' + i)), ServerID: "s1"})
	}
	return NewInventory(servers, resources)
}

func TestSyncEngine_TickBoundedConcurrency(t *testing.T) {
	rec := &fakeReconciler{}
	cfg := &config.AppConfig{PollInterval: 1, Concurrency: 2}
	se := NewSyncEngine(zerolog.Nop(), cfg, testInventory(6), rec, state.NewMemoryState(), &recordingNotifier{}, nil, nil)

	require.NoError(t, se.Tick(context.Background()))
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		assert.Equal(t, 1, rec.count(id))
	}
	assert.LessOrEqual(t, rec.maxActive, int32(2))
}

func TestSyncEngine_TickCollectsErrors(t *testing.T) {
	rec := &fakeReconciler{errFor: "b"}
	cfg := &config.AppConfig{PollInterval: 1, Concurrency: 4}
	se := NewSyncEngine(zerolog.Nop(), cfg, testInventory(3), rec, state.NewMemoryState(), &recordingNotifier{}, nil, nil)

	err := se.Tick(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reconciling resource b")
	assert.Equal(t, 1, rec.count("a"))
	assert.Equal(t, 1, rec.count("c"))
}

func TestSyncEngine_PublishesChanges(t *testing.T) {
	change := domain.StatusChange{ID: "1", ResourceID: "a", ServerID: "s1", Current: domain.RunningHealthy}
	rec := &fakeReconciler{changes: []domain.StatusChange{change}}
	n := &recordingNotifier{}
	se := NewSyncEngine(zerolog.Nop(), &config.AppConfig{Concurrency: 1}, testInventory(1), rec, state.NewMemoryState(), n, nil, nil)

	require.NoError(t, se.ReconcileResource(context.Background(), domain.Resource{ID: "a", ServerID: "s1"}))
	assert.Equal(t, []domain.StatusChange{change}, n.changes)
}

func TestSyncEngine_Prune(t *testing.T) {
	store := state.NewMemoryState()
	ctx := context.Background()
	keep := domain.StatusRecord{ResourceID: "a", ServerID: "s1", Primary: true, Status: domain.RunningHealthy}
	gone := domain.StatusRecord{ResourceID: "zz", ServerID: "s1", Primary: true, Status: domain.RunningHealthy}
	detached := domain.StatusRecord{ResourceID: "a", ServerID: "s9", Status: domain.RunningHealthy}
	for _, r := range []domain.StatusRecord{keep, gone, detached} {
		require.NoError(t, store.Put(ctx, r))
	}

	se := NewSyncEngine(zerolog.Nop(), &config.AppConfig{Concurrency: 1}, testInventory(1), &fakeReconciler{}, store, &recordingNotifier{}, nil, nil)
	pruned, err := se.Prune(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Attachment{gone.Attachment(), detached.Attachment()}, pruned)

	left, _ := store.List(ctx)
	assert.Equal(t, []domain.StatusRecord{keep}, left)
}

func TestSyncEngine_RunReactsToEvents(t *testing.T) {
	rec := &fakeReconciler{}
	w := &fakeWatcher{ch: make(chan docker.Trigger, 1)}
	cfg := &config.AppConfig{PollInterval: 3600, Concurrency: 1, WatchEvents: true}
	se := NewSyncEngine(zerolog.Nop(), cfg, testInventory(2), rec, state.NewMemoryState(), &recordingNotifier{}, nil, w)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- se.Run(ctx) }()

	assert.Eventually(t, func() bool { return rec.count("a") == 1 && rec.count("b") == 1 }, time.Second, 5*time.Millisecond)

	w.ch <- docker.Trigger{ResourceID: "b", ServerID: "d1"}
	w.ch <- docker.Trigger{ResourceID: "unmanaged", ServerID: "d1"}
	assert.Eventually(t, func() bool { return rec.count("b") == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, rec.count("a"))
	assert.Equal(t, []string{"d1"}, w.watched)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
}

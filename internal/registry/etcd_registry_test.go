package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/auto-dns/container-status-sync/internal/config"
	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// fakeEtcd is an in-process stand-in for the etcd KV and lease APIs used by
// the registry.
type fakeEtcd struct {
	mu      sync.Mutex
	data    map[string]string
	leases  clientv3.LeaseID
	revoked []clientv3.LeaseID
	closed  bool

	// keptAlive holds the leases currently being renewed.
	keptAlive map[clientv3.LeaseID]bool
}

func newFakeEtcd() *fakeEtcd {
	return &fakeEtcd{data: map[string]string{}, keptAlive: map[clientv3.LeaseID]bool{}}
}

func (f *fakeEtcd) Get(_ context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	op := clientv3.OpGet(key, opts...)
	end := string(op.RangeBytes())
	var keys []string
	for k := range f.data {
		if k == key || (end != "" && k >= key && k < end) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	resp := &clientv3.GetResponse{}
	for _, k := range keys {
		resp.Kvs = append(resp.Kvs, &mvccpb.KeyValue{Key: []byte(k), Value: []byte(f.data[k])})
	}
	return resp, nil
}

func (f *fakeEtcd) Put(_ context.Context, key, val string, _ ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = val
	return &clientv3.PutResponse{}, nil
}

func (f *fakeEtcd) Delete(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.DeleteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return &clientv3.DeleteResponse{}, nil
}

func (f *fakeEtcd) Grant(context.Context, int64) (*clientv3.LeaseGrantResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leases++
	return &clientv3.LeaseGrantResponse{ID: f.leases}, nil
}

func (f *fakeEtcd) Revoke(_ context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, id)
	return &clientv3.LeaseRevokeResponse{}, nil
}

func (f *fakeEtcd) KeepAlive(ctx context.Context, id clientv3.LeaseID) (<-chan *clientv3.LeaseKeepAliveResponse, error) {
	f.mu.Lock()
	f.keptAlive[id] = true
	f.mu.Unlock()

	ch := make(chan *clientv3.LeaseKeepAliveResponse, 1)
	ch <- &clientv3.LeaseKeepAliveResponse{ID: id, TTL: 5}
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		f.keptAlive[id] = false
		f.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

func (f *fakeEtcd) renewing() []clientv3.LeaseID {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []clientv3.LeaseID
	for id, on := range f.keptAlive {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (f *fakeEtcd) Txn(context.Context) clientv3.Txn {
	return &fakeTxn{etcd: f}
}

func (f *fakeEtcd) Close() error {
	f.closed = true
	return nil
}

// fakeTxn supports the create-if-absent transaction used for locks.
type fakeTxn struct {
	etcd *fakeEtcd
	cmps []clientv3.Cmp
	ops  []clientv3.Op
}

func (t *fakeTxn) If(cs ...clientv3.Cmp) clientv3.Txn   { t.cmps = cs; return t }
func (t *fakeTxn) Then(ops ...clientv3.Op) clientv3.Txn { t.ops = ops; return t }
func (t *fakeTxn) Else(...clientv3.Op) clientv3.Txn     { return t }

func (t *fakeTxn) Commit() (*clientv3.TxnResponse, error) {
	t.etcd.mu.Lock()
	defer t.etcd.mu.Unlock()
	for _, c := range t.cmps {
		if _, exists := t.etcd.data[string(c.KeyBytes())]; exists {
			return &clientv3.TxnResponse{Succeeded: false}, nil
		}
	}
	for _, op := range t.ops {
		if op.IsPut() {
			t.etcd.data[string(op.KeyBytes())] = string(op.ValueBytes())
		}
	}
	return &clientv3.TxnResponse{Succeeded: true}, nil
}

func newTestRegistry(f *fakeEtcd) *EtcdRegistry {
	cfg := &config.EtcdConfig{PathPrefix: "/css", LockTTL: 5, LockTimeout: 0.05, LockRetryInterval: 0.01}
	return NewEtcdRegistry(f, cfg, "node-a", zerolog.Nop())
}

func TestEtcdRegistry_PutGetList(t *testing.T) {
	f := newFakeEtcd()
	reg := newTestRegistry(f)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	primary := domain.StatusRecord{ResourceID: "app", ServerID: "s1", Primary: true, Status: domain.RunningHealthy, UpdatedAt: at}
	extra := domain.StatusRecord{ResourceID: "app", ServerID: "s2", Status: domain.ExitedUnhealthy, UpdatedAt: at}
	other := domain.StatusRecord{ResourceID: "db", ServerID: "s1", Primary: true, Status: domain.RunningUnknown, UpdatedAt: at}
	for _, rec := range []domain.StatusRecord{primary, extra, other} {
		require.NoError(t, reg.Put(ctx, rec))
	}

	assert.Contains(t, f.data, "/css/resources/app/status")
	assert.Contains(t, f.data, "/css/resources/app/servers/s2")
	assert.Contains(t, f.data["/css/resources/app/status"], `"owner_hostname":"node-a"`)

	got, ok, err := reg.Get(ctx, primary.Attachment())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, primary, got)

	_, ok, err = reg.Get(ctx, domain.Attachment{ResourceID: "app", ServerID: "s9", Primary: true})
	require.NoError(t, err)
	assert.False(t, ok, "primary record of another server is not returned")

	all, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	app, err := reg.ListResource(ctx, "app")
	require.NoError(t, err)
	assert.Len(t, app, 2)

	require.NoError(t, reg.Delete(ctx, extra.Attachment()))
	app, err = reg.ListResource(ctx, "app")
	require.NoError(t, err)
	assert.Len(t, app, 1)
}

func TestEtcdRegistry_ListSkipsCorrupt(t *testing.T) {
	f := newFakeEtcd()
	f.data["/css/resources/app/status"] = "not json"
	f.data["/css/resources/app/servers/s2"] = `{"resource_id":"app","server_id":"s2","status":"bogus"}`
	reg := newTestRegistry(f)

	got, err := reg.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEtcdRegistry_Proxy(t *testing.T) {
	reg := newTestRegistry(newFakeEtcd())
	ctx := context.Background()

	_, ok, err := reg.GetProxy(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	rec := domain.ProxyRecord{ServerID: "s1", Status: domain.ProxyExited, ForceStop: true, UpdatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, reg.PutProxy(ctx, rec))

	got, ok, err := reg.GetProxy(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestEtcdRegistry_LockTransaction(t *testing.T) {
	f := newFakeEtcd()
	reg := newTestRegistry(f)
	ctx := context.Background()

	ran := false
	err := reg.LockTransaction(ctx, []string{"resource/b", "resource/a", "resource/b"}, func() error {
		ran = true
		assert.Contains(t, f.data, "/css/locks/resource/a")
		assert.Contains(t, f.data, "/css/locks/resource/b")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	for k := range f.data {
		assert.False(t, strings.HasPrefix(k, "/css/locks/"), "lock %s not released", k)
	}
	assert.Len(t, f.revoked, 2)
}

func TestEtcdRegistry_LockLeasesRenewedWhileHeld(t *testing.T) {
	f := newFakeEtcd()
	reg := newTestRegistry(f)
	ctx, cancel := context.WithCancel(context.Background())

	err := reg.LockTransaction(ctx, []string{"resource/a", "resource/b"}, func() error {
		assert.Equal(t, []clientv3.LeaseID{1, 2}, f.renewing())
		// Cancelling the caller must not stop renewal while fn still runs.
		cancel()
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, []clientv3.LeaseID{1, 2}, f.renewing())
		return nil
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return len(f.renewing()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestEtcdRegistry_LockContention(t *testing.T) {
	f := newFakeEtcd()
	f.data["/css/locks/resource/a"] = "node-b"
	reg := newTestRegistry(f)

	err := reg.LockTransaction(context.Background(), []string{"resource/a"}, func() error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	var lockErr *LockError
	require.ErrorAs(t, err, &lockErr)
	assert.Equal(t, "node-b", f.data["/css/locks/resource/a"])
	assert.Len(t, f.revoked, 1)
}

func TestEtcdRegistry_Close(t *testing.T) {
	f := newFakeEtcd()
	require.NoError(t, newTestRegistry(f).Close())
	assert.True(t, f.closed)
}

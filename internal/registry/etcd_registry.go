package registry

import (
	"context"
	"fmt"
	"slices"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/auto-dns/container-status-sync/internal/config"
	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/rs/zerolog"
)

type etcdClient interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error)
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
	Txn(ctx context.Context) clientv3.Txn
	Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error)
	KeepAlive(ctx context.Context, id clientv3.LeaseID) (<-chan *clientv3.LeaseKeepAliveResponse, error)
	Close() error
}

type heldLease struct {
	lockKey string
	lease   clientv3.LeaseID
}

type EtcdRegistry struct {
	client   etcdClient
	cfg      *config.EtcdConfig
	hostname string
	logger   zerolog.Logger
}

func NewEtcdRegistry(client etcdClient, cfg *config.EtcdConfig, hostname string, logger zerolog.Logger) *EtcdRegistry {
	return &EtcdRegistry{
		client:   client,
		cfg:      cfg,
		hostname: hostname,
		logger:   logger,
	}
}

// Get returns the stored status for an attachment. A primary record written
// for a different server is reported as absent.
func (er *EtcdRegistry) Get(ctx context.Context, att domain.Attachment) (domain.StatusRecord, bool, error) {
	key := attachmentKey(er.cfg.PathPrefix, att)
	resp, err := er.client.Get(ctx, key)
	if err != nil {
		return domain.StatusRecord{}, false, err
	}
	if len(resp.Kvs) == 0 {
		return domain.StatusRecord{}, false, nil
	}
	rec, err := unmarshalStatus(resp.Kvs[0].Value)
	if err != nil {
		return domain.StatusRecord{}, false, fmt.Errorf("parsing key %s: %w", key, err)
	}
	if rec.ServerID != att.ServerID {
		return domain.StatusRecord{}, false, nil
	}
	return rec, true, nil
}

func (er *EtcdRegistry) Put(ctx context.Context, record domain.StatusRecord) error {
	value, err := marshalStatus(record, er.hostname)
	if err != nil {
		return err
	}
	_, err = er.client.Put(ctx, attachmentKey(er.cfg.PathPrefix, record.Attachment()), value)
	return err
}

func (er *EtcdRegistry) Delete(ctx context.Context, att domain.Attachment) error {
	key := attachmentKey(er.cfg.PathPrefix, att)
	if _, err := er.client.Delete(ctx, key); err != nil {
		er.logger.Warn().Err(err).Msgf("[etcd_registry] Failed to delete key %s", key)
		return err
	}
	er.logger.Info().Msgf("[etcd_registry] Deleted key %s", key)
	return nil
}

// List retrieves every status record stored under the configured prefix.
func (er *EtcdRegistry) List(ctx context.Context) ([]domain.StatusRecord, error) {
	return er.list(ctx, resourcesPrefix(er.cfg.PathPrefix))
}

func (er *EtcdRegistry) ListResource(ctx context.Context, resourceID string) ([]domain.StatusRecord, error) {
	return er.list(ctx, resourcePrefix(er.cfg.PathPrefix, resourceID))
}

func (er *EtcdRegistry) list(ctx context.Context, prefix string) ([]domain.StatusRecord, error) {
	resp, err := er.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	records := make([]domain.StatusRecord, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		rec, err := unmarshalStatus(kv.Value)
		if err != nil {
			er.logger.Error().Err(err).Msgf("[etcd_registry] Failed to parse key: %s", kv.Key)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (er *EtcdRegistry) GetProxy(ctx context.Context, serverID string) (domain.ProxyRecord, bool, error) {
	resp, err := er.client.Get(ctx, proxyKey(er.cfg.PathPrefix, serverID))
	if err != nil {
		return domain.ProxyRecord{}, false, err
	}
	if len(resp.Kvs) == 0 {
		return domain.ProxyRecord{}, false, nil
	}
	rec, err := unmarshalProxy(resp.Kvs[0].Value)
	if err != nil {
		return domain.ProxyRecord{}, false, err
	}
	return rec, true, nil
}

func (er *EtcdRegistry) PutProxy(ctx context.Context, record domain.ProxyRecord) error {
	value, err := marshalProxy(record)
	if err != nil {
		return err
	}
	_, err = er.client.Put(ctx, proxyKey(er.cfg.PathPrefix, record.ServerID), value)
	return err
}

// LockTransaction provides a distributed lock using etcd transactions.
// It takes keys (as a slice of string), tries to acquire locks on all of them
// in sorted order, runs the function, and finally releases all locks. The
// leases are kept alive while fn runs, so fn may outlast the lock TTL.
func (er *EtcdRegistry) LockTransaction(ctx context.Context, keys []string, fn func() error) error {
	uniqueKeys := slices.Clone(keys)
	slices.Sort(uniqueKeys)
	uniqueKeys = slices.Compact(uniqueKeys)

	ttl := int64(er.cfg.LockTTL)
	if ttl < 1 {
		ttl = 1
	}
	timeout := time.Duration(er.cfg.LockTimeout * float64(time.Second))
	retry := time.Duration(er.cfg.LockRetryInterval * float64(time.Second))

	leases := make([]heldLease, 0, len(uniqueKeys))
	defer func() {
		// Release the locks in reverse order.
		for i := len(leases) - 1; i >= 0; i-- {
			er.release(leases[i])
		}
	}()

	for _, key := range uniqueKeys {
		held, err := er.acquire(ctx, key, ttl, timeout, retry)
		if err != nil {
			return err
		}
		leases = append(leases, held)
	}

	keepCtx, stopKeepAlive := context.WithCancel(context.WithoutCancel(ctx))
	defer stopKeepAlive()
	for _, held := range leases {
		if err := er.keepAlive(keepCtx, held); err != nil {
			return err
		}
	}

	// Execute the provided function with locks held.
	return fn()
}

// keepAlive renews the lease until ctx ends. Responses are drained so the
// client keeps sending renewals; a closed channel before ctx ends means the
// lease was lost.
func (er *EtcdRegistry) keepAlive(ctx context.Context, l heldLease) error {
	ch, err := er.client.KeepAlive(ctx, l.lease)
	if err != nil {
		return NewLockError(l.lockKey, fmt.Errorf("failed to keep lease alive: %w", err))
	}
	go func() {
		for range ch {
		}
		if ctx.Err() == nil {
			er.logger.Warn().Msgf("[etcd_registry] Lease for %s expired while held", l.lockKey)
		}
	}()
	return nil
}

func (er *EtcdRegistry) acquire(ctx context.Context, key string, ttl int64, timeout, retry time.Duration) (heldLease, error) {
	lk := lockKey(er.cfg.PathPrefix, key)
	leaseResp, err := er.client.Grant(ctx, ttl)
	if err != nil {
		return heldLease{}, NewLockError(key, fmt.Errorf("failed to create lease: %w", err))
	}

	deadline := time.Now().Add(timeout)
	for {
		txnResp, err := er.client.Txn(ctx).
			If(clientv3.Compare(clientv3.CreateRevision(lk), "=", 0)).
			Then(clientv3.OpPut(lk, er.hostname, clientv3.WithLease(leaseResp.ID))).
			Commit()
		if err != nil {
			er.revoke(leaseResp.ID, lk)
			return heldLease{}, NewLockError(key, err)
		}
		if txnResp.Succeeded {
			return heldLease{lockKey: lk, lease: leaseResp.ID}, nil
		}
		if !time.Now().Before(deadline) {
			er.revoke(leaseResp.ID, lk)
			return heldLease{}, NewLockError(key, nil)
		}
		select {
		case <-ctx.Done():
			er.revoke(leaseResp.ID, lk)
			return heldLease{}, NewLockError(key, ctx.Err())
		case <-time.After(retry):
		}
	}
}

func (er *EtcdRegistry) release(l heldLease) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := er.client.Delete(ctx, l.lockKey); err != nil {
		er.logger.Warn().Err(err).Msgf("failed to delete lock key %s", l.lockKey)
	}
	er.revoke(l.lease, l.lockKey)
}

func (er *EtcdRegistry) revoke(id clientv3.LeaseID, lk string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := er.client.Revoke(ctx, id); err != nil {
		er.logger.Warn().Err(err).Msgf("failed to revoke lease for %s", lk)
	}
}

func (er *EtcdRegistry) Close() error {
	return er.client.Close()
}

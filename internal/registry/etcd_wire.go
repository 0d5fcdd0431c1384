package registry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/auto-dns/container-status-sync/internal/domain"
)

type etcdStatus struct {
	ResourceID string    `json:"resource_id"`
	ServerID   string    `json:"server_id"`
	Primary    bool      `json:"primary"`
	Status     string    `json:"status"`
	UpdatedAt  time.Time `json:"updated_at"`
	Owner      string    `json:"owner_hostname"`
}

type etcdProxy struct {
	ServerID  string    `json:"server_id"`
	Status    string    `json:"status"`
	ForceStop bool      `json:"force_stop"`
	UpdatedAt time.Time `json:"updated_at"`
}

func marshalStatus(rec domain.StatusRecord, owner string) (string, error) {
	wire := etcdStatus{
		ResourceID: rec.ResourceID,
		ServerID:   rec.ServerID,
		Primary:    rec.Primary,
		Status:     rec.Status.String(),
		UpdatedAt:  rec.UpdatedAt,
		Owner:      owner,
	}
	b, err := json.Marshal(wire)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalStatus(raw []byte) (domain.StatusRecord, error) {
	var wire etcdStatus
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.StatusRecord{}, fmt.Errorf("decode etcd value: %w", err)
	}
	status, err := domain.ParseAggregatedStatus(wire.Status)
	if err != nil {
		return domain.StatusRecord{}, err
	}
	return domain.StatusRecord{
		ResourceID: wire.ResourceID,
		ServerID:   wire.ServerID,
		Primary:    wire.Primary,
		Status:     status,
		UpdatedAt:  wire.UpdatedAt,
	}, nil
}

func marshalProxy(rec domain.ProxyRecord) (string, error) {
	b, err := json.Marshal(etcdProxy{
		ServerID:  rec.ServerID,
		Status:    string(rec.Status),
		ForceStop: rec.ForceStop,
		UpdatedAt: rec.UpdatedAt,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalProxy(raw []byte) (domain.ProxyRecord, error) {
	var wire etcdProxy
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.ProxyRecord{}, fmt.Errorf("decode etcd value: %w", err)
	}
	return domain.ProxyRecord{
		ServerID:  wire.ServerID,
		Status:    domain.ProxyStatus(wire.Status),
		ForceStop: wire.ForceStop,
		UpdatedAt: wire.UpdatedAt,
	}, nil
}

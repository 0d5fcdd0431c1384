package domain

import (
	"fmt"
	"time"
)

// StatusRecord is the persisted status of one attachment. Primary records
// live on the resource; additional-server records live on the pivot.
type StatusRecord struct {
	ResourceID string
	ServerID   string
	Primary    bool
	Status     AggregatedStatus
	UpdatedAt  time.Time
}

func (sr StatusRecord) Attachment() Attachment {
	return Attachment{ResourceID: sr.ResourceID, ServerID: sr.ServerID, Primary: sr.Primary}
}

func (sr StatusRecord) Render() string {
	return fmt.Sprintf("%s on %s (primary=%t) = %s at %s", sr.ResourceID, sr.ServerID, sr.Primary, sr.Status, sr.UpdatedAt.Format("2006-01-02 15:04:05"))
}

// StatusChange describes a persisted status transition.
type StatusChange struct {
	ID         string
	ResourceID string
	ServerID   string
	Primary    bool
	Previous   AggregatedStatus
	Current    AggregatedStatus
	At         time.Time
}

func (sc StatusChange) Render() string {
	prev := sc.Previous.String()
	if sc.Previous.IsZero() {
		prev = "<none>"
	}
	return fmt.Sprintf("%s on %s: %s -> %s", sc.ResourceID, sc.ServerID, prev, sc.Current)
}

type ProxyStatus string

const (
	ProxyRunning ProxyStatus = "running"
	ProxyExited  ProxyStatus = "exited"
)

// ProxyRecord is the persisted proxy state for a server.
type ProxyRecord struct {
	ServerID  string
	Status    ProxyStatus
	ForceStop bool
	UpdatedAt time.Time
}

// ProxyStatusChanged is published after proxy lifecycle actions.
type ProxyStatusChanged struct {
	ID       string
	ServerID string
	Status   ProxyStatus
	Error    string
	At       time.Time
}

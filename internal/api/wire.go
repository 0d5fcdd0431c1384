package api

import (
	"time"

	"github.com/auto-dns/container-status-sync/internal/domain"
)

type statusResponse struct {
	ResourceID string    `json:"resource_id"`
	ServerID   string    `json:"server_id"`
	Primary    bool      `json:"primary"`
	Status     string    `json:"status"`
	Healthy    bool      `json:"healthy"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toStatusResponse(r domain.StatusRecord) statusResponse {
	return statusResponse{
		ResourceID: r.ResourceID,
		ServerID:   r.ServerID,
		Primary:    r.Primary,
		Status:     r.Status.String(),
		Healthy:    r.Status.IsHealthy(),
		UpdatedAt:  r.UpdatedAt,
	}
}

type proxyResponse struct {
	ServerID  string    `json:"server_id"`
	Status    string    `json:"status"`
	ForceStop bool      `json:"force_stop"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type changeResponse struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	ServerID   string    `json:"server_id"`
	Primary    bool      `json:"primary"`
	Previous   string    `json:"previous,omitempty"`
	Current    string    `json:"current"`
	At         time.Time `json:"at"`
}

type proxyEventResponse struct {
	ID       string    `json:"id"`
	ServerID string    `json:"server_id"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

type eventsResponse struct {
	StatusChanges []changeResponse     `json:"status_changes"`
	ProxyEvents   []proxyEventResponse `json:"proxy_events"`
}

type stopRequest struct {
	Force   bool `json:"force"`
	Timeout int  `json:"timeout"`
}

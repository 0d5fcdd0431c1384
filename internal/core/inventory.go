package core

import (
	"slices"
	"strings"

	"github.com/auto-dns/container-status-sync/internal/domain"
)

// Inventory is the static set of servers and resources being monitored.
type Inventory struct {
	servers   map[string]domain.Server
	resources []domain.Resource
}

func NewInventory(servers map[string]domain.Server, resources []domain.Resource) *Inventory {
	return &Inventory{servers: servers, resources: resources}
}

func (i *Inventory) Server(id string) (domain.Server, bool) {
	s, ok := i.servers[id]
	return s, ok
}

// Servers returns every server ordered by id.
func (i *Inventory) Servers() []domain.Server {
	out := make([]domain.Server, 0, len(i.servers))
	for _, s := range i.servers {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b domain.Server) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (i *Inventory) Resources() []domain.Resource {
	return i.resources
}

func (i *Inventory) Resource(id string) (domain.Resource, bool) {
	for _, r := range i.resources {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Resource{}, false
}

// HasAttachment reports whether the attachment is still part of the
// inventory.
func (i *Inventory) HasAttachment(att domain.Attachment) bool {
	r, ok := i.Resource(att.ResourceID)
	if !ok {
		return false
	}
	return slices.Contains(r.Attachments(), att)
}

package domain

import "fmt"

type Transport string

const (
	TransportSSH    Transport = "ssh"
	TransportDocker Transport = "docker"
)

func (t Transport) IsValid() bool {
	return t == TransportSSH || t == TransportDocker
}

type ProxySettings struct {
	Enabled bool
}

// Server is a remote Docker host.
type Server struct {
	ID           string
	Name         string
	IP           string
	Port         int
	User         string
	Transport    Transport
	DockerHost   string
	IdentityFile string
	Disabled     bool
	Proxy        ProxySettings
}

func (s Server) IsRoot() bool {
	return s.User == "" || s.User == "root"
}

func (s Server) Render() string {
	return fmt.Sprintf("%s (%s@%s:%d)", s.ID, s.User, s.IP, s.Port)
}

type ResourceKind string

const (
	KindApplication ResourceKind = "application"
	KindService     ResourceKind = "service"
)

// Resource is a deployable unit tracked for status purposes.
type Resource struct {
	ID                  string
	UUID                string
	Name                string
	Kind                ResourceKind
	ServerID            string
	AdditionalServerIDs []string
	ComposeRaw          string
	PullRequestID       int
}

// Attachment is one (resource, server) pair the reconciler tracks.
type Attachment struct {
	ResourceID string
	ServerID   string
	Primary    bool
}

func (a Attachment) Key() string {
	return fmt.Sprintf("%s|%s", a.ResourceID, a.ServerID)
}

// Attachments lists the primary server first, then additional servers in
// declaration order. Duplicates of the primary server are dropped.
func (r Resource) Attachments() []Attachment {
	out := []Attachment{{ResourceID: r.ID, ServerID: r.ServerID, Primary: true}}
	seen := map[string]struct{}{r.ServerID: {}}
	for _, id := range r.AdditionalServerIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, Attachment{ResourceID: r.ID, ServerID: id})
	}
	return out
}

package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/auto-dns/container-status-sync/internal/state"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStarter struct {
	started []string
	err     error
}

func (f *fakeStarter) Start(_ context.Context, server domain.Server) error {
	f.started = append(f.started, server.ID)
	return f.err
}

func TestProxyWatchdog_Check(t *testing.T) {
	servers := map[string]domain.Server{
		"up":      {ID: "up", Transport: domain.TransportSSH, Proxy: domain.ProxySettings{Enabled: true}},
		"down":    {ID: "down", Transport: domain.TransportSSH, Proxy: domain.ProxySettings{Enabled: true}},
		"stopped": {ID: "stopped", Transport: domain.TransportSSH, Proxy: domain.ProxySettings{Enabled: true}},
		"noproxy": {ID: "noproxy", Transport: domain.TransportSSH},
		"offline": {ID: "offline", Transport: domain.TransportSSH, Proxy: domain.ProxySettings{Enabled: true}},
	}
	source := &fakeSource{
		containers: map[string][]domain.ContainerObservation{
			"up":   {running("", domain.HealthNone)},
			"down": {exited("")},
		},
		errs:  map[string]error{},
		block: map[string]bool{},
	}
	store := state.NewMemoryState()
	require.NoError(t, store.PutProxy(context.Background(), domain.ProxyRecord{ServerID: "stopped", Status: domain.ProxyExited, ForceStop: true}))
	starter := &fakeStarter{}
	health := fakeHealth{"up": true, "down": true, "stopped": true, "noproxy": true}

	w := NewProxyWatchdog(NewInventory(servers, nil), health, map[domain.Transport]ContainerSource{domain.TransportSSH: source}, store, starter, time.Second, zerolog.Nop())

	restarted := w.Check(context.Background())
	assert.Equal(t, []string{"down"}, restarted)
	assert.Equal(t, []string{"down"}, starter.started)
	assert.Contains(t, source.calls, "down/coolify.proxy=true")
}

func TestProxyWatchdog_StartFailure(t *testing.T) {
	servers := map[string]domain.Server{"s": {ID: "s", Transport: domain.TransportSSH, Proxy: domain.ProxySettings{Enabled: true}}}
	source := &fakeSource{containers: map[string][]domain.ContainerObservation{}, errs: map[string]error{}, block: map[string]bool{}}
	starter := &fakeStarter{err: errors.New("compose failed")}

	w := NewProxyWatchdog(NewInventory(servers, nil), fakeHealth{"s": true}, map[domain.Transport]ContainerSource{domain.TransportSSH: source}, state.NewMemoryState(), starter, time.Second, zerolog.Nop())

	assert.Empty(t, w.Check(context.Background()))
	assert.Equal(t, []string{"s"}, starter.started)
}

func TestProxyWatchdog_HangingListingIsBounded(t *testing.T) {
	servers := map[string]domain.Server{"s": {ID: "s", Transport: domain.TransportSSH, Proxy: domain.ProxySettings{Enabled: true}}}
	source := &fakeSource{containers: map[string][]domain.ContainerObservation{}, errs: map[string]error{}, block: map[string]bool{"s": true}}
	starter := &fakeStarter{}

	w := NewProxyWatchdog(NewInventory(servers, nil), fakeHealth{"s": true}, map[domain.Transport]ContainerSource{domain.TransportSSH: source}, state.NewMemoryState(), starter, 50*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	start := time.Now()
	assert.Empty(t, w.Check(ctx))
	assert.Less(t, time.Since(start), time.Second)
	assert.Empty(t, starter.started)
}

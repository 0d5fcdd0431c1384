package docker

import (
	"fmt"

	"github.com/docker/docker/api/types/events"
)

type UnsupportedEventError struct {
	action events.Action
}

func NewUnsupportedEventError(action events.Action) *UnsupportedEventError {
	return &UnsupportedEventError{action: action}
}

func (e *UnsupportedEventError) Error() string {
	return fmt.Sprintf("unsupported event action: %s", e.action)
}

type ConnectError struct {
	serverID string
	err      error
}

func NewConnectError(serverID string, err error) *ConnectError {
	return &ConnectError{serverID: serverID, err: err}
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting to docker on server %s: %v", e.serverID, e.err)
}

func (e *ConnectError) Unwrap() error {
	return e.err
}

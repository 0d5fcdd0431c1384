package core

import "fmt"

// UnknownServerError is reported when an attachment names a server missing
// from the inventory.
type UnknownServerError struct {
	ServerID string
}

func NewUnknownServerError(serverID string) *UnknownServerError {
	return &UnknownServerError{ServerID: serverID}
}

func (e *UnknownServerError) Error() string {
	return fmt.Sprintf("unknown server %q", e.ServerID)
}

// ServerUnavailableError is reported when a server is disabled or fails its
// reachability check.
type ServerUnavailableError struct {
	ServerID string
}

func NewServerUnavailableError(serverID string) *ServerUnavailableError {
	return &ServerUnavailableError{ServerID: serverID}
}

func (e *ServerUnavailableError) Error() string {
	return fmt.Sprintf("server %q is not functional", e.ServerID)
}

package remote

import (
	"fmt"
	"strings"
)

// CommandError is returned when a remote script exits non-zero, times out,
// or cannot be started.
type CommandError struct {
	Server   string
	ExitCode int
	Stderr   string
	err      error
}

func NewCommandError(server string, exitCode int, stderr string, err error) *CommandError {
	return &CommandError{Server: server, ExitCode: exitCode, Stderr: strings.TrimSpace(stderr), err: err}
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("remote command on %s failed (exit %d): %s", e.Server, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("remote command on %s failed (exit %d): %v", e.Server, e.ExitCode, e.err)
}

func (e *CommandError) Unwrap() error {
	return e.err
}

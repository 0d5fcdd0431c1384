package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/auto-dns/container-status-sync/internal/config"
	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/rs/zerolog"
)

type hardener interface {
	HardenForSudo(commands []string, user string) []string
}

// execFunc runs name with args, feeding stdin, and returns the captured
// output streams.
type execFunc func(ctx context.Context, name string, args []string, stdin string) (stdout, stderr string, err error)

// SSHRunner executes command scripts on servers through the system ssh
// binary. Scripts are piped to `bash -se` on the remote side.
type SSHRunner struct {
	logger   zerolog.Logger
	cfg      *config.RemoteConfig
	hardener hardener
	exec     execFunc
}

func NewSSHRunner(cfg *config.RemoteConfig, h hardener, logger zerolog.Logger) *SSHRunner {
	return &SSHRunner{
		logger:   logger,
		cfg:      cfg,
		hardener: h,
		exec:     runProcess,
	}
}

func runProcess(ctx context.Context, name string, args []string, stdin string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Run executes commands as one script. For non-root users the script is
// hardened for sudo first. The call is bounded by the configured timeout.
func (r *SSHRunner) Run(ctx context.Context, server domain.Server, commands []string) (string, error) {
	if !server.IsRoot() && r.hardener != nil {
		commands = r.hardener.HardenForSudo(commands, server.User)
	}
	script := strings.Join(commands, "\n") + "\n"

	timeout := time.Duration(r.cfg.Timeout * float64(time.Second))
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	binary := r.cfg.SSHBinary
	if binary == "" {
		binary = "ssh"
	}

	start := time.Now()
	stdout, stderr, err := r.exec(cmdCtx, binary, r.sshArgs(server), script)
	logger := r.logger.With().Str("server", server.ID).Dur("took", time.Since(start)).Logger()

	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		logger.Warn().Dur("timeout", timeout).Msg("Remote command timed out")
		return stdout, NewCommandError(server.ID, -1, stderr, fmt.Errorf("timed out after %s: %w", timeout, context.DeadlineExceeded))
	}
	if ctx.Err() != nil {
		return stdout, ctx.Err()
	}
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		logger.Debug().Int("exit_code", exitCode).Str("stderr", strings.TrimSpace(stderr)).Msg("Remote command failed")
		return stdout, NewCommandError(server.ID, exitCode, stderr, err)
	}

	logger.Trace().Msg("Remote command succeeded")
	return stdout, nil
}

func (r *SSHRunner) sshArgs(server domain.Server) []string {
	hostKeyChecking := "no"
	if r.cfg.StrictHostKeyChecking {
		hostKeyChecking = "yes"
	}
	args := []string{
		"-o", "BatchMode=yes",
		"-o", "LogLevel=ERROR",
		"-o", "StrictHostKeyChecking=" + hostKeyChecking,
	}
	if r.cfg.ConnectTimeout > 0 {
		args = append(args, "-o", "ConnectTimeout="+strconv.Itoa(r.cfg.ConnectTimeout))
	}

	identity := server.IdentityFile
	if identity == "" {
		identity = r.cfg.IdentityFile
	}
	if identity != "" {
		args = append(args, "-i", identity)
	}

	port := server.Port
	if port == 0 {
		port = 22
	}
	user := server.User
	if user == "" {
		user = "root"
	}
	return append(args, "-p", strconv.Itoa(port), user+"@"+server.IP, "bash -se")
}

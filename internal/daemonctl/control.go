package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"recipeforge/internal/api"
)

// ErrDaemonNotRunning means the pid file names no live process.
var ErrDaemonNotRunning = errors.New("daemon not running")

// HealthChecker is the slice of the API client the controller polls.
type HealthChecker interface {
	Health(ctx context.Context) (*api.HealthResponse, error)
}

// LaunchOptions are passed through to "daemon run".
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

// Controller starts, stops and restarts a detached "<Executable> daemon run"
// process tracked by a pid file.
type Controller struct {
	Executable string
	PIDPath    string
	LockPath   string
	Health     HealthChecker
	Launch     LaunchOptions

	StopGrace time.Duration // SIGTERM to SIGKILL
	StartWait time.Duration // launch to healthy API
	Poll      time.Duration
}

// StartResult reports whether Start had to launch a process.
type StartResult struct {
	AlreadyRunning bool
}

// StopResult reports the stopped pid and whether SIGKILL was needed.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// RestartResult combines the two halves of Restart. Stop is zero when no
// daemon was running.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// Process is the state recorded by the pid file.
type Process struct {
	PID   int
	Alive bool
}

// Start launches the daemon unless its API already answers, then waits for
// the API to come up.
func (c *Controller) Start(ctx context.Context) (StartResult, error) {
	if _, err := c.Health.Health(ctx); err == nil {
		return StartResult{AlreadyRunning: true}, nil
	}
	if err := c.spawn(); err != nil {
		return StartResult{}, err
	}
	var lastErr error
	healthy := c.waitUntil(ctx, c.StartWait, func() bool {
		_, lastErr = c.Health.Health(ctx)
		return lastErr == nil
	})
	if err := ctx.Err(); err != nil {
		return StartResult{}, err
	}
	if !healthy {
		if lastErr == nil {
			lastErr = errors.New("timeout waiting for daemon")
		}
		return StartResult{}, fmt.Errorf("daemon failed to start: %w", lastErr)
	}
	return StartResult{}, nil
}

// Stop sends SIGTERM and escalates to SIGKILL after StopGrace, removing the
// pid and lock files the daemon would otherwise have cleaned up.
func (c *Controller) Stop(ctx context.Context) (StopResult, error) {
	proc, err := ProcessInfo(c.PIDPath)
	if err != nil {
		return StopResult{}, err
	}
	if !proc.Alive {
		return StopResult{}, ErrDaemonNotRunning
	}
	if err := unix.Kill(proc.PID, unix.SIGTERM); err != nil {
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", proc.PID, err)
	}
	result := StopResult{PID: proc.PID}
	if c.waitUntil(ctx, c.StopGrace, func() bool { return !alive(proc.PID) }) {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if err := Kill(proc.PID, c.PIDPath, c.LockPath); err != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	result.ForcedKill = true
	return result, nil
}

// Restart stops a running daemon, if any, and starts a fresh one.
func (c *Controller) Restart(ctx context.Context) (RestartResult, error) {
	stopped, err := c.Stop(ctx)
	wasRunning := err == nil
	if err != nil && !errors.Is(err, ErrDaemonNotRunning) {
		return RestartResult{}, err
	}
	started, err := c.Start(ctx)
	if err != nil {
		return RestartResult{}, err
	}
	return RestartResult{WasRunning: wasRunning, Stop: stopped, Start: started}, nil
}

func (c *Controller) spawn() error {
	if strings.TrimSpace(c.Executable) == "" {
		return errors.New("resolve executable: executable path is empty")
	}
	args := []string{"daemon", "run"}
	if path := strings.TrimSpace(c.Launch.ConfigPath); path != "" {
		args = append(args, "--config", path)
	}
	if level := strings.TrimSpace(c.Launch.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}
	cmd := exec.Command(c.Executable, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return cmd.Process.Release()
}

// waitUntil polls done until it returns true, the timeout passes or ctx ends.
func (c *Controller) waitUntil(ctx context.Context, timeout time.Duration, done func() bool) bool {
	poll := c.Poll
	if poll <= 0 {
		poll = 200 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	deadline := time.Now().Add(timeout)
	for {
		if done() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// ReadPID returns the pid recorded at path, or 0 when the file is absent or
// empty.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read daemon pid file %q: %w", path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, nil
	}
	pid, err := strconv.Atoi(text)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("daemon pid file %q is malformed", path)
	}
	return pid, nil
}

// ProcessInfo reads pidPath and probes the process it names.
func ProcessInfo(pidPath string) (Process, error) {
	pid, err := ReadPID(pidPath)
	if err != nil {
		return Process{}, err
	}
	return Process{PID: pid, Alive: alive(pid)}, nil
}

// alive sends signal 0. EPERM still means the process exists.
func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Kill sends SIGKILL to pid and removes the pid and lock files.
func Kill(pid int, pidPath, lockPath string) error {
	switch {
	case pid <= 0:
		return fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	case pid == os.Getpid():
		return fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	for _, path := range []string{pidPath, lockPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %q: %w", path, err)
		}
	}
	return nil
}

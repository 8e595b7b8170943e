package daemonctl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"recipeforge/internal/api"
)

type fakeHealth struct {
	calls atomic.Int32
	err   error
}

func (f *fakeHealth) Health(context.Context) (*api.HealthResponse, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &api.HealthResponse{Status: "ok"}, nil
}

func writePID(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recipeforged.pid")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadPID(t *testing.T) {
	if pid, err := ReadPID(filepath.Join(t.TempDir(), "absent.pid")); err != nil || pid != 0 {
		t.Fatalf("missing file: got %d %v", pid, err)
	}
	if pid, err := ReadPID(writePID(t, "4242\n")); err != nil || pid != 4242 {
		t.Fatalf("expected 4242, got %d %v", pid, err)
	}
	if pid, err := ReadPID(writePID(t, "  ")); err != nil || pid != 0 {
		t.Fatalf("blank file: got %d %v", pid, err)
	}
	for _, bad := range []string{"nope", "-3"} {
		if _, err := ReadPID(writePID(t, bad)); err == nil {
			t.Fatalf("expected malformed pid error for %q", bad)
		}
	}
}

func TestProcessInfoSeesCurrentProcess(t *testing.T) {
	proc, err := ProcessInfo(writePID(t, strconv.Itoa(os.Getpid())))
	if err != nil || !proc.Alive || proc.PID != os.Getpid() {
		t.Fatalf("expected live current process, got %+v %v", proc, err)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	c := &Controller{PIDPath: filepath.Join(t.TempDir(), "missing.pid"), StopGrace: time.Second}
	if _, err := c.Stop(context.Background()); !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestKillRefusesSelf(t *testing.T) {
	if err := Kill(os.Getpid(), "unused", ""); err == nil {
		t.Fatal("expected refusal to kill the current process")
	}
	if err := Kill(0, "unused", ""); err == nil {
		t.Fatal("expected error for unknown pid")
	}
}

func TestStartSkipsLaunchWhenHealthy(t *testing.T) {
	health := &fakeHealth{}
	c := &Controller{Executable: "/nonexistent/recipeforge", Health: health, StartWait: time.Second}
	result, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !result.AlreadyRunning || health.calls.Load() != 1 {
		t.Fatalf("unexpected result %+v after %d probes", result, health.calls.Load())
	}
}

func TestStartReportsLaunchFailure(t *testing.T) {
	c := &Controller{
		Executable: filepath.Join(t.TempDir(), "missing-binary"),
		Health:     &fakeHealth{err: errors.New("connection refused")},
		StartWait:  50 * time.Millisecond,
	}
	if _, err := c.Start(context.Background()); err == nil {
		t.Fatal("expected launch of a missing executable to fail")
	}
}

func TestRestartWithoutDaemonStartsFresh(t *testing.T) {
	c := &Controller{
		Executable: "/nonexistent/recipeforge",
		PIDPath:    filepath.Join(t.TempDir(), "missing.pid"),
		Health:     &fakeHealth{},
	}
	result, err := c.Restart(context.Background())
	if err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if result.WasRunning || !result.Start.AlreadyRunning {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestWaitUntilHonoursContext(t *testing.T) {
	c := &Controller{Poll: 10 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if c.waitUntil(ctx, time.Minute, func() bool { return false }) {
		t.Fatal("expected cancelled wait to report false")
	}
}

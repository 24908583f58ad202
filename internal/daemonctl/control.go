package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"octowatch/internal/api"
	"octowatch/internal/daemon"
	"octowatch/internal/daemonrun"
)

// pollInterval paces health probes while waiting for start or shutdown.
var pollInterval = 200 * time.Millisecond

// Prober is the daemon API subset used for lifecycle control. *api.Client
// satisfies it.
type Prober interface {
	Health(ctx context.Context) (api.HealthResponse, error)
	Status(ctx context.Context) (api.DaemonStatus, error)
}

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
	Diagnostic bool
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
	PID      int
}

// ErrDaemonNotRunning indicates the daemon API is unreachable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// Launch starts a detached `octowatch daemon` process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}
	if opts.Diagnostic {
		args = append(args, "--diagnostic")
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForHealthy polls the health endpoint until it answers or timeout passes.
func WaitForHealthy(ctx context.Context, prober Prober, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		_, err := prober.Health(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if err := sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon unless it already answers, then waits for
// it to become healthy.
func EnsureStarted(ctx context.Context, prober Prober, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if status, err := prober.Status(ctx); err == nil && status.Running {
		return StartResult{State: StartStateAlreadyRunning, PID: status.PID}, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	if err := WaitForHealthy(ctx, prober, waitTimeout); err != nil {
		return StartResult{}, err
	}
	result := StartResult{State: StartStateStarted, Launched: true}
	if status, err := prober.Status(ctx); err == nil {
		result.PID = status.PID
	}
	return result, nil
}

// WaitForShutdown waits for the daemon API to stop answering.
func WaitForShutdown(ctx context.Context, prober Prober, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := prober.Health(ctx); err != nil {
			return nil
		}
		if err := sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("daemon did not stop: still answering after %s", timeout)
}

// Stop sends SIGTERM to the daemon and force-kills it if it is still alive
// after gracePeriod. stateDir locates the pid and lock files.
func Stop(ctx context.Context, prober Prober, stateDir string, gracePeriod time.Duration) (StopResult, error) {
	status, err := prober.Status(ctx)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}

	pid := status.PID
	if pid <= 0 {
		if filePID, pidErr := daemonrun.ReadPID(stateDir); pidErr == nil {
			pid = filePID
		}
	}
	if pid <= 0 {
		return StopResult{}, fmt.Errorf("unable to determine daemon pid")
	}
	result := StopResult{PID: pid}

	if err := signalProcess(pid, syscall.SIGTERM); err != nil {
		return result, err
	}
	if err := WaitForShutdown(ctx, prober, gracePeriod); err == nil {
		return result, nil
	}

	pidPath := filepath.Join(stateDir, daemonrun.PIDFileName)
	lockPath := filepath.Join(stateDir, daemon.LockFileName)
	killedPID, killErr := ForceKillProcess(pidPath, lockPath, pid)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", killErr)
	}
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

// Restart stops the daemon if running, then ensures it is started.
func Restart(ctx context.Context, prober Prober, stateDir, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stopResult, stopErr := Stop(ctx, prober, stateDir, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	startResult, err := EnsureStarted(ctx, prober, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

// ForceKillProcess sends SIGKILL to the daemon process and cleans pid/lock files.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid := fallbackPID
	if filePID, err := daemonrun.ReadPID(filepath.Dir(pidPath)); err == nil && filePID > 0 {
		pid = filePID
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	if err := signalProcess(pid, syscall.SIGKILL); err != nil {
		return 0, err
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

func signalProcess(pid int, sig syscall.Signal) error {
	if pid == os.Getpid() {
		return fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isDaemonUnavailable(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, os.ErrNotExist)
}

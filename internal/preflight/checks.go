package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"octowatch/internal/octoprint"
	"octowatch/internal/printers"
)

// CheckPrinter verifies the printer answers GET /api/job with the configured key.
func CheckPrinter(ctx context.Context, fetcher octoprint.JobFetcher, printer printers.Printer) Result {
	name := "Printer " + printer.Name
	if fetcher == nil {
		return Result{Name: name, Detail: "no client"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	job, err := fetcher.FetchCurrentJob(checkCtx, printer)
	switch {
	case err == nil:
		state := "unknown state"
		if job.State != nil {
			state = *job.State
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Reachable (%s)", state)}
	case octoprint.IsAuthError(err):
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	case octoprint.StatusCode(err) != 0:
		return Result{Name: name, Detail: fmt.Sprintf("job check failed (%d)", octoprint.StatusCode(err))}
	default:
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minBytes free.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := uint64(stat.Bavail) * uint64(stat.Bsize)
	detail := fmt.Sprintf("%s (%s free)", path, formatBytes(free))
	if free < minBytes {
		return Result{Name: name, Detail: detail + ", below " + formatBytes(minBytes)}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "job check timed out (printer unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "job check timed out (printer unreachable)"
	}
	return err.Error()
}

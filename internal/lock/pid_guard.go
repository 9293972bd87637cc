// Package lock keeps two aa processes from working against the same counter
// file at once. Two concurrent updates would each allocate from the same
// counters and hand out duplicate identifiers.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// PIDSuffix is appended to the counter file path to name its PID file.
const PIDSuffix = ".pid"

// RunGuard is a PID file next to the counter file.
type RunGuard struct {
	path string
}

// NewRunGuard creates a guard for the counter file at cachePath.
func NewRunGuard(cachePath string) *RunGuard {
	return &RunGuard{path: cachePath + PIDSuffix}
}

// Path returns the PID file path.
func (g *RunGuard) Path() string {
	return g.path
}

// Acquire claims the guard for this process. A PID file left by a process that
// no longer exists, or one that cannot be parsed, is removed and replaced.
// If a live process holds it, Acquire returns *AlreadyRunningError.
func (g *RunGuard) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(g.path), 0755); err != nil {
		return fmt.Errorf("create pid directory: %w", err)
	}

	// Two tries: the second follows removal of a stale file.
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(g.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(g.path)
				return fmt.Errorf("write pid file: %w", errors.Join(werr, cerr))
			}
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("create pid file: %w", err)
		}

		pid, ok := g.holder()
		if ok && pid != os.Getpid() && processExists(pid) {
			return &AlreadyRunningError{PID: pid, Path: g.path}
		}
		// Stale or unreadable, clean it up
		if err := os.Remove(g.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale pid file: %w", err)
		}
	}
	return fmt.Errorf("pid file %s keeps reappearing", g.path)
}

// Release removes the PID file if this process owns it.
// Safe to call even if file doesn't exist.
func (g *RunGuard) Release() {
	if pid, ok := g.holder(); ok && pid == os.Getpid() {
		_ = os.Remove(g.path)
	}
}

// holder reads the PID recorded in the guard file.
func (g *RunGuard) holder() (int, bool) {
	data, err := os.ReadFile(g.path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// AlreadyRunningError indicates another aa process holds the guard.
type AlreadyRunningError struct {
	PID  int
	Path string
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("aa already running (pid %d, %s)", e.PID, e.Path)
}

// processExists checks if a process with the given PID exists.
func processExists(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix, FindProcess always succeeds. We need to send signal 0 to check.
	err = process.Signal(syscall.Signal(0))
	return err == nil
}

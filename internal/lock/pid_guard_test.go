package lock

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunGuard_AcquireRelease(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), ".aa.cache.yaml")
	guard := NewRunGuard(cachePath)
	assert.Equal(t, cachePath+".pid", guard.Path())

	require.NoError(t, guard.Acquire())

	data, err := os.ReadFile(guard.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	guard.Release()
	_, err = os.Stat(guard.Path())
	assert.True(t, os.IsNotExist(err), "PID file should be removed")

	// Release again is harmless
	guard.Release()
}

func TestRunGuard_CreatesDirectory(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "nested", "dir", "cache.yaml")
	guard := NewRunGuard(cachePath)
	require.NoError(t, guard.Acquire())
	defer guard.Release()

	_, err := os.Stat(guard.Path())
	assert.NoError(t, err)
}

func TestRunGuard_HeldByLiveProcess(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start helper process: %v", err)
	}
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	cachePath := filepath.Join(t.TempDir(), ".aa.cache.yaml")
	guard := NewRunGuard(cachePath)
	require.NoError(t, os.WriteFile(guard.Path(), []byte(strconv.Itoa(cmd.Process.Pid)), 0644))

	err := guard.Acquire()
	require.Error(t, err)
	var running *AlreadyRunningError
	require.ErrorAs(t, err, &running)
	assert.Equal(t, cmd.Process.Pid, running.PID)
	assert.Equal(t, guard.Path(), running.Path)

	// Release must not remove a file owned by someone else
	guard.Release()
	_, err = os.Stat(guard.Path())
	assert.NoError(t, err)
}

func TestRunGuard_StalePID(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), ".aa.cache.yaml")
	guard := NewRunGuard(cachePath)

	// Using a very high PID that's unlikely to exist
	require.NoError(t, os.WriteFile(guard.Path(), []byte("999999"), 0644))

	require.NoError(t, guard.Acquire())
	defer guard.Release()

	data, err := os.ReadFile(guard.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
}

func TestRunGuard_InvalidPID(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), ".aa.cache.yaml")
	guard := NewRunGuard(cachePath)
	require.NoError(t, os.WriteFile(guard.Path(), []byte("not-a-number"), 0644))

	require.NoError(t, guard.Acquire())
	guard.Release()
}

func TestRunGuard_OwnPIDIsReacquired(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), ".aa.cache.yaml")
	guard := NewRunGuard(cachePath)
	require.NoError(t, guard.Acquire())
	defer guard.Release()

	// A file holding our own PID is a leftover from this process.
	assert.NoError(t, NewRunGuard(cachePath).Acquire())
}

func TestAlreadyRunningError(t *testing.T) {
	err := &AlreadyRunningError{PID: 12345, Path: "/tmp/x.pid"}
	assert.Equal(t, "aa already running (pid 12345, /tmp/x.pid)", err.Error())
}

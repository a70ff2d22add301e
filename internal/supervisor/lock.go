package supervisor

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/direclaw/direclaw/internal/lifecycle"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// lockPath returns <state_root>/daemon/supervisor.lock.
func lockPath(stateRoot string) string {
	return filepath.Join(stateRoot, "daemon", "supervisor.lock")
}

// runtimePath returns <state_root>/daemon/runtime.json.
func runtimePath(stateRoot string) string {
	return filepath.Join(stateRoot, "daemon", "runtime.json")
}

// acquireLock takes the supervisor's ownership lock, self-healing a stale
// lock left by a crashed process. lifecycle.PIDFileManager already gives
// us flock-plus-O_EXCL atomicity and a world-writable-directory guard; it
// only ever stores the bare PID, so the richer {pid, started_at} shape
// spec §4.3 describes for the lock file lives in runtime.json instead,
// written right after the lock is held (see writeRuntimeStatus).
func acquireLock(stateRoot string) (*lifecycle.PIDFileManager, error) {
	pm := lifecycle.NewPIDFileManager(lockPath(stateRoot))
	pid := currentPID()

	err := pm.Create(pid)
	if err == nil {
		return pm, nil
	}
	if !errors.Is(err, lifecycle.ErrPIDFileExists) && !errors.Is(err, lifecycle.ErrPIDFileLocked) {
		return nil, fmt.Errorf("supervisor: acquire lock: %w", err)
	}

	existingPID, readErr := pm.Read()
	if readErr == nil && lifecycle.IsProcessRunning(existingPID) {
		return nil, &direrrors.AlreadyRunningError{PID: existingPID}
	}

	// Stale lock: the PID it names is dead. Clean it up and retry once.
	stale := lifecycle.NewPIDFileManager(lockPath(stateRoot))
	if removeErr := stale.Remove(); removeErr != nil {
		return nil, fmt.Errorf("supervisor: clean stale lock: %w", removeErr)
	}

	retry := lifecycle.NewPIDFileManager(lockPath(stateRoot))
	if err := retry.Create(pid); err != nil {
		return nil, fmt.Errorf("supervisor: acquire lock after stale cleanup: %w", err)
	}
	return retry, nil
}

// releaseLock releases and removes the ownership lock.
func releaseLock(pm *lifecycle.PIDFileManager) error {
	if pm == nil {
		return nil
	}
	return pm.Remove()
}

// reconcileStatus checks a previously-persisted RuntimeStatus against
// whether its PID is actually alive. If the status claims "running" but
// the PID is dead, the lock is stale: this self-heals by removing it and
// reporting "stale", per spec §4.3's status-reconciliation rule.
func reconcileStatus(stateRoot string, status *RuntimeStatus) (*RuntimeStatus, error) {
	if status.State != "running" {
		return status, nil
	}
	if lifecycle.IsProcessRunning(status.PID) {
		return status, nil
	}

	pm := lifecycle.NewPIDFileManager(lockPath(stateRoot))
	if err := pm.Remove(); err != nil {
		return nil, fmt.Errorf("supervisor: remove stale lock during status reconcile: %w", err)
	}
	status.State = "stale"
	return status, &direrrors.StaleSupervisorError{PID: status.PID}
}

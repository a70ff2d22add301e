package supervisor

import (
	"encoding/json"
	"os"

	"github.com/direclaw/direclaw/internal/fsutil"
)

// writeRuntimeStatus atomically persists status to
// <state_root>/daemon/runtime.json, per spec §4.3.
func writeRuntimeStatus(stateRoot string, status *RuntimeStatus) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteAtomic(runtimePath(stateRoot), data, 0o600)
}

// readRuntimeStatus loads a previously-persisted runtime.json, if any.
func readRuntimeStatus(stateRoot string) (*RuntimeStatus, error) {
	data, err := os.ReadFile(runtimePath(stateRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var status RuntimeStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

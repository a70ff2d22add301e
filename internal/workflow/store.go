package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/direclaw/direclaw/internal/fsutil"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// RunStore persists RunRecord and ProgressSnapshot under one orchestrator
// runtime root, per spec §4.9: single-writer (the engine), read-only
// observers, every write atomic. Grounded on the teacher's
// pkg/workflow/store.go file-per-record shape, generalized from its
// single JSON-on-disk workflow definition store into a RunRecord +
// ProgressSnapshot pair keyed by runId.
type RunStore struct {
	root string // <orchestrator_runtime_root>/workflows/runs
}

// NewRunStore returns a store rooted at <orchestratorRuntimeRoot>/workflows/runs.
func NewRunStore(orchestratorRuntimeRoot string) *RunStore {
	return &RunStore{root: filepath.Join(orchestratorRuntimeRoot, "workflows", "runs")}
}

func (s *RunStore) recordPath(runID string) string {
	return filepath.Join(s.root, runID+".json")
}

func (s *RunStore) runDir(runID string) string {
	return filepath.Join(s.root, runID)
}

func (s *RunStore) progressPath(runID string) string {
	return filepath.Join(s.runDir(runID), "progress.json")
}

// AttemptDir returns the flat attempt directory for one step attempt.
func (s *RunStore) AttemptDir(runID, stepID string, attempt int) string {
	return filepath.Join(s.runDir(runID), "steps", stepID, "attempts", fmt.Sprintf("%d", attempt))
}

// SaveRun atomically persists a RunRecord.
func (s *RunStore) SaveRun(r *RunRecord) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("workflow: marshal run record: %w", err)
	}
	path := s.recordPath(r.RunID)
	if err := fsutil.WriteAtomic(path, data, 0o600); err != nil {
		return &direrrors.QueueIoError{Path: path, Kind: "write", Cause: err}
	}
	return nil
}

// LoadRun reads a RunRecord by id.
func (s *RunStore) LoadRun(runID string) (*RunRecord, error) {
	path := s.recordPath(runID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &direrrors.RunNotFoundError{RunID: runID}
		}
		return nil, &direrrors.QueueIoError{Path: path, Kind: "read", Cause: err}
	}
	var r RunRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, &direrrors.QueueIoError{Path: path, Kind: "read", Cause: err}
	}
	return &r, nil
}

// ListRunIDs enumerates every run with a persisted record, by reading the
// *.json record filenames directly rather than walking runDir (progress
// and attempt subdirectories live under the same root and must not be
// mistaken for run ids). Used by callers that enumerate runs without
// owning the storage layout themselves: the supervisor's startup recovery
// sweep and diagnostics' default-scope-gathers-everything case.
func (s *RunStore) ListRunIDs() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &direrrors.QueueIoError{Path: s.root, Kind: "read", Cause: err}
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, name[:len(name)-len(".json")])
	}
	return ids, nil
}

// SaveProgress atomically persists a ProgressSnapshot.
func (s *RunStore) SaveProgress(p *ProgressSnapshot) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("workflow: marshal progress snapshot: %w", err)
	}
	path := s.progressPath(p.RunID)
	if err := fsutil.WriteAtomic(path, data, 0o600); err != nil {
		return &direrrors.QueueIoError{Path: path, Kind: "write", Cause: err}
	}
	return nil
}

// LoadProgress reads a ProgressSnapshot by run id. Read-only: callers must
// never use this to drive a state transition (spec §4.9 observer rule).
func (s *RunStore) LoadProgress(runID string) (*ProgressSnapshot, error) {
	path := s.progressPath(runID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &direrrors.RunNotFoundError{RunID: runID}
		}
		return nil, &direrrors.QueueIoError{Path: path, Kind: "read", Cause: err}
	}
	var p ProgressSnapshot
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &direrrors.QueueIoError{Path: path, Kind: "read", Cause: err}
	}
	return &p, nil
}

// SaveAttemptMeta atomically persists attempt.json for one step attempt.
func (s *RunStore) SaveAttemptMeta(m *AttemptMeta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("workflow: marshal attempt meta: %w", err)
	}
	path := filepath.Join(s.AttemptDir(m.RunID, m.StepID, m.Attempt), "attempt.json")
	if err := fsutil.WriteAtomic(path, data, 0o600); err != nil {
		return &direrrors.QueueIoError{Path: path, Kind: "write", Cause: err}
	}
	return nil
}

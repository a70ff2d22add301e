package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/direclaw/direclaw/internal/fsutil"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// SelectStore persists SelectorRequest/SelectorResult JSON files under
// <orchestrator_runtime_root>/orchestrator/select/{incoming,processing,
// results,logs}, per spec §3/§4.4's "persistence and replayability"
// requirement. Grounded on internal/queue.Store's directory-lifecycle
// shape (incoming -> processing via atomic rename), narrowed from a
// three-state message lifecycle to the selector's simpler
// incoming -> processing -> results flow since a selector round-trip
// never requeues.
type SelectStore struct {
	root string // <orchestrator_runtime_root>/orchestrator/select
}

// NewSelectStore returns a store rooted at
// <orchestratorRuntimeRoot>/orchestrator/select.
func NewSelectStore(orchestratorRuntimeRoot string) *SelectStore {
	return &SelectStore{root: filepath.Join(orchestratorRuntimeRoot, "orchestrator", "select")}
}

func (s *SelectStore) incomingPath(selectorID string) string {
	return filepath.Join(s.root, "incoming", selectorID+".json")
}

func (s *SelectStore) processingPath(selectorID string) string {
	return filepath.Join(s.root, "processing", selectorID+".json")
}

func (s *SelectStore) resultPath(selectorID string) string {
	return filepath.Join(s.root, "results", selectorID+".json")
}

func (s *SelectStore) logPath() string {
	return filepath.Join(s.root, "logs", "select.log")
}

// SaveIncoming atomically writes a SelectorRequest to incoming/.
func (s *SelectStore) SaveIncoming(req *SelectorRequest) error {
	return s.writeJSON(s.incomingPath(req.SelectorID), req)
}

// ClaimProcessing atomically moves a request from incoming/ to
// processing/, mirroring the queue's claim semantics for one selector
// round-trip.
func (s *SelectStore) ClaimProcessing(selectorID string) error {
	from := s.incomingPath(selectorID)
	to := s.processingPath(selectorID)
	if err := os.MkdirAll(filepath.Dir(to), 0o700); err != nil {
		return &direrrors.QueueIoError{Path: to, Kind: "mkdir", Cause: err}
	}
	if err := os.Rename(from, to); err != nil {
		return &direrrors.QueueIoError{Path: from, Kind: "rename", Cause: err}
	}
	return nil
}

// SaveResult atomically writes a SelectorResult to results/.
func (s *SelectStore) SaveResult(res *SelectorResult) error {
	return s.writeJSON(s.resultPath(res.SelectorID), res)
}

// LoadResult reads a persisted SelectorResult by id, for replay tooling.
func (s *SelectStore) LoadResult(selectorID string) (*SelectorResult, error) {
	data, err := os.ReadFile(s.resultPath(selectorID))
	if err != nil {
		return nil, &direrrors.QueueIoError{Path: s.resultPath(selectorID), Kind: "read", Cause: err}
	}
	var res SelectorResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, &direrrors.QueueIoError{Path: s.resultPath(selectorID), Kind: "read", Cause: err}
	}
	return &res, nil
}

// selectLogEntry is one newline-delimited JSON line of selector activity,
// matching the structured-log convention internal/workflow/workspace.go's
// security.log establishes (spec §C): machine-parseable replay, not
// free text.
type selectLogEntry struct {
	Time       string `json:"time"`
	SelectorID string `json:"selectorId"`
	Event      string `json:"event"`
}

// AppendLog records one selector lifecycle event for operational replay.
func (s *SelectStore) AppendLog(selectorID, event string) {
	data, err := json.Marshal(selectLogEntry{
		Time:       time.Now().UTC().Format(time.RFC3339),
		SelectorID: selectorID,
		Event:      event,
	})
	if err != nil {
		return
	}
	path := s.logPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(data, '\n'))
}

func (s *SelectStore) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("orchestrator: marshal %s: %w", filepath.Base(path), err)
	}
	if err := fsutil.WriteAtomic(path, data, 0o600); err != nil {
		return &direrrors.QueueIoError{Path: path, Kind: "write", Cause: err}
	}
	return nil
}

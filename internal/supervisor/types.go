// Package supervisor owns the daemon's process lifecycle per spec §4.3:
// a single-writer ownership lock, a registry of polling workers
// (queue_processor always, channel_<profile> and heartbeat as configured),
// startup recovery, and deadline-bounded graceful shutdown. Grounded on
// the teacher's internal/daemon.Daemon Start/Shutdown shape (PID file,
// drain-then-stop ordering, per-component shutdown with timeouts) and
// internal/lifecycle's pre-existing PID-file-locking and process
// primitives, composed rather than reimplemented.
package supervisor

import "time"

// WorkerHealth is a point-in-time snapshot of one worker's polling loop,
// read without blocking the loop itself (a struct copy under a
// short-held mutex, not a channel round-trip).
type WorkerHealth struct {
	LastTickAt time.Time `json:"lastTickAt"`
	LastError  string    `json:"lastError,omitempty"`
	TickCount  int64     `json:"tickCount"`
}

// WorkerStatus names a worker alongside its latest health snapshot, for
// runtime.json and the status command.
type WorkerStatus struct {
	ID string `json:"id"`
	WorkerHealth
}

// RuntimeStatus is the full contents of <state_root>/daemon/runtime.json,
// spec §4.3's atomically-written runtime state file.
type RuntimeStatus struct {
	PID       int            `json:"pid"`
	StartedAt time.Time      `json:"startedAt"`
	State     string         `json:"state"` // "running" | "stopped" | "stale"
	Workers   []WorkerStatus `json:"workers"`
}

// RecoverySummary records what startup recovery did, for logging and for
// callers (e.g. the CLI's status command) that want to report it once.
type RecoverySummary struct {
	QueueDeleted        int      `json:"queueDeleted"`
	QueueRequeued       int      `json:"queueRequeued"`
	StrandedRunsFailed  []string `json:"strandedRunsFailed,omitempty"`
}

package supervisor

import (
	"context"
	"log/slog"
	"time"

	internallog "github.com/direclaw/direclaw/internal/log"
	"github.com/direclaw/direclaw/internal/queue"
	"github.com/direclaw/direclaw/internal/workflow"
)

// DefaultRecoveryHorizon bounds how long a "running" or "waiting" workflow run is left
// alone after a crash before startup recovery marks it failed. Runs newer
// than this are left as-is: a workflow-bound message arriving later can
// still resume them (spec §4.3's "eligible for resume when a
// workflow-bound message arrives" case), so recovery must not race ahead
// of that.
const DefaultRecoveryHorizon = 15 * time.Minute

// recoverQueue runs queue recovery (spec §4.1) before the queue worker is
// allowed to start claiming. Always safe to call even with nothing to
// recover.
func recoverQueue(store *queue.Store, logger *slog.Logger) (deleted, requeued int, err error) {
	actions, err := store.RecoverOnStartup()
	if err != nil {
		return 0, 0, err
	}
	for _, a := range actions {
		switch a.Action {
		case "deleted":
			deleted++
		case "requeued":
			requeued++
		}
		logger.Info("queue recovery action", slog.String("file", a.Filename), slog.String("action", a.Action))
	}
	return deleted, requeued, nil
}

// recoverStrandedRuns sweeps every known run for ones left "running" or
// "waiting" without a live supervisor (true by construction here: we only run this
// before launching any worker) and older than horizon, marking them
// failed with reason "supervisor_recovery". Runs newer than horizon are
// left running: spec §4.3 allows a later workflow-bound message to resume
// them instead of recovery racing to fail them.
func recoverStrandedRuns(ctx context.Context, store *workflow.RunStore, horizon time.Duration, now time.Time, logger *slog.Logger) ([]string, error) {
	ids, err := store.ListRunIDs()
	if err != nil {
		return nil, err
	}

	var failed []string
	for _, id := range ids {
		record, err := store.LoadRun(id)
		if err != nil {
			logger.Warn("supervisor recovery: failed to load run", internallog.Error(err), slog.String("runId", id))
			continue
		}
		if record.State != workflow.RunRunning && record.State != workflow.RunWaiting {
			continue
		}
		if now.Sub(record.UpdatedAt) < horizon {
			continue
		}

		record.State = workflow.RunFailed
		record.TerminalReason = "supervisor_recovery"
		record.UpdatedAt = now
		if err := store.SaveRun(record); err != nil {
			logger.Warn("supervisor recovery: failed to mark run failed", internallog.Error(err), slog.String("runId", id))
			continue
		}
		failed = append(failed, id)
		logger.Warn("supervisor recovery: marked stranded run failed", slog.String("runId", id))
	}
	return failed, nil
}

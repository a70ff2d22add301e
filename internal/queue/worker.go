package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// maxDeterministicRetries/maxTransientRetries bound how many times handle
// will requeue the same file before giving up and quarantining it to
// rejected/, per spec §5 ("persistent deterministic failures … must
// quarantine/dead-letter after bounded retries; they must not
// livelock") and §7's queue-item propagation policy. Deterministic
// failures (unknown workflow/function, a logic error) get almost no
// slack, since requeuing changes nothing about the outcome; transient
// I/O gets more attempts, since the underlying condition (disk
// contention, a concurrent rename) is expected to clear on its own.
const (
	maxDeterministicRetries = 1
	maxTransientRetries     = 10
)

// ProcessFunc handles one claimed message and decides its fate: a non-nil
// OutgoingMessage with a nil error completes the message (outgoing write +
// processing delete); a nil OutgoingMessage with a nil error completes it
// with no outbound file (e.g. a no_response action); a non-nil error
// requeues it back to incoming/ for a later attempt, up to a bounded
// retry count, after which handle quarantines it to rejected/ instead of
// looping forever. Classifying which errors are worth retrying at the
// attempt/run level is the caller's policy (the workflow engine's
// retry/terminal-reason rules); classifying which are worth requeuing at
// all (transient I/O vs a deterministic caller mistake) belongs to the
// queue, via direrrors.QueueTransient.
type ProcessFunc func(ctx context.Context, msg *Message) (*OutgoingMessage, error)

// DepthObserver receives the current pending-incoming count on every
// Tick, for a metrics sink to publish as a gauge. Satisfied structurally
// by *internal/telemetry.Metrics without this package importing it.
type DepthObserver interface {
	SetQueueDepth(n int)
}

type noopDepthObserver struct{}

func (noopDepthObserver) SetQueueDepth(int) {}

// Worker drives one orchestrator's queue: polls incoming/, computes each
// message's OrderingKey, and submits claimed work to a Scheduler that
// bounds concurrency while preserving per-key order.
type Worker struct {
	store     *Store
	scheduler *Scheduler
	process   ProcessFunc
	logger    *slog.Logger
	depth     DepthObserver

	mu            sync.Mutex
	inFlightFiles map[string]bool
	retryCounts   map[string]int
}

// NewWorker returns a Worker over store, dispatching claimed messages
// through the scheduler to process.
func NewWorker(store *Store, scheduler *Scheduler, process ProcessFunc, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:         store,
		scheduler:     scheduler,
		process:       process,
		logger:        logger.With(slog.String("component", "queue.worker")),
		depth:         noopDepthObserver{},
		inFlightFiles: make(map[string]bool),
		retryCounts:   make(map[string]int),
	}
}

// SetDepthObserver installs the gauge sink Tick reports pending-incoming
// counts to. Optional; unset Workers simply skip the observation.
func (w *Worker) SetDepthObserver(d DepthObserver) {
	if d == nil {
		d = noopDepthObserver{}
	}
	w.depth = d
}

// Tick lists incoming/ once and submits any not-yet-dispatched file to the
// scheduler. Safe to call repeatedly on a polling cadence; files already
// submitted (claimed or queued behind their key) are skipped until they
// complete.
func (w *Worker) Tick(ctx context.Context) error {
	entries, err := w.store.ListIncoming()
	if err != nil {
		return err
	}
	w.depth.SetQueueDepth(len(entries))

	for _, e := range entries {
		w.mu.Lock()
		already := w.inFlightFiles[e.Filename]
		w.mu.Unlock()
		if already {
			continue
		}

		msg, err := w.store.ReadIncoming(e.Filename)
		if err != nil {
			if err == ErrAlreadyClaimed {
				continue
			}
			w.logger.Warn("dropping unreadable incoming file", "filename", e.Filename, "error", err)
			continue
		}

		w.mu.Lock()
		w.inFlightFiles[e.Filename] = true
		w.mu.Unlock()

		filename := e.Filename
		key := msg.OrderingKey()

		w.scheduler.Submit(Task{
			Key: key,
			Run: func() {
				defer func() {
					w.mu.Lock()
					delete(w.inFlightFiles, filename)
					w.mu.Unlock()
				}()
				w.handle(ctx, filename)
			},
		})
	}
	return nil
}

// handle claims, processes, and resolves one message. Claim races (the
// file already moved) are silently skipped, matching spec §4.1.
func (w *Worker) handle(ctx context.Context, filename string) {
	if err := w.store.Claim(filename); err != nil {
		if err != ErrAlreadyClaimed {
			w.logger.Error("claim failed", "filename", filename, "error", err)
		}
		return
	}

	msg, err := w.store.ReadProcessing(filename)
	if err != nil {
		w.logger.Error("read claimed message failed", "filename", filename, "error", err)
		return
	}

	out, err := w.process(ctx, msg)
	if err != nil {
		w.resolveFailure(filename, err)
		return
	}

	w.clearRetryCount(filename)

	if out == nil {
		if rmErr := w.store.completeNoOutgoing(filename); rmErr != nil {
			w.logger.Error("complete (no outgoing) failed", "filename", filename, "error", rmErr)
		}
		return
	}

	if err := w.store.Complete(filename, out); err != nil {
		w.logger.Error("complete failed", "filename", filename, "error", err)
	}
}

// resolveFailure requeues filename for another attempt, or quarantines it
// to rejected/ once its retry count exceeds the bound for its error
// class. Transient QueueIo failures get more attempts than deterministic
// ones (UnknownWorkflow, UnknownFunction, and similar caller mistakes
// that a requeue can never fix), so the two never share one counter's
// semantics even though they share the bookkeeping.
func (w *Worker) resolveFailure(filename string, err error) {
	limit := maxDeterministicRetries
	if direrrors.QueueTransient(err) {
		limit = maxTransientRetries
	}

	w.mu.Lock()
	w.retryCounts[filename]++
	attempts := w.retryCounts[filename]
	w.mu.Unlock()

	if attempts > limit {
		w.logger.Warn("processing failed repeatedly, quarantining", "filename", filename, "attempts", attempts, "error", err)
		if qErr := w.store.QuarantineProcessing(filename, err.Error()); qErr != nil {
			w.logger.Error("quarantine failed", "filename", filename, "error", qErr)
		}
		w.clearRetryCount(filename)
		return
	}

	w.logger.Warn("processing failed, requeuing", "filename", filename, "attempt", attempts, "limit", limit, "error", err)
	if rqErr := w.store.Requeue(filename); rqErr != nil {
		w.logger.Error("requeue failed", "filename", filename, "error", rqErr)
	}
}

func (w *Worker) clearRetryCount(filename string) {
	w.mu.Lock()
	delete(w.retryCounts, filename)
	w.mu.Unlock()
}

// Run polls Tick on interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.scheduler.Stop()
			w.scheduler.Drain()
			return
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil {
				w.logger.Error("tick failed", "error", err)
			}
		}
	}
}

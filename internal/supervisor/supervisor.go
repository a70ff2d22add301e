package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/direclaw/direclaw/internal/lifecycle"
	internallog "github.com/direclaw/direclaw/internal/log"
	"github.com/direclaw/direclaw/internal/queue"
	"github.com/direclaw/direclaw/internal/workflow"
	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

func currentPID() int { return os.Getpid() }

// Config wires a Supervisor to its state root and the stores startup
// recovery needs. Workers are registered separately via AddWorker before
// Start, since which channel/heartbeat workers exist depends on config
// the caller (cmd/direclawd) already resolved.
type Config struct {
	StateRoot       string
	Logger          *slog.Logger
	QueueStore      *queue.Store
	RunStore        *workflow.RunStore
	RecoveryHorizon time.Duration // 0 uses DefaultRecoveryHorizon
	ShutdownTimeout time.Duration // 0 uses DefaultShutdownTimeout
	Now             func() time.Time

	// MetricsAddr, if set, serves MetricsHandler at /metrics on this
	// address for the lifetime of the supervisor (spec §6, internal/
	// telemetry's Prometheus registry). Empty disables the listener.
	MetricsAddr    string
	MetricsHandler http.Handler
}

// DefaultShutdownTimeout bounds how long Shutdown waits for worker loops
// to exit on their own before reporting them as force-terminated.
const DefaultShutdownTimeout = 10 * time.Second

// Supervisor owns the daemon process: the ownership lock, the worker
// registry, startup recovery, and graceful shutdown. Grounded on the
// teacher's internal/daemon.Daemon (PID-file-guarded Start, drain-then-
// shutdown-component-by-component Shutdown), rebuilt around
// internal/lifecycle's PID-file/process primitives and
// internal/queue.Worker-style polling instead of the teacher's HTTP
// server lifecycle.
type Supervisor struct {
	cfg     Config
	logger  *slog.Logger
	workers []*ManagedWorker

	mu         sync.Mutex
	lock       *lifecycle.PIDFileManager
	startedAt  time.Time
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	running    bool
	metricsSrv *http.Server
}

// New returns a Supervisor over cfg. Call AddWorker for each worker
// before Start.
func New(cfg Config) *Supervisor {
	if cfg.RecoveryHorizon <= 0 {
		cfg.RecoveryHorizon = DefaultRecoveryHorizon
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		cfg:    cfg,
		logger: internallog.WithComponent(logger, "supervisor"),
	}
}

// AddWorker registers a worker to be started by Start. Must be called
// before Start; the registry is fixed for the supervisor's lifetime.
func (s *Supervisor) AddWorker(w *ManagedWorker) {
	s.workers = append(s.workers, w)
}

// Start acquires the ownership lock, runs startup recovery, launches
// every registered worker, and blocks until ctx is cancelled, at which
// point it runs Shutdown itself. Returns *direrrors.AlreadyRunningError
// if another live process already holds the lock.
func (s *Supervisor) Start(ctx context.Context) error {
	pm, err := acquireLock(s.cfg.StateRoot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.lock = pm
	s.startedAt = s.cfg.Now()
	s.running = true
	s.mu.Unlock()

	if err := s.recover(ctx); err != nil {
		s.logger.Error("startup recovery failed", internallog.Error(err))
	}

	if err := s.persistStatus("running"); err != nil {
		s.logger.Warn("failed to write runtime status", internallog.Error(err))
	}

	workerCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	if s.cfg.MetricsAddr != "" && s.cfg.MetricsHandler != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.cfg.MetricsHandler)
		srv := &http.Server{Addr: s.cfg.MetricsAddr, Handler: mux}
		s.mu.Lock()
		s.metricsSrv = srv
		s.mu.Unlock()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("metrics listener stopped", internallog.Error(err))
			}
		}()
	}

	for _, w := range s.workers {
		s.wg.Add(1)
		go func(w *ManagedWorker) {
			defer s.wg.Done()
			s.logger.Info("worker starting", slog.String("worker", w.ID()))
			w.Run(workerCtx)
			s.logger.Info("worker stopped", slog.String("worker", w.ID()))
		}(w)
	}

	<-ctx.Done()
	return s.Shutdown(context.Background())
}

// recover runs queue recovery and the stranded-run sweep, both before any
// worker begins claiming or ticking.
func (s *Supervisor) recover(ctx context.Context) error {
	if s.cfg.QueueStore != nil {
		deleted, requeued, err := recoverQueue(s.cfg.QueueStore, s.logger)
		if err != nil {
			return fmt.Errorf("queue recovery: %w", err)
		}
		if deleted+requeued > 0 {
			s.logger.Info("queue recovery complete",
				slog.Int("deleted", deleted), slog.Int("requeued", requeued))
		}
	}
	if s.cfg.RunStore != nil {
		failed, err := recoverStrandedRuns(ctx, s.cfg.RunStore, s.cfg.RecoveryHorizon, s.cfg.Now(), s.logger)
		if err != nil {
			return fmt.Errorf("stranded run recovery: %w", err)
		}
		if len(failed) > 0 {
			s.logger.Warn("stranded runs marked failed", slog.Any("runIds", failed))
		}
	}
	return nil
}

// Shutdown sets the stop signal on every worker, waits up to
// ShutdownTimeout for them to exit, then releases the ownership lock
// regardless (a wedged worker must never hold the daemon hostage forever
// at next start). Idempotent: calling it twice is a no-op the second
// time.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	lock := s.lock
	metricsSrv := s.metricsSrv
	s.mu.Unlock()

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		_ = metricsSrv.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownTimeout):
		s.logger.Warn("graceful shutdown timed out, workers force-abandoned",
			slog.Duration("timeout", s.cfg.ShutdownTimeout))
	}

	if err := s.persistStatus("stopped"); err != nil {
		s.logger.Warn("failed to write final runtime status", internallog.Error(err))
	}

	if lock != nil {
		if err := lock.Remove(); err != nil {
			return fmt.Errorf("supervisor: release lock: %w", err)
		}
	}
	s.logger.Info("supervisor stopped")
	return nil
}

func (s *Supervisor) persistStatus(state string) error {
	status := &RuntimeStatus{
		PID:       currentPID(),
		StartedAt: s.startedAt,
		State:     state,
	}
	for _, w := range s.workers {
		status.Workers = append(status.Workers, WorkerStatus{ID: w.ID(), WorkerHealth: w.Health()})
	}
	return writeRuntimeStatus(s.cfg.StateRoot, status)
}

// Status reads runtime.json and reconciles it against actual PID
// liveness, self-healing (removing the lock) and returning
// *direrrors.StaleSupervisorError if the file claims "running" for a
// dead process.
func Status(stateRoot string) (*RuntimeStatus, error) {
	status, err := readRuntimeStatus(stateRoot)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return &RuntimeStatus{State: "stopped"}, nil
	}
	reconciled, err := reconcileStatus(stateRoot, status)
	if err != nil {
		var stale *direrrors.StaleSupervisorError
		if errors.As(err, &stale) {
			return reconciled, err
		}
		return nil, err
	}
	return reconciled, nil
}

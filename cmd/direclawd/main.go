// Command direclawd is the DireClaw supervisor daemon: it owns the
// ownership lock, every orchestrator's queue/channel/heartbeat workers,
// and the local control-plane socket `direclaw send`/`attach`/`status`
// talk to. Grounded on the teacher's cmd/conductord/main.go (flag
// parsing, signal-driven graceful shutdown against a context), rebuilt
// around internal/supervisor's worker registry instead of the teacher's
// single HTTP server lifecycle, since one direclawd process drives many
// orchestrators' independent worker sets rather than one API surface.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/direclaw/direclaw/internal/channel"
	"github.com/direclaw/direclaw/internal/config"
	"github.com/direclaw/direclaw/internal/control"
	"github.com/direclaw/direclaw/internal/jq"
	internallog "github.com/direclaw/direclaw/internal/log"
	"github.com/direclaw/direclaw/internal/orchestrator"
	"github.com/direclaw/direclaw/internal/provider"
	"github.com/direclaw/direclaw/internal/queue"
	"github.com/direclaw/direclaw/internal/secrets"
	"github.com/direclaw/direclaw/internal/supervisor"
	"github.com/direclaw/direclaw/internal/telemetry"
	"github.com/direclaw/direclaw/internal/workflow"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		stateRoot   string
		foreground  bool
		showVersion bool
	)
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--state-root":
			if i+1 < len(args) {
				stateRoot = args[i+1]
				i++
			}
		case "--foreground":
			foreground = true
		case "--version":
			showVersion = true
		}
	}
	_ = foreground // the daemon always runs in the calling process; detaching is the CLI's job

	if showVersion {
		fmt.Printf("direclawd %s (commit: %s, built: %s)\n", version, commit, buildDate)
		return
	}
	if stateRoot == "" {
		stateRoot = config.DefaultStateRoot()
	}

	logger := internallog.WithComponent(internallog.New(internallog.FromEnv()), "direclawd")
	slog.SetDefault(logger)

	if err := run(stateRoot, logger); err != nil {
		logger.Error("direclawd exited with error", internallog.Error(err))
		os.Exit(1)
	}
}

func run(stateRoot string, logger *slog.Logger) error {
	cfg, err := config.Load(config.GlobalConfigPath(stateRoot))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	installProviderSecrets(stateRoot, logger)

	metrics := telemetry.NewMetrics()
	tracingCfg := telemetry.TracingConfig{
		ServiceName:    "direclawd",
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
		OTLPProtocol:   cfg.Monitoring.OTLPProtocol,
		OTLPInsecure:   cfg.Monitoring.OTLPInsecure,
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracing, err := telemetry.NewProvider(ctx, tracingCfg, metrics.Registry())
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer tracing.Shutdown(context.Background())

	sup := supervisor.New(supervisor.Config{
		StateRoot:      stateRoot,
		Logger:         logger,
		MetricsAddr:    cfg.Monitoring.MetricsAddr,
		MetricsHandler: metrics.Handler(),
	})

	local := channel.NewLocalAdapter(stateRoot)
	heartbeatInterval := time.Duration(cfg.Monitoring.HeartbeatIntervalSeconds) * time.Second

	for orchestratorID := range cfg.Orchestrators {
		if err := wireOrchestrator(sup, cfg, stateRoot, orchestratorID, local, heartbeatInterval, metrics, logger); err != nil {
			return fmt.Errorf("wire orchestrator %s: %w", orchestratorID, err)
		}
	}

	secret, err := control.LoadOrCreateSessionSecret(stateRoot)
	if err != nil {
		return fmt.Errorf("load control session secret: %w", err)
	}
	controlServer := control.NewServer(control.Config{
		SocketPath:  config.ControlSocketPath(stateRoot),
		Secret:      secret,
		Status:      statusProvider{stateRoot: stateRoot},
		Sender:      localSender{local: local},
		Replies:     local,
		RateLimiter: control.NewRateLimiter(5, 10),
		Logger:      logger,
	})

	watcher, err := config.NewWatcher(stateRoot, func(*config.Config) {
		logger.Info("config change detected; orchestrator/channel-profile edits take effect on next restart")
	}, logger)
	if err != nil {
		return fmt.Errorf("start config watcher: %w", err)
	}
	watcher.Start(ctx)
	defer watcher.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	controlErrCh := make(chan error, 1)
	go func() { controlErrCh <- controlServer.Serve(ctx) }()

	supervisorErrCh := make(chan error, 1)
	go func() { supervisorErrCh <- sup.Start(ctx) }()

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
		cancel()
		<-supervisorErrCh
		return nil
	case err := <-supervisorErrCh:
		cancel()
		return err
	case err := <-controlErrCh:
		cancel()
		<-supervisorErrCh
		return fmt.Errorf("control server: %w", err)
	}
}

// installProviderSecrets resolves the Anthropic/OpenAI credentials
// secrets.Manager knows about and exports them into this process's
// environment, so every `claude`/`codex` subprocess provider.Run spawns
// inherits them without internal/provider needing its own secrets
// dependency.
func installProviderSecrets(stateRoot string, logger *slog.Logger) {
	mgr, err := secrets.NewManager(stateRoot)
	if err != nil {
		logger.Warn("secrets manager unavailable, relying on ambient environment", internallog.Error(err))
		return
	}
	for env, key := range map[string]string{
		"ANTHROPIC_API_KEY": "anthropic_api_key",
		"OPENAI_API_KEY":    "openai_api_key",
	} {
		if os.Getenv(env) != "" {
			continue
		}
		value, err := mgr.Get(context.Background(), key)
		if err != nil {
			continue
		}
		os.Setenv(env, value)
	}
}

// wireOrchestrator builds one orchestrator's queue/run stores, engine,
// router, and function registry, runs its pre-start recovery sweep
// directly (supervisor.Config only carries a single QueueStore/RunStore
// pair, built for a single-orchestrator recovery call; since one
// direclawd process owns every orchestrator under this state root, each
// one's recovery runs here instead, using the same exported primitives
// internal/supervisor's own recovery step calls), and registers its
// queue_processor and channel workers with sup.
func wireOrchestrator(
	sup *supervisor.Supervisor,
	cfg *config.Config,
	stateRoot string,
	orchestratorID string,
	local *channel.LocalAdapter,
	heartbeatInterval time.Duration,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) error {
	oc, err := config.LoadOrchestrator(cfg.OrchestratorConfigPath(orchestratorID))
	if err != nil {
		return err
	}
	root := cfg.OrchestratorRoot(orchestratorID)

	queueStore := queue.NewStore(root)
	runStore := workflow.NewRunStore(root)
	selectStore := orchestrator.NewSelectStore(root)

	if _, _, err := queueStore.RecoverOnStartup(); err != nil {
		return fmt.Errorf("queue recovery: %w", err)
	}
	if err := recoverStrandedRuns(runStore, supervisor.DefaultRecoveryHorizon, time.Now(), logger); err != nil {
		return fmt.Errorf("run recovery: %w", err)
	}

	defs, err := workflow.LoadDefinitions(root)
	if err != nil {
		return err
	}

	var sharedWorkspaces []workflow.SharedWorkspace
	for _, name := range cfg.Orchestrators[orchestratorID].SharedAccess {
		if ws, ok := cfg.SharedWorkspaces[name]; ok {
			sharedWorkspaces = append(sharedWorkspaces, workflow.SharedWorkspace{Name: name, Path: ws.Path})
		}
	}

	engine := &workflow.Engine{
		OrchestratorID:   orchestratorID,
		PrivateWorkspace: root,
		Workflows:        defs,
		Agents:           oc.Agents,
		Store:            runStore,
		Guard: &workflow.WorkspaceGuard{
			OrchestratorID:   orchestratorID,
			PrivateWorkspace: root,
			Shared:           sharedWorkspaces,
			SecurityLogPath:  config.SecurityLogPath(stateRoot),
		},
		Orchestration: workflow.Orchestration{
			DefaultRunTimeoutSeconds:  oc.WorkflowOrchestration.DefaultRunTimeoutSeconds,
			DefaultStepTimeoutSeconds: oc.WorkflowOrchestration.DefaultStepTimeoutSeconds,
			MaxStepTimeoutSeconds:     oc.WorkflowOrchestration.MaxStepTimeoutSeconds,
			MaxTotalIterations:        oc.WorkflowOrchestration.MaxTotalIterations,
		},
		Metrics: metrics,
	}

	selectorAgent, ok := oc.Agents[oc.SelectorAgent]
	if !ok {
		return fmt.Errorf("selector agent %q not defined", oc.SelectorAgent)
	}
	selector := &orchestrator.Selector{
		OrchestratorID:   orchestratorID,
		PrivateWorkspace: root,
		SelectorAgentID:  oc.SelectorAgent,
		SelectorAgent:    selectorAgent,
		Store:            selectStore,
		Runner:           provider.Run,
	}

	funcs := orchestrator.NewFunctionRegistry()
	orchestrator.RegisterConfigFunctions(funcs, cfg, config.GlobalConfigPath(stateRoot))
	orchestrator.RegisterWorkflowFunctions(funcs, engine, runStore)

	// Diagnostics runs share the selector agent: spec §4.9 defines no
	// separate diagnostics_agent field on orchestrator.yaml, and the
	// selector agent is already the one agent every orchestrator is
	// required to define.
	investigator := &orchestrator.Investigator{
		OrchestratorID:   orchestratorID,
		PrivateWorkspace: root,
		DiagnosticsAgent: selectorAgent,
		RunStore:         runStore,
		JQ:               jq.NewExecutor(30*time.Second, 1<<20),
		Runner:           provider.Run,
	}
	investigator.SetRunIndex(func() []string {
		ids, _ := runStore.ListRunIDs()
		return ids
	})

	replyPolicy, err := orchestrator.NewReplyPolicy()
	if err != nil {
		return fmt.Errorf("build reply policy: %w", err)
	}

	router := &orchestrator.Router{
		OrchestratorID:       orchestratorID,
		DefaultWorkflow:      oc.DefaultWorkflow,
		Engine:               engine,
		RunStore:             runStore,
		Selector:             selector,
		Investigator:         investigator,
		Functions:            funcs,
		ReplyPolicy:          replyPolicy,
		ActiveRuns:           orchestrator.NewActiveRunIndex(),
		SelectionMaxRetries:  oc.SelectionMaxRetries,
		AvailableWorkflowIDs: oc.Workflows,
	}

	scheduler := queue.NewScheduler(oc.Queue.MaxConcurrency)
	worker := queue.NewWorker(queueStore, scheduler, router.Route, logger)
	worker.SetDepthObserver(metrics)
	sup.AddWorker(supervisor.QueueProcessorWorker(worker, supervisor.DefaultQueuePollInterval, logger))

	for profileID, profile := range cfg.ChannelProfiles {
		if profile.OrchestratorID != orchestratorID {
			continue
		}
		switch profile.Channel {
		case "local":
			sup.AddWorker(supervisor.ChannelWorker(profileID, local, queueStore, supervisor.DefaultQueuePollInterval, logger))
		case "heartbeat":
			if heartbeatInterval > 0 {
				sup.AddWorker(supervisor.HeartbeatWorker(channel.NewHeartbeatAdapter(time.Now), queueStore, heartbeatInterval, logger))
			}
		default:
			logger.Warn("channel profile names an unsupported transport, skipping", slog.String("profile", profileID), slog.String("channel", profile.Channel))
		}
	}

	return nil
}

func recoverStrandedRuns(store *workflow.RunStore, horizon time.Duration, now time.Time, logger *slog.Logger) error {
	ids, err := store.ListRunIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		record, err := store.LoadRun(id)
		if err != nil {
			logger.Warn("run recovery: failed to load run", internallog.Error(err), slog.String("runId", id))
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
			logger.Warn("run recovery: failed to mark run failed", internallog.Error(err), slog.String("runId", id))
			continue
		}
		logger.Warn("run recovery: marked stranded run failed", slog.String("runId", id))
	}
	return nil
}

type statusProvider struct{ stateRoot string }

func (s statusProvider) Status() (any, error) {
	return supervisor.Status(s.stateRoot)
}

// localSender adapts internal/channel.LocalAdapter (which takes a
// channel.LocalRequest) to control.Sender (which takes a
// control.SendRequest); the two structs carry the same fields under
// different package boundaries (internal/control must not import
// internal/channel), so this is a pure field copy.
type localSender struct {
	local *channel.LocalAdapter
}

func (s localSender) WriteRequest(req *control.SendRequest) error {
	return s.local.WriteRequest(&channel.LocalRequest{
		Sender:         req.Sender,
		SenderID:       req.SenderID,
		Message:        req.Message,
		ConversationID: req.ConversationID,
		Files:          req.Files,
		MessageID:      req.MessageID,
		Timestamp:      req.Timestamp,
	})
}
